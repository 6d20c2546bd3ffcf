package point

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists balances in user_points and history in
// point_histories. Commit writes both inside one transaction.
type PostgresStore struct {
	db  *pgxpool.Pool
	now func() time.Time
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

// Get loads the user's balance row.
func (s *PostgresStore) Get(ctx context.Context, userID int64) (Balance, bool, error) {
	const query = `SELECT user_id, point, updated_at_millis FROM user_points WHERE user_id = $1`
	var bal Balance
	if err := s.db.QueryRow(ctx, query, userID).Scan(&bal.UserID, &bal.Amount, &bal.UpdatedAtMillis); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, false, nil
		}
		return Balance{}, false, err
	}
	return bal, true, nil
}

// Set upserts the user's balance.
func (s *PostgresStore) Set(ctx context.Context, userID, amount int64) (Balance, error) {
	const query = `
        INSERT INTO user_points (user_id, point, updated_at_millis)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id) DO UPDATE
        SET point = EXCLUDED.point, updated_at_millis = EXCLUDED.updated_at_millis
        RETURNING user_id, point, updated_at_millis`
	var bal Balance
	err := s.db.QueryRow(ctx, query, userID, amount, s.now().UnixMilli()).Scan(&bal.UserID, &bal.Amount, &bal.UpdatedAtMillis)
	return bal, err
}

// Append inserts a history record.
func (s *PostgresStore) Append(ctx context.Context, userID, amount int64, kind Kind, createdAtMillis int64) (TransactionRecord, error) {
	return insertHistory(ctx, s.db, userID, amount, kind, createdAtMillis)
}

// ListByUser returns the user's history ordered by id.
func (s *PostgresStore) ListByUser(ctx context.Context, userID int64) ([]TransactionRecord, error) {
	const query = `
        SELECT id, user_id, amount, kind, created_at_millis
        FROM point_histories
        WHERE user_id = $1
        ORDER BY id`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TransactionRecord{}
	for rows.Next() {
		var rec TransactionRecord
		var kind string
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Amount, &kind, &rec.CreatedAtMillis); err != nil {
			return nil, err
		}
		rec.Kind = Kind(kind)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Commit locks the user's row, checks it still holds m.Previous, then writes
// the new balance and the history record in the same transaction.
func (s *PostgresStore) Commit(ctx context.Context, m Mutation) (Balance, TransactionRecord, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Balance{}, TransactionRecord{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO user_points (user_id, point, updated_at_millis) VALUES ($1, 0, $2)
        ON CONFLICT (user_id) DO NOTHING`, m.UserID, m.AtMillis); err != nil {
		return Balance{}, TransactionRecord{}, err
	}

	var stored int64
	if err := tx.QueryRow(ctx, `SELECT point FROM user_points WHERE user_id = $1 FOR UPDATE`, m.UserID).Scan(&stored); err != nil {
		return Balance{}, TransactionRecord{}, err
	}
	if stored != m.Previous {
		return Balance{}, TransactionRecord{}, fmt.Errorf("%w: expected %d, found %d", ErrStaleBalance, m.Previous, stored)
	}

	var bal Balance
	if err := tx.QueryRow(ctx, `UPDATE user_points SET point = $2, updated_at_millis = $3 WHERE user_id = $1
        RETURNING user_id, point, updated_at_millis`, m.UserID, m.Next, m.AtMillis).Scan(&bal.UserID, &bal.Amount, &bal.UpdatedAtMillis); err != nil {
		return Balance{}, TransactionRecord{}, err
	}

	rec, err := insertHistory(ctx, tx, m.UserID, m.Amount, m.Kind, m.AtMillis)
	if err != nil {
		return Balance{}, TransactionRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Balance{}, TransactionRecord{}, err
	}
	return bal, rec, nil
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertHistory(ctx context.Context, q queryRower, userID, amount int64, kind Kind, createdAtMillis int64) (TransactionRecord, error) {
	const query = `
        INSERT INTO point_histories (user_id, amount, kind, created_at_millis)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	rec := TransactionRecord{UserID: userID, Amount: amount, Kind: kind, CreatedAtMillis: createdAtMillis}
	if err := q.QueryRow(ctx, query, userID, amount, string(kind), createdAtMillis).Scan(&rec.ID); err != nil {
		return TransactionRecord{}, err
	}
	return rec, nil
}

var (
	_ BalanceStore = (*PostgresStore)(nil)
	_ HistoryStore = (*PostgresStore)(nil)
	_ AtomicStore  = (*PostgresStore)(nil)
)
