package point

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisBalancePrefix = "point:v1:balance:"
	redisHistoryPrefix = "point:v1:history:"
	redisHistorySeqKey = "point:v1:history:seq"

	fieldAmount    = "amount"
	fieldUpdatedAt = "updated_at_millis"
)

type storedRecord struct {
	ID              int64  `json:"id"`
	UserID          int64  `json:"user_id"`
	Amount          int64  `json:"amount"`
	Kind            string `json:"kind"`
	CreatedAtMillis int64  `json:"created_at_millis"`
}

// RedisStore keeps each balance in a hash and each user's history in a list of
// JSON records. IDs come from a shared INCR counter.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore constructs a Redis-backed store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func balanceKey(userID int64) string {
	return redisBalancePrefix + strconv.FormatInt(userID, 10)
}

func historyKey(userID int64) string {
	return redisHistoryPrefix + strconv.FormatInt(userID, 10)
}

// Get reads the balance hash.
func (s *RedisStore) Get(ctx context.Context, userID int64) (Balance, bool, error) {
	fields, err := s.client.HGetAll(ctx, balanceKey(userID)).Result()
	if err != nil {
		return Balance{}, false, err
	}
	if len(fields) == 0 {
		return Balance{}, false, nil
	}
	amount, err := strconv.ParseInt(fields[fieldAmount], 10, 64)
	if err != nil {
		return Balance{}, false, fmt.Errorf("decode amount: %w", err)
	}
	updatedAt, err := strconv.ParseInt(fields[fieldUpdatedAt], 10, 64)
	if err != nil {
		return Balance{}, false, fmt.Errorf("decode updated_at: %w", err)
	}
	return Balance{UserID: userID, Amount: amount, UpdatedAtMillis: updatedAt}, true, nil
}

// Set overwrites the balance hash.
func (s *RedisStore) Set(ctx context.Context, userID, amount int64) (Balance, error) {
	bal := Balance{UserID: userID, Amount: amount, UpdatedAtMillis: s.now().UnixMilli()}
	if err := s.client.HSet(ctx, balanceKey(userID), fieldAmount, bal.Amount, fieldUpdatedAt, bal.UpdatedAtMillis).Err(); err != nil {
		return Balance{}, err
	}
	return bal, nil
}

// Append pushes a record onto the user's history list.
func (s *RedisStore) Append(ctx context.Context, userID, amount int64, kind Kind, createdAtMillis int64) (TransactionRecord, error) {
	rec, payload, err := s.newRecord(ctx, userID, amount, kind, createdAtMillis)
	if err != nil {
		return TransactionRecord{}, err
	}
	if err := s.client.RPush(ctx, historyKey(userID), payload).Err(); err != nil {
		return TransactionRecord{}, err
	}
	return rec, nil
}

// ListByUser decodes the user's history list.
func (s *RedisStore) ListByUser(ctx context.Context, userID int64) ([]TransactionRecord, error) {
	raw, err := s.client.LRange(ctx, historyKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]TransactionRecord, 0, len(raw))
	for _, item := range raw {
		var stored storedRecord
		if err := json.Unmarshal([]byte(item), &stored); err != nil {
			return nil, fmt.Errorf("decode history record: %w", err)
		}
		out = append(out, TransactionRecord{
			ID:              stored.ID,
			UserID:          stored.UserID,
			Amount:          stored.Amount,
			Kind:            Kind(stored.Kind),
			CreatedAtMillis: stored.CreatedAtMillis,
		})
	}
	return out, nil
}

// Commit watches the balance key and writes the balance and history record in
// one MULTI/EXEC. A concurrent write to the key aborts with ErrStaleBalance.
func (s *RedisStore) Commit(ctx context.Context, m Mutation) (Balance, TransactionRecord, error) {
	rec, payload, err := s.newRecord(ctx, m.UserID, m.Amount, m.Kind, m.AtMillis)
	if err != nil {
		return Balance{}, TransactionRecord{}, err
	}
	bal := Balance{UserID: m.UserID, Amount: m.Next, UpdatedAtMillis: m.AtMillis}
	bKey := balanceKey(m.UserID)

	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := tx.HGet(ctx, bKey, fieldAmount).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if stored != m.Previous {
			return fmt.Errorf("%w: expected %d, found %d", ErrStaleBalance, m.Previous, stored)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, bKey, fieldAmount, bal.Amount, fieldUpdatedAt, bal.UpdatedAtMillis)
			pipe.RPush(ctx, historyKey(m.UserID), payload)
			return nil
		})
		return err
	}, bKey)
	if errors.Is(err, redis.TxFailedErr) {
		return Balance{}, TransactionRecord{}, ErrStaleBalance
	}
	if err != nil {
		return Balance{}, TransactionRecord{}, err
	}
	return bal, rec, nil
}

func (s *RedisStore) newRecord(ctx context.Context, userID, amount int64, kind Kind, createdAtMillis int64) (TransactionRecord, []byte, error) {
	id, err := s.client.Incr(ctx, redisHistorySeqKey).Result()
	if err != nil {
		return TransactionRecord{}, nil, fmt.Errorf("assign history id: %w", err)
	}
	rec := TransactionRecord{ID: id, UserID: userID, Amount: amount, Kind: kind, CreatedAtMillis: createdAtMillis}
	payload, err := json.Marshal(storedRecord{
		ID:              rec.ID,
		UserID:          rec.UserID,
		Amount:          rec.Amount,
		Kind:            string(rec.Kind),
		CreatedAtMillis: rec.CreatedAtMillis,
	})
	if err != nil {
		return TransactionRecord{}, nil, err
	}
	return rec, payload, nil
}

var (
	_ BalanceStore = (*RedisStore)(nil)
	_ HistoryStore = (*RedisStore)(nil)
	_ AtomicStore  = (*RedisStore)(nil)
)
