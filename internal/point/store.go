package point

import "context"

// BalanceStore persists the current balance per user.
type BalanceStore interface {
	// Get returns the stored balance and false when the user has none yet.
	Get(ctx context.Context, userID int64) (Balance, bool, error)
	// Set stores amount for the user and returns the persisted record with the
	// store-assigned timestamp.
	Set(ctx context.Context, userID, amount int64) (Balance, error)
}

// HistoryStore is the append-only transaction log.
type HistoryStore interface {
	// Append assigns the record ID.
	Append(ctx context.Context, userID, amount int64, kind Kind, createdAtMillis int64) (TransactionRecord, error)
	// ListByUser returns records in insertion order.
	ListByUser(ctx context.Context, userID int64) ([]TransactionRecord, error)
}

// AtomicStore writes the balance and its history record as one unit. Commit
// fails with ErrStaleBalance when the stored amount differs from m.Previous.
type AtomicStore interface {
	Commit(ctx context.Context, m Mutation) (Balance, TransactionRecord, error)
}
