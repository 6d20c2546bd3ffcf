package point

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a concurrency-safe in-process BalanceStore and HistoryStore.
// It does not implement AtomicStore.
type MemoryStore struct {
	mu       sync.RWMutex
	balances map[int64]Balance
	history  map[int64][]TransactionRecord
	nextID   int64
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		balances: make(map[int64]Balance),
		history:  make(map[int64][]TransactionRecord),
		now:      time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (Balance, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bal, ok := s.balances[userID]
	return bal, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, userID, amount int64) (Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal := Balance{UserID: userID, Amount: amount, UpdatedAtMillis: s.now().UnixMilli()}
	s.balances[userID] = bal
	return bal, nil
}

func (s *MemoryStore) Append(_ context.Context, userID, amount int64, kind Kind, createdAtMillis int64) (TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	rec := TransactionRecord{
		ID:              s.nextID,
		UserID:          userID,
		Amount:          amount,
		Kind:            kind,
		CreatedAtMillis: createdAtMillis,
	}
	s.history[userID] = append(s.history[userID], rec)
	return rec, nil
}

func (s *MemoryStore) ListByUser(_ context.Context, userID int64) ([]TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.history[userID]
	out := make([]TransactionRecord, len(records))
	copy(out, records)
	return out, nil
}
