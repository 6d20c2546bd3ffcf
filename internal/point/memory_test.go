package point

import (
	"context"
	"sync"
	"testing"
)

func TestMemoryStore_GetMissingUser(t *testing.T) {
	s := NewMemoryStore()
	if _, ok, err := s.Get(context.Background(), 42); err != nil || ok {
		t.Fatalf("expected absent balance, got ok=%v err=%v", ok, err)
	}
}

func TestMemoryStore_AppendAssignsIncreasingIDs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	a, _ := s.Append(ctx, 1, 10, KindCredit, 1)
	b, _ := s.Append(ctx, 2, 20, KindCredit, 2)
	c, _ := s.Append(ctx, 1, 5, KindDebit, 3)
	if !(a.ID < b.ID && b.ID < c.ID) {
		t.Fatalf("ids not increasing: %d %d %d", a.ID, b.ID, c.ID)
	}

	records, _ := s.ListByUser(ctx, 1)
	if len(records) != 2 || records[0].ID != a.ID || records[1].ID != c.ID {
		t.Fatalf("unexpected records for user 1: %+v", records)
	}
}

func TestMemoryStore_ListReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	s.Append(ctx, 1, 10, KindCredit, 1)

	records, _ := s.ListByUser(ctx, 1)
	records[0].Amount = 999

	again, _ := s.ListByUser(ctx, 1)
	if again[0].Amount != 10 {
		t.Fatalf("stored record mutated through returned slice")
	}
}

func TestMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Append(ctx, 1, 1, KindCredit, 1); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	records, _ := s.ListByUser(ctx, 1)
	if len(records) != workers {
		t.Fatalf("expected %d records, got %d", workers, len(records))
	}
	seen := make(map[int64]bool, workers)
	for _, rec := range records {
		if seen[rec.ID] {
			t.Fatalf("duplicate id %d", rec.ID)
		}
		seen[rec.ID] = true
	}
}
