package point

// SeedBalance is a test helper that stores a balance directly in a MemoryStore
// without producing a history record.
func SeedBalance(s *MemoryStore, userID, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[userID] = Balance{UserID: userID, Amount: amount, UpdatedAtMillis: s.now().UnixMilli()}
}
