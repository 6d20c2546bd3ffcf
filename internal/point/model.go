package point

// Kind identifies the direction of a balance change.
type Kind string

const (
	// KindCredit increases a balance ("charge").
	KindCredit Kind = "CHARGE"
	// KindDebit decreases a balance ("use").
	KindDebit Kind = "USE"
)

// Balance is the current point total owned by a user.
type Balance struct {
	UserID          int64
	Amount          int64
	UpdatedAtMillis int64
}

// TransactionRecord is one immutable history entry. Amount is the magnitude of
// the change; Kind carries the direction.
type TransactionRecord struct {
	ID              int64
	UserID          int64
	Amount          int64
	Kind            Kind
	CreatedAtMillis int64
}

// Mutation describes a validated balance change ready to be persisted.
type Mutation struct {
	UserID   int64
	Kind     Kind
	Amount   int64
	Previous int64
	Next     int64
	AtMillis int64
}
