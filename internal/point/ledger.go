package point

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/congo-pay/pointledger/internal/logging"
	"github.com/congo-pay/pointledger/internal/metrics"
	"github.com/congo-pay/pointledger/internal/notification"
)

// DefaultMaxBalance is the ceiling used when no WithMaxBalance option is given.
const DefaultMaxBalance int64 = 1_000_000

// Ledger validates and applies point mutations. Credit and Debit for the same
// user are serialized; reads take no lock and may observe a balance whose
// history record has not been appended yet.
type Ledger struct {
	balances   BalanceStore
	history    HistoryStore
	atomic     AtomicStore
	locks      *keyedMutex
	maxBalance int64
	now        func() time.Time
	logger     *slog.Logger
	notifier   notification.Notifier
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxBalance overrides the balance ceiling.
func WithMaxBalance(max int64) Option {
	return func(l *Ledger) {
		if max > 0 {
			l.maxBalance = max
		}
	}
}

// WithAtomicStore makes Credit and Debit persist through a single atomic
// commit instead of a balance write followed by a history append.
func WithAtomicStore(a AtomicStore) Option {
	return func(l *Ledger) { l.atomic = a }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger used for mutation events.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithNotifier sends a message after every applied mutation.
func WithNotifier(n notification.Notifier) Option {
	return func(l *Ledger) { l.notifier = n }
}

// NewLedger builds a ledger over the given stores.
func NewLedger(balances BalanceStore, history HistoryStore, opts ...Option) *Ledger {
	l := &Ledger{
		balances:   balances,
		history:    history,
		locks:      newKeyedMutex(),
		maxBalance: DefaultMaxBalance,
		now:        time.Now,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// MaxBalance reports the configured ceiling.
func (l *Ledger) MaxBalance() int64 { return l.maxBalance }

// Balance returns the user's balance, or a zero balance if none was stored yet.
func (l *Ledger) Balance(ctx context.Context, userID int64) (Balance, error) {
	return l.current(ctx, userID)
}

// History returns the user's records in insertion order.
func (l *Ledger) History(ctx context.Context, userID int64) ([]TransactionRecord, error) {
	records, err := l.history.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list history for user %d: %w", userID, err)
	}
	if records == nil {
		records = []TransactionRecord{}
	}
	return records, nil
}

// Credit adds amount to the user's balance.
func (l *Ledger) Credit(ctx context.Context, userID, amount int64) (Balance, error) {
	if amount < 0 {
		return Balance{}, l.reject(ctx, KindCredit, userID, &InvalidAmountError{Amount: amount})
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	current, err := l.current(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	if amount > l.maxBalance-current.Amount {
		attempted := current.Amount + amount
		if attempted < current.Amount {
			attempted = math.MaxInt64
		}
		return Balance{}, l.reject(ctx, KindCredit, userID, &CeilingExceededError{Attempted: attempted, Max: l.maxBalance})
	}

	return l.apply(ctx, current, KindCredit, amount, current.Amount+amount)
}

// Debit subtracts amount from the user's balance.
func (l *Ledger) Debit(ctx context.Context, userID, amount int64) (Balance, error) {
	if amount < 0 {
		return Balance{}, l.reject(ctx, KindDebit, userID, &InvalidAmountError{Amount: amount})
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	current, err := l.current(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	if current.Amount < amount {
		return Balance{}, l.reject(ctx, KindDebit, userID, &InsufficientBalanceError{Requested: amount, Available: current.Amount})
	}

	return l.apply(ctx, current, KindDebit, amount, current.Amount-amount)
}

func (l *Ledger) current(ctx context.Context, userID int64) (Balance, error) {
	bal, ok, err := l.balances.Get(ctx, userID)
	if err != nil {
		return Balance{}, fmt.Errorf("get balance for user %d: %w", userID, err)
	}
	if !ok {
		return Balance{UserID: userID, UpdatedAtMillis: l.now().UnixMilli()}, nil
	}
	return bal, nil
}

func (l *Ledger) apply(ctx context.Context, current Balance, kind Kind, amount, next int64) (Balance, error) {
	m := Mutation{
		UserID:   current.UserID,
		Kind:     kind,
		Amount:   amount,
		Previous: current.Amount,
		Next:     next,
		AtMillis: l.now().UnixMilli(),
	}

	bal, err := l.persist(ctx, m)
	if err != nil {
		metrics.MutationsFailed.WithLabelValues(string(kind)).Inc()
		l.logger.ErrorContext(ctx, "point mutation failed",
			slog.Int64("user_id", m.UserID),
			slog.String("kind", string(kind)),
			slog.Int64("amount", amount),
			slog.Any("error", err),
		)
		return Balance{}, err
	}

	metrics.MutationsTotal.WithLabelValues(string(kind)).Inc()
	l.logger.InfoContext(ctx, "point mutation applied",
		slog.Int64("user_id", m.UserID),
		slog.String("kind", string(kind)),
		slog.Int64("amount", amount),
		slog.Int64("balance", bal.Amount),
	)
	l.notify(ctx, m, bal)
	return bal, nil
}

// persist writes the mutation. Without an AtomicStore the balance is written
// first; if the history append then fails the previous amount is restored.
func (l *Ledger) persist(ctx context.Context, m Mutation) (Balance, error) {
	if l.atomic != nil {
		bal, _, err := l.atomic.Commit(ctx, m)
		if err != nil {
			return Balance{}, fmt.Errorf("commit %s for user %d: %w", m.Kind, m.UserID, err)
		}
		return bal, nil
	}

	bal, err := l.balances.Set(ctx, m.UserID, m.Next)
	if err != nil {
		return Balance{}, fmt.Errorf("set balance for user %d: %w", m.UserID, err)
	}
	if _, err := l.history.Append(ctx, m.UserID, m.Amount, m.Kind, m.AtMillis); err != nil {
		if _, restoreErr := l.balances.Set(ctx, m.UserID, m.Previous); restoreErr != nil {
			err = errors.Join(err, fmt.Errorf("restore balance %d: %w", m.Previous, restoreErr))
		}
		return Balance{}, fmt.Errorf("append history for user %d: %w", m.UserID, err)
	}
	return bal, nil
}

func (l *Ledger) reject(ctx context.Context, kind Kind, userID int64, err error) error {
	reason := "invalid_amount"
	switch {
	case errors.Is(err, ErrBalanceCeilingExceeded):
		reason = "ceiling_exceeded"
	case errors.Is(err, ErrInsufficientBalance):
		reason = "insufficient_balance"
	}
	metrics.MutationsRejected.WithLabelValues(string(kind), reason).Inc()
	l.logger.DebugContext(ctx, "point mutation rejected",
		slog.Int64("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("reason", reason),
	)
	return err
}

func (l *Ledger) notify(ctx context.Context, m Mutation, bal Balance) {
	if l.notifier == nil {
		return
	}
	kind := notification.KindPointCharged
	if m.Kind == KindDebit {
		kind = notification.KindPointUsed
	}
	err := l.notifier.Send(ctx, notification.Message{
		Kind:    kind,
		UserID:  m.UserID,
		Amount:  m.Amount,
		Balance: bal.Amount,
	})
	if err != nil {
		l.logger.WarnContext(ctx, "point notification failed", slog.Int64("user_id", m.UserID), slog.Any("error", err))
	}
}
