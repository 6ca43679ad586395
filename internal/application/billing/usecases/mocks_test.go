package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// newMockLogger returns a no-op logger.Interface for tests.
func newMockLogger() logger.Interface {
	return &mockLogger{}
}

type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)                   {}
func (m *mockLogger) Info(msg string, args ...any)                    {}
func (m *mockLogger) Warn(msg string, args ...any)                    {}
func (m *mockLogger) Error(msg string, args ...any)                   {}
func (m *mockLogger) Fatal(msg string, args ...any)                   {}
func (m *mockLogger) With(args ...any) logger.Interface               { return m }
func (m *mockLogger) Named(name string) logger.Interface              { return m }
func (m *mockLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Fatalw(msg string, keysAndValues ...interface{}) {}

// fakeAccountRepo is an in-memory AccountRepository keyed by user ID.
type fakeAccountRepo struct {
	mu       sync.Mutex
	byUserID map[uint]*billing.Account
	updates  int
	failNext error
}

func newFakeAccountRepo(accounts ...*billing.Account) *fakeAccountRepo {
	r := &fakeAccountRepo{byUserID: make(map[uint]*billing.Account)}
	for _, a := range accounts {
		r.byUserID[a.UserID()] = a
	}
	return r
}

func (r *fakeAccountRepo) Create(ctx context.Context, account *billing.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byUserID[account.UserID()]; ok {
		return apperrors.NewConflictError("billing account already exists")
	}
	r.byUserID[account.UserID()] = account
	return nil
}

func (r *fakeAccountRepo) FindByUserID(ctx context.Context, userID uint) (*billing.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.byUserID[userID]; ok {
		return a, nil
	}
	return nil, apperrors.NewNotFoundError("billing account not found")
}

func (r *fakeAccountRepo) FindByCustomerID(ctx context.Context, customerID string) (*billing.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byUserID {
		if a.CustomerID() != nil && *a.CustomerID() == customerID {
			return a, nil
		}
	}
	return nil, apperrors.NewNotFoundError("billing account not found")
}

func (r *fakeAccountRepo) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*billing.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byUserID {
		if a.SubscriptionID() != nil && *a.SubscriptionID() == subscriptionID {
			return a, nil
		}
	}
	return nil, apperrors.NewNotFoundError("billing account not found")
}

func (r *fakeAccountRepo) Update(ctx context.Context, account *billing.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	r.byUserID[account.UserID()] = account
	r.updates++
	return nil
}

func (r *fakeAccountRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

// fakeEventRepo is an in-memory idempotency ledger.
type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*billing.WebhookEvent
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*billing.WebhookEvent)}
}

func (r *fakeEventRepo) ClaimOrGet(ctx context.Context, event *billing.WebhookEvent, staleAfter time.Duration) (*billing.ClaimResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.events[event.EventID()]
	if !ok {
		r.events[event.EventID()] = event
		return &billing.ClaimResult{Claimed: true}, nil
	}
	switch {
	case existing.Status() == vo.EventStatusFailed,
		existing.IsStale(staleAfter, time.Now().UTC()):
		r.events[event.EventID()] = event
		return &billing.ClaimResult{Claimed: true}, nil
	default:
		return &billing.ClaimResult{Claimed: false, Existing: existing}, nil
	}
}

func (r *fakeEventRepo) MarkSucceeded(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	evt, ok := r.events[eventID]
	if !ok {
		return apperrors.NewNotFoundError("event not found")
	}
	return evt.MarkSucceeded(time.Now().UTC())
}

func (r *fakeEventRepo) MarkFailed(ctx context.Context, eventID string, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	evt, ok := r.events[eventID]
	if !ok {
		return apperrors.NewNotFoundError("event not found")
	}
	return evt.MarkFailed(reason, time.Now().UTC())
}

func (r *fakeEventRepo) FindByEventID(ctx context.Context, eventID string) (*billing.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if evt, ok := r.events[eventID]; ok {
		return evt, nil
	}
	return nil, apperrors.NewNotFoundError("event not found")
}

// fakeNotifier records sent emails.
type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
}

type sentEmail struct {
	recipient  string
	templateID string
	variables  map[string]string
}

func (n *fakeNotifier) Send(ctx context.Context, recipient, templateID string, variables map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{recipient: recipient, templateID: templateID, variables: variables})
	return nil
}

func (n *fakeNotifier) sentTemplates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		out = append(out, s.templateID)
	}
	return out
}
