package providergateway

import (
	"context"
	"encoding/json"
	"fmt"
)

// MockGateway is a configurable in-memory Gateway for tests.
type MockGateway struct {
	Subscriptions map[string]*SubscriptionSnapshot
	VerifyErr     error
	FetchErr      error

	CanceledIDs      []string
	ReactivatedIDs   []string
	CreatedUsers     []uint
	CheckoutRequests []CheckoutSessionRequest
}

func NewMockGateway() *MockGateway {
	return &MockGateway{
		Subscriptions: make(map[string]*SubscriptionSnapshot),
	}
}

// mockEvent is the envelope shape VerifyWebhook decodes in tests.
type mockEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

func (m *MockGateway) VerifyWebhook(payload []byte, signature string) (*WebhookEnvelope, error) {
	if m.VerifyErr != nil {
		return nil, m.VerifyErr
	}
	var evt mockEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	return &WebhookEnvelope{ID: evt.ID, Type: evt.Type, Object: evt.Data.Object}, nil
}

func (m *MockGateway) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	snap, ok := m.Subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("subscription %s not found", subscriptionID)
	}
	return snap, nil
}

func (m *MockGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	snap, err := m.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	snap.CancelAtPeriodEnd = true
	m.CanceledIDs = append(m.CanceledIDs, subscriptionID)
	return snap, nil
}

func (m *MockGateway) Reactivate(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error) {
	snap, err := m.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	snap.CancelAtPeriodEnd = false
	snap.Status = "active"
	m.ReactivatedIDs = append(m.ReactivatedIDs, subscriptionID)
	return snap, nil
}

func (m *MockGateway) CreateCustomer(ctx context.Context, email string, userID uint) (string, error) {
	m.CreatedUsers = append(m.CreatedUsers, userID)
	return fmt.Sprintf("cus_mock_%d", userID), nil
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (*CheckoutSession, error) {
	m.CheckoutRequests = append(m.CheckoutRequests, req)
	return &CheckoutSession{
		ID:  fmt.Sprintf("cs_mock_%s", req.CustomerID),
		URL: fmt.Sprintf("https://checkout.example.com/c/%s", req.CustomerID),
	}, nil
}

func (m *MockGateway) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	return fmt.Sprintf("https://billing.example.com/p/%s", customerID), nil
}
