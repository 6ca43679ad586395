package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orris-inc/paywall/internal/application/billing/providergateway"
	"github.com/orris-inc/paywall/internal/domain/billing"
	vo "github.com/orris-inc/paywall/internal/domain/billing/valueobjects"
	"github.com/orris-inc/paywall/internal/shared/biztime"
	apperrors "github.com/orris-inc/paywall/internal/shared/errors"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// Provider event types with registered handlers. Anything else is
// acknowledged and logged, never rejected.
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventInvoiceFinalized        = "invoice.finalized"
	EventInvoicePaid             = "invoice.paid"
)

// ProcessWebhookCommand carries one raw webhook delivery.
type ProcessWebhookCommand struct {
	Payload   []byte
	Signature string
}

// eventHandler reconciles one verified event object against the
// canonical billing record.
type eventHandler func(ctx context.Context, object []byte) error

// TxRunner runs a function within a database transaction. The reconciler
// uses it to commit the account mutation and the ledger success mark
// atomically.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// passthroughTx runs the function directly, without a transaction.
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ProcessWebhookEventUseCase verifies, claims, dispatches, and reconciles
// provider webhook deliveries. Signature failures map to validation
// errors (non-retryable 400); reconciliation failures map to internal
// errors (retryable 500) after the ledger row is marked failed.
type ProcessWebhookEventUseCase struct {
	accountRepo billing.AccountRepository
	eventRepo   billing.WebhookEventRepository
	gateway     providergateway.Gateway
	notifier    BillingNotifier // Optional
	txRunner    TxRunner
	logger      logger.Interface

	handlers       map[string]eventHandler
	handlerTimeout time.Duration
	staleAfter     time.Duration
}

func NewProcessWebhookEventUseCase(
	accountRepo billing.AccountRepository,
	eventRepo billing.WebhookEventRepository,
	gateway providergateway.Gateway,
	handlerTimeout time.Duration,
	staleAfter time.Duration,
	logger logger.Interface,
) *ProcessWebhookEventUseCase {
	uc := &ProcessWebhookEventUseCase{
		accountRepo:    accountRepo,
		eventRepo:      eventRepo,
		gateway:        gateway,
		txRunner:       passthroughTx{},
		handlerTimeout: handlerTimeout,
		staleAfter:     staleAfter,
		logger:         logger,
	}
	uc.handlers = map[string]eventHandler{
		EventCheckoutCompleted:       uc.handleCheckoutCompleted,
		EventSubscriptionCreated:     uc.handleSubscriptionCreated,
		EventSubscriptionUpdated:     uc.handleSubscriptionUpdated,
		EventSubscriptionDeleted:     uc.handleSubscriptionDeleted,
		EventInvoicePaymentSucceeded: uc.handleInvoicePaid,
		EventInvoicePaymentFailed:    uc.handleInvoicePaymentFailed,
		EventInvoiceFinalized:        uc.handleInvoiceFinalized,
		EventInvoicePaid:             uc.handleInvoicePaid,
	}
	return uc
}

// SetNotifier sets the email notifier (optional dependency injection)
func (uc *ProcessWebhookEventUseCase) SetNotifier(notifier BillingNotifier) {
	uc.notifier = notifier
}

// SetTxRunner sets the transaction runner (optional dependency injection).
// Without one, the account mutation and the ledger mark are separate writes.
func (uc *ProcessWebhookEventUseCase) SetTxRunner(txRunner TxRunner) {
	uc.txRunner = txRunner
}

func (uc *ProcessWebhookEventUseCase) Execute(ctx context.Context, cmd ProcessWebhookCommand) error {
	envelope, err := uc.gateway.VerifyWebhook(cmd.Payload, cmd.Signature)
	if err != nil {
		uc.logger.Warnw("webhook signature verification failed", "error", err)
		return apperrors.NewValidationError("invalid webhook signature", err.Error())
	}

	log := uc.logger.With("event_id", envelope.ID, "event_type", envelope.Type)

	event, err := billing.NewWebhookEvent(envelope.ID, envelope.Type, cmd.Payload, biztime.NowUTC())
	if err != nil {
		return apperrors.NewValidationError("malformed webhook event", err.Error())
	}

	claim, err := uc.eventRepo.ClaimOrGet(ctx, event, uc.staleAfter)
	if err != nil {
		log.Errorw("failed to claim ledger row", "error", err)
		return apperrors.NewInternalError("failed to record webhook event")
	}

	if !claim.Claimed {
		switch claim.Existing.Status() {
		case vo.EventStatusSucceeded:
			log.Infow("duplicate delivery of processed event, acknowledging")
			return nil
		default:
			// Another worker holds a live processing claim. Ask the
			// provider to redeliver later instead of processing twice.
			log.Infow("event claim held by another worker",
				"status", claim.Existing.Status(),
				"received_at", claim.Existing.ReceivedAt(),
			)
			return apperrors.NewInternalError("event is being processed")
		}
	}

	handler, ok := uc.handlers[envelope.Type]
	if !ok {
		log.Infow("no handler registered for event type, acknowledging")
		if err := uc.eventRepo.MarkSucceeded(ctx, envelope.ID); err != nil {
			log.Errorw("failed to mark unhandled event succeeded", "error", err)
		}
		return nil
	}

	handlerCtx, cancel := context.WithTimeout(ctx, uc.handlerTimeout)
	defer cancel()

	// The account mutation and the success mark commit together: either
	// the event is fully applied and recorded, or neither write lands and
	// the provider redelivers.
	err = uc.txRunner.RunInTransaction(handlerCtx, func(txCtx context.Context) error {
		if err := handler(txCtx, envelope.Object); err != nil {
			return err
		}
		return uc.eventRepo.MarkSucceeded(txCtx, envelope.ID)
	})
	if err != nil {
		log.Errorw("event reconciliation failed", "error", err)
		if markErr := uc.eventRepo.MarkFailed(ctx, envelope.ID, err.Error()); markErr != nil {
			log.Errorw("failed to mark event failed", "error", markErr)
		}
		return apperrors.NewInternalError("webhook reconciliation failed", err.Error())
	}

	log.Infow("webhook event reconciled")
	return nil
}

// Payload shapes decoded from event data objects. Only identifiers are
// read from payloads; period boundaries always come from a fresh fetch.
type checkoutSessionPayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	Mode         string `json:"mode"`
}

type subscriptionPayload struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Status   string `json:"status"`
}

type invoicePayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
}

// handleCheckoutCompleted acts as a safety net: checkout completion can
// arrive before or independent of the subscription-created event, so it
// force-activates from the fetched subscription when one is present.
func (uc *ProcessWebhookEventUseCase) handleCheckoutCompleted(ctx context.Context, object []byte) error {
	var payload checkoutSessionPayload
	if err := json.Unmarshal(object, &payload); err != nil {
		return fmt.Errorf("failed to decode checkout session: %w", err)
	}
	if payload.Customer == "" {
		uc.logger.Warnw("checkout session has no customer, skipping", "session_id", payload.ID)
		return nil
	}

	account, err := uc.findByCustomer(ctx, payload.Customer)
	if err != nil || account == nil {
		return err
	}

	if payload.Subscription == "" {
		// Non-subscription checkout, nothing to reconcile.
		return nil
	}

	snap, err := uc.gateway.GetSubscription(ctx, payload.Subscription)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", payload.Subscription, err)
	}

	wasTrial := account.Status() == vo.StatusTrial
	if err := account.ActivateFromProvider(snap.ID, snap.CurrentPeriodStart, snap.CurrentPeriodEnd); err != nil {
		return err
	}
	account.SetMetadataValue("last_checkout_session", payload.ID)
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}

	if wasTrial {
		uc.sendEmail(account, TemplateWelcome, nil)
	}
	return nil
}

func (uc *ProcessWebhookEventUseCase) handleSubscriptionCreated(ctx context.Context, object []byte) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(object, &payload); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	account, err := uc.findByCustomer(ctx, payload.Customer)
	if err != nil || account == nil {
		return err
	}

	snap, err := uc.gateway.GetSubscription(ctx, payload.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", payload.ID, err)
	}

	if err := account.AttachSubscription(snap.ID); err != nil {
		return err
	}
	status := vo.ParseAccountStatus(snap.Status)
	if !status.IsValid() {
		uc.logger.Warnw("provider returned unrecognized subscription status",
			"subscription_id", snap.ID, "status", snap.Status)
		status = account.Status()
	}
	if err := account.SyncFromProvider(status, snap.CurrentPeriodStart, snap.CurrentPeriodEnd, snap.TrialEnd); err != nil {
		return err
	}
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// handleSubscriptionUpdated is the critical branch: it distinguishes a
// scheduled cancellation, a reactivation, and an ordinary field sync,
// always from the freshly fetched object.
func (uc *ProcessWebhookEventUseCase) handleSubscriptionUpdated(ctx context.Context, object []byte) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(object, &payload); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	account, err := uc.findByCustomer(ctx, payload.Customer)
	if err != nil || account == nil {
		return err
	}

	snap, err := uc.gateway.GetSubscription(ctx, payload.ID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", payload.ID, err)
	}

	fetchedStatus := vo.ParseAccountStatus(snap.Status)

	switch {
	case snap.CancelAtPeriodEnd:
		wasCanceled := account.Status() == vo.StatusCanceled
		account.ScheduleCancellation(snap.CurrentPeriodEnd)
		if err := uc.accountRepo.Update(ctx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		if !wasCanceled {
			uc.sendEmail(account, TemplateCancelled, cancellationVars(account))
		}

	case account.Status() == vo.StatusCanceled && fetchedStatus == vo.StatusActive:
		if err := account.ReactivateFromProvider(snap.CurrentPeriodEnd); err != nil {
			// Regressing period end is a data anomaly, not a transient
			// failure. Surface it to operators and drop the update;
			// retrying the same event cannot resolve it.
			uc.logger.Errorw("rejecting reactivation update",
				"user_id", account.UserID(),
				"subscription_id", snap.ID,
				"error", err,
			)
			return nil
		}
		if err := uc.accountRepo.Update(ctx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
		uc.sendEmail(account, TemplateReactivated, reactivationVars(account))

	default:
		status := fetchedStatus
		if !status.IsValid() {
			uc.logger.Warnw("provider returned unrecognized subscription status",
				"subscription_id", snap.ID, "status", snap.Status)
			status = account.Status()
		}
		if err := account.SyncFromProvider(status, snap.CurrentPeriodStart, snap.CurrentPeriodEnd, snap.TrialEnd); err != nil {
			return err
		}
		if err := uc.accountRepo.Update(ctx, account); err != nil {
			return fmt.Errorf("failed to update account: %w", err)
		}
	}
	return nil
}

// handleSubscriptionDeleted applies a true termination, guarded against
// the create-then-immediately-cancel-old race by a subscription ID match.
func (uc *ProcessWebhookEventUseCase) handleSubscriptionDeleted(ctx context.Context, object []byte) error {
	var payload subscriptionPayload
	if err := json.Unmarshal(object, &payload); err != nil {
		return fmt.Errorf("failed to decode subscription: %w", err)
	}

	account, err := uc.accountRepo.FindBySubscriptionID(ctx, payload.ID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			uc.logger.Infow("deletion for unknown or replaced subscription, ignoring",
				"subscription_id", payload.ID)
			return nil
		}
		return fmt.Errorf("failed to look up subscription %s: %w", payload.ID, err)
	}

	if !account.ApplyDeletion(payload.ID) {
		uc.logger.Infow("deletion does not match current subscription, ignoring",
			"user_id", account.UserID(),
			"deleted_subscription_id", payload.ID,
		)
		return nil
	}
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

func (uc *ProcessWebhookEventUseCase) handleInvoicePaymentFailed(ctx context.Context, object []byte) error {
	var payload invoicePayload
	if err := json.Unmarshal(object, &payload); err != nil {
		return fmt.Errorf("failed to decode invoice: %w", err)
	}

	account, err := uc.findByCustomer(ctx, payload.Customer)
	if err != nil || account == nil {
		return err
	}

	account.MarkPastDue()
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// handleInvoicePaid covers both invoice.paid and invoice.payment_succeeded.
func (uc *ProcessWebhookEventUseCase) handleInvoicePaid(ctx context.Context, object []byte) error {
	var payload invoicePayload
	if err := json.Unmarshal(object, &payload); err != nil {
		return fmt.Errorf("failed to decode invoice: %w", err)
	}

	account, err := uc.findByCustomer(ctx, payload.Customer)
	if err != nil || account == nil {
		return err
	}

	subscriptionID := payload.Subscription
	if subscriptionID == "" && account.SubscriptionID() != nil {
		subscriptionID = *account.SubscriptionID()
	}
	if subscriptionID == "" {
		// One-off invoice with no subscription attached.
		return nil
	}

	snap, err := uc.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", subscriptionID, err)
	}

	if err := account.ActivateFromProvider(snap.ID, snap.CurrentPeriodStart, snap.CurrentPeriodEnd); err != nil {
		return err
	}
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// handleInvoiceFinalized confirms the local status mirrors the fetched
// object for trialing/active subscriptions; no other mutation.
func (uc *ProcessWebhookEventUseCase) handleInvoiceFinalized(ctx context.Context, object []byte) error {
	var payload invoicePayload
	if err := json.Unmarshal(object, &payload); err != nil {
		return fmt.Errorf("failed to decode invoice: %w", err)
	}
	if payload.Subscription == "" {
		return nil
	}

	account, err := uc.findByCustomer(ctx, payload.Customer)
	if err != nil || account == nil {
		return err
	}

	snap, err := uc.gateway.GetSubscription(ctx, payload.Subscription)
	if err != nil {
		return fmt.Errorf("failed to fetch subscription %s: %w", payload.Subscription, err)
	}

	status := vo.ParseAccountStatus(snap.Status)
	if status != vo.StatusTrial && status != vo.StatusActive {
		return nil
	}
	if account.Status() == status {
		return nil
	}
	if err := account.SyncFromProvider(status, nil, nil, snap.TrialEnd); err != nil {
		return err
	}
	if err := uc.accountRepo.Update(ctx, account); err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	return nil
}

// findByCustomer resolves the account owning a provider customer ID.
// A missing account is a data anomaly: it is logged loudly and the event
// is acknowledged, because retrying cannot conjure the user and rejecting
// would cause a retry storm. No record is ever fabricated.
func (uc *ProcessWebhookEventUseCase) findByCustomer(ctx context.Context, customerID string) (*billing.Account, error) {
	if customerID == "" {
		uc.logger.Warnw("event carries no customer ID, skipping")
		return nil, nil
	}
	account, err := uc.accountRepo.FindByCustomerID(ctx, customerID)
	if err != nil {
		if apperrors.IsNotFoundError(err) {
			uc.logger.Errorw("webhook references customer with no local account, needs manual investigation",
				"customer_id", customerID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up customer %s: %w", customerID, err)
	}
	return account, nil
}

func (uc *ProcessWebhookEventUseCase) sendEmail(account *billing.Account, templateID string, variables map[string]string) {
	if uc.notifier == nil {
		return
	}
	sendBillingEmail(uc.notifier, uc.logger, account.Email(), templateID, variables)
}

func cancellationVars(account *billing.Account) map[string]string {
	return map[string]string{"AccessUntil": formatPeriodEnd(account)}
}

func reactivationVars(account *billing.Account) map[string]string {
	return map[string]string{"PeriodEnd": formatPeriodEnd(account)}
}

func formatPeriodEnd(account *billing.Account) string {
	if end := account.SubscriptionEnd(); end != nil {
		return end.UTC().Format("January 2, 2006")
	}
	return "the end of your current billing period"
}
