package usecases

import (
	"context"
	"time"

	"github.com/orris-inc/paywall/internal/shared/goroutine"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// Email template IDs understood by the notification collaborator.
const (
	TemplateWelcome     = "welcome"
	TemplateCancelled   = "cancelled"
	TemplateReactivated = "reactivated"
)

// BillingNotifier delivers billing lifecycle emails. Delivery is
// fire-and-forget: a failure never rolls back the billing mutation that
// triggered it.
type BillingNotifier interface {
	Send(ctx context.Context, recipient, templateID string, variables map[string]string) error
}

// sendBillingEmail delivers a lifecycle email in the background with panic
// recovery. Failures are logged and dropped.
func sendBillingEmail(notifier BillingNotifier, log logger.Interface, recipient, templateID string, variables map[string]string) {
	goroutine.SafeGo(log, "billing-email-"+templateID, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := notifier.Send(ctx, recipient, templateID, variables); err != nil {
			log.Warnw("failed to send billing email",
				"template", templateID,
				"recipient", recipient,
				"error", err,
			)
		}
	})
}
