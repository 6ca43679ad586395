package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/orris-inc/paywall/internal/shared/config"
	"github.com/orris-inc/paywall/internal/shared/logger"
)

// SMTPNotifier delivers billing lifecycle emails over SMTP using the
// embedded template registry.
type SMTPNotifier struct {
	config    config.EmailConfig
	dialer    *gomail.Dialer
	templates *TemplateRegistry
	logger    logger.Interface
}

// NewSMTPNotifier creates a notifier backed by the configured SMTP server.
func NewSMTPNotifier(cfg config.EmailConfig, log logger.Interface) (*SMTPNotifier, error) {
	templates, err := NewTemplateRegistry()
	if err != nil {
		return nil, err
	}

	return &SMTPNotifier{
		config:    cfg,
		dialer:    gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword),
		templates: templates,
		logger:    log,
	}, nil
}

// Send renders the template and delivers it to the recipient. The dial runs
// in a goroutine because gomail has no context support; the context deadline
// still bounds how long the caller waits.
func (s *SMTPNotifier) Send(ctx context.Context, recipient, templateID string, variables map[string]string) error {
	rendered, err := s.templates.Render(templateID, variables)
	if err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.config.FromAddress, s.config.FromName)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", rendered.Subject)
	m.SetBody("text/plain", rendered.PlainBody)
	m.AddAlternative("text/html", rendered.HTMLBody)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("email delivery aborted: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
	}

	s.logger.Debugw("billing email delivered",
		"template", templateID,
		"recipient", recipient,
	)
	return nil
}
