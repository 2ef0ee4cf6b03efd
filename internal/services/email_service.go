package services

import (
	"context"
	"fmt"
	"html"

	"remindly/internal/config"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// EmailService delivers notifications through SendGrid
type EmailService struct {
	send      func(ctx context.Context, email *mail.SGMailV3) (int, string, error)
	fromEmail string
	fromName  string
}

func NewEmailService(apiKey, fromEmail, fromName string) *EmailService {
	client := sendgrid.NewSendClient(apiKey)

	return &EmailService{
		send: func(ctx context.Context, email *mail.SGMailV3) (int, string, error) {
			resp, err := client.SendWithContext(ctx, email)
			if err != nil {
				return 0, "", err
			}
			return resp.StatusCode, resp.Body, nil
		},
		fromEmail: fromEmail,
		fromName:  fromName,
	}
}

// Deliver sends a reminder email. Any non-2xx response is a failure.
func (s *EmailService) Deliver(ctx context.Context, n Notification) error {
	message := s.buildMessage(n)

	status, body, err := s.send(ctx, message)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("failed to send email to %s: %d %s", n.Email, status, body)
	}
	return nil
}

func (s *EmailService) buildMessage(n Notification) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(n.Name, n.Email)

	when := n.AppointmentTime.Format("Mon Jan 2, 3:04 PM MST")
	plainContent := fmt.Sprintf("Dear %s,\n\n%s (%s).\n\nThis is an automated message and replies to this email will not be monitored.",
		n.Name, n.Message, when)
	htmlContent := fmt.Sprintf("<p>Dear %s,</p><p>%s <strong>(%s)</strong></p><p style=\"font-size:0.9rem;color:#808080\">This is an automated message and replies to this email will not be monitored.</p>",
		html.EscapeString(n.Name), html.EscapeString(n.Message), html.EscapeString(when))

	message := mail.NewSingleEmail(from, n.Subject, to, plainContent, htmlContent)
	message.SetHeader("X-Reminder-Category", string(n.Category))
	return message
}

// NewDeliverer picks the transport named by DELIVERY_DRIVER
func NewDeliverer(cfg *config.Config, log zerolog.Logger) (Deliverer, error) {
	switch cfg.DeliveryDriver {
	case "sendgrid":
		return NewEmailService(cfg.SendGridAPIKey, cfg.FromEmail, cfg.FromName), nil
	case "log":
		log.Warn().Msg("DELIVERY_DRIVER=log; notifications are logged, not sent")
		return NewLogDeliverer(log), nil
	default:
		return nil, fmt.Errorf("unknown delivery driver: %s", cfg.DeliveryDriver)
	}
}

// LogDeliverer logs notifications instead of sending them
type LogDeliverer struct {
	log zerolog.Logger
}

func NewLogDeliverer(log zerolog.Logger) *LogDeliverer {
	return &LogDeliverer{log: log}
}

func (d *LogDeliverer) Deliver(ctx context.Context, n Notification) error {
	d.log.Info().
		Str("to", n.Email).
		Str("name", n.Name).
		Str("category", string(n.Category)).
		Str("subject", n.Subject).
		Str("message", n.Message).
		Msg("notification (log driver)")
	return nil
}
