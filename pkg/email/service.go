package email

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Service handles email sending via SendGrid. Without an API key it
// logs the email instead, which is the development mode.
type Service struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service. apiKey may be empty.
func NewService(apiKey, fromEmail, fromName string) *Service {
	s := &Service{
		fromEmail: fromEmail,
		fromName:  fromName,
	}
	if apiKey != "" {
		s.client = sendgrid.NewSendClient(apiKey)
	}
	return s
}

// SendSubscriptionCreatedEmail delivers the license key to a new
// subscriber
func (s *Service) SendSubscriptionCreatedEmail(toEmail, toName, subscriptionID, licenseKey string) error {
	subject := "Your subscription is active"
	plainText := fmt.Sprintf(
		"Hi %s,\n\nThanks for subscribing! Your license key is:\n\n%s\n\nKeep it safe. You can reset it anytime from your customer portal.\n",
		toName, licenseKey,
	)
	htmlBody := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thanks for subscribing! Your license key is:</p><pre>%s</pre><p>Keep it safe. You can reset it anytime from your customer portal.</p>",
		toName, licenseKey,
	)

	if s.client == nil {
		// Development mode: log instead of sending
		log.Printf("📧 [EMAIL] Subscription created email to: %s", toEmail)
		log.Printf("   From: %s <%s>", s.fromName, s.fromEmail)
		log.Printf("   Subject: %s", subject)
		log.Printf("   Subscription: %s", subscriptionID)
		log.Printf("   License key: %s", licenseKey)
		return nil
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlBody)

	resp, err := s.client.Send(message)
	if err != nil {
		return fmt.Errorf("failed to send subscription email: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("failed to send subscription email: status %d", resp.StatusCode)
	}
	return nil
}
