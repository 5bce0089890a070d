// Package notify delivers outbound alert notifications. Delivery failures
// are logged and surfaced as errors; callers treat them as non-fatal.
package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/mohamedkhairy/market-pulse/pkg/logger"
)

// Notifier sends a subject/body notification to the operator.
type Notifier interface {
	Send(subject, body string) error
}

// EmailNotifier delivers notifications over SMTP.
type EmailNotifier struct {
	dialer   *gomail.Dialer
	sender   string
	receiver string
}

// NewEmailNotifier creates a new SMTP notifier
func NewEmailNotifier(host string, port int, sender, password, receiver string) *EmailNotifier {
	return &EmailNotifier{
		dialer:   gomail.NewDialer(host, port, sender, password),
		sender:   sender,
		receiver: receiver,
	}
}

// Send delivers one notification email.
func (n *EmailNotifier) Send(subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", n.sender)
	msg.SetHeader("To", n.receiver)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := n.dialer.DialAndSend(msg); err != nil {
		logger.NotificationFailures.Inc()
		return fmt.Errorf("failed to send email: %w", err)
	}

	logger.Info("Email notification sent",
		logger.String("to", n.receiver),
		logger.String("subject", subject),
	)
	return nil
}

// LogNotifier writes notifications to the log. Used when SMTP is not
// configured so alerts are still visible.
type LogNotifier struct{}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(subject, body string) error {
	logger.Info("Notification (email not configured)",
		logger.String("subject", subject),
		logger.String("body", body),
	)
	return nil
}
