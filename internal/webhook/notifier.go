// internal/webhook/notifier.go
package webhook

import (
	"context"
	"fmt"
	"time"

	"financing-gateway/internal/common/aws"
	"financing-gateway/internal/common/logger"
	"financing-gateway/internal/partner"
)

// EmailSender delivers plain text emails. Satisfied by *aws.SESClient.
type EmailSender interface {
	SendPlainEmail(ctx context.Context, from, to, subject, body string) error
}

// SMSPublisher delivers short messages to a topic. Satisfied by
// *aws.SNSClient.
type SMSPublisher interface {
	PublishMessage(ctx context.Context, topicARN, message string) error
}

var (
	_ EmailSender  = (*aws.SESClient)(nil)
	_ SMSPublisher = (*aws.SNSClient)(nil)
)

// Notifier sends borrower-facing alerts when a partner decides on an
// application. Channels with a nil client are silently skipped, so the
// notifier degrades to a no-op when AWS is unconfigured.
type Notifier struct {
	email EmailSender
	sms   SMSPublisher
	log   logger.Logger

	fromAddress  string
	alertAddress string
	topicARN     string
}

// NewNotifier wires the notification channels. Either client may be nil.
func NewNotifier(email EmailSender, sms SMSPublisher, log logger.Logger, fromAddress, alertAddress, topicARN string) *Notifier {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Notifier{
		email:        email,
		sms:          sms,
		log:          log,
		fromAddress:  fromAddress,
		alertAddress: alertAddress,
		topicARN:     topicARN,
	}
}

// NotifyDecision announces an approval, rejection, or disbursal.
// Fire-and-forget: delivery failures are logged, never propagated.
func (n *Notifier) NotifyDecision(partnerID string, outcome partner.WebhookResult) {
	subject := fmt.Sprintf("Financing application %s: %s", outcome.ExternalAppID, outcome.Status)
	body := fmt.Sprintf("Partner %s reported application %s as %s (event: %s).",
		partnerID, outcome.ExternalAppID, outcome.Status, outcome.Event)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if n.email != nil && n.alertAddress != "" {
			if err := n.email.SendPlainEmail(ctx, n.fromAddress, n.alertAddress, subject, body); err != nil {
				n.log.Warn("decision email failed", map[string]interface{}{
					"partner": partnerID,
					"error":   err.Error(),
				})
			}
		}

		if n.sms != nil && n.topicARN != "" {
			if err := n.sms.PublishMessage(ctx, n.topicARN, body); err != nil {
				n.log.Warn("decision SMS failed", map[string]interface{}{
					"partner": partnerID,
					"error":   err.Error(),
				})
			}
		}
	}()
}
