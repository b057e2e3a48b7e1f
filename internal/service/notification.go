package service

import (
	"context"
	"time"

	"reefops/internal/features"
	"reefops/internal/metrics"
	"reefops/internal/models"
	"reefops/internal/privacy"
	"reefops/pkg/circuitbreaker"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/sirupsen/logrus"
)

const notificationPreviewLength = 120

// EventPusher delivers realtime events to connected users.
type EventPusher interface {
	PushMessage(userIDs []string, msg *models.Message)
}

// EmailSender is the outbound mail dependency, satisfied by SendGrid in
// production and by a stub in tests.
type EmailSender interface {
	Send(email *mail.SGMailV3) error
}

type sendGridSender struct {
	client *sendgrid.Client
}

func (s *sendGridSender) Send(email *mail.SGMailV3) error {
	_, err := s.client.Send(email)
	return err
}

// notifier fans a sent message out to its recipients: a persisted
// notification record, a realtime push, and optionally an email. Every leg
// is best-effort; failures are logged and never surface to the sender.
type notifier struct {
	logger  *logrus.Logger
	store   ScopeStore
	pusher  EventPusher
	mailer  EmailSender
	breaker *circuitbreaker.Breaker
	email   models.EmailConfig
	flags   *features.Flags
}

func NewNotifier(logger *logrus.Logger, store ScopeStore, pusher EventPusher, email models.EmailConfig, flags *features.Flags) Notifier {
	n := &notifier{
		logger:  logger,
		store:   store,
		pusher:  pusher,
		email:   email,
		flags:   flags,
		breaker: circuitbreaker.New("sendgrid", 5, 2*time.Minute, logger),
	}
	if email.Enabled && email.APIKey != "" {
		n.mailer = &sendGridSender{client: sendgrid.NewSendClient(email.APIKey)}
	}
	return n
}

func (n *notifier) MessageSent(ctx context.Context, msg *models.Message, recipientIDs []string) {
	if len(recipientIDs) == 0 {
		return
	}

	records := make([]models.Notification, 0, len(recipientIDs))
	now := time.Now().UTC()
	for _, userID := range recipientIDs {
		records = append(records, models.Notification{
			ID:          uuid.NewString(),
			UserID:      userID,
			MessageID:   msg.ID,
			MessageType: string(msg.Type),
			ScopeID:     msg.ScopeID,
			SenderName:  msg.SenderName,
			Preview:     preview(msg),
			CreatedAt:   now,
		})
	}
	if err := n.store.InsertNotifications(ctx, records); err != nil {
		n.logger.WithError(err).WithField("message_id", privacy.MaskMessageID(msg.ID)).
			Warn("failed to persist notifications")
	}

	if n.pusher != nil {
		n.pusher.PushMessage(recipientIDs, msg)
	}
	metrics.Inc(metrics.NotificationsFanout, map[string]string{"type": string(msg.Type)})

	if n.flags.EmailNotifications() && n.mailer != nil {
		n.sendEmails(ctx, msg, recipientIDs)
	}
}

// TimeOffDecided emails the requesting staff member their decision outcome.
func (n *notifier) TimeOffDecided(ctx context.Context, req *models.TimeOffRequest) {
	if !n.flags.EmailNotifications() || n.mailer == nil {
		return
	}
	user, err := n.store.GetUser(ctx, req.StaffID)
	if err != nil || user == nil || user.Email == "" {
		return
	}

	subject := "Time off " + string(req.Status)
	body := "Your time off request for " + req.StartDate + " to " + req.EndDate +
		" was " + string(req.Status) + "."
	n.deliver(ctx, user, subject, body)
}

// SwapOffered emails staff that a shift has been put up for swap.
func (n *notifier) SwapOffered(ctx context.Context, swap *models.ShiftSwap, shift *models.Shift) {
	if !n.flags.EmailNotifications() || n.mailer == nil {
		return
	}
	staff, err := n.store.UsersByRole(ctx, "staff")
	if err != nil {
		n.logger.WithError(err).Warn("failed to load swap offer recipients")
		return
	}

	subject := "Shift swap offered for " + shift.Date
	body := "A " + shift.StartTime + " to " + shift.EndTime + " shift on " + shift.Date +
		" is up for swap."
	if swap.Note != "" {
		body += " Note: " + swap.Note
	}
	for i := range staff {
		user := staff[i]
		if user.ID == swap.FromStaffID || user.Email == "" {
			continue
		}
		if !n.deliver(ctx, &user, subject, body) {
			return
		}
	}
}

// deliver sends one email through the breaker. Returns false when the breaker
// is open and further sends should stop.
func (n *notifier) deliver(ctx context.Context, user *models.User, subject, body string) bool {
	from := mail.NewEmail(n.email.FromName, n.email.FromAddr)
	to := mail.NewEmail(user.DisplayName, user.Email)
	email := mail.NewSingleEmail(from, subject, to, body, body)

	err := n.breaker.Do(ctx, func(ctx context.Context) error {
		return n.mailer.Send(email)
	})
	if err != nil {
		if circuitbreaker.IsOpenError(err) {
			n.logger.Debug("email circuit open, skipping remaining notifications")
			return false
		}
		n.logger.WithError(err).WithField("recipient", privacy.MaskEmail(user.Email)).
			Warn("failed to send notification email")
		return true
	}
	metrics.Inc(metrics.NotificationEmailSent, nil)
	return true
}

func (n *notifier) sendEmails(ctx context.Context, msg *models.Message, recipientIDs []string) {
	subject := "New message from " + msg.SenderName
	body := msg.SenderName + ": " + preview(msg)
	for _, userID := range recipientIDs {
		user, err := n.store.GetUser(ctx, userID)
		if err != nil || user == nil || user.Email == "" {
			continue
		}
		if !n.deliver(ctx, user, subject, body) {
			return
		}
	}
}

func preview(msg *models.Message) string {
	text := msg.Text
	if text == "" && msg.Attachment != nil {
		text = "Sent a file: " + msg.Attachment.Name
	}
	runes := []rune(text)
	if len(runes) <= notificationPreviewLength {
		return text
	}
	return string(runes[:notificationPreviewLength]) + "…"
}
