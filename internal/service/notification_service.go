package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eachn05-lang/Ea-desk/internal/config"
	"github.com/eachn05-lang/Ea-desk/internal/domain"
	"github.com/eachn05-lang/Ea-desk/internal/events"
	"github.com/eachn05-lang/Ea-desk/internal/notify"
	"github.com/eachn05-lang/Ea-desk/internal/observability"
	"github.com/eachn05-lang/Ea-desk/internal/repository"
)

// NotificationService turns lifecycle events into outbound messages.
// Recipients without an email are skipped with a log line; transport
// failures are logged and counted. Handle never returns a delivery
// error, so no caller (channel consumer or queue worker) retries, and
// the operation that emitted the event is long finished either way.
type NotificationService struct {
	users     repository.UserRepository
	transport notify.Transport
	logger    *zap.Logger
	metrics   *observability.Metrics
	cfg       config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(
	users repository.UserRepository,
	transport notify.Transport,
	logger *zap.Logger,
	metrics *observability.Metrics,
	cfg config.NotificationConfig,
) *NotificationService {
	return &NotificationService{
		users:     users,
		transport: transport,
		logger:    logger,
		metrics:   metrics,
		cfg:       cfg,
	}
}

// Register subscribes Handle to every notifying event type.
func (n *NotificationService) Register(sub events.Subscriber) {
	sub.Subscribe(events.EventTicketCreated, n.Handle)
	sub.Subscribe(events.EventTicketAssigned, n.Handle)
	sub.Subscribe(events.EventTicketClosed, n.Handle)
}

// Handle processes one event end to end.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.EventTicketCreated:
		n.notifyAdmins(ctx, event)
	case events.EventTicketAssigned:
		n.notifyUser(ctx, event, event.AssigneeID, "assignee")
	case events.EventTicketClosed:
		n.notifyUser(ctx, event, event.Ticket.CreatedBy, "creator")
	default:
		n.logger.Warn("unknown event type", zap.String("event_type", string(event.Type)))
	}
	return nil
}

// notifyAdmins addresses every admin that has an email on file.
func (n *NotificationService) notifyAdmins(ctx context.Context, event events.Event) {
	admins, err := n.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		n.recordFailure(event, err)
		return
	}

	var recipients []string
	for _, admin := range admins {
		if admin.Email == "" {
			n.recordSkip(event, admin.ID, "no email on file")
			continue
		}
		recipients = append(recipients, admin.Email)
	}
	if len(recipients) == 0 {
		n.recordSkip(event, "", "no reachable recipients")
		return
	}

	n.send(ctx, event, recipients)
}

// notifyUser addresses a single directory user by id.
func (n *NotificationService) notifyUser(ctx context.Context, event events.Event, userID, role string) {
	if userID == "" {
		n.recordSkip(event, userID, fmt.Sprintf("event carries no %s", role))
		return
	}

	user, err := n.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			n.recordSkip(event, userID, "recipient not in directory")
			return
		}
		n.recordFailure(event, err)
		return
	}
	if user.Email == "" {
		n.recordSkip(event, userID, "no email on file")
		return
	}

	n.send(ctx, event, []string{user.Email})
}

func (n *NotificationService) send(ctx context.Context, event events.Event, to []string) {
	subject, body := RenderMessage(event)
	msg := notify.Message{
		From:    n.cfg.EmailFrom,
		To:      to,
		Subject: subject,
		Body:    body,
	}

	if err := n.transport.Send(ctx, msg); err != nil {
		n.recordFailure(event, err)
		return
	}
	n.metrics.RecordNotification(string(event.Type), observability.OutcomeSent)
	n.logger.Debug("notification sent",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int("recipients", len(to)),
	)
}

func (n *NotificationService) recordSkip(event events.Event, userID, reason string) {
	n.metrics.RecordNotification(string(event.Type), observability.OutcomeSkipped)
	n.logger.Info("notification skipped",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("user_id", userID),
		zap.String("reason", reason),
	)
}

func (n *NotificationService) recordFailure(event events.Event, err error) {
	n.metrics.RecordNotification(string(event.Type), observability.OutcomeFailed)
	n.logger.Error("notification delivery failed",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Error(err),
	)
}

// RenderMessage produces the subject and body for an event. Rendering is
// a pure function of the event payload.
func RenderMessage(event events.Event) (subject, body string) {
	t := event.Ticket
	switch event.Type {
	case events.EventTicketCreated:
		subject = fmt.Sprintf("[%s] New ticket: %s", t.Number, t.Subject)
		body = fmt.Sprintf(
			"Ticket %s was opened by %s.\n\nSubject: %s\nPriority: %s\nCategory: %s",
			t.Number, t.CreatedBy, t.Subject, t.Priority, t.Category,
		)
	case events.EventTicketAssigned:
		subject = fmt.Sprintf("[%s] Ticket assigned to you", t.Number)
		body = fmt.Sprintf(
			"Ticket %s was assigned to you by %s.\n\nSubject: %s\nPriority: %s\nStatus: %s",
			t.Number, event.ActorID, t.Subject, t.Priority, t.Status,
		)
	case events.EventTicketClosed:
		subject = fmt.Sprintf("[%s] Ticket closed", t.Number)
		body = fmt.Sprintf(
			"Your ticket %s was closed by %s.\n\nSubject: %s",
			t.Number, event.ActorID, t.Subject,
		)
	}
	return subject, body
}
