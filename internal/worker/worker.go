// Package worker bootstraps the River job queue behind the durable
// notification dispatcher. Publish inserts one job per lifecycle event;
// the registered worker replays it into the notification service.
package worker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"go.uber.org/zap"

	"github.com/eachn05-lang/Ea-desk/internal/events"
	"github.com/eachn05-lang/Ea-desk/internal/service"
)

// NotificationArgs wraps one lifecycle event as a queue job.
type NotificationArgs struct {
	Event events.Event `json:"event"`
}

// Kind returns the unique job type identifier for notification jobs.
func (NotificationArgs) Kind() string { return "ticket_notification" }

type notificationWorker struct {
	river.WorkerDefaults[NotificationArgs]
	notifier *service.NotificationService
}

func (w *notificationWorker) Work(ctx context.Context, job *river.Job[NotificationArgs]) error {
	return w.notifier.Handle(ctx, job.Args.Event)
}

// Queue is the lifecycle surface shared by dispatcher backends.
type Queue interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Client wraps river.Client. It satisfies events.Dispatcher, so wiring
// it in place of the channel dispatcher gives the same event flow a
// durable, restart-surviving handoff.
type Client struct {
	client *river.Client[pgx.Tx]
	logger *zap.Logger
}

// Start begins processing queued jobs.
func (c *Client) Start(ctx context.Context) error { return c.client.Start(ctx) }

// Stop gracefully shuts down the worker client.
func (c *Client) Stop(ctx context.Context) error { return c.client.Stop(ctx) }

// Publish inserts the event as a durable job. The caller logs failures;
// the triggering operation has already committed either way.
func (c *Client) Publish(ctx context.Context, event events.Event) error {
	if _, err := c.client.Insert(ctx, NotificationArgs{Event: event}, nil); err != nil {
		c.logger.Error("queue insert failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// New creates a River-backed queue that feeds notification jobs to the
// given notifier.
func New(pool *pgxpool.Pool, concurrency int, notifier *service.NotificationService, logger *zap.Logger) (*Client, error) {
	if concurrency <= 0 {
		concurrency = 4
	}

	workers := river.NewWorkers()
	river.AddWorker(workers, &notificationWorker{notifier: notifier})

	client, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: concurrency},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}
	return &Client{client: client, logger: logger}, nil
}

// Migrate runs River's built-in schema migrations against the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return fmt.Errorf("create river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return fmt.Errorf("run river migrations: %w", err)
	}
	return nil
}
