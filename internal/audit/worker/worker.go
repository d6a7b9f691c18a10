// Package worker ships audit events from the Postgres outbox to Kafka.
// Publishing is at-least-once: rows are marked published only after Kafka
// acknowledges the batch, and SKIP LOCKED keeps multiple instances from
// double-claiming rows within one polling cycle.
package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultInterval  = 2 * time.Second
	defaultBatchSize = 100
)

// Worker polls the outbox and publishes pending rows.
type Worker struct {
	db       *sql.DB
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// Option configures a Worker.
type Option func(*Worker)

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithBatchSize overrides the per-cycle row limit.
func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batch = n
		}
	}
}

// New connects to Kafka and ensures the audit topic exists.
func New(db *sql.DB, brokers []string, topic string, logger *slog.Logger, opts ...Option) (*Worker, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ensureTopic(context.Background(), client, topic); err != nil {
		client.Close()
		return nil, err
	}

	w := &Worker{
		db:       db,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: defaultInterval,
		batch:    defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create audit topic: %w", err)
	}
	for _, res := range resp {
		if res.Err != nil && !errors.Is(res.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create audit topic %s: %w", res.Topic, res.Err)
		}
	}
	return nil
}

// Run polls until ctx is canceled. Errors are logged and retried on the next
// cycle; unpublished rows stay in the outbox.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := w.publishBatch(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox publish cycle failed", "error", err)
			} else if n > 0 {
				w.logger.DebugContext(ctx, "published audit events", "count", n)
			}
		}
	}
}

// publishBatch claims up to batch unpublished rows, produces them, and marks
// them published in the same transaction that claimed them.
func (w *Worker) publishBatch(ctx context.Context) (int, error) {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin outbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batch)
	if err != nil {
		return 0, fmt.Errorf("query outbox: %w", err)
	}

	var (
		ids     []uuid.UUID
		records []*kgo.Record
	)
	for rows.Next() {
		var (
			rowID       uuid.UUID
			aggregateID uuid.UUID
			body        []byte
		)
		if err := rows.Scan(&rowID, &aggregateID, &body); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan outbox row: %w", err)
		}
		ids = append(ids, rowID)
		records = append(records, &kgo.Record{
			Topic: w.topic,
			Key:   []byte(aggregateID.String()),
			Value: body,
		})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate outbox: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	if err := w.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return 0, fmt.Errorf("produce audit events: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE outbox SET published_at = NOW() WHERE id = ANY($1)`,
		pq.Array(ids),
	); err != nil {
		return 0, fmt.Errorf("mark outbox published: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox tx: %w", err)
	}
	return len(records), nil
}

// Close flushes and releases the Kafka client.
func (w *Worker) Close() {
	w.client.Close()
}
