//go:build integration

package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"worklink/pkg/testutil/containers"
)

const testTopic = "worklink.verification.audit.test"

func insertOutboxRow(t *testing.T, pg *containers.PostgresContainer, aggregateID uuid.UUID, action string) uuid.UUID {
	t.Helper()

	rowID := uuid.New()
	body, err := json.Marshal(map[string]string{
		"id":            rowID.String(),
		"action":        action,
		"submission_id": aggregateID.String(),
	})
	require.NoError(t, err)

	_, err = pg.DB.ExecContext(context.Background(), `
		INSERT INTO outbox (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, rowID, aggregateID, action, body)
	require.NoError(t, err)
	return rowID
}

func unpublishedCount(t *testing.T, pg *containers.PostgresContainer) int {
	t.Helper()

	var n int
	err := pg.DB.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&n)
	require.NoError(t, err)
	return n
}

func TestWorkerPublishesOutbox(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	rp := containers.NewRedpandaContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, pg.Truncate(context.Background()))

	submissionID := uuid.New()
	insertOutboxRow(t, pg, submissionID, "verification.submission_created")
	insertOutboxRow(t, pg, submissionID, "verification.submission_approved")

	w, err := New(pg.DB, []string{rp.Broker}, testTopic, logger,
		WithInterval(100*time.Millisecond))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.Eventually(t, func() bool {
		return unpublishedCount(t, pg) == 0
	}, 15*time.Second, 200*time.Millisecond, "outbox rows were not marked published")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(testTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var records []*kgo.Record
	deadline := time.Now().Add(15 * time.Second)
	for len(records) < 2 && time.Now().Before(deadline) {
		fetchCtx, fetchCancel := context.WithTimeout(ctx, 2*time.Second)
		fetches := consumer.PollFetches(fetchCtx)
		fetchCancel()
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
	}
	require.Len(t, records, 2)

	// Records for one submission share a key, so they land on one partition
	// and keep their outbox order.
	for _, r := range records {
		assert.Equal(t, submissionID.String(), string(r.Key))
	}

	var first map[string]string
	require.NoError(t, json.Unmarshal(records[0].Value, &first))
	assert.Equal(t, "verification.submission_created", first["action"])
	assert.Equal(t, submissionID.String(), first["submission_id"])
}

func TestWorkerLeavesRowsOnEmptyCycle(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	rp := containers.NewRedpandaContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	require.NoError(t, pg.Truncate(context.Background()))

	w, err := New(pg.DB, []string{rp.Broker}, testTopic, logger)
	require.NoError(t, err)
	defer w.Close()

	n, err := w.publishBatch(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
