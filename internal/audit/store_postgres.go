package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "worklink/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events land in the outbox table inside the caller's transaction and are
// published to Kafka by the outbox worker; Kafka is the downstream source of
// truth for the audit stream.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// payload is the JSON shape published to Kafka. Field names are part of the
// consumer contract.
type payload struct {
	ID           string `json:"id"`
	Action       string `json:"action"`
	SubmissionID string `json:"submission_id"`
	UserID       string `json:"user_id"`
	ActorID      string `json:"actor_id"`
	DocType      string `json:"doc_type,omitempty"`
	Reason       string `json:"reason,omitempty"`
	RequestID    string `json:"request_id,omitempty"`
	ClientIP     string `json:"client_ip,omitempty"`
	ClientAgent  string `json:"client_agent,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Append writes the event to the outbox for Kafka publishing.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	body, err := json.Marshal(payload{
		ID:           event.ID.String(),
		Action:       string(event.Action),
		SubmissionID: event.SubmissionID.String(),
		UserID:       event.UserID.String(),
		ActorID:      event.ActorID.String(),
		DocType:      event.DocType,
		Reason:       event.Reason,
		RequestID:    event.RequestID,
		ClientIP:     event.ClientIP,
		ClientAgent:  event.ClientAgent,
		Timestamp:    event.Timestamp.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	query := `
		INSERT INTO outbox (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(),
		uuid.UUID(event.SubmissionID),
		string(event.Action),
		body,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}
