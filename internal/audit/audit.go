// Package audit records who did what to which submission. Events are written
// through the Store in the same transaction as the state change they describe
// (Postgres outbox), then shipped to Kafka by the outbox worker. Submissions
// themselves are never deleted; the audit stream is the decision history.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	id "worklink/pkg/domain"
	"worklink/pkg/requestcontext"
)

// Action names an auditable fact.
type Action string

const (
	ActionSubmissionCreated  Action = "verification.submission_created"
	ActionSubmissionApproved Action = "verification.submission_approved"
	ActionSubmissionDenied   Action = "verification.submission_denied"
)

// Event is one audit record. ActorID is the user who performed the action:
// the owner for submits, the reviewing administrator for decisions.
type Event struct {
	ID           uuid.UUID
	Action       Action
	SubmissionID id.SubmissionID
	UserID       id.UserID
	ActorID      id.UserID
	DocType      string
	Reason       string
	RequestID    string
	ClientIP     string
	ClientAgent  string
	Timestamp    time.Time
}

// Store persists events. Implementations must honor an ambient SQL
// transaction in ctx so the event commits or rolls back with the state change.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Emitter fills in request-scoped metadata and appends the event. An append
// failure fails the surrounding transaction: a decision without its audit
// record must not commit.
type Emitter struct {
	store  Store
	logger *slog.Logger
}

func NewEmitter(store Store, logger *slog.Logger) *Emitter {
	return &Emitter{store: store, logger: logger}
}

// Emit stamps the event with an ID, the request time, and client metadata
// from context, then appends it.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	event.ID = uuid.New()
	event.Timestamp = requestcontext.Now(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	event.ClientAgent = summarizeAgent(requestcontext.UserAgent(ctx))

	if err := e.store.Append(ctx, event); err != nil {
		e.logger.ErrorContext(ctx, "failed to append audit event",
			"action", string(event.Action),
			"submission_id", event.SubmissionID.String(),
			"error", err,
		)
		return err
	}
	return nil
}

// summarizeAgent reduces a raw User-Agent header to "Browser on OS" so the
// audit stream stays readable without storing full header strings.
func summarizeAgent(raw string) string {
	if raw == "" {
		return ""
	}
	ua := useragent.New(raw)
	name, _ := ua.Browser()
	if name == "" {
		return raw
	}
	if os := ua.OS(); os != "" {
		return name + " on " + os
	}
	return name
}
