// Package service implements the verification workflow engine: submission
// intake, the one-way decision state machine, the administrator review queue,
// and per-user status reads. All mutation funnels through the store's atomic
// primitives; the service adds policy, auditing, and observability.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"worklink/internal/audit"
	"worklink/internal/document"
	vmetrics "worklink/internal/verification/metrics"
	"worklink/internal/verification/models"
	"worklink/internal/verification/store/submission"
	id "worklink/pkg/domain"
	dErrors "worklink/pkg/domain-errors"
	"worklink/pkg/platform/sentinel"
	"worklink/pkg/requestcontext"
)

// SubmissionStore is the record store contract the engine drives.
type SubmissionStore interface {
	CreateIfNoPending(ctx context.Context, sub *models.Submission) error
	FindByID(ctx context.Context, subID id.SubmissionID) (*models.Submission, error)
	Execute(ctx context.Context, subID id.SubmissionID, validate func(*models.Submission) error, apply func(*models.Submission)) (*models.Submission, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Submission, error)
	ListPending(ctx context.Context, offset, limit int) ([]*models.Submission, error)
	CountPending(ctx context.Context) (int, error)
	List(ctx context.Context, f submission.Filter) ([]*models.Submission, error)
}

// Service orchestrates the verification lifecycle.
type Service struct {
	subs     SubmissionStore
	blobs    document.Store
	tx       StoreTx
	audit    *audit.Emitter
	metrics  *vmetrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	accepted map[models.DocType]bool
	maxBlob  int64
}

type serviceConfig struct {
	tx      StoreTx
	audit   *audit.Emitter
	metrics *vmetrics.Metrics
	logger  *slog.Logger
	maxBlob int64
}

// Option configures a Service.
type Option func(*serviceConfig)

// WithStoreTx sets the transaction runner that scopes a decision and its
// audit record to one commit. Defaults to a pass-through for memory stores.
func WithStoreTx(tx StoreTx) Option {
	return func(c *serviceConfig) { c.tx = tx }
}

// WithAuditEmitter enables audit event emission.
func WithAuditEmitter(emitter *audit.Emitter) Option {
	return func(c *serviceConfig) { c.audit = emitter }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *vmetrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = logger }
}

// WithMaxBlobBytes caps accepted upload sizes. Zero means no cap.
func WithMaxBlobBytes(n int64) Option {
	return func(c *serviceConfig) { c.maxBlob = n }
}

// New constructs a Service. acceptedDocTypes is the configured allowlist of
// document categories; it is data, not code, so deployments can extend it
// without a rebuild.
func New(subs SubmissionStore, blobs document.Store, acceptedDocTypes []string, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tx == nil {
		cfg.tx = passthroughTx{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	accepted := make(map[models.DocType]bool, len(acceptedDocTypes))
	for _, dt := range acceptedDocTypes {
		accepted[models.DocType(dt)] = true
	}

	return &Service{
		subs:     subs,
		blobs:    blobs,
		tx:       cfg.tx,
		audit:    cfg.audit,
		metrics:  cfg.metrics,
		logger:   cfg.logger,
		tracer:   otel.Tracer("worklink/verification"),
		accepted: accepted,
		maxBlob:  cfg.maxBlob,
	}
}

// ParseDocType validates external input against the configured allowlist.
func (s *Service) ParseDocType(raw string) (models.DocType, error) {
	dt := models.DocType(raw)
	if raw == "" || !s.accepted[dt] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown doc_type %q", raw)
	}
	return dt, nil
}

// Submit stores the uploaded document and creates a pending submission.
//
// Ordering is deliberate: the blob is made durable first, the record second.
// If the record write fails the caller resubmits and the orphaned blob is
// garbage; the converse order could leave a record pointing at nothing. The
// record write is not retried automatically so a record the caller never got
// confirmation for is never created behind their back.
//
// Errors: CodeValidation (unknown doc type, oversized file), CodeConflict
// (a pending submission for this doc type already exists), CodeUnavailable
// (blob or record store failure, retryable).
func (s *Service) Submit(ctx context.Context, userID id.UserID, docType models.DocType, content []byte) (*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "verification.Submit")
	defer span.End()
	start := time.Now()

	if !s.accepted[docType] {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown doc_type %q", docType)
	}
	if len(content) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "a document file must be provided")
	}
	if s.maxBlob > 0 && int64(len(content)) > s.maxBlob {
		return nil, dErrors.Newf(dErrors.CodeValidation, "document exceeds the %d byte limit", s.maxBlob)
	}

	ref, err := s.blobs.Put(ctx, content)
	if err != nil {
		s.logger.ErrorContext(ctx, "blob store write failed",
			"user_id", userID.String(),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "document storage unavailable")
	}

	sub, err := models.NewSubmission(userID, docType, string(ref), requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.subs.CreateIfNoPending(txCtx, sub); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.Newf(dErrors.CodeConflict,
					"a pending %s submission already exists; wait for its decision", docType)
			}
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "submission store unavailable")
		}
		return s.emit(txCtx, audit.Event{
			Action:       audit.ActionSubmissionCreated,
			SubmissionID: sub.ID,
			UserID:       userID,
			ActorID:      userID,
			DocType:      string(docType),
		})
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncrementSubmissionsCreated()
		s.metrics.ObserveSubmit(start)
	}
	s.logger.InfoContext(ctx, "submission created",
		"submission_id", sub.ID.String(),
		"user_id", userID.String(),
		"doc_type", string(docType),
	)
	return sub, nil
}

// StatusFor returns every submission owned by the user, most recent first,
// across all doc types and statuses. Read-only; repeated calls with no
// intervening writes return identical sequences.
func (s *Service) StatusFor(ctx context.Context, userID id.UserID) ([]*models.Submission, error) {
	ctx, span := s.tracer.Start(ctx, "verification.StatusFor")
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	subs, err := s.subs.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "submission store unavailable")
	}
	return subs, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record audit event")
	}
	return nil
}
