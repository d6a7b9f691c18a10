package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"worklink/internal/verification/models"
	"worklink/internal/verification/service"
	"worklink/internal/verification/store/submission"
	id "worklink/pkg/domain"
	dErrors "worklink/pkg/domain-errors"
	"worklink/pkg/platform/httputil"
	"worklink/pkg/requestcontext"
)

const (
	// multipartMemoryLimit caps how much of an upload is buffered in memory
	// before spilling to disk.
	multipartMemoryLimit = 4 << 20

	// multipartOverhead allows for boundaries and form fields besides the
	// document part when bounding the request body.
	multipartOverhead = 64 << 10
)

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service   *service.Service
	logger    *slog.Logger
	maxUpload int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxUploadBytes bounds the submit request body before any of it is
// read, so an oversized upload is cut off at the wire instead of being
// spooled to disk first. Zero leaves the body unbounded.
func WithMaxUploadBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// New constructs a verification handler.
func New(service *service.Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the worker-facing endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verify/documents", h.HandleSubmit)
	r.Get("/verify/documents", h.HandleStatus)
}

// RegisterAdmin mounts the reviewer endpoints. The router wraps these in the
// admin role check.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/verify/pending", h.HandleListPending)
	r.Get("/admin/verify/documents", h.HandleListDocuments)
	r.Get("/admin/verify/{submissionID}", h.HandleGet)
	r.Post("/admin/verify/{submissionID}/approve", h.HandleApprove)
	r.Post("/admin/verify/{submissionID}/deny", h.HandleDeny)
}

// HandleSubmit handles POST /verify/documents multipart uploads.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if h.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+multipartOverhead)
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation,
				"document exceeds the %d byte limit", h.maxUpload))
			return
		}
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "expected multipart form upload"))
		return
	}

	docType, err := h.service.ParseDocType(r.FormValue("doc_type"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	file, _, err := r.FormFile("document")
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "document file is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "failed to read document upload"))
		return
	}

	sub, err := h.service.Submit(ctx, userID, docType, content)
	if err != nil {
		h.logger.ErrorContext(ctx, "document submission failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"doc_type", string(docType),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "document submitted",
		"request_id", requestID,
		"user_id", userID.String(),
		"submission_id", sub.ID.String(),
		"doc_type", string(docType),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	httputil.WriteJSON(w, http.StatusCreated, FromSubmission(sub))
}

// HandleStatus handles GET /verify/documents requests, returning the caller's
// submission history newest first.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	subs, err := h.service.StatusFor(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "status lookup failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"items": FromSubmissions(subs),
	})
}

// HandleListPending handles GET /admin/verify/pending requests.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 0)

	result, err := h.service.ListPending(ctx, page, pageSize)
	if err != nil {
		h.logger.ErrorContext(ctx, "pending queue fetch failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPendingPage(result))
}

// HandleListDocuments handles GET /admin/verify/documents with optional
// user_id and status filters.
func (h *Handler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var filter submission.Filter
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, err := id.ParseUserID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.UserID = &userID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = &status
	}

	subs, err := h.service.ListDocuments(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "document list failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	items := make([]AdminSubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		items = append(items, FromSubmissionAdmin(sub))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

// HandleGet handles GET /admin/verify/{submissionID} requests.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	subID, err := id.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub, err := h.service.Get(ctx, subID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSubmissionAdmin(sub))
}

// HandleApprove handles POST /admin/verify/{submissionID}/approve requests.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "approve", h.service.Approve)
}

// HandleDeny handles POST /admin/verify/{submissionID}/deny requests.
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, "deny", h.service.Deny)
}

func (h *Handler) decide(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, reviewerID id.UserID, subID id.SubmissionID, notes string) (*models.Submission, error),
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewerID := requestcontext.UserID(ctx)
	if reviewerID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	subID, err := id.ParseSubmissionID(chi.URLParam(r, "submissionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req DecideRequest
	if r.ContentLength != 0 {
		decoded, ok := httputil.Decode[DecideRequest](w, r)
		if !ok {
			return
		}
		req = *decoded
	}

	sub, err := fn(ctx, reviewerID, subID, req.Notes)
	if err != nil {
		h.logger.ErrorContext(ctx, "decision failed",
			"request_id", requestID,
			"reviewer_id", reviewerID.String(),
			"submission_id", subID.String(),
			"action", action,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "submission decided",
		"request_id", requestID,
		"reviewer_id", reviewerID.String(),
		"submission_id", subID.String(),
		"action", action,
		"status", string(sub.Status),
	)

	httputil.WriteJSON(w, http.StatusOK, FromSubmissionAdmin(sub))
}

func queryInt(r *http.Request, key string, dflt int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return dflt
}
