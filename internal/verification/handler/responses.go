package handler

import (
	"time"

	"worklink/internal/verification/models"
	"worklink/internal/verification/service"
)

// SubmissionResponse is the worker-facing view of a submission. The stored
// blob reference stays internal.
type SubmissionResponse struct {
	ID          string     `json:"id"`
	DocType     string     `json:"doc_type"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// AdminSubmissionResponse extends the worker view with reviewer fields.
type AdminSubmissionResponse struct {
	SubmissionResponse
	UserID     string `json:"user_id"`
	ReviewerID string `json:"reviewer_id,omitempty"`
}

// PendingPageResponse is the paginated review queue.
type PendingPageResponse struct {
	Items    []AdminSubmissionResponse `json:"items"`
	Total    int                       `json:"total"`
	Page     int                       `json:"page"`
	PageSize int                       `json:"page_size"`
}

// FromSubmission maps a domain submission to the worker view.
func FromSubmission(sub *models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:          sub.ID.String(),
		DocType:     string(sub.DocType),
		Status:      string(sub.Status),
		SubmittedAt: sub.SubmittedAt,
		DecidedAt:   sub.DecidedAt,
		Notes:       sub.Notes,
	}
}

// FromSubmissions maps a slice to the worker view.
func FromSubmissions(subs []*models.Submission) []SubmissionResponse {
	out := make([]SubmissionResponse, 0, len(subs))
	for _, sub := range subs {
		out = append(out, FromSubmission(sub))
	}
	return out
}

// FromSubmissionAdmin maps a domain submission to the admin view.
func FromSubmissionAdmin(sub *models.Submission) AdminSubmissionResponse {
	resp := AdminSubmissionResponse{
		SubmissionResponse: FromSubmission(sub),
		UserID:             sub.UserID.String(),
	}
	if sub.ReviewerID != nil {
		resp.ReviewerID = sub.ReviewerID.String()
	}
	return resp
}

// FromPendingPage maps a queue page to the admin view.
func FromPendingPage(page *service.PendingPage) PendingPageResponse {
	items := make([]AdminSubmissionResponse, 0, len(page.Items))
	for _, sub := range page.Items {
		items = append(items, FromSubmissionAdmin(sub))
	}
	return PendingPageResponse{
		Items:    items,
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
	}
}
