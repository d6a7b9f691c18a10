package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/authz"
	"worklink/internal/verification/models"
	id "worklink/pkg/domain"
)

const approvedWorker = "8d2f1c3a-55aa-4b9e-9f00-1b2c3d4e5f60"

type stubStatus struct {
	subs map[id.UserID][]*models.Submission
}

func (s *stubStatus) StatusFor(_ context.Context, userID id.UserID) ([]*models.Submission, error) {
	return s.subs[userID], nil
}

func newCheckRouter(t *testing.T) chi.Router {
	t.Helper()

	workerID, err := id.ParseUserID(approvedWorker)
	require.NoError(t, err)

	now := time.Now().UTC()
	status := &stubStatus{subs: map[id.UserID][]*models.Submission{
		workerID: {{
			ID:          id.NewSubmissionID(),
			UserID:      workerID,
			DocType:     "passport",
			BlobRef:     "ref",
			Status:      models.StatusApproved,
			SubmittedAt: now,
			DecidedAt:   &now,
		}},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gate := authz.New(status, []string{"passport"}, logger)

	r := chi.NewRouter()
	New(gate, logger).Register(r)
	return r
}

func doCheck(t *testing.T, router chi.Router, path string) (int, map[string]bool) {
	t.Helper()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]bool
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	}
	return rr.Code, body
}

func TestCheckEndpoints(t *testing.T) {
	router := newCheckRouter(t)

	t.Run("verified worker may apply", func(t *testing.T) {
		code, body := doCheck(t, router, "/authz/can-apply?user_id="+approvedWorker+"&role=worker")
		require.Equal(t, http.StatusOK, code)
		assert.True(t, body["allowed"])
	})

	t.Run("employer may create listings on role alone", func(t *testing.T) {
		code, body := doCheck(t, router, "/authz/can-create-listing?user_id="+approvedWorker+"&role=employer")
		require.Equal(t, http.StatusOK, code)
		assert.True(t, body["allowed"])
	})

	t.Run("unknown role is denied, not an error", func(t *testing.T) {
		code, body := doCheck(t, router, "/authz/can-review?user_id="+approvedWorker+"&role=superuser")
		require.Equal(t, http.StatusOK, code)
		assert.False(t, body["allowed"])
	})

	t.Run("unparseable user id fails closed for apply", func(t *testing.T) {
		code, body := doCheck(t, router, "/authz/can-apply?user_id=not-a-uuid&role=worker")
		require.Equal(t, http.StatusOK, code)
		assert.False(t, body["allowed"])
	})

	t.Run("unparseable user id still answers role-only checks", func(t *testing.T) {
		code, body := doCheck(t, router, "/authz/can-create-listing?user_id=not-a-uuid&role=employer")
		require.Equal(t, http.StatusOK, code)
		assert.True(t, body["allowed"])
	})

	t.Run("missing claims are denied with a 200", func(t *testing.T) {
		code, body := doCheck(t, router, "/authz/can-apply")
		require.Equal(t, http.StatusOK, code)
		assert.False(t, body["allowed"])
	})
}
