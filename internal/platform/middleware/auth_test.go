package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/platform/token"
	id "worklink/pkg/domain"
	"worklink/pkg/requestcontext"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRequireAuth(t *testing.T) {
	svc := token.NewService("test-key", "worklink", "worklink-api")
	userID := uuid.New()

	var gotUserID id.UserID
	var gotRole id.Role
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = requestcontext.UserID(r.Context())
		gotRole = requestcontext.Role(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := RequireAuth(svc, discardLogger())(inner)

	t.Run("valid token passes claims through", func(t *testing.T) {
		raw, err := svc.GenerateAccessToken(userID, "worker", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/verify/documents", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, userID.String(), gotUserID.String())
		assert.Equal(t, id.RoleWorker, gotRole)
	})

	t.Run("unknown role claim authenticates but grants no role", func(t *testing.T) {
		raw, err := svc.GenerateAccessToken(userID, "superuser", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/verify/documents", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, id.Role(""), gotRole)
	})

	t.Run("missing header is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/verify/documents", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("expired token is 401", func(t *testing.T) {
		raw, err := svc.GenerateAccessToken(userID, "worker", -time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/verify/documents", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RequireRole(discardLogger(), id.RoleAdmin)(inner)

	request := func(role id.Role) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin/verify/pending", nil)
		ctx := requestcontext.WithRole(req.Context(), role)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(ctx))
		return rec
	}

	assert.Equal(t, http.StatusOK, request(id.RoleAdmin).Code)
	assert.Equal(t, http.StatusForbidden, request(id.RoleWorker).Code)
	assert.Equal(t, http.StatusForbidden, request(id.RoleEmployer).Code)
	assert.Equal(t, http.StatusForbidden, request("").Code)
}

func TestRequireInternalToken(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := RequireInternalToken("secret", discardLogger())(inner)

	t.Run("matching token passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/internal/authz/can-apply", nil)
		req.Header.Set("X-Internal-Token", "secret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("wrong or missing token is 401", func(t *testing.T) {
		for _, value := range []string{"", "wrong"} {
			req := httptest.NewRequest(http.MethodGet, "/internal/authz/can-apply", nil)
			if value != "" {
				req.Header.Set("X-Internal-Token", value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		}
	})
}

func TestRequestID(t *testing.T) {
	var captured string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requestcontext.RequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := RequestID(inner)

	t.Run("generates an ID when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.NotEmpty(t, captured)
		assert.Equal(t, captured, rec.Header().Get("X-Request-ID"))
	})

	t.Run("honors an inbound ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "upstream-id", captured)
	})
}
