package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"worklink/internal/authz"
	authzhandler "worklink/internal/authz/handler"
	"worklink/internal/document"
	"worklink/internal/platform/token"
	"worklink/internal/ratelimit"
	verifhandler "worklink/internal/verification/handler"
	"worklink/internal/verification/service"
	"worklink/internal/verification/store/submission"
)

const internalToken = "test-internal-token"

type staticHealth struct{ err error }

func (h staticHealth) Health(context.Context) error { return h.err }

func newTestDeps(t *testing.T) (Deps, *token.Service) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		submission.NewInMemory(),
		document.NewInMemory(),
		[]string{"passport"},
		service.WithLogger(logger),
	)
	gate := authz.New(svc, []string{"passport"}, logger)
	tokens := token.NewService("router-test-key", "worklink", "worklink-api")

	return Deps{
		Verification:   verifhandler.New(svc, logger),
		Authz:          authzhandler.New(gate, logger),
		Throttle:       ratelimit.New(ratelimit.NewInMemory(), 100, time.Minute, logger),
		TokenValidator: tokens,
		InternalToken:  internalToken,
		Logger:         logger,
	}, tokens
}

func TestHealthz(t *testing.T) {
	t.Run("reports ok when all checks pass", func(t *testing.T) {
		deps, _ := newTestDeps(t)
		deps.Health = map[string]HealthChecker{
			"postgres": staticHealth{},
			"redis":    staticHealth{},
		}
		router := NewRouter(deps)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, "ok", body["postgres"])
		assert.Equal(t, "ok", body["redis"])
	})

	t.Run("reports degraded when a dependency is down", func(t *testing.T) {
		deps, _ := newTestDeps(t)
		deps.Health = map[string]HealthChecker{
			"postgres": staticHealth{},
			"redis":    staticHealth{err: errors.New("connection refused")},
		}
		router := NewRouter(deps)

		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "unreachable", body["redis"])
		assert.Equal(t, "ok", body["postgres"])
	})
}

func TestRouterAuth(t *testing.T) {
	deps, tokens := newTestDeps(t)
	router := NewRouter(deps)

	t.Run("worker endpoints require a token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/verify/documents", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("authenticated worker can read status", func(t *testing.T) {
		access, err := tokens.GenerateAccessToken(uuid.New(), "worker", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/verify/documents", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("admin endpoints refuse workers", func(t *testing.T) {
		access, err := tokens.GenerateAccessToken(uuid.New(), "worker", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/verify/pending", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin endpoints accept admins", func(t *testing.T) {
		access, err := tokens.GenerateAccessToken(uuid.New(), "admin", time.Minute)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/verify/pending", nil)
		req.Header.Set("Authorization", "Bearer "+access)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

func TestInternalEndpoints(t *testing.T) {
	deps, _ := newTestDeps(t)
	router := NewRouter(deps)

	target := "/internal/authz/can-review?user_id=" + uuid.NewString() + "&role=admin"

	t.Run("rejected without the internal token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("answers checks with the internal token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("X-Internal-Token", internalToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]bool
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.True(t, body["allowed"])
	})

	t.Run("malformed user id fails closed without an error", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/internal/authz/can-apply?user_id=nope&role=worker", nil)
		req.Header.Set("X-Internal-Token", internalToken)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]bool
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.False(t, body["allowed"])
	})
}
