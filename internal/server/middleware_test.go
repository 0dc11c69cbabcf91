package server

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
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r.Context())
	}))

	// A client UUID is kept
	traced := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("X-Request-ID", traced)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, traced, seen)
	assert.Equal(t, traced, rec.Header().Get("X-Request-ID"))

	// Anything else is replaced
	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.NotEqual(t, "not-a-uuid", seen)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := recoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/undo", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"internal server error"}`, rec.Body.String())
}

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.Stop()
	now := time.Unix(1700000000, 0)
	rl.now = func() time.Time { return now }

	ok, _ := rl.allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok)

	now = now.Add(15 * time.Second)
	ok, wait := rl.allow("10.0.0.1")
	require.False(t, ok)
	assert.Equal(t, 45*time.Second, wait)

	ok, _ = rl.allow("10.0.0.2")
	assert.True(t, ok, "quotas are per client")

	now = now.Add(45 * time.Second)
	ok, _ = rl.allow("10.0.0.1")
	assert.True(t, ok, "a new window starts after a minute")
}

func TestStatusRecorder_WriteImpliesOK(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}
	_, err := rec.Write([]byte("ok"))
	require.NoError(t, err)

	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusOK, rec.Status())
	assert.True(t, rec.wroteHeader)
}
