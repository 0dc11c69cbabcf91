package server

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const contextKeyRequestID contextKey = "request_id"

// requestID returns the id requestIDMiddleware stored in ctx.
func requestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyRequestID).(string)
	return id
}

// requestIDMiddleware tags each request with an id. A client-supplied
// X-Request-ID is kept when it is a UUID so edits can be traced end to end.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyRequestID, id)))
	})
}

// loggingMiddleware records the route latency histogram and logs one line
// per request. Editing requests log at info, reads at debug.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			requestDuration.WithLabelValues(route, strconv.Itoa(rec.Status())).Observe(elapsed.Seconds())

			level := slog.LevelDebug
			if r.Method != http.MethodGet || rec.Status() >= http.StatusInternalServerError {
				level = slog.LevelInfo
			}
			attrs := []any{
				"route", route,
				"status", rec.Status(),
				"latency_ms", elapsed.Milliseconds(),
				"request_id", requestID(r.Context()),
			}
			if bbox := r.URL.Query().Get("bbox"); bbox != "" {
				attrs = append(attrs, "bbox", bbox)
			}
			logger.Log(r.Context(), level, "request", attrs...)
		})
	}
}

// recoveryMiddleware turns a panic in a handler into a 500, unless the
// handler already started its response.
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			defer func() {
				if v := recover(); v != nil {
					logger.Error("handler panic", "route", r.Pattern, "error", v, "request_id", requestID(r.Context()))
					if !rec.wroteHeader {
						writeJSON(rec, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": "internal server error"})
					}
				}
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

// adminAuth guards the editing endpoints with a shared bearer token.
func adminAuth(adminToken string, next http.Handler) http.Handler {
	expected := "Bearer " + adminToken
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if subtle.ConstantTimeCompare([]byte(auth), []byte(expected)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "auth_failed", "message": "invalid admin token"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimiter allows each client host a fixed number of API requests per
// minute. Query, history and editing routes share one budget.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*quota
	limit   int
	now     func() time.Time
	done    chan struct{}
}

type quota struct {
	used    int
	resetAt time.Time
}

func newRateLimiter(requestsPerMinute int) *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*quota),
		limit:   requestsPerMinute,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// allow charges one request to client and reports how long it must wait
// when its quota is spent.
func (rl *rateLimiter) allow(client string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	q, ok := rl.clients[client]
	if !ok || !now.Before(q.resetAt) {
		q = &quota{resetAt: now.Add(time.Minute)}
		rl.clients[client] = q
	}
	q.used++
	if q.used > rl.limit {
		return false, q.resetAt.Sub(now)
	}
	return true, 0
}

// sweep drops expired quotas until Stop is called.
func (rl *rateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for client, q := range rl.clients {
				if !now.Before(q.resetAt) {
					delete(rl.clients, client)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) Stop() {
	close(rl.done)
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rl.limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		if ok, wait := rl.allow(clientHost(r)); !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":   "rate_limited",
				"message": "rate limit exceeded",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// statusRecorder remembers the status a handler wrote. A handler that only
// calls Write answers 200.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.wroteHeader {
		return
	}
	rec.status = code
	rec.wroteHeader = true
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if !rec.wroteHeader {
		rec.WriteHeader(http.StatusOK)
	}
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Status() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}
