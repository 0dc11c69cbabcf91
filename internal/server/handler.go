// Package server serves spatial queries and change summaries over an edit
// history, and lets an operator restore, undo and redo edits.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"

	"github.com/kilupskalvis/geoedit/internal/core"
	"github.com/kilupskalvis/geoedit/internal/graph"
	"github.com/kilupskalvis/geoedit/internal/history"
	"github.com/kilupskalvis/geoedit/internal/models"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig holds configurable limits for the server.
type ServerConfig struct {
	MaxRequestBody    int64  // bytes, for history uploads
	RequestsPerMinute int    // per-client rate limit
	AdminToken        string // for editing endpoints
	Webhooks          *WebhookNotifier
}

// DefaultServerConfig returns reasonable defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		MaxRequestBody:    64 * 1024 * 1024, // 64MB
		RequestsPerMinute: 300,
	}
}

// session serializes access to the history, which is not safe for
// concurrent use.
type session struct {
	mu       sync.Mutex
	h        *history.History
	webhooks *WebhookNotifier
	logger   *slog.Logger
}

// Handler creates the HTTP handler with all routes and middleware.
// The returned cleanup function stops background goroutines and should be
// called on server shutdown.
func Handler(h *history.History, cfg *ServerConfig, logger *slog.Logger) (http.Handler, func()) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &session{h: h, webhooks: cfg.Webhooks, logger: logger}
	rl := newRateLimiter(cfg.RequestsPerMinute)

	mux := http.NewServeMux()

	// Health and metrics (no rate limit)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Queries
	mux.Handle("GET /api/v1/stats", rl.middleware(http.HandlerFunc(s.handleStats)))
	mux.Handle("GET /api/v1/query", rl.middleware(http.HandlerFunc(s.handleQuery)))
	mux.Handle("GET /api/v1/changes", rl.middleware(http.HandlerFunc(s.handleChanges)))
	mux.Handle("GET /api/v1/history", rl.middleware(http.HandlerFunc(s.handleGetHistory)))

	// Editing
	if cfg.AdminToken != "" {
		withAdmin := func(fn http.HandlerFunc) http.Handler {
			return adminAuth(cfg.AdminToken, rl.middleware(fn))
		}
		mux.Handle("PUT /api/v1/history", withAdmin(s.makePutHistoryHandler(cfg.MaxRequestBody)))
		mux.Handle("POST /api/v1/undo", withAdmin(s.handleUndo))
		mux.Handle("POST /api/v1/redo", withAdmin(s.handleRedo))
	}

	// Apply global middleware. The request ID runs first so logging sees the
	// same request the mux fills the route pattern into.
	handler := applyMiddleware(mux,
		requestIDMiddleware,
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
	)

	cleanup := func() {
		rl.Stop()
		cfg.Webhooks.Wait()
	}

	return handler, cleanup
}

// applyMiddleware applies middleware in reverse order so the first in the list runs first.
func applyMiddleware(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// StatsResponse describes the loaded data and the edit stack
type StatsResponse struct {
	Stats    graph.Stats `json:"stats"`
	Boxes    int         `json:"boxes"`
	Segments int         `json:"segments"`
	Edits    int         `json:"edits"`
	Index    int         `json:"index"`
}

// SegmentRecord is the JSON form of a way segment
type SegmentRecord struct {
	ID    string    `json:"id"`
	Way   string    `json:"way"`
	Nodes [2]string `json:"nodes"`
}

// QueryResponse lists what overlaps the requested box
type QueryResponse struct {
	Entities []models.EntityRecord `json:"entities"`
	Segments []SegmentRecord       `json:"segments,omitempty"`
}

// ChangeRecord is one line of a change summary
type ChangeRecord struct {
	ID         string            `json:"id"`
	Type       models.EntityType `json:"type"`
	Geometry   string            `json:"geometry"`
	ChangeType core.ChangeType   `json:"change"`
	Tags       models.Tags       `json:"tags,omitempty"`
}

// ChangesResponse summarizes the current edit against the base data
type ChangesResponse struct {
	Annotation string         `json:"annotation,omitempty"`
	Changes    []ChangeRecord `json:"changes"`
}

// MoveResponse reports where the stack ended up after an edit operation
type MoveResponse struct {
	Index      int    `json:"index"`
	Annotation string `json:"annotation,omitempty"`
	Changed    int    `json:"changed"`
	CanUndo    bool   `json:"can_undo"`
	CanRedo    bool   `json:"can_redo"`
}

func (s *session) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, err := s.h.Base().BaseStats()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, &StatsResponse{
		Stats:    stats,
		Boxes:    s.h.Tree().Len(),
		Segments: s.h.Tree().SegmentLen(),
		Edits:    s.h.Len() - 1,
		Index:    s.h.Index(),
	})
}

func (s *session) handleQuery(w http.ResponseWriter, r *http.Request) {
	extent, err := models.ParseExtent(r.URL.Query().Get("bbox"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	found, err := s.h.Intersects(extent)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
		return
	}

	resp := &QueryResponse{Entities: make([]models.EntityRecord, 0, len(found))}
	for _, e := range found {
		rec, err := models.ToRecord(e)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}
		resp.Entities = append(resp.Entities, rec)
	}

	if r.URL.Query().Get("segments") == "true" {
		segments, err := s.h.Tree().WaySegments(extent, s.h.Graph())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
			return
		}
		resp.Segments = make([]SegmentRecord, 0, len(segments))
		for _, seg := range segments {
			resp.Segments = append(resp.Segments, SegmentRecord{ID: seg.ID, Way: seg.WayID, Nodes: seg.NodeIDs})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *session) handleChanges(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary, err := s.h.Difference().Summary()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
		return
	}

	resp := &ChangesResponse{
		Annotation: s.h.PeekAnnotation(),
		Changes:    make([]ChangeRecord, 0, len(summary)),
	}
	for id, item := range summary {
		resp.Changes = append(resp.Changes, ChangeRecord{
			ID:         id,
			Type:       item.Entity.Type(),
			Geometry:   string(item.Entity.Geometry(item.Graph)),
			ChangeType: item.ChangeType,
			Tags:       item.Entity.Tags(),
		})
	}
	sort.Slice(resp.Changes, func(i, j int) bool { return resp.Changes[i].ID < resp.Changes[j].ID })

	writeJSON(w, http.StatusOK, resp)
}

func (s *session) handleGetHistory(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	data, err := s.h.ToJSON()
	s.mu.Unlock()

	if errors.Is(err, history.ErrNoChanges) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "no edits to save"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal_error", "message": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *session) makePutHistoryHandler(maxSize int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxSize+1))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad_request", "message": err.Error()})
			return
		}
		if int64(len(data)) > maxSize {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "too_large", "message": fmt.Sprintf("history exceeds %d bytes", maxSize)})
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		if err := s.h.FromJSON(data); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, history.ErrUnsupportedHistoryVersion) {
				status = http.StatusUnprocessableEntity
			}
			writeJSON(w, status, map[string]string{"error": "invalid_history", "message": err.Error()})
			return
		}

		s.logger.Info("history restored", "edits", s.h.Len()-1, "index", s.h.Index())
		s.respondMove(w, "restore", s.h.Difference())
	}
}

func (s *session) handleUndo(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.respondMove(w, "undo", s.h.Undo())
}

func (s *session) handleRedo(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.respondMove(w, "redo", s.h.Redo())
}

// respondMove writes the new stack position and notifies webhooks. The
// caller holds s.mu.
func (s *session) respondMove(w http.ResponseWriter, event string, diff *core.Difference) {
	resp := &MoveResponse{
		Index:      s.h.Index(),
		Annotation: s.h.PeekAnnotation(),
		Changed:    diff.Len(),
		CanUndo:    s.h.UndoAnnotation() != "",
		CanRedo:    s.h.RedoAnnotation() != "",
	}

	s.webhooks.Notify(WebhookEvent{
		Event:      event,
		Index:      resp.Index,
		Edits:      s.h.Len() - 1,
		Annotation: resp.Annotation,
		Changed:    resp.Changed,
	})

	writeJSON(w, http.StatusOK, resp)
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
