package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWebhookNotifier_NilWithoutURLs(t *testing.T) {
	assert.Nil(t, NewWebhookNotifier(nil, nil))
	assert.Nil(t, NewWebhookNotifier(&WebhookConfig{}, nil))

	// A nil notifier is safe to use
	var wn *WebhookNotifier
	wn.Notify(WebhookEvent{Event: "undo"})
	wn.Wait()
}

func TestWebhookNotifier_Delivers(t *testing.T) {
	var (
		mu     sync.Mutex
		events []WebhookEvent
	)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var ev WebhookEvent
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer receiver.Close()

	wn := NewWebhookNotifier(&WebhookConfig{URLs: []string{receiver.URL}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wn.Notify(WebhookEvent{Event: "undo", Index: 2, Edits: 3, Changed: 1})
	wn.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "undo", events[0].Event)
	assert.Equal(t, 2, events[0].Index)
	assert.Equal(t, 3, events[0].Edits)
	assert.NotEmpty(t, events[0].Timestamp)
}

func TestWebhookNotifier_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer receiver.Close()

	wn := NewWebhookNotifier(&WebhookConfig{URLs: []string{receiver.URL}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wn.retry = &RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	wn.Notify(WebhookEvent{Event: "redo"})
	wn.Wait()
	assert.Equal(t, int32(2), calls.Load())
}

func TestWebhookNotifier_NoRetryOnClientErrors(t *testing.T) {
	var calls atomic.Int32
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer receiver.Close()

	wn := NewWebhookNotifier(&WebhookConfig{URLs: []string{receiver.URL}}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	wn.retry = &RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	err := wn.post(context.Background(), receiver.URL, []byte(`{}`))
	assert.EqualError(t, err, "HTTP 400")

	wn.Notify(WebhookEvent{Event: "redo"})
	wn.Wait()
	assert.Equal(t, int32(2), calls.Load(), "one direct post and one notification, no retries")
}

func TestHandler_NotifiesOnUndo(t *testing.T) {
	received := make(chan WebhookEvent, 1)
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev WebhookEvent
		json.NewDecoder(r.Body).Decode(&ev)
		received <- ev
	}))
	defer receiver.Close()

	cfg := adminConfig()
	cfg.Webhooks = NewWebhookNotifier(&WebhookConfig{URLs: []string{receiver.URL}}, nil)
	srv := newTestServer(t, newTestHistory(t), cfg)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/undo", testAdminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case ev := <-received:
		assert.Equal(t, "undo", ev.Event)
		assert.Equal(t, 0, ev.Index)
		assert.Equal(t, 1, ev.Edits)
		assert.Equal(t, 1, ev.Changed)
	case <-time.After(5 * time.Second):
		t.Fatal("webhook not delivered")
	}
}
