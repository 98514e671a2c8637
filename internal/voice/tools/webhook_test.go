package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxcore/voxcore/internal/models"
)

func testExecutor() *Executor {
	return &Executor{httpClient: &http.Client{}}
}

func TestCallWebhookRetriesOnFailureThenSucceeds(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "ok"})
	}))
	defer srv.Close()

	fn := models.CustomFunction{
		WebhookURL: srv.URL,
		Method:     models.MethodPost,
		RetryCount: 1,
	}

	e := testExecutor()
	start := time.Now()
	result := e.callWebhook(context.Background(), fn, map[string]any{}, nil, "")
	elapsed := time.Since(start)

	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Equal(t, "ok", result["status"])
	// One retry backs off attempt*1s = 1s before the second try.
	assert.GreaterOrEqual(t, elapsed, 900*time.Millisecond)
	assert.Less(t, elapsed, 3*time.Second)
}

func TestCallWebhookExhaustsRetriesAndReturnsError(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fn := models.CustomFunction{
		WebhookURL:     srv.URL,
		Method:         models.MethodPost,
		RetryCount:     1,
		SpeakOnFailure: "Sorry, something went wrong.",
	}

	e := testExecutor()
	result := e.callWebhook(context.Background(), fn, map[string]any{}, nil, "")

	require.Equal(t, int32(2), atomic.LoadInt32(&attempts))
	assert.Contains(t, result["error"], "502")
	assert.Equal(t, "Sorry, something went wrong.", result["_speak_on_failure"])
}

func TestCallWebhookAppliesResponseMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"order": map[string]any{"status": "shipped"}},
		})
	}))
	defer srv.Close()

	fn := models.CustomFunction{
		WebhookURL: srv.URL,
		Method:     models.MethodPost,
		ResponseMapping: models.JSONMap{
			"order_status": "$.data.order.status",
		},
	}

	e := testExecutor()
	result := e.callWebhook(context.Background(), fn, map[string]any{}, nil, "")

	assert.Equal(t, "shipped", result["order_status"])
}

func TestCallWebhookGetEncodesArgsAsQueryParams(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("order_id")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	fn := models.CustomFunction{
		WebhookURL: srv.URL,
		Method:     models.MethodGet,
	}

	e := testExecutor()
	_ = e.callWebhook(context.Background(), fn, map[string]any{"order_id": "abc123"}, nil, "")

	assert.Equal(t, "abc123", gotQuery)
}
