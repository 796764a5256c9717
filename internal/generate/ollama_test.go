package generate

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testOpts = Options{Model: "llama3", Temperature: 0.7, TopP: 0.9, TopK: 40, MaxTokens: 256}

func TestHTTPClientRequestContract(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.Write([]byte(`{"response":"A dog is a domesticated mammal.","done":true}`))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL, testOpts, WithHTTPClient(server.Client()))
	text, err := c.Generate(context.Background(), "Write about Dog")
	require.NoError(t, err)
	assert.Equal(t, "A dog is a domesticated mammal.", text)

	assert.Equal(t, "llama3", got["model"])
	assert.Equal(t, "Write about Dog", got["prompt"])
	assert.Equal(t, false, got["stream"])
	opts, ok := got["options"].(map[string]any)
	require.True(t, ok, "options object missing")
	assert.Equal(t, 0.7, opts["temperature"])
	assert.Equal(t, 0.9, opts["top_p"])
	assert.Equal(t, float64(40), opts["top_k"])
	assert.Equal(t, float64(256), opts["num_predict"])
}

func TestHTTPClientFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		permanent bool
	}{
		{"server error", http.StatusInternalServerError, "boom", false},
		{"rate limited", http.StatusTooManyRequests, "", false},
		{"unknown model", http.StatusNotFound, `{"error":"model 'x' not found"}`, true},
		{"malformed body", http.StatusOK, `not json`, true},
		{"empty response", http.StatusOK, `{"response":"   "}`, true},
		{"error field", http.StatusOK, `{"error":"out of memory"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewHTTPClient(server.URL, testOpts, WithHTTPClient(server.Client()))
			_, err := c.Generate(context.Background(), "prompt")
			require.Error(t, err)
			assert.Equal(t, tt.permanent, IsPermanent(err), "IsPermanent(%v)", err)
		})
	}
}

func TestHTTPClientStatusErrorMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid options"}`))
	}))
	defer server.Close()

	_, err := NewHTTPClient(server.URL, testOpts, WithHTTPClient(server.Client())).Generate(context.Background(), "p")
	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusBadRequest, serr.Code)
	assert.Equal(t, "invalid options", serr.Body)
}

func TestHTTPClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPClient(url, testOpts).Generate(context.Background(), "p")
	require.Error(t, err)
	assert.False(t, IsPermanent(err), "transport errors are retryable")
}

func TestRetryRecoversFromTransientFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"response":"second time lucky"}`))
	}))
	defer server.Close()

	gen := WithRetry(
		NewHTTPClient(server.URL, testOpts, WithHTTPClient(server.Client())),
		RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond, Timeout: time.Second},
	)
	text, err := gen.Generate(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "second time lucky", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRetryTimeoutPerAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	gen := WithRetry(
		NewHTTPClient(server.URL, testOpts, WithHTTPClient(server.Client())),
		RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond, Timeout: 50 * time.Millisecond},
	)
	start := time.Now()
	_, err := gen.Generate(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, int32(2), calls.Load())
}

func TestHTTPClientPing(t *testing.T) {
	var path atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path.Store(r.URL.Path)
		w.Write([]byte("Ollama is running"))
	}))
	defer server.Close()

	c := NewHTTPClient(server.URL+"/api/generate", testOpts, WithHTTPClient(server.Client()))
	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/", path.Load())

	down := NewHTTPClient("http://127.0.0.1:1/api/generate", testOpts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Error(t, down.Ping(ctx))

	assert.Error(t, NewHTTPClient("localhost:11434", testOpts).Ping(context.Background()))
}
