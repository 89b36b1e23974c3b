package llm

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

	"aurax/internal/config"
)

func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.OllamaBaseURL = baseURL
	cfg.ReadTimeout = 2 * time.Second
	cfg.ConnectTimeout = time.Second
	cfg.MaxRetries = 2
	cfg.RetryBackoff = time.Millisecond
	return cfg
}

func TestGenerateReturnsTrimmedResponse(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "  print('hello')\n"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	out, err := client.Generate(context.Background(), "write hello", "qwen2.5:7b", Options{"temperature": 0.1}, "30m")

	require.NoError(t, err)
	assert.Equal(t, "print('hello')", out)
	assert.Equal(t, "qwen2.5:7b", gotBody["model"])
	assert.Equal(t, false, gotBody["stream"])
	assert.Equal(t, "30m", gotBody["keep_alive"])
	assert.NotNil(t, gotBody["options"])
}

func TestGenerateServerReportedErrorIsNotRetried(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "model requires more memory"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt", "m", nil, "")

	require.Error(t, err)
	assert.Equal(t, KindServer, KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
}

func TestGenerateNon2xxIsProtocolErrorWithoutRetry(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		http.Error(w, "model not loaded", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt", "m", nil, "")

	require.Error(t, err)
	assert.Equal(t, KindProtocol, KindOf(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
}

func TestGenerateMalformedPayloadIsProtocolError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt", "m", nil, "")

	require.Error(t, err)
	assert.Equal(t, KindProtocol, KindOf(err))
}

func TestGenerateEmptyOutputError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "   \n\t "})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt", "m", nil, "")

	require.Error(t, err)
	assert.Equal(t, KindEmptyOutput, KindOf(err))
}

func TestGenerateTransportFailureRetriesThenSurfaces(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		_ = conn.Close()
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	_, err := client.Generate(context.Background(), "prompt", "m", nil, "")

	require.Error(t, err)
	assert.Equal(t, KindTransport, KindOf(err))
	// max_retries additional attempts after the first
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
}

func TestGenerateRecoversAfterTransientFailure(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			conn, _, err := w.(http.Hijacker).Hijack()
			require.NoError(t, err)
			_ = conn.Close()
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"response": "ok"})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))
	out, err := client.Generate(context.Background(), "prompt", "m", nil, "")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.EqualValues(t, 2, atomic.LoadInt32(&attempts))
}

func TestCheckServerAndModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]string{
				{"name": "qwen2.5:7b", "model": "qwen2.5:7b"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(testConfig(srv.URL))

	ok, detail := client.CheckServer(context.Background())
	assert.True(t, ok)
	assert.Contains(t, detail, "reachable")

	ok, _ = client.CheckModel(context.Background(), "qwen2.5:7b")
	assert.True(t, ok)

	ok, detail = client.CheckModel(context.Background(), "llama3:8b")
	assert.False(t, ok)
	assert.Contains(t, detail, "ollama pull llama3:8b")
}

func TestCheckServerReportsUnavailableWithoutRaising(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := NewClient(testConfig(srv.URL))
	ok, detail := client.CheckServer(context.Background())

	assert.False(t, ok)
	assert.Contains(t, detail, "unavailable")
}
