package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/dreamforge/internal/config"
	"github.com/smallbiznis/dreamforge/internal/generation/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	cfg := config.Config{}
	cfg.Generation.BaseURL = baseURL
	cfg.Generation.APIToken = "r8_test"
	cfg.Generation.PollInterval = 5 * time.Millisecond
	return NewClient(cfg, zap.NewNop())
}

func TestRunWaitsForPrediction(t *testing.T) {
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer r8_test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/models/google/imagen-4/predictions":
			var body map[string]map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "a cat", body["input"]["prompt"])
			_, _ = w.Write([]byte(`{"id":"p1","status":"starting","urls":{"get":"` + srv.URL + `/predictions/p1"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/predictions/p1":
			if polls.Add(1) < 2 {
				_, _ = w.Write([]byte(`{"id":"p1","status":"processing","urls":{"get":"` + srv.URL + `/predictions/p1"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"id":"p1","status":"succeeded","output":"https://replicate.delivery/out.png"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	out, err := client.Run(context.Background(), "google/imagen-4", map[string]any{"prompt": "a cat"})
	require.NoError(t, err)
	assert.Equal(t, "https://replicate.delivery/out.png", ExtractImageURL(out))
	assert.Equal(t, int32(2), polls.Load())
}

func TestRunPinnedVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predictions", r.URL.Path)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "abc123", body["version"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p2","status":"succeeded","output":["Once ","upon"]}`))
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv.URL).Run(context.Background(), "owner/model:abc123", map[string]any{"prompt": "x"})
	require.NoError(t, err)
	assert.Equal(t, "Once upon", ExtractText(out))
}

func TestRunFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models/owner/broken/predictions" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p3","status":"failed","error":"nsfw"}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL)

	_, err := client.Run(context.Background(), "owner/broken", nil)
	assert.True(t, errors.Is(err, domain.ErrUpstreamProvider))

	_, err = client.Run(context.Background(), "owner/failing", nil)
	assert.True(t, errors.Is(err, domain.ErrUpstreamProvider))

	_, err = client.Run(context.Background(), "no-owner", nil)
	assert.True(t, errors.Is(err, domain.ErrUpstreamProvider))
}

func TestRunHonoursDeadline(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"p4","status":"processing","urls":{"get":"` + srv.URL + `/predictions/p4"}}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := newTestClient(t, srv.URL).Run(ctx, "owner/slow", nil)
	assert.ErrorIs(t, err, domain.ErrUpstreamProvider)
}

func TestGenerateImageRequiresOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body["input"]["output_format"] == "png" {
			_, _ = w.Write([]byte(`{"id":"p5","status":"succeeded","output":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"p6","status":"succeeded","output":"Rüyanız bir yolculuğu anlatıyor."}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL)

	_, err := client.GenerateImage(context.Background(), domain.ModelSpec{Identifier: "google/imagen-4", Preset: "imagen"}, "p")
	assert.ErrorIs(t, err, domain.ErrUpstreamProvider)
	assert.ErrorIs(t, err, domain.ErrNoOutput)

	text, err := client.Interpret(context.Background(), domain.ModelSpec{Identifier: "google/gemini-2.5-flash", Preset: "llm"}, "p")
	require.NoError(t, err)
	assert.Equal(t, "Rüyanız bir yolculuğu anlatıyor.", text)
}

func TestRunWithoutToken(t *testing.T) {
	client := NewClient(config.Config{}, zap.NewNop())
	assert.False(t, client.Configured())
	_, err := client.Run(context.Background(), "owner/model", nil)
	assert.ErrorIs(t, err, domain.ErrUpstreamProvider)
}

func TestExtractImageURL(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: `"https://cdn.example.com/a.png"`, want: "https://cdn.example.com/a.png"},
		{raw: `["https://cdn.example.com/b.png"]`, want: "https://cdn.example.com/b.png"},
		{raw: `[{"url":"https://cdn.example.com/c.png"}]`, want: "https://cdn.example.com/c.png"},
		{raw: `{"url":"https://cdn.example.com/d.png"}`, want: "https://cdn.example.com/d.png"},
		{raw: `"not-a-url"`, want: ""},
		{raw: `[]`, want: ""},
		{raw: ``, want: ""},
		{raw: `42`, want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractImageURL([]byte(tt.raw)), tt.raw)
	}
}

func TestExtractText(t *testing.T) {
	assert.Equal(t, "hello world", ExtractText([]byte(`" hello world "`)))
	assert.Equal(t, "hello world", ExtractText([]byte(`["hello"," ","world"]`)))
	assert.Empty(t, ExtractText([]byte(`null`)))
	assert.Empty(t, ExtractText([]byte(`{"a":1}`)))
}
