package enhance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-mapper/internal/match"
	"field-mapper/internal/source"
)

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

// newServer answers with the given statuses in order, then repeats the last.
func newServer(t *testing.T, statuses []int, content string) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var calls atomic.Int64

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}

		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statuses[n])

		if statuses[n] != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "try later", "type": "server_error"},
			})

			return
		}

		_ = json.NewEncoder(w).Encode(completion(content))
	}))

	t.Cleanup(srv.Close)

	return srv, &calls
}

func newTestEnhancer(srv *httptest.Server) *OpenAIEnhancer {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"

	return NewOpenAIEnhancerWithConfig(cfg, Options{
		RPS:             1000,
		Burst:           10,
		MaxTries:        3,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		Timeout:         5 * time.Second,
	}, nil)
}

func record() source.Record {
	return source.NewRecord(map[string]string{
		"carrier_name": "Acme Health",
		"first":        "Jane",
	})
}

func TestEnhance_Success(t *testing.T) {
	srv, calls := newServer(t, []int{http.StatusOK},
		`{"insurer": {"value": "Acme Health", "confidence": 0.8}, "unrequested": {"value": "x", "confidence": 1}, "group_number": {"value": "", "confidence": 0.9}}`)

	got, err := newTestEnhancer(srv).Enhance(context.Background(), []string{"insurer", "group_number"}, record())
	require.NoError(t, err)

	assert.Equal(t, match.Enhancement{
		"insurer": {Value: "Acme Health", Confidence: 0.8},
	}, got)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEnhance_RetriesServerErrors(t *testing.T) {
	srv, calls := newServer(t, []int{http.StatusInternalServerError, http.StatusTooManyRequests, http.StatusOK},
		`{"insurer": {"value": "Acme Health", "confidence": 0.8}}`)

	got, err := newTestEnhancer(srv).Enhance(context.Background(), []string{"insurer"}, record())
	require.NoError(t, err)

	assert.Contains(t, got, "insurer")
	assert.Equal(t, int64(3), calls.Load())
}

func TestEnhance_GivesUpAfterMaxTries(t *testing.T) {
	srv, calls := newServer(t, []int{http.StatusServiceUnavailable}, "")

	_, err := newTestEnhancer(srv).Enhance(context.Background(), []string{"insurer"}, record())
	require.Error(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestEnhance_ClientErrorIsPermanent(t *testing.T) {
	srv, calls := newServer(t, []int{http.StatusBadRequest}, "")

	_, err := newTestEnhancer(srv).Enhance(context.Background(), []string{"insurer"}, record())
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestEnhance_NothingToAsk(t *testing.T) {
	srv, calls := newServer(t, []int{http.StatusOK}, "{}")
	e := newTestEnhancer(srv)

	got, err := e.Enhance(context.Background(), nil, record())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.Enhance(context.Background(), []string{"insurer"}, source.NewRecord(nil))
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.Zero(t, calls.Load())
}

func TestParseEnhancement(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    match.Enhancement
		wantErr bool
	}{
		{
			name:    "fenced",
			content: "```json\n{\"insurer\": {\"value\": \"Acme\", \"confidence\": 0.7}}\n```",
			want:    match.Enhancement{"insurer": {Value: "Acme", Confidence: 0.7}},
		},
		{
			name:    "empty object",
			content: "{}",
			want:    match.Enhancement{},
		},
		{
			name:    "not json",
			content: "I cannot help with that",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseEnhancement(tt.content, []string{"insurer"})
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt([]string{"insurer"}, record())

	assert.Contains(t, p, "- insurer\n")
	assert.Contains(t, p, "carrier_name: Acme Health\n")
	assert.Less(t, strings.Index(p, "carrier_name"), strings.Index(p, "first:"))
}
