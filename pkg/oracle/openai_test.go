package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/condition-suggestion-engine/internal/domain"
)

func TestOpenAIClient_Complete(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		want        string
		expectError bool
	}{
		{
			name:   "Successful completion",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{"role":"assistant","content":"{\"conditions\":[]}"}}]}`,
			want:   `{"conditions":[]}`,
		},
		{
			name:        "Server error",
			status:      http.StatusInternalServerError,
			body:        `{"error":"overloaded"}`,
			expectError: true,
		},
		{
			name:        "Unauthorized",
			status:      http.StatusUnauthorized,
			body:        `{"error":"invalid key"}`,
			expectError: true,
		},
		{
			name:        "No choices",
			status:      http.StatusOK,
			body:        `{"choices":[]}`,
			expectError: true,
		},
		{
			name:        "Invalid JSON",
			status:      http.StatusOK,
			body:        `not json`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received chatRequest
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/v1/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := NewOpenAIClient(domain.OracleConfig{
				BaseURL:     server.URL + "/v1/",
				APIKey:      "test-key",
				Model:       "test-model",
				Timeout:     5 * time.Second,
				RateLimit:   100,
				MaxTokens:   256,
				Temperature: 0.1,
			})

			got, err := client.Complete(context.Background(), "which conditions?")

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			assert.Equal(t, "test-model", received.Model)
			assert.Equal(t, 256, received.MaxTokens)
			require.Len(t, received.Messages, 2)
			assert.Equal(t, "system", received.Messages[0].Role)
			assert.Equal(t, "user", received.Messages[1].Role)
			assert.Equal(t, "which conditions?", received.Messages[1].Content)
		})
	}
}

func TestOpenAIClient_Defaults(t *testing.T) {
	client := NewOpenAIClient(domain.OracleConfig{})
	assert.Equal(t, defaultBaseURL, client.baseURL)
	assert.Equal(t, defaultModel, client.Model())
	assert.Equal(t, defaultMaxTokens, client.maxTokens)
}

func TestOpenAIClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	client := NewOpenAIClient(domain.OracleConfig{BaseURL: server.URL, RateLimit: 100})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.Complete(ctx, "prompt")
	assert.Error(t, err)
}
