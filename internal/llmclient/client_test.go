// internal/llmclient/client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/crashlens/api/schemas"
	"github.com/xkilldash9x/crashlens/internal/config"
)

func testLLMConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Provider:    config.ProviderOpenAI,
		Model:       "gpt-4o",
		APIKey:      "test-key",
		Endpoint:    endpoint,
		Temperature: 0.3,
		MaxTokens:   512,
		APITimeout:  5 * time.Second,
	}
}

func TestNewClient_Factory(t *testing.T) {
	t.Parallel()

	t.Run("OpenAI", func(t *testing.T) {
		t.Parallel()
		client, err := NewClient(testLLMConfig(""), zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &OpenAIClient{}, client)
	})

	t.Run("Gemini", func(t *testing.T) {
		t.Parallel()
		cfg := testLLMConfig("")
		cfg.Provider = config.ProviderGemini
		client, err := NewClient(cfg, zap.NewNop())
		require.NoError(t, err)
		assert.IsType(t, &GeminiClient{}, client)
	})

	t.Run("Unknown Provider", func(t *testing.T) {
		t.Parallel()
		cfg := testLLMConfig("")
		cfg.Provider = "oracle"
		_, err := NewClient(cfg, zap.NewNop())
		assert.Error(t, err)
	})

	t.Run("Missing API Key", func(t *testing.T) {
		t.Parallel()
		cfg := testLLMConfig("")
		cfg.APIKey = ""
		_, err := NewClient(cfg, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestOpenAIClient_Complete(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		var captured map[string]any
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"model": "gpt-4o",
				"choices": [{"message": {"role": "assistant", "content": "The bug is on line 828."}, "finish_reason": "stop"}],
				"usage": {"prompt_tokens": 100, "completion_tokens": 20}
			}`))
		}))
		defer server.Close()

		client, err := NewOpenAIClient(testLLMConfig(server.URL+"/v1"), zap.NewNop())
		require.NoError(t, err)

		out, err := client.Complete(context.Background(), schemas.CompletionRequest{
			SystemPrompt: "You are a debugger.",
			UserPrompt:   "Why did it crash?",
			Temperature:  0.3,
			MaxTokens:    512,
		})
		require.NoError(t, err)
		assert.Equal(t, "The bug is on line 828.", out)

		messages := captured["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	})

	t.Run("HTTP Error Surfaces", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
		}))
		defer server.Close()

		client, err := NewOpenAIClient(testLLMConfig(server.URL+"/v1"), zap.NewNop())
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), schemas.CompletionRequest{UserPrompt: "x"})
		assert.Error(t, err)
	})
}

func TestGeminiClient_Complete(t *testing.T) {
	t.Parallel()

	geminiCfg := func(endpoint string) config.LLMConfig {
		cfg := testLLMConfig(endpoint)
		cfg.Provider = config.ProviderGemini
		cfg.Model = "gemini-1.5-pro"
		return cfg
	}

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"candidates": [{"content": {"parts": [{"text": "Null pointer in handler."}]}, "finishReason": "STOP"}],
				"usageMetadata": {"promptTokenCount": 50, "candidatesTokenCount": 10, "totalTokenCount": 60}
			}`))
		}))
		defer server.Close()

		client, err := NewGeminiClient(geminiCfg(server.URL), zap.NewNop())
		require.NoError(t, err)

		out, err := client.Complete(context.Background(), schemas.CompletionRequest{
			SystemPrompt: "You are a debugger.",
			UserPrompt:   "Why did it crash?",
		})
		require.NoError(t, err)
		assert.Equal(t, "Null pointer in handler.", out)
	})

	t.Run("Retries Transient Then Succeeds", func(t *testing.T) {
		t.Parallel()
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls == 1 {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "ok"}]}, "finishReason": "STOP"}]}`))
		}))
		defer server.Close()

		client, err := NewGeminiClient(geminiCfg(server.URL), zap.NewNop())
		require.NoError(t, err)

		out, err := client.Complete(context.Background(), schemas.CompletionRequest{UserPrompt: "x"})
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 2, calls)
	})

	t.Run("Permanent Error Does Not Retry", func(t *testing.T) {
		t.Parallel()
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			http.Error(w, "bad request", http.StatusBadRequest)
		}))
		defer server.Close()

		client, err := NewGeminiClient(geminiCfg(server.URL), zap.NewNop())
		require.NoError(t, err)

		_, err = client.Complete(context.Background(), schemas.CompletionRequest{UserPrompt: "x"})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})
}
