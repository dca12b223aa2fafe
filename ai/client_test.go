package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledClient(t *testing.T) {
	c := Disabled{}
	assert.False(t, c.IsEnabled())

	_, err := c.GetCompletion(context.Background(), "sys", "user")
	assert.Error(t, err)
}

func TestNewClientFromEnv(t *testing.T) {
	t.Setenv("AI_API_KEY", "")
	_, ok := NewClientFromEnv().(Disabled)
	assert.True(t, ok, "missing key should yield a disabled client")

	t.Setenv("AI_API_KEY", "sk-test")
	t.Setenv("AI_MODEL", "test-model")
	c := NewClientFromEnv()
	assert.True(t, c.IsEnabled())
	assert.Equal(t, "test-model", c.Name())
}

func TestGetCompletion(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "mapped!"}}},
		})
	}))
	defer server.Close()

	c := NewOpenAICompatClient(server.URL, "sk-test", "test-model", 0)
	out, err := c.GetCompletion(context.Background(), "system prompt", "user prompt")
	require.NoError(t, err)

	assert.Equal(t, "mapped!", out)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user prompt", gotReq.Messages[1].Content)
}

func TestGetCompletionErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewOpenAICompatClient(server.URL, "sk-test", "test-model", 0)
	_, err := c.GetCompletion(context.Background(), "sys", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}

func TestGetCompletionNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	c := NewOpenAICompatClient(server.URL, "sk-test", "test-model", 0)
	_, err := c.GetCompletion(context.Background(), "sys", "user")
	assert.Error(t, err)
}
