package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger, _ := test.NewNullLogger()
	c, err := NewClient(Config{
		Endpoint:     srv.URL + "/chat/completions",
		Model:        "small-chat",
		SystemPrompt: "Be brief.",
		APIKey:       "secret",
		Timeout:      2 * time.Second,
	}, logrus.NewEntry(logger))
	require.NoError(t, err)
	return c
}

func TestComplete(t *testing.T) {
	var got completionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"42"}}]}`))
	})

	answer, err := c.Complete(context.Background(), "  what is six times seven?  ")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)

	assert.Equal(t, "small-chat", got.Model)
	assert.Equal(t, []Message{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "what is six times seven?"},
	}, got.Messages)
}

func TestComplete_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	})

	_, err := c.Complete(context.Background(), "hello")
	require.ErrorIs(t, err, ErrUpstream)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestComplete_NoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Complete(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestComplete_MalformedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})

	_, err := c.Complete(context.Background(), "hello")
	assert.ErrorContains(t, err, "decode")
}

func TestComplete_EmptyPromptSkipsRequest(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.Complete(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyPrompt)
	assert.False(t, called)
}

func TestComplete_Cancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Complete(ctx, "hello")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{Endpoint: "http://localhost"}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
