package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"live-text-overlay/internal/chat"
	"live-text-overlay/internal/config"
)

func TestRunChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer env-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"pong"}}]}`))
	}))
	defer srv.Close()

	t.Setenv("LTO_TEST_CHAT_KEY", "env-key")
	cfg := config.Default()
	cfg.Chat.Endpoint = srv.URL
	cfg.Chat.APIKeyEnv = "LTO_TEST_CHAT_KEY"

	logger, _ := test.NewNullLogger()
	var out bytes.Buffer
	require.NoError(t, runChat(cfg, "ping", &out, logger))
	assert.Equal(t, "pong\n", out.String())
}

func TestRunChat_MissingKey(t *testing.T) {
	cfg := config.Default()
	cfg.Chat.APIKeyEnv = "LTO_TEST_UNSET_CHAT_KEY"

	logger, _ := test.NewNullLogger()
	err := runChat(cfg, "ping", &bytes.Buffer{}, logger)
	assert.ErrorIs(t, err, chat.ErrNoAPIKey)
	assert.ErrorContains(t, err, "LTO_TEST_UNSET_CHAT_KEY")
}
