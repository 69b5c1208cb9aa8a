package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"live-text-overlay/internal/chat"
	"live-text-overlay/internal/config"
)

func newChatClient(cfg config.ChatConfig, logger *logrus.Logger) (*chat.Client, error) {
	client, err := chat.NewClient(chat.Config{
		Endpoint:     cfg.Endpoint,
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		APIKey:       cfg.ResolveAPIKey(),
		Timeout:      cfg.Timeout,
	}, logrus.NewEntry(logger))
	if err != nil {
		return nil, fmt.Errorf("chat client (set chat.api_key or $%s): %w", cfg.APIKeyEnv, err)
	}
	return client, nil
}

// runChat sends one prompt and writes the answer to out. The chat section
// does not need to be enabled for a one-off question.
func runChat(cfg *config.Config, prompt string, out io.Writer, logger *logrus.Logger) error {
	client, err := newChatClient(cfg.Chat, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	answer, err := client.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, answer)
	return err
}
