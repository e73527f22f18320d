// Package notify delivers leveling announcements to chat channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	apperrors "github.com/chatrhq/chatr/internal/platform/errors"
	"github.com/chatrhq/chatr/internal/services/leveling/domain"
	"github.com/chatrhq/chatr/internal/services/leveling/render"
)

// ChatSender posts one message to a chat channel.
type ChatSender interface {
	SendMessage(ctx context.Context, channelRef, text string) error
}

// Announcer renders level transitions and hands them to a chat sender. It
// implements the engine's notifier.
type Announcer struct {
	sender   ChatSender
	renderer *render.Renderer
}

// NewAnnouncer constructs an announcer. A nil renderer falls back to
// English.
func NewAnnouncer(sender ChatSender, renderer *render.Renderer) *Announcer {
	if renderer == nil {
		renderer = render.NewEnglishRenderer()
	}
	return &Announcer{sender: sender, renderer: renderer}
}

// Notify delivers one level transition to the community's updates channel.
func (a *Announcer) Notify(ctx context.Context, transition domain.LevelTransition) error {
	if a == nil || a.sender == nil {
		return apperrors.New(apperrors.CodeNotifyFailure, "announcer is not configured")
	}
	text := a.renderer.LevelUp(transition)
	if err := a.sender.SendMessage(ctx, transition.ChannelRef, text); err != nil {
		return apperrors.Wrap(apperrors.CodeNotifyFailure, "send level announcement", err)
	}
	return nil
}

// WebhookSender posts messages to the chat gateway's outbound webhook. The
// gateway resolves channel refs to real chat channels.
type WebhookSender struct {
	client *http.Client
	url    string
}

// NewWebhookSender constructs a webhook sender. A nil client falls back to
// http.DefaultClient.
func NewWebhookSender(client *http.Client, url string) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookSender{client: client, url: url}
}

type webhookMessage struct {
	Channel string `json:"channel"`
	Content string `json:"content"`
}

// SendMessage posts one message payload to the webhook.
func (w *WebhookSender) SendMessage(ctx context.Context, channelRef, text string) error {
	if w == nil || w.url == "" {
		return fmt.Errorf("webhook url is not configured")
	}
	body, err := json.Marshal(webhookMessage{Channel: channelRef, Content: text})
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

// LogSender writes announcements to the process log. It stands in when no
// webhook is configured, keeping local runs observable.
type LogSender struct{}

// SendMessage logs the message instead of delivering it.
func (LogSender) SendMessage(_ context.Context, channelRef, text string) error {
	log.Printf("announce [%s]: %s", channelRef, text)
	return nil
}
