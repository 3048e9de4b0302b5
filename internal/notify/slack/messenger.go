// Package slack implements notify.Messenger over the Slack Web API.
package slack

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/cocoflow/insight-engine/internal/notify"
)

// SlackAPI abstracts the subset of the Slack client used by Messenger.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// Messenger implements notify.Messenger for Slack.
type Messenger struct {
	api SlackAPI
}

// Compile-time interface check.
var _ notify.Messenger = (*Messenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewMessenger creates a Messenger with the given API client.
func NewMessenger(api SlackAPI) *Messenger {
	return &Messenger{api: api}
}

// SendAlert posts a Block Kit alert to a Slack channel.
func (m *Messenger) SendAlert(ctx context.Context, channelID, title, body string, items []notify.AlertItem) error {
	blocks := BuildAlertBlocks(title, body, items)

	_, _, err := m.api.PostMessageContext(ctx, channelID,
		slacklib.MsgOptionText(title, false),
		slacklib.MsgOptionBlocks(blocks...),
	)
	if err != nil {
		return fmt.Errorf("slack.Messenger.SendAlert: %w", err)
	}

	return nil
}

// SendMessage posts a plain text message to a Slack channel.
func (m *Messenger) SendMessage(ctx context.Context, channelID, text string) error {
	_, _, err := m.api.PostMessageContext(ctx, channelID, slacklib.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack.Messenger.SendMessage: %w", err)
	}

	return nil
}

// Platform returns the messenger platform identifier.
func (m *Messenger) Platform() string {
	return "slack"
}
