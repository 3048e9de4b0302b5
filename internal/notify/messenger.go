// Package notify dispatches operator notifications: critical alerts, the daily
// summary and the weekly report. Transport failures are logged and counted,
// never propagated to the caller.
package notify

import "context"

// AlertItem is one line of a structured alert or summary.
type AlertItem struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Messenger abstracts an outbound chat platform. Implementations handle the
// platform-specific API; channelID is the platform's channel identifier.
type Messenger interface {
	// SendAlert posts a structured alert to a channel.
	SendAlert(ctx context.Context, channelID, title, body string, items []AlertItem) error

	// SendMessage posts a plain text message to a channel.
	SendMessage(ctx context.Context, channelID, text string) error

	// Platform returns the platform identifier (e.g. "slack").
	Platform() string
}

// Registry is a simple map-based messenger lookup.
type Registry struct {
	messengers map[string]Messenger
}

func NewRegistry() *Registry {
	return &Registry{messengers: make(map[string]Messenger)}
}

// Register adds a messenger for the given platform name.
func (r *Registry) Register(m Messenger) {
	r.messengers[m.Platform()] = m
}

// Get returns the messenger for the given platform, or false if not registered.
func (r *Registry) Get(platform string) (Messenger, bool) {
	m, ok := r.messengers[platform]
	return m, ok
}

// All returns every registered messenger.
func (r *Registry) All() []Messenger {
	out := make([]Messenger, 0, len(r.messengers))
	for _, m := range r.messengers {
		out = append(out, m)
	}
	return out
}
