// Package assistant assembles bounded snapshots of the business state for the
// external chat assistant. Everything here is read-only; payloads are capped so
// context size stays flat as event volume grows.
package assistant

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
)

const (
	// Caps on the assembled context payload.
	maxContextEvents   = 50
	maxContextInsights = 100
	maxDetailsLen      = 2000
)

// AssistantContext is the bounded bundle handed to the chat assistant.
type AssistantContext struct {
	Events      []*domain.Event       `json:"events"`
	Insights    []*domain.Insight     `json:"insights"`
	Summary     *domain.SystemSummary `json:"summary"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Builder reads events, insights and ERP state without mutating any of them.
type Builder struct {
	events   domain.EventRepository
	insights domain.InsightRepository
	state    domain.StateReader
	log      zerolog.Logger
}

func NewBuilder(events domain.EventRepository, insights domain.InsightRepository, state domain.StateReader, log zerolog.Logger) *Builder {
	return &Builder{
		events:   events,
		insights: insights,
		state:    state,
		log:      log.With().Str("component", "assistant_context").Logger(),
	}
}

// BuildContext aggregates recent events, active insights and the system
// summary into one capped payload.
func (b *Builder) BuildContext(ctx context.Context) (*AssistantContext, error) {
	events, err := b.GetRecentEvents(ctx, maxContextEvents)
	if err != nil {
		return nil, fmt.Errorf("assistant.BuildContext: %w", err)
	}

	insights, err := b.GetActiveInsights(ctx)
	if err != nil {
		return nil, fmt.Errorf("assistant.BuildContext: %w", err)
	}

	summary, err := b.GetSystemSummary(ctx)
	if err != nil {
		return nil, fmt.Errorf("assistant.BuildContext: %w", err)
	}

	return &AssistantContext{
		Events:      events,
		Insights:    insights,
		Summary:     summary,
		GeneratedAt: time.Now(),
	}, nil
}

// GetRecentEvents returns up to n recent events, newest first. n is clamped to
// the context cap.
func (b *Builder) GetRecentEvents(ctx context.Context, n int) ([]*domain.Event, error) {
	if n <= 0 || n > maxContextEvents {
		n = maxContextEvents
	}

	events, err := b.events.ListRecent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("assistant.GetRecentEvents: %w", err)
	}
	return events, nil
}

// GetActiveInsights returns active insights with oversized detail fields
// truncated.
func (b *Builder) GetActiveInsights(ctx context.Context) ([]*domain.Insight, error) {
	insights, err := b.insights.List(ctx, domain.InsightFilter{
		Status: domain.InsightStatusActive,
		Limit:  maxContextInsights,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant.GetActiveInsights: %w", err)
	}

	for _, ins := range insights {
		ins.Details = truncate(ins.Details, maxDetailsLen)
	}
	return insights, nil
}

// GetSystemSummary returns the coarse business-state aggregate.
func (b *Builder) GetSystemSummary(ctx context.Context) (*domain.SystemSummary, error) {
	summary, err := b.state.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("assistant.GetSystemSummary: %w", err)
	}
	return summary, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "…"
}
