package notify

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/metrics"
)

const (
	// sendTimeout bounds one outbound delivery attempt.
	sendTimeout = 10 * time.Second

	// dispatchWindow is how long after the configured time a scheduled send
	// still fires. Ticks inside the window are deduplicated per day.
	dispatchWindow = 15 * time.Minute
)

// ConfigPatch is a partial update to the notification config. Nil fields are
// left untouched.
type ConfigPatch struct {
	CriticalAlertsEnabled *bool         `json:"critical_alerts_enabled,omitempty"`
	DailySummaryEnabled   *bool         `json:"daily_summary_enabled,omitempty"`
	DailySummaryTime      *string       `json:"daily_summary_time,omitempty"`
	WeeklyReportEnabled   *bool         `json:"weekly_report_enabled,omitempty"`
	WeeklyReportDay       *time.Weekday `json:"weekly_report_day,omitempty"`
	RecipientRoles        []string      `json:"recipient_roles,omitempty"`
	RecipientUserIDs      []int64       `json:"recipient_user_ids,omitempty"`
}

// Dispatcher owns the notification config and pushes alerts and scheduled
// summaries through the registered messengers.
type Dispatcher struct {
	config    domain.NotificationConfigRepository
	registry  *Registry
	insights  domain.InsightRepository
	events    domain.EventRepository
	state     domain.StateReader
	metrics   *metrics.Collector
	log       zerolog.Logger
	channelID string

	mu         sync.Mutex
	lastDaily  string // "2006-01-02" of the last daily summary sent
	lastWeekly string
}

func NewDispatcher(
	config domain.NotificationConfigRepository,
	registry *Registry,
	insights domain.InsightRepository,
	events domain.EventRepository,
	state domain.StateReader,
	collector *metrics.Collector,
	channelID string,
	log zerolog.Logger,
) *Dispatcher {
	return &Dispatcher{
		config:    config,
		registry:  registry,
		insights:  insights,
		events:    events,
		state:     state,
		metrics:   collector,
		log:       log.With().Str("component", "notify").Logger(),
		channelID: channelID,
	}
}

// GetConfig returns the current notification config.
func (d *Dispatcher) GetConfig(ctx context.Context) (*domain.NotificationConfig, error) {
	cfg, err := d.config.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify.GetConfig: %w", err)
	}
	return cfg, nil
}

// SaveConfig merges the patch into the stored config and persists the result.
func (d *Dispatcher) SaveConfig(ctx context.Context, patch ConfigPatch) (*domain.NotificationConfig, error) {
	cfg, err := d.config.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("notify.SaveConfig: %w", err)
	}

	if patch.CriticalAlertsEnabled != nil {
		cfg.CriticalAlertsEnabled = *patch.CriticalAlertsEnabled
	}
	if patch.DailySummaryEnabled != nil {
		cfg.DailySummaryEnabled = *patch.DailySummaryEnabled
	}
	if patch.DailySummaryTime != nil {
		if _, err := time.Parse("15:04", *patch.DailySummaryTime); err != nil {
			return nil, fmt.Errorf("notify.SaveConfig: daily summary time: %w", domain.ErrValidation)
		}
		cfg.DailySummaryTime = *patch.DailySummaryTime
	}
	if patch.WeeklyReportEnabled != nil {
		cfg.WeeklyReportEnabled = *patch.WeeklyReportEnabled
	}
	if patch.WeeklyReportDay != nil {
		if *patch.WeeklyReportDay < time.Sunday || *patch.WeeklyReportDay > time.Saturday {
			return nil, fmt.Errorf("notify.SaveConfig: weekly report day: %w", domain.ErrValidation)
		}
		cfg.WeeklyReportDay = *patch.WeeklyReportDay
	}
	if patch.RecipientRoles != nil {
		cfg.RecipientRoles = patch.RecipientRoles
	}
	if patch.RecipientUserIDs != nil {
		cfg.RecipientUserIDs = patch.RecipientUserIDs
	}
	cfg.UpdatedAt = time.Now()

	if err := d.config.Save(ctx, cfg); err != nil {
		return nil, fmt.Errorf("notify.SaveConfig: %w", err)
	}
	return cfg, nil
}

// ShouldSendDailySummary reports whether a daily summary is due at now. It is
// pure over its inputs: enabled, and now falls inside the dispatch window
// starting at the configured time.
func ShouldSendDailySummary(cfg *domain.NotificationConfig, now time.Time) bool {
	if cfg == nil || !cfg.DailySummaryEnabled {
		return false
	}

	at, err := time.Parse("15:04", cfg.DailySummaryTime)
	if err != nil {
		return false
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), at.Hour(), at.Minute(), 0, 0, now.Location())
	return !now.Before(start) && now.Before(start.Add(dispatchWindow))
}

// ShouldSendWeeklyReport reports whether the weekly report is due at now: the
// daily window on the configured weekday.
func ShouldSendWeeklyReport(cfg *domain.NotificationConfig, now time.Time) bool {
	if cfg == nil || !cfg.WeeklyReportEnabled {
		return false
	}
	if now.Weekday() != cfg.WeeklyReportDay {
		return false
	}
	return ShouldSendDailySummary(&domain.NotificationConfig{
		DailySummaryEnabled: true,
		DailySummaryTime:    cfg.DailySummaryTime,
	}, now)
}

// SendCriticalAlert pushes an alert to every registered messenger. It reports
// whether at least one delivery succeeded; transport errors are logged and
// counted, never returned.
func (d *Dispatcher) SendCriticalAlert(ctx context.Context, title, body string, items []AlertItem) bool {
	cfg, err := d.config.Get(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("loading notification config")
		return false
	}
	if !cfg.CriticalAlertsEnabled {
		return false
	}

	sent := false
	for _, m := range d.registry.All() {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := m.SendAlert(sendCtx, d.channelID, title, body, items)
		cancel()
		if err != nil {
			d.log.Warn().Err(err).Str("platform", m.Platform()).Str("title", title).Msg("alert delivery failed")
			d.metrics.RecordError("notification_send", err.Error(), "")
			continue
		}
		sent = true
	}

	if sent {
		d.metrics.RecordMetric("alerts_sent", 1, map[string]string{"kind": "critical"})
	}
	return sent
}

// StartSchedule runs the dispatch loop until ctx is cancelled, checking on
// every tick whether a daily summary or weekly report is due.
func (d *Dispatcher) StartSchedule(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	d.log.Info().Dur("tick", tick).Msg("notification schedule started")

	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("notification schedule stopped")
			return
		case <-ticker.C:
			d.Tick(ctx, time.Now())
		}
	}
}

// Tick performs one scheduling pass at the given time. Exposed so the schedule
// is testable without a real clock.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) {
	cfg, err := d.config.Get(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("loading notification config")
		return
	}

	day := now.Format("2006-01-02")

	if ShouldSendDailySummary(cfg, now) && d.claim(&d.lastDaily, day) {
		if err := d.sendDailySummary(ctx); err != nil {
			d.log.Warn().Err(err).Msg("daily summary failed")
			d.metrics.RecordError("notification_send", err.Error(), "")
		}
	}

	if ShouldSendWeeklyReport(cfg, now) && d.claim(&d.lastWeekly, day) {
		if err := d.sendWeeklyReport(ctx, now); err != nil {
			d.log.Warn().Err(err).Msg("weekly report failed")
			d.metrics.RecordError("notification_send", err.Error(), "")
		}
	}
}

// claim marks the slot as sent for the day; false means it already fired.
func (d *Dispatcher) claim(slot *string, day string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if *slot == day {
		return false
	}
	*slot = day
	return true
}

func (d *Dispatcher) sendDailySummary(ctx context.Context) error {
	summary, err := d.state.Summary(ctx)
	if err != nil {
		return fmt.Errorf("notify.sendDailySummary: %w", err)
	}
	active, err := d.insights.CountActive(ctx)
	if err != nil {
		return fmt.Errorf("notify.sendDailySummary: %w", err)
	}

	items := []AlertItem{
		{Label: "Active insights", Value: strconv.FormatInt(active, 10)},
		{Label: "Low stock items", Value: strconv.FormatInt(summary.LowStockItems, 10)},
		{Label: "Open producer payments", Value: strconv.FormatInt(summary.OpenProducerPayments, 10)},
		{Label: "Open payables", Value: strconv.FormatInt(summary.OpenPayables, 10)},
		{Label: "Open non-conformities", Value: strconv.FormatInt(summary.OpenNonConformities, 10)},
		{Label: "Pending purchase requests", Value: strconv.FormatInt(summary.PendingPurchases, 10)},
	}

	if err := d.deliver(ctx, "Daily summary", "Operational snapshot for today.", items); err != nil {
		return err
	}
	d.metrics.RecordMetric("alerts_sent", 1, map[string]string{"kind": "daily_summary"})
	return nil
}

func (d *Dispatcher) sendWeeklyReport(ctx context.Context, now time.Time) error {
	summary, err := d.state.Summary(ctx)
	if err != nil {
		return fmt.Errorf("notify.sendWeeklyReport: %w", err)
	}
	weekEvents, err := d.events.CountSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return fmt.Errorf("notify.sendWeeklyReport: %w", err)
	}

	items := []AlertItem{
		{Label: "Events this week", Value: strconv.FormatInt(weekEvents, 10)},
		{Label: "Stock items tracked", Value: strconv.FormatInt(summary.StockItems, 10)},
		{Label: "Active batches", Value: strconv.FormatInt(summary.ActiveBatches, 10)},
		{Label: "Open non-conformities", Value: strconv.FormatInt(summary.OpenNonConformities, 10)},
	}

	if err := d.deliver(ctx, "Weekly report", "Activity over the last seven days.", items); err != nil {
		return err
	}
	d.metrics.RecordMetric("alerts_sent", 1, map[string]string{"kind": "weekly_report"})
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, title, body string, items []AlertItem) error {
	var lastErr error
	sent := false
	for _, m := range d.registry.All() {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := m.SendAlert(sendCtx, d.channelID, title, body, items)
		cancel()
		if err != nil {
			lastErr = err
			d.log.Warn().Err(err).Str("platform", m.Platform()).Msg("delivery failed")
			continue
		}
		sent = true
	}
	if !sent && lastErr != nil {
		return lastErr
	}
	return nil
}
