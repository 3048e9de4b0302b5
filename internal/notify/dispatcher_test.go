package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/metrics"
	"github.com/cocoflow/insight-engine/internal/notify"
	"github.com/cocoflow/insight-engine/internal/store/memory"
)

type mockMessenger struct {
	platform string
	sendErr  error
	alerts   []string
}

func (m *mockMessenger) SendAlert(ctx context.Context, channelID, title, body string, items []notify.AlertItem) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.alerts = append(m.alerts, title)
	return nil
}

func (m *mockMessenger) SendMessage(ctx context.Context, channelID, text string) error {
	return m.sendErr
}

func (m *mockMessenger) Platform() string {
	if m.platform == "" {
		return "mock"
	}
	return m.platform
}

func newTestDispatcher(t *testing.T, m notify.Messenger) (*notify.Dispatcher, *memory.NotificationConfigRepo, *memory.StateRepo) {
	t.Helper()

	registry := notify.NewRegistry()
	if m != nil {
		registry.Register(m)
	}
	config := memory.NewNotificationConfigRepo()
	state := memory.NewStateRepo()
	d := notify.NewDispatcher(
		config,
		registry,
		memory.NewInsightRepo(),
		memory.NewEventRepo(),
		state,
		metrics.NewCollector(),
		"#ops-alerts",
		zerolog.Nop(),
	)
	return d, config, state
}

func TestShouldSendDailySummaryWindow(t *testing.T) {
	t.Parallel()

	cfg := &domain.NotificationConfig{
		DailySummaryEnabled: true,
		DailySummaryTime:    "08:00",
	}
	day := func(hh, mm int) time.Time {
		return time.Date(2026, 3, 10, hh, mm, 0, 0, time.UTC)
	}

	assert.False(t, notify.ShouldSendDailySummary(cfg, day(7, 59)))
	assert.True(t, notify.ShouldSendDailySummary(cfg, day(8, 0)))
	assert.True(t, notify.ShouldSendDailySummary(cfg, day(8, 14)))
	assert.False(t, notify.ShouldSendDailySummary(cfg, day(8, 15)))
	assert.False(t, notify.ShouldSendDailySummary(cfg, day(20, 0)))

	cfg.DailySummaryEnabled = false
	assert.False(t, notify.ShouldSendDailySummary(cfg, day(8, 0)))

	assert.False(t, notify.ShouldSendDailySummary(nil, day(8, 0)))
	assert.False(t, notify.ShouldSendDailySummary(&domain.NotificationConfig{
		DailySummaryEnabled: true,
		DailySummaryTime:    "not-a-time",
	}, day(8, 0)))
}

func TestShouldSendWeeklyReportDayMatch(t *testing.T) {
	t.Parallel()

	cfg := &domain.NotificationConfig{
		WeeklyReportEnabled: true,
		WeeklyReportDay:     time.Monday,
		DailySummaryTime:    "09:00",
	}

	monday := time.Date(2026, 3, 9, 9, 5, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())
	tuesday := monday.AddDate(0, 0, 1)

	assert.True(t, notify.ShouldSendWeeklyReport(cfg, monday))
	assert.False(t, notify.ShouldSendWeeklyReport(cfg, tuesday))

	cfg.WeeklyReportEnabled = false
	assert.False(t, notify.ShouldSendWeeklyReport(cfg, monday))
}

func TestSendCriticalAlert(t *testing.T) {
	t.Parallel()

	m := &mockMessenger{}
	d, _, _ := newTestDispatcher(t, m)

	ok := d.SendCriticalAlert(context.Background(), "Stock depleted", "Husked coconuts at zero.", []notify.AlertItem{
		{Label: "Item", Value: "Husked coconuts"},
	})
	assert.True(t, ok)
	require.Len(t, m.alerts, 1)
	assert.Equal(t, "Stock depleted", m.alerts[0])
}

func TestSendCriticalAlertTransportFailureReturnsFalse(t *testing.T) {
	t.Parallel()

	m := &mockMessenger{sendErr: errors.New("slack: channel_not_found")}
	d, _, _ := newTestDispatcher(t, m)

	ok := d.SendCriticalAlert(context.Background(), "Stock depleted", "", nil)
	assert.False(t, ok)
}

func TestSendCriticalAlertDisabled(t *testing.T) {
	t.Parallel()

	m := &mockMessenger{}
	d, config, _ := newTestDispatcher(t, m)

	cfg, err := config.Get(context.Background())
	require.NoError(t, err)
	cfg.CriticalAlertsEnabled = false
	require.NoError(t, config.Save(context.Background(), cfg))

	ok := d.SendCriticalAlert(context.Background(), "Stock depleted", "", nil)
	assert.False(t, ok)
	assert.Empty(t, m.alerts)
}

func TestSaveConfigMergesPartial(t *testing.T) {
	t.Parallel()

	d, _, _ := newTestDispatcher(t, nil)
	ctx := context.Background()

	newTime := "17:30"
	got, err := d.SaveConfig(ctx, notify.ConfigPatch{DailySummaryTime: &newTime})
	require.NoError(t, err)

	assert.Equal(t, "17:30", got.DailySummaryTime)
	// Untouched fields keep their defaults.
	assert.True(t, got.CriticalAlertsEnabled)
	assert.True(t, got.DailySummaryEnabled)

	reread, err := d.GetConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "17:30", reread.DailySummaryTime)
}

func TestSaveConfigRejectsBadTime(t *testing.T) {
	t.Parallel()

	d, _, _ := newTestDispatcher(t, nil)

	bad := "25:99"
	_, err := d.SaveConfig(context.Background(), notify.ConfigPatch{DailySummaryTime: &bad})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTickSendsDailySummaryOncePerDay(t *testing.T) {
	t.Parallel()

	m := &mockMessenger{}
	d, _, state := newTestDispatcher(t, m)
	state.SetStock(nil, 12)

	at := time.Date(2026, 3, 10, 8, 1, 0, 0, time.UTC)
	d.Tick(context.Background(), at)
	d.Tick(context.Background(), at.Add(5*time.Minute))

	require.Len(t, m.alerts, 1)
	assert.Equal(t, "Daily summary", m.alerts[0])

	// Next day fires again.
	d.Tick(context.Background(), at.AddDate(0, 0, 1))
	assert.Len(t, m.alerts, 2)
}

func TestTickOutsideWindowSendsNothing(t *testing.T) {
	t.Parallel()

	m := &mockMessenger{}
	d, _, _ := newTestDispatcher(t, m)

	d.Tick(context.Background(), time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC))
	assert.Empty(t, m.alerts)
}
