package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	slacklib "github.com/slack-go/slack"

	"github.com/cocoflow/insight-engine/internal/action"
	v1 "github.com/cocoflow/insight-engine/internal/api/v1"
	"github.com/cocoflow/insight-engine/internal/assistant"
	"github.com/cocoflow/insight-engine/internal/auth"
	"github.com/cocoflow/insight-engine/internal/config"
	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/event"
	"github.com/cocoflow/insight-engine/internal/gate"
	"github.com/cocoflow/insight-engine/internal/insight"
	"github.com/cocoflow/insight-engine/internal/metrics"
	"github.com/cocoflow/insight-engine/internal/notify"
	slackmsg "github.com/cocoflow/insight-engine/internal/notify/slack"
	"github.com/cocoflow/insight-engine/internal/scheduler"
	"github.com/cocoflow/insight-engine/internal/server"
	"github.com/cocoflow/insight-engine/internal/store/memory"
	"github.com/cocoflow/insight-engine/internal/store/postgres"
	redisstore "github.com/cocoflow/insight-engine/internal/store/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
}

// repos groups the repository set behind the services, regardless of whether
// it is backed by postgres or by the in-memory dev-mode store.
type repos struct {
	events   domain.EventRepository
	insights domain.InsightRepository
	actions  domain.ActionRepository
	flags    domain.FeatureFlagRepository
	audit    domain.AuditRepository
	notify   domain.NotificationConfigRepository
	users    domain.UserRepository
	state    domain.StateReader
}

func run() error {
	// Initialize structured logging from environment.
	logLevel := os.Getenv("INSIGHT_LOG_LEVEL")
	level, parseErr := zerolog.ParseLevel(logLevel)
	if parseErr != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	logFormat := os.Getenv("INSIGHT_LOG_FORMAT")
	if logFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	ctx := context.Background()

	// Load configuration from environment.
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		r      repos
		pubsub *redisstore.PubSub
	)

	if cfg.DevMode {
		log.Warn().Msg("dev mode: in-memory stores, no live feed")
		r = repos{
			events:   memory.NewEventRepo(),
			insights: memory.NewInsightRepo(),
			actions:  memory.NewActionRepo(),
			flags:    memory.NewFlagRepo(),
			audit:    memory.NewAuditRepo(),
			notify:   memory.NewNotificationConfigRepo(),
			users:    memory.NewUserRepo(),
			state:    memory.NewStateRepo(),
		}
	} else {
		if cfg.Database.MaxConns < 0 || cfg.Database.MaxConns > math.MaxInt32 {
			return fmt.Errorf("database max_conns %d out of int32 range", cfg.Database.MaxConns)
		}

		// Connect to PostgreSQL.
		store, pgErr := postgres.New(ctx, cfg.Database.DSN(), int32(cfg.Database.MaxConns)) //nolint:gosec // bounds checked above
		if pgErr != nil {
			return pgErr
		}
		defer store.Close()

		r = repos{
			events:   store.Events(),
			insights: store.Insights(),
			actions:  store.Actions(),
			flags:    store.Flags(),
			audit:    store.Audit(),
			notify:   store.NotifyConfig(),
			users:    store.Users(),
			state:    store.State(),
		}

		// Connect to Redis for the live event feed.
		pubsub, err = redisstore.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()
	}

	collector := metrics.NewCollector()

	// Security gate: feature flags, rate limiter, audit log.
	flags, err := gate.NewFlagService(ctx, r.flags, log.Logger)
	if err != nil {
		return err
	}
	if cfg.DevMode {
		flags.SetGlobal(ctx, gate.FlagAIActions, true)
		flags.SetGlobal(ctx, gate.FlagAIAssistant, true)
	}
	limiter := gate.NewRateLimiter(ctx, cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	auditor := gate.NewAuditor(r.audit, collector, log.Logger)
	g := &gate.Gate{Flags: flags, Limiter: limiter, Auditor: auditor}

	report := g.RunSecurityChecklist(ctx)
	if !report.Passed {
		for _, item := range report.Items {
			if !item.Passed {
				log.Error().Str("check", item.Name).Str("detail", item.Detail).Msg("security checklist item failed")
			}
		}
		return fmt.Errorf("security checklist failed")
	}
	log.Info().Int("checks", len(report.Items)).Msg("security checklist passed")

	authSvc := auth.NewService(r.users, cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	var publisher event.Publisher
	if pubsub != nil {
		publisher = pubsub
	}
	events := event.NewStore(r.events, publisher, log.Logger)

	engine := insight.NewEngine(r.state, r.insights, collector, cfg.Engine.BatchExpiryWindow, log.Logger)

	// Action executions land back in the event log until the ERP write
	// paths register their own handlers.
	// TODO: replace with real module handlers once the ERP exposes its
	// mutation endpoints over the internal API.
	registry := action.NewRegistry()
	for _, module := range []string{"stock", "finance", "production", "quality", "purchasing"} {
		registry.RegisterModule(module, executionRecorder(events, module))
	}
	workflow := action.NewWorkflow(r.actions, registry, auditor, collector, log.Logger)

	builder := assistant.NewBuilder(r.events, r.insights, r.state, log.Logger)

	// Notifications: slack when a bot token is configured, log-only otherwise.
	msgRegistry := notify.NewRegistry()
	if cfg.Slack.BotToken != "" {
		msgRegistry.Register(slackmsg.NewMessenger(slacklib.New(cfg.Slack.BotToken)))
	} else {
		log.Warn().Msg("no slack bot token; notifications will be logged only")
	}
	dispatcher := notify.NewDispatcher(r.notify, msgRegistry, r.insights, r.events, r.state, collector, cfg.Slack.AlertChannel, log.Logger)

	// Graceful shutdown on SIGINT / SIGTERM.
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Periodic insight checks and the notification schedule.
	sched := scheduler.New(engine, cfg.Engine.CheckInterval, cfg.Engine.CheckTimeout, log.Logger)
	go sched.Run(ctx)
	go dispatcher.StartSchedule(ctx, cfg.Engine.NotifyTickInterval)

	srv := server.New(ctx, cfg, server.Deps{
		Auth:      authSvc,
		Engine:    engine,
		Workflow:  workflow,
		Events:    events,
		Builder:   builder,
		Notifier:  dispatcher,
		Guard:     &v1.Guard{Flags: flags, Limiter: limiter, Auditor: auditor},
		Gate:      g,
		AuditLog:  r.audit,
		Collector: collector,
		PubSub:    pubsub,
	})

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if startErr := srv.Start(ctx); startErr != nil {
			log.Error().Err(startErr).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	log.Info().Msg("stopped")
	return nil
}

// executionRecorder emits an event for every mutation routed to a module,
// keeping executed actions visible on the live feed and in the event log.
func executionRecorder(events *event.Store, module string) action.ModuleFunc {
	return func(ctx context.Context, mutation string, payload map[string]any) error {
		id, ok := entityIDFrom(payload)
		if !ok {
			return fmt.Errorf("%s.%s: payload missing entity_id", module, mutation)
		}
		e := &domain.Event{
			EventType:  "action_executed",
			EntityType: module,
			EntityID:   id,
			Payload:    map[string]any{"mutation": mutation, "payload": payload},
		}
		if _, err := events.Emit(ctx, e); err != nil {
			return fmt.Errorf("recording %s.%s: %w", module, mutation, err)
		}
		return nil
	}
}

// entityIDFrom tolerates the two encodings a payload arrives in: int64 from
// Go callers, float64 after a JSON round trip.
func entityIDFrom(payload map[string]any) (int64, bool) {
	switch v := payload["entity_id"].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
