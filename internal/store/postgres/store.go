// Package postgres implements the domain repositories over pgx. All writes go
// through plain SQL; state transitions use conditional UPDATEs so concurrent
// transitions cannot both apply.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocoflow/insight-engine/internal/domain"
)

type Store struct {
	pool      *pgxpool.Pool
	events    *EventRepo
	insights  *InsightRepo
	actions   *ActionRepo
	flags     *FlagRepo
	audit     *AuditRepo
	notifyCfg *NotificationConfigRepo
	users     *UserRepo
	state     *StateRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:      pool,
		events:    NewEventRepo(pool),
		insights:  NewInsightRepo(pool),
		actions:   NewActionRepo(pool),
		flags:     NewFlagRepo(pool),
		audit:     NewAuditRepo(pool),
		notifyCfg: NewNotificationConfigRepo(pool),
		users:     NewUserRepo(pool),
		state:     NewStateRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Events() domain.EventRepository                    { return s.events }
func (s *Store) Insights() domain.InsightRepository                { return s.insights }
func (s *Store) Actions() domain.ActionRepository                  { return s.actions }
func (s *Store) Flags() domain.FeatureFlagRepository               { return s.flags }
func (s *Store) Audit() domain.AuditRepository                     { return s.audit }
func (s *Store) NotifyConfig() domain.NotificationConfigRepository { return s.notifyCfg }
func (s *Store) Users() domain.UserRepository                      { return s.users }
func (s *Store) State() domain.StateReader                         { return s.state }
