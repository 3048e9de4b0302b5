// Package insight runs monitoring rules against current business state and
// maintains the deduplicated insight records they produce.
package insight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cocoflow/insight-engine/internal/domain"
	"github.com/cocoflow/insight-engine/internal/metrics"
)

// checkFunc is one registered rule: a pure read of current state producing
// zero or more candidate insights, folded into upserts by the engine.
type checkFunc func(ctx context.Context) domain.CheckResult

type rule struct {
	name  string
	check checkFunc
}

// Engine owns the rule registry. Checks are idempotent read-then-upsert
// operations: at-least-once scheduling cannot create duplicate active
// insights because uniqueness is enforced at the fingerprint level.
type Engine struct {
	state    domain.StateReader
	insights domain.InsightRepository
	metrics  *metrics.Collector
	log      zerolog.Logger

	batchExpiryWindow time.Duration
	rules             []rule
}

func NewEngine(state domain.StateReader, insights domain.InsightRepository, collector *metrics.Collector, batchExpiryWindow time.Duration, log zerolog.Logger) *Engine {
	e := &Engine{
		state:             state,
		insights:          insights,
		metrics:           collector,
		log:               log.With().Str("component", "insight_engine").Logger(),
		batchExpiryWindow: batchExpiryWindow,
	}

	e.rules = []rule{
		{"critical_stock", e.checkCriticalStock},
		{"overdue_producer_payments", e.checkOverdueProducerPayments},
		{"expiring_batches", e.checkExpiringBatches},
		{"overdue_payables", e.checkOverduePayables},
		{"open_non_conformities", e.checkOpenNonConformities},
		{"pending_purchase_requests", e.checkPendingPurchaseRequests},
	}

	return e
}

// RunAllChecks executes every registered rule and merges their counters.
// A failing rule degrades coverage, not availability: the remaining rules
// still run.
func (e *Engine) RunAllChecks(ctx context.Context) domain.CheckResult {
	var total domain.CheckResult
	start := time.Now()

	for _, r := range e.rules {
		res := r.check(ctx)
		total.Merge(res)

		e.metrics.RecordMetric("insight_checks_run", 1, map[string]string{"rule": r.name})
		if res.Errors > 0 {
			e.log.Warn().Str("rule", r.name).Int("errors", res.Errors).Msg("rule finished with errors")
		}
	}

	e.log.Info().
		Int("created", total.Created).
		Int("skipped", total.Skipped).
		Int("errors", total.Errors).
		Dur("took", time.Since(start)).
		Msg("insight check run complete")

	return total
}

// Dismiss transitions an active insight to dismissed. Returns false when the
// insight is not currently active. Expired rows that have not been retired
// yet still accept the transition, so nothing gets stuck.
func (e *Engine) Dismiss(ctx context.Context, id uuid.UUID, byUserID int64) (bool, error) {
	ok, err := e.insights.Dismiss(ctx, id, byUserID)
	if err != nil {
		return false, fmt.Errorf("insight.Dismiss: %w", err)
	}
	return ok, nil
}

// Resolve transitions an active insight to resolved, with the same no-op
// semantics as Dismiss.
func (e *Engine) Resolve(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := e.insights.Resolve(ctx, id)
	if err != nil {
		return false, fmt.Errorf("insight.Resolve: %w", err)
	}
	return ok, nil
}

// List returns insights matching the filter, newest first.
func (e *Engine) List(ctx context.Context, filter domain.InsightFilter) ([]*domain.Insight, error) {
	out, err := e.insights.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("insight.List: %w", err)
	}
	return out, nil
}

// CountActive reports how many insights are currently active.
func (e *Engine) CountActive(ctx context.Context) (int64, error) {
	n, err := e.insights.CountActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("insight.CountActive: %w", err)
	}
	return n, nil
}

// upsert enforces the dedup invariant for one candidate finding: when an
// active insight already carries the fingerprint, the evidence is refreshed
// in place and the finding counts as skipped; otherwise a new insight is
// created. Concurrent creators race on the store's uniqueness guarantee, and
// the loser downgrades to a skip.
func (e *Engine) upsert(ctx context.Context, candidate *domain.Insight) (created bool, err error) {
	fp := candidate.Fingerprint()

	existing, err := e.insights.GetActiveByFingerprint(ctx, fp)
	if err == nil {
		if uerr := e.insights.UpdateEvidence(ctx, existing.ID, candidate.Details, candidate.EvidenceIDs); uerr != nil {
			return false, fmt.Errorf("insight.upsert: refresh evidence: %w", uerr)
		}
		return false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return false, fmt.Errorf("insight.upsert: lookup fingerprint: %w", err)
	}

	candidate.ID = uuid.New()
	candidate.Status = domain.InsightStatusActive
	candidate.GeneratedAt = time.Now()

	if cerr := e.insights.Create(ctx, candidate); cerr != nil {
		if errors.Is(cerr, domain.ErrConflict) {
			// Another run inserted the same fingerprint first.
			return false, nil
		}
		return false, fmt.Errorf("insight.upsert: create: %w", cerr)
	}

	e.metrics.RecordMetric("insights_created", 1, map[string]string{
		"type":     candidate.InsightType,
		"severity": string(candidate.Severity),
	})

	return true, nil
}

// apply folds a list of candidates into the result counters, isolating
// per-record failures.
func (e *Engine) apply(ctx context.Context, ruleName string, candidates []*domain.Insight) domain.CheckResult {
	var res domain.CheckResult

	for _, c := range candidates {
		created, err := e.upsert(ctx, c)
		switch {
		case err != nil:
			res.Errors++
			e.log.Error().Err(err).Str("rule", ruleName).Str("fingerprint", c.Fingerprint()).Msg("upsert failed")
		case created:
			res.Created++
		default:
			res.Skipped++
		}
	}

	return res
}

// readFailed records a state read failure as a single rule-level error.
func (e *Engine) readFailed(ruleName string, err error) domain.CheckResult {
	e.log.Error().Err(err).Str("rule", ruleName).Msg("state read failed")
	e.metrics.RecordError("rule_state_read", err.Error(), "")
	return domain.CheckResult{Errors: 1}
}
