package insight

import (
	"context"
	"fmt"
	"time"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// Insight type names double as fingerprint components; renaming one orphans
// its active insights.
const (
	TypeCriticalStock          = "critical_stock"
	TypeOverdueProducerPayment = "overdue_producer_payment"
	TypeExpiringBatch          = "expiring_batch"
	TypeOverduePayable         = "overdue_payable"
	TypeOpenNonConformity      = "open_non_conformity"
	TypePendingPurchaseRequest = "pending_purchase_request"
)

// checkCriticalStock flags stock items at or below their minimum level.
// Severity: critical when below a quarter of the minimum (or empty), warning
// otherwise.
func (e *Engine) checkCriticalStock(ctx context.Context) domain.CheckResult {
	items, err := e.state.LowStockItems(ctx)
	if err != nil {
		return e.readFailed(TypeCriticalStock, err)
	}

	candidates := make([]*domain.Insight, 0, len(items))
	for _, item := range items {
		if item.MinQuantity <= 0 {
			// Malformed threshold; count and move on.
			e.log.Warn().Int64("stock_item", item.ID).Msg("stock item without minimum level")
			continue
		}

		severity := domain.SeverityWarning
		if item.Quantity <= 0 || item.Quantity < item.MinQuantity/4 {
			severity = domain.SeverityCritical
		}

		candidates = append(candidates, &domain.Insight{
			InsightType: TypeCriticalStock,
			Severity:    severity,
			Title:       fmt.Sprintf("Stock critical: %s", item.Name),
			Summary:     fmt.Sprintf("%s is at %.1f %s, below the minimum of %.1f", item.Name, item.Quantity, item.Unit, item.MinQuantity),
			Details:     fmt.Sprintf("quantity=%.2f min=%.2f unit=%s", item.Quantity, item.MinQuantity, item.Unit),
			Module:      "inventory",
			EntityType:  "stock_item",
			EntityID:    item.ID,
		})
	}

	return e.apply(ctx, TypeCriticalStock, candidates)
}

// checkOverdueProducerPayments flags producer payments past their due date.
// Severity buckets by days overdue: <=3 info, <=10 warning, beyond critical.
func (e *Engine) checkOverdueProducerPayments(ctx context.Context) domain.CheckResult {
	now := time.Now()
	payments, err := e.state.OverdueProducerPayments(ctx, now)
	if err != nil {
		return e.readFailed(TypeOverdueProducerPayment, err)
	}

	candidates := make([]*domain.Insight, 0, len(payments))
	for _, p := range payments {
		days := int(now.Sub(p.DueDate).Hours() / 24)

		candidates = append(candidates, &domain.Insight{
			InsightType: TypeOverdueProducerPayment,
			Severity:    severityByDaysOverdue(days),
			Title:       fmt.Sprintf("Producer payment overdue: %s", p.ProducerName),
			Summary:     fmt.Sprintf("Payment of %.2f to %s is %d day(s) overdue", p.Amount, p.ProducerName, days),
			Details:     fmt.Sprintf("amount=%.2f days_overdue=%d producer_id=%d", p.Amount, days, p.ProducerID),
			Module:      "payments",
			EntityType:  "producer_payment",
			EntityID:    p.ID,
		})
	}

	return e.apply(ctx, TypeOverdueProducerPayment, candidates)
}

// checkExpiringBatches flags batches expiring within the configured window.
// Severity: critical inside 3 days, warning inside 7, info beyond.
func (e *Engine) checkExpiringBatches(ctx context.Context) domain.CheckResult {
	now := time.Now()
	batches, err := e.state.ExpiringBatches(ctx, e.batchExpiryWindow, now)
	if err != nil {
		return e.readFailed(TypeExpiringBatch, err)
	}

	candidates := make([]*domain.Insight, 0, len(batches))
	for _, b := range batches {
		daysLeft := int(b.ExpiresAt.Sub(now).Hours() / 24)

		severity := domain.SeverityInfo
		switch {
		case daysLeft <= 3:
			severity = domain.SeverityCritical
		case daysLeft <= 7:
			severity = domain.SeverityWarning
		}

		// Expired-batch insights stop being relevant once the batch is
		// disposed of; let them lapse with the batch expiry itself.
		expires := b.ExpiresAt.Add(30 * 24 * time.Hour)

		candidates = append(candidates, &domain.Insight{
			InsightType: TypeExpiringBatch,
			Severity:    severity,
			Title:       fmt.Sprintf("Batch expiring: %s", b.Code),
			Summary:     fmt.Sprintf("Batch %s (%s, %.1f units) expires in %d day(s)", b.Code, b.Product, b.Quantity, daysLeft),
			Details:     fmt.Sprintf("product=%s quantity=%.2f days_left=%d", b.Product, b.Quantity, daysLeft),
			Module:      "production",
			EntityType:  "production_batch",
			EntityID:    b.ID,
			ExpiresAt:   &expires,
		})
	}

	return e.apply(ctx, TypeExpiringBatch, candidates)
}

// checkOverduePayables flags supplier payables past due, bucketed like
// producer payments.
func (e *Engine) checkOverduePayables(ctx context.Context) domain.CheckResult {
	now := time.Now()
	payables, err := e.state.OverduePayables(ctx, now)
	if err != nil {
		return e.readFailed(TypeOverduePayable, err)
	}

	candidates := make([]*domain.Insight, 0, len(payables))
	for _, p := range payables {
		days := int(now.Sub(p.DueDate).Hours() / 24)

		candidates = append(candidates, &domain.Insight{
			InsightType: TypeOverduePayable,
			Severity:    severityByDaysOverdue(days),
			Title:       fmt.Sprintf("Payable overdue: %s", p.Supplier),
			Summary:     fmt.Sprintf("Payable of %.2f to %s is %d day(s) overdue", p.Amount, p.Supplier, days),
			Details:     fmt.Sprintf("amount=%.2f days_overdue=%d", p.Amount, days),
			Module:      "finance",
			EntityType:  "payable",
			EntityID:    p.ID,
		})
	}

	return e.apply(ctx, TypeOverduePayable, candidates)
}

// checkOpenNonConformities flags unresolved quality non-conformities.
// Severity: warning initially, critical once open for more than 7 days.
func (e *Engine) checkOpenNonConformities(ctx context.Context) domain.CheckResult {
	ncs, err := e.state.OpenNonConformities(ctx)
	if err != nil {
		return e.readFailed(TypeOpenNonConformity, err)
	}

	now := time.Now()
	candidates := make([]*domain.Insight, 0, len(ncs))
	for _, nc := range ncs {
		daysOpen := int(now.Sub(nc.OpenedAt).Hours() / 24)

		severity := domain.SeverityWarning
		if daysOpen > 7 {
			severity = domain.SeverityCritical
		}

		candidates = append(candidates, &domain.Insight{
			InsightType: TypeOpenNonConformity,
			Severity:    severity,
			Title:       fmt.Sprintf("Open non-conformity on batch %d", nc.BatchID),
			Summary:     fmt.Sprintf("Non-conformity open for %d day(s): %s", daysOpen, nc.Description),
			Details:     fmt.Sprintf("batch_id=%d days_open=%d", nc.BatchID, daysOpen),
			Module:      "quality",
			EntityType:  "non_conformity",
			EntityID:    nc.ID,
		})
	}

	return e.apply(ctx, TypeOpenNonConformity, candidates)
}

// checkPendingPurchaseRequests flags purchase requests waiting on a decision.
// Informational until they sit for more than 5 days.
func (e *Engine) checkPendingPurchaseRequests(ctx context.Context) domain.CheckResult {
	reqs, err := e.state.PendingPurchaseRequests(ctx)
	if err != nil {
		return e.readFailed(TypePendingPurchaseRequest, err)
	}

	now := time.Now()
	candidates := make([]*domain.Insight, 0, len(reqs))
	for _, req := range reqs {
		daysPending := int(now.Sub(req.CreatedAt).Hours() / 24)

		severity := domain.SeverityInfo
		if daysPending > 5 {
			severity = domain.SeverityWarning
		}

		candidates = append(candidates, &domain.Insight{
			InsightType: TypePendingPurchaseRequest,
			Severity:    severity,
			Title:       fmt.Sprintf("Purchase request pending: %s", req.Item),
			Summary:     fmt.Sprintf("Request for %s by %s pending for %d day(s)", req.Item, req.Requester, daysPending),
			Details:     fmt.Sprintf("requester=%s days_pending=%d", req.Requester, daysPending),
			Module:      "purchasing",
			EntityType:  "purchase_request",
			EntityID:    req.ID,
		})
	}

	return e.apply(ctx, TypePendingPurchaseRequest, candidates)
}

// severityByDaysOverdue buckets payment lateness: <=3 info, <=10 warning,
// beyond critical.
func severityByDaysOverdue(days int) domain.InsightSeverity {
	switch {
	case days <= 3:
		return domain.SeverityInfo
	case days <= 10:
		return domain.SeverityWarning
	default:
		return domain.SeverityCritical
	}
}
