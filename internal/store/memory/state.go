package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// StateRepo is an in-memory StateReader with settable fixtures for tests and
// dev mode. Mutators replace whole slices; reads return copies.
type StateRepo struct {
	mu sync.Mutex

	stock         []*domain.StockItem
	payments      []*domain.ProducerPayment
	batches       []*domain.ProductionBatch
	payables      []*domain.Payable
	nonConforms   []*domain.NonConformity
	purchaseReqs  []*domain.PurchaseRequest
	totalStock    int64
	activeBatches int64
}

func NewStateRepo() *StateRepo { return &StateRepo{} }

func (r *StateRepo) SetStock(items []*domain.StockItem, total int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stock = items
	r.totalStock = total
}

func (r *StateRepo) SetProducerPayments(p []*domain.ProducerPayment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = p
}

func (r *StateRepo) SetBatches(b []*domain.ProductionBatch, active int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = b
	r.activeBatches = active
}

func (r *StateRepo) SetPayables(p []*domain.Payable) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payables = p
}

func (r *StateRepo) SetNonConformities(n []*domain.NonConformity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nonConforms = n
}

func (r *StateRepo) SetPurchaseRequests(p []*domain.PurchaseRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchaseReqs = p
}

func (r *StateRepo) LowStockItems(ctx context.Context) ([]*domain.StockItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySlice(r.stock), nil
}

func (r *StateRepo) OverdueProducerPayments(ctx context.Context, asOf time.Time) ([]*domain.ProducerPayment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.ProducerPayment
	for _, p := range r.payments {
		if p.DueDate.Before(asOf) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *StateRepo) ExpiringBatches(ctx context.Context, within time.Duration, asOf time.Time) ([]*domain.ProductionBatch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deadline := asOf.Add(within)
	var out []*domain.ProductionBatch
	for _, b := range r.batches {
		if b.ExpiresAt.Before(deadline) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *StateRepo) OverduePayables(ctx context.Context, asOf time.Time) ([]*domain.Payable, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*domain.Payable
	for _, p := range r.payables {
		if p.DueDate.Before(asOf) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *StateRepo) OpenNonConformities(ctx context.Context) ([]*domain.NonConformity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySlice(r.nonConforms), nil
}

func (r *StateRepo) PendingPurchaseRequests(ctx context.Context) ([]*domain.PurchaseRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copySlice(r.purchaseReqs), nil
}

func (r *StateRepo) Summary(ctx context.Context) (*domain.SystemSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return &domain.SystemSummary{
		StockItems:           r.totalStock,
		LowStockItems:        int64(len(r.stock)),
		OpenProducerPayments: int64(len(r.payments)),
		OpenPayables:         int64(len(r.payables)),
		ActiveBatches:        r.activeBatches,
		OpenNonConformities:  int64(len(r.nonConforms)),
		PendingPurchases:     int64(len(r.purchaseReqs)),
	}, nil
}

func copySlice[T any](in []*T) []*T {
	out := make([]*T, 0, len(in))
	for _, v := range in {
		cp := *v
		out = append(out, &cp)
	}
	return out
}
