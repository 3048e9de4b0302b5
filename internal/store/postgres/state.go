package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocoflow/insight-engine/internal/domain"
)

// StateRepo reads the surrounding ERP's business tables. Everything here is
// read-only; the engine never writes business data directly.
type StateRepo struct {
	pool *pgxpool.Pool
}

func NewStateRepo(pool *pgxpool.Pool) *StateRepo {
	return &StateRepo{pool: pool}
}

func (r *StateRepo) LowStockItems(ctx context.Context) ([]*domain.StockItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, unit, quantity, min_quantity
		 FROM stock_items
		 WHERE min_quantity > 0 AND quantity < min_quantity
		 ORDER BY quantity / min_quantity`,
	)
	if err != nil {
		return nil, fmt.Errorf("stateRepo.LowStockItems: %w", err)
	}
	defer rows.Close()

	var items []*domain.StockItem
	for rows.Next() {
		var it domain.StockItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Unit, &it.Quantity, &it.MinQuantity); err != nil {
			return nil, fmt.Errorf("stateRepo.LowStockItems: %w", err)
		}
		items = append(items, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stateRepo.LowStockItems: %w", err)
	}

	return items, nil
}

func (r *StateRepo) OverdueProducerPayments(ctx context.Context, asOf time.Time) ([]*domain.ProducerPayment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT p.id, p.producer_id, pr.name, p.amount, p.due_date
		 FROM producer_payments p
		 JOIN producers pr ON pr.id = p.producer_id
		 WHERE p.paid_at IS NULL AND p.due_date < $1
		 ORDER BY p.due_date`,
		asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("stateRepo.OverdueProducerPayments: %w", err)
	}
	defer rows.Close()

	var payments []*domain.ProducerPayment
	for rows.Next() {
		var p domain.ProducerPayment
		if err := rows.Scan(&p.ID, &p.ProducerID, &p.ProducerName, &p.Amount, &p.DueDate); err != nil {
			return nil, fmt.Errorf("stateRepo.OverdueProducerPayments: %w", err)
		}
		payments = append(payments, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stateRepo.OverdueProducerPayments: %w", err)
	}

	return payments, nil
}

func (r *StateRepo) ExpiringBatches(ctx context.Context, within time.Duration, asOf time.Time) ([]*domain.ProductionBatch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, product, quantity, expires_at
		 FROM production_batches
		 WHERE status = 'active' AND expires_at <= $1
		 ORDER BY expires_at`,
		asOf.Add(within),
	)
	if err != nil {
		return nil, fmt.Errorf("stateRepo.ExpiringBatches: %w", err)
	}
	defer rows.Close()

	var batches []*domain.ProductionBatch
	for rows.Next() {
		var b domain.ProductionBatch
		if err := rows.Scan(&b.ID, &b.Code, &b.Product, &b.Quantity, &b.ExpiresAt); err != nil {
			return nil, fmt.Errorf("stateRepo.ExpiringBatches: %w", err)
		}
		batches = append(batches, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stateRepo.ExpiringBatches: %w", err)
	}

	return batches, nil
}

func (r *StateRepo) OverduePayables(ctx context.Context, asOf time.Time) ([]*domain.Payable, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, supplier, amount, due_date
		 FROM payables
		 WHERE paid_at IS NULL AND due_date < $1
		 ORDER BY due_date`,
		asOf,
	)
	if err != nil {
		return nil, fmt.Errorf("stateRepo.OverduePayables: %w", err)
	}
	defer rows.Close()

	var payables []*domain.Payable
	for rows.Next() {
		var p domain.Payable
		if err := rows.Scan(&p.ID, &p.Supplier, &p.Amount, &p.DueDate); err != nil {
			return nil, fmt.Errorf("stateRepo.OverduePayables: %w", err)
		}
		payables = append(payables, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stateRepo.OverduePayables: %w", err)
	}

	return payables, nil
}

func (r *StateRepo) OpenNonConformities(ctx context.Context) ([]*domain.NonConformity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, batch_id, description, opened_at
		 FROM non_conformities
		 WHERE resolved_at IS NULL
		 ORDER BY opened_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("stateRepo.OpenNonConformities: %w", err)
	}
	defer rows.Close()

	var ncs []*domain.NonConformity
	for rows.Next() {
		var nc domain.NonConformity
		if err := rows.Scan(&nc.ID, &nc.BatchID, &nc.Description, &nc.OpenedAt); err != nil {
			return nil, fmt.Errorf("stateRepo.OpenNonConformities: %w", err)
		}
		ncs = append(ncs, &nc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stateRepo.OpenNonConformities: %w", err)
	}

	return ncs, nil
}

func (r *StateRepo) PendingPurchaseRequests(ctx context.Context) ([]*domain.PurchaseRequest, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, requester, item, created_at
		 FROM purchase_requests
		 WHERE status = 'pending'
		 ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("stateRepo.PendingPurchaseRequests: %w", err)
	}
	defer rows.Close()

	var reqs []*domain.PurchaseRequest
	for rows.Next() {
		var pr domain.PurchaseRequest
		if err := rows.Scan(&pr.ID, &pr.Requester, &pr.Item, &pr.CreatedAt); err != nil {
			return nil, fmt.Errorf("stateRepo.PendingPurchaseRequests: %w", err)
		}
		reqs = append(reqs, &pr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("stateRepo.PendingPurchaseRequests: %w", err)
	}

	return reqs, nil
}

func (r *StateRepo) Summary(ctx context.Context) (*domain.SystemSummary, error) {
	var s domain.SystemSummary

	err := r.pool.QueryRow(ctx,
		`SELECT
		   (SELECT count(*) FROM stock_items),
		   (SELECT count(*) FROM stock_items WHERE min_quantity > 0 AND quantity < min_quantity),
		   (SELECT count(*) FROM producer_payments WHERE paid_at IS NULL),
		   (SELECT count(*) FROM payables WHERE paid_at IS NULL),
		   (SELECT count(*) FROM production_batches WHERE status = 'active'),
		   (SELECT count(*) FROM non_conformities WHERE resolved_at IS NULL),
		   (SELECT count(*) FROM purchase_requests WHERE status = 'pending')`,
	).Scan(
		&s.StockItems, &s.LowStockItems, &s.OpenProducerPayments, &s.OpenPayables,
		&s.ActiveBatches, &s.OpenNonConformities, &s.PendingPurchases,
	)
	if err != nil {
		return nil, fmt.Errorf("stateRepo.Summary: %w", err)
	}

	return &s, nil
}
