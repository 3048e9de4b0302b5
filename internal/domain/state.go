package domain

import (
	"context"
	"time"
)

// Read-side ERP state consumed by the monitoring rules. The rules never write
// through this interface; business mutations happen in the surrounding ERP and
// arrive here as events.

type StockItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Unit        string  `json:"unit"`
	Quantity    float64 `json:"quantity"`
	MinQuantity float64 `json:"min_quantity"`
}

type ProducerPayment struct {
	ID           int64     `json:"id"`
	ProducerID   int64     `json:"producer_id"`
	ProducerName string    `json:"producer_name"`
	Amount       float64   `json:"amount"`
	DueDate      time.Time `json:"due_date"`
}

type ProductionBatch struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code"`
	Product   string    `json:"product"`
	Quantity  float64   `json:"quantity"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Payable struct {
	ID       int64     `json:"id"`
	Supplier string    `json:"supplier"`
	Amount   float64   `json:"amount"`
	DueDate  time.Time `json:"due_date"`
}

type NonConformity struct {
	ID          int64     `json:"id"`
	BatchID     int64     `json:"batch_id"`
	Description string    `json:"description"`
	OpenedAt    time.Time `json:"opened_at"`
}

type PurchaseRequest struct {
	ID        int64     `json:"id"`
	Requester string    `json:"requester"`
	Item      string    `json:"item"`
	CreatedAt time.Time `json:"created_at"`
}

// SystemSummary is a coarse aggregate of the business state, small enough to
// embed in assistant context payloads.
type SystemSummary struct {
	StockItems           int64 `json:"stock_items"`
	LowStockItems        int64 `json:"low_stock_items"`
	OpenProducerPayments int64 `json:"open_producer_payments"`
	OpenPayables         int64 `json:"open_payables"`
	ActiveBatches        int64 `json:"active_batches"`
	OpenNonConformities  int64 `json:"open_non_conformities"`
	PendingPurchases     int64 `json:"pending_purchases"`
}

type StateReader interface {
	LowStockItems(ctx context.Context) ([]*StockItem, error)
	OverdueProducerPayments(ctx context.Context, asOf time.Time) ([]*ProducerPayment, error)
	ExpiringBatches(ctx context.Context, within time.Duration, asOf time.Time) ([]*ProductionBatch, error)
	OverduePayables(ctx context.Context, asOf time.Time) ([]*Payable, error)
	OpenNonConformities(ctx context.Context) ([]*NonConformity, error)
	PendingPurchaseRequests(ctx context.Context) ([]*PurchaseRequest, error)
	Summary(ctx context.Context) (*SystemSummary, error)
}
