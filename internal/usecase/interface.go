package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"invoice-reconciliation/internal/domain"
)

// InvoiceRepository loads the open invoices a payment is reconciled against.
// The usecase layer depends on this interface, not on a concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go
type InvoiceRepository interface {
	GetInvoices(ctx context.Context, path string, tolerance decimal.Decimal) ([]domain.Invoice, error)
}

// BatchRepository loads the list of transfers to reconcile in one run.
type BatchRepository interface {
	GetBatchTasks(ctx context.Context, path string, tolerance decimal.Decimal) ([]domain.BatchTask, error)
}

// Reconciler runs one reconciliation request.
type Reconciler interface {
	Reconcile(ctx context.Context, req domain.ReconciliationRequest) (*domain.ReconciliationResult, error)
}
