package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"invoice-reconciliation/internal/domain"
)

// ReconciliationUseCase orchestrates the reconciliation process: loading
// invoices, running the engine and assembling the report.
type ReconciliationUseCase struct {
	invoices InvoiceRepository
	batches  BatchRepository
	engine   Reconciler
	opts     domain.Options
	logger   logrus.FieldLogger
	newID    func() string
	now      func() time.Time
}

// Option customises a ReconciliationUseCase.
type Option func(*ReconciliationUseCase)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(uc *ReconciliationUseCase) {
		uc.logger = logger
	}
}

// WithIDGenerator replaces the request id generator.
func WithIDGenerator(newID func() string) Option {
	return func(uc *ReconciliationUseCase) {
		uc.newID = newID
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *ReconciliationUseCase) {
		uc.now = now
	}
}

// NewReconciliationUseCase creates a new instance of the usecase. opts are
// the defaults every request starts from.
func NewReconciliationUseCase(invoices InvoiceRepository, batches BatchRepository, engine Reconciler, opts domain.Options, options ...Option) *ReconciliationUseCase {
	uc := &ReconciliationUseCase{
		invoices: invoices,
		batches:  batches,
		engine:   engine,
		opts:     opts,
		logger:   logrus.StandardLogger(),
		newID:    newRequestID,
		now:      time.Now,
	}
	for _, opt := range options {
		opt(uc)
	}
	return uc
}

func newRequestID() string {
	return "recon_" + uuid.NewString()
}

// Overrides adjusts the default options for a single reconciliation. Zero
// values keep the defaults.
type Overrides struct {
	BacktrackingThreshold int
	Tolerance             *decimal.Decimal
}

func (uc *ReconciliationUseCase) optionsFor(o Overrides) domain.Options {
	opts := uc.opts
	if o.BacktrackingThreshold > 0 {
		opts.BacktrackingThreshold = o.BacktrackingThreshold
	}
	if o.Tolerance != nil {
		opts.IngestionTolerance = *o.Tolerance
	}
	return opts
}

// ReconcileFile reconciles one payment against the invoices stored at
// invoicePath.
func (uc *ReconciliationUseCase) ReconcileFile(ctx context.Context, payment domain.Payment, invoicePath string, overrides Overrides) (*domain.ReconciliationReport, error) {
	report, err := uc.reconcile(ctx, payment, invoicePath, overrides)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// reconcile always returns a report carrying the task metadata, so that a
// failed batch task can still be reported.
func (uc *ReconciliationUseCase) reconcile(ctx context.Context, payment domain.Payment, invoicePath string, overrides Overrides) (*domain.ReconciliationReport, error) {
	opts := uc.optionsFor(overrides)
	report := &domain.ReconciliationReport{
		Metadata: domain.ReportMetadata{
			RequestID:             uc.newID(),
			InvoiceFile:           invoicePath,
			TargetAmount:          payment.Amount,
			BacktrackingThreshold: opts.BacktrackingThreshold,
			Tolerance:             opts.IngestionTolerance.String(),
			ExecutedAt:            uc.now(),
		},
	}
	log := uc.logger.WithFields(logrus.Fields{
		"request_id":   report.Metadata.RequestID,
		"invoice_file": invoicePath,
	})

	invoices, err := uc.invoices.GetInvoices(ctx, invoicePath, opts.IngestionTolerance)
	if err != nil {
		return report, fmt.Errorf("could not get invoices: %w", err)
	}
	log.WithField("invoices", len(invoices)).Debug("invoices loaded")

	result, err := uc.engine.Reconcile(ctx, domain.ReconciliationRequest{
		ID:       report.Metadata.RequestID,
		Payment:  payment,
		Invoices: invoices,
		Options:  opts,
	})
	if err != nil {
		return report, fmt.Errorf("could not reconcile payment of %s: %w", payment.Amount, err)
	}

	report.Result = result
	return report, nil
}

// ReconcileBatch reconciles every transfer listed in the batch file. A task
// that fails is reported with its error and does not stop the batch;
// cancellation of ctx does.
func (uc *ReconciliationUseCase) ReconcileBatch(ctx context.Context, batchPath string) (*domain.BatchReport, error) {
	tasks, err := uc.batches.GetBatchTasks(ctx, batchPath, uc.opts.IngestionTolerance)
	if err != nil {
		return nil, fmt.Errorf("could not get batch tasks: %w", err)
	}

	started := uc.now()
	batch := &domain.BatchReport{
		Reports: make([]domain.ReconciliationReport, 0, len(tasks)),
	}
	for i, task := range tasks {
		log := uc.logger.WithFields(logrus.Fields{
			"task":         i + 1,
			"tasks":        len(tasks),
			"invoice_file": task.InvoiceFile,
		})

		report, err := uc.reconcile(ctx, task.Payment, task.InvoiceFile, Overrides{
			BacktrackingThreshold: task.BacktrackingThreshold,
			Tolerance:             task.Tolerance,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.WithError(err).Warn("batch task failed")
			report.Error = err.Error()
			batch.Failed++
		} else {
			log.WithField("status", report.Result.Status).Info("batch task reconciled")
			batch.Succeeded++
		}
		batch.Reports = append(batch.Reports, *report)
	}
	batch.Duration = uc.now().Sub(started)
	return batch, nil
}
