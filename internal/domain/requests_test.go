package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func validRequest() ReconciliationRequest {
	return ReconciliationRequest{
		ID:      "recon_1",
		Payment: Payment{Amount: 10000},
		Invoices: []Invoice{
			{ID: "A", Amount: 3000},
			{ID: "B", Amount: 7000},
			{ID: "CN", Amount: -1000},
		},
		Options: DefaultOptions(),
	}
}

func TestReconciliationRequest_Validate(t *testing.T) {
	negative := Amount(-1)

	tests := []struct {
		name    string
		mutate  func(*ReconciliationRequest)
		wantErr error
	}{
		{name: "valid", mutate: func(*ReconciliationRequest) {}},
		{name: "zero payment", mutate: func(r *ReconciliationRequest) { r.Payment.Amount = 0 }, wantErr: ErrInvalidInput},
		{name: "no invoices", mutate: func(r *ReconciliationRequest) { r.Invoices = []Invoice{} }, wantErr: ErrInvalidInput},
		{name: "invoice without id", mutate: func(r *ReconciliationRequest) { r.Invoices[1].ID = "" }, wantErr: ErrInvalidInput},
		{name: "zero invoice", mutate: func(r *ReconciliationRequest) { r.Invoices[0].Amount = 0 }, wantErr: ErrInvalidInput},
		{name: "zero threshold", mutate: func(r *ReconciliationRequest) { r.Options.BacktrackingThreshold = 0 }, wantErr: ErrInvalidInput},
		{name: "negative swaps", mutate: func(r *ReconciliationRequest) { r.Options.SwapIterations = -1 }, wantErr: ErrInvalidInput},
		{name: "unknown tie-break", mutate: func(r *ReconciliationRequest) { r.Options.TieBreak = "loudest" }, wantErr: ErrInvalidInput},
		{
			name:    "no search budget",
			mutate:  func(r *ReconciliationRequest) { r.Options.Budget = SearchBudget{} },
			wantErr: ErrInvalidInput,
		},
		{
			name:    "negative timeout",
			mutate:  func(r *ReconciliationRequest) { r.Options.Budget.Timeout = -time.Second },
			wantErr: ErrInvalidInput,
		},
		{
			name:    "negative tolerance",
			mutate:  func(r *ReconciliationRequest) { r.Options.IngestionTolerance = decimal.New(-1, -2) },
			wantErr: ErrInvalidInput,
		},
		{
			name:    "negative residual bound",
			mutate:  func(r *ReconciliationRequest) { r.Options.MaxResidual = &negative },
			wantErr: ErrInvalidInput,
		},
		{
			name: "magnitude overflow",
			mutate: func(r *ReconciliationRequest) {
				r.Invoices[0].Amount = 1 << 62
				r.Invoices[2].Amount = -(1 << 62)
			},
			wantErr: ErrPrecision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDedupe(t *testing.T) {
	set, dropped := Dedupe([]Invoice{
		{ID: "A", Amount: 100},
		{ID: "B", Amount: 200},
		{ID: "A", Amount: 300},
	})

	assert.Equal(t, 1, dropped)
	assert.Equal(t, []string{"A", "B"}, set.IDs())
	assert.Equal(t, Amount(300), set.Total())
}

func TestNewSolution(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }

	s := NewSolution(MethodExactMatch, 10000, []Invoice{
		{ID: "B", Amount: 3000, Date: day(2)},
		{ID: "C", Amount: 7000, Date: day(3)},
		{ID: "A", Amount: 3000, Date: day(1)},
	})

	assert.Equal(t, []string{"A", "B", "C"}, s.InvoiceIDs)
	assert.Equal(t, "C", s.Invoices[0].ID)
	assert.Equal(t, "A", s.Invoices[1].ID)
	assert.Equal(t, Amount(13000), s.Total)
	assert.Equal(t, Amount(-3000), s.Residual)
	assert.Equal(t, 3, s.Size)
	assert.Equal(t, day(1).Unix()+day(2).Unix()+day(3).Unix(), s.DateSum())
}
