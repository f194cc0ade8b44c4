package domain

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"
)

// TieBreak selects the deterministic stage applied between "fewest invoices"
// and the final lexicographic id comparison.
type TieBreak string

const (
	TieBreakFewest      TieBreak = "fewest"
	TieBreakOldestFirst TieBreak = "oldest-first"
	TieBreakNewestFirst TieBreak = "newest-first"
)

// TieBreaks lists every supported tie-break.
var TieBreaks = []TieBreak{TieBreakFewest, TieBreakOldestFirst, TieBreakNewestFirst}

// SearchBudget bounds the exact search. A zero field disables that bound.
type SearchBudget struct {
	MaxNodes int64         `json:"max_nodes"`
	Timeout  time.Duration `json:"timeout"`
}

// Options is the immutable per-request configuration of the engine.
// MaxResidual bounds an acceptable greedy residual; nil accepts any.
type Options struct {
	BacktrackingThreshold int             `json:"backtracking_threshold"`
	Budget                SearchBudget    `json:"search_budget"`
	IngestionTolerance    decimal.Decimal `json:"ingestion_tolerance"`
	MaxResidual           *Amount         `json:"max_residual,omitempty"`
	SwapIterations        int             `json:"swap_iterations"`
	SuggestionLimit       int             `json:"suggestion_limit"`
	AlternativeLimit      int             `json:"alternative_limit"`
	TieBreak              TieBreak        `json:"tie_break"`
}

// DefaultOptions returns the defaults used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		BacktrackingThreshold: 40,
		Budget: SearchBudget{
			MaxNodes: 2_000_000,
			Timeout:  2 * time.Second,
		},
		IngestionTolerance: decimal.New(1, -3),
		SwapIterations:     3,
		SuggestionLimit:    5,
		AlternativeLimit:   10,
		TieBreak:           TieBreakFewest,
	}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.BacktrackingThreshold, validation.Required, validation.Min(1)),
		validation.Field(&o.SwapIterations, validation.Min(0)),
		validation.Field(&o.SuggestionLimit, validation.Min(0)),
		validation.Field(&o.AlternativeLimit, validation.Min(0)),
		validation.Field(&o.TieBreak, validation.Required, validation.In(TieBreakFewest, TieBreakOldestFirst, TieBreakNewestFirst)),
		validation.Field(&o.Budget, validation.By(func(value interface{}) error {
			b, _ := value.(SearchBudget)
			if b.MaxNodes < 0 || b.Timeout < 0 {
				return errors.New("search budget must not be negative")
			}
			if b.MaxNodes == 0 && b.Timeout == 0 {
				return errors.New("search budget needs a node limit or a timeout")
			}
			return nil
		})),
		validation.Field(&o.IngestionTolerance, validation.By(func(value interface{}) error {
			tol, _ := value.(decimal.Decimal)
			if tol.IsNegative() {
				return errors.New("must not be negative")
			}
			return nil
		})),
		validation.Field(&o.MaxResidual, validation.By(func(value interface{}) error {
			bound, _ := value.(*Amount)
			if bound != nil && *bound < 0 {
				return errors.New("must not be negative")
			}
			return nil
		})),
	)
}

// ReconciliationRequest is the single input of the engine.
type ReconciliationRequest struct {
	ID       string    `json:"id"`
	Payment  Payment   `json:"payment"`
	Invoices []Invoice `json:"invoices"`
	Options  Options   `json:"options"`
}

// Validate rejects requests the engine must not attempt to solve. Every
// failure wraps ErrInvalidInput.
func (r ReconciliationRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Payment, validation.By(func(value interface{}) error {
			p, _ := value.(Payment)
			if p.Amount <= 0 {
				return errors.New("payment amount must be positive")
			}
			return nil
		})),
		validation.Field(&r.Invoices, validation.Required, validation.By(validateInvoices)),
		validation.Field(&r.Options),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := r.checkMagnitude(); err != nil {
		return err
	}
	return nil
}

func validateInvoices(value interface{}) error {
	invoices, _ := value.([]Invoice)
	for i, inv := range invoices {
		if inv.ID == "" {
			return fmt.Errorf("invoice at index %d has no id", i)
		}
		if inv.Amount == 0 {
			return fmt.Errorf("invoice %s has a zero amount", inv.ID)
		}
	}
	return nil
}

// checkMagnitude guarantees that no sum formed while solving can overflow.
func (r ReconciliationRequest) checkMagnitude() error {
	total := r.Payment.Amount.Abs()
	for _, inv := range r.Invoices {
		var ok bool
		total, ok = addChecked(total, inv.Amount.Abs())
		if !ok || inv.Amount.Abs() < 0 {
			return fmt.Errorf("%w: invoice amounts overflow the amount range", ErrPrecision)
		}
	}
	return nil
}
