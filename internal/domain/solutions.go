package domain

import "sort"

// Method identifies the solver that produced a Solution.
type Method string

const (
	MethodExactMatch   Method = "EXACT_MATCH"
	MethodGreedyApprox Method = "GREEDY_APPROX"
)

// Solution is a selection of invoices offered as the explanation of a payment.
type Solution struct {
	InvoiceIDs []string  `json:"invoice_ids"`
	Invoices   []Invoice `json:"invoices_audit_trail"`
	Total      Amount    `json:"total"`
	Method     Method    `json:"method"`
	Residual   Amount    `json:"residual"`
	Size       int       `json:"size"`
}

// NewSolution builds a Solution from the picked invoices. InvoiceIDs are
// sorted ascending; the audit trail is ordered largest amount first.
func NewSolution(method Method, target Amount, picked []Invoice) Solution {
	invoices := make([]Invoice, len(picked))
	copy(invoices, picked)
	sort.SliceStable(invoices, func(i, j int) bool {
		return AmountDescending(invoices[i], invoices[j])
	})

	ids := make([]string, len(invoices))
	var total Amount
	for i, inv := range invoices {
		ids[i] = inv.ID
		total += inv.Amount
	}
	sort.Strings(ids)

	return Solution{
		InvoiceIDs: ids,
		Invoices:   invoices,
		Total:      total,
		Method:     method,
		Residual:   target - total,
		Size:       len(invoices),
	}
}

// DateSum is the sum of the invoice dates in Unix seconds. Between solutions
// of equal size it orders them by mean invoice date without rounding.
func (s Solution) DateSum() int64 {
	var sum int64
	for _, inv := range s.Invoices {
		sum += inv.Date.Unix()
	}
	return sum
}

// AmountDescending orders invoices by amount, largest first, then by id.
func AmountDescending(a, b Invoice) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	return a.ID < b.ID
}
