package domain

import "time"

// Invoice is a billable amount owed by a customer. A negative amount marks a
// credit note. Invoices are treated as immutable values.
type Invoice struct {
	ID       string    `json:"id"`
	Amount   Amount    `json:"amount"`
	Customer string    `json:"customer,omitempty"`
	Supplier string    `json:"supplier,omitempty"`
	Date     time.Time `json:"date"`
}

// IsCreditNote reports whether the invoice reduces what is owed.
func (i Invoice) IsCreditNote() bool {
	return i.Amount < 0
}

// Counterparty is the reference credit notes are netted within.
func (i Invoice) Counterparty() string {
	return i.Customer
}

// Payment is the single transfer being reconciled.
type Payment struct {
	Amount    Amount    `json:"amount"`
	Reference string    `json:"reference,omitempty"`
	Date      time.Time `json:"date,omitempty"`
}

// CandidateSet is the ordered, id-unique working set handed to the solvers.
type CandidateSet []Invoice

// Dedupe keeps the first occurrence of every id and returns how many later
// duplicates were dropped.
func Dedupe(invoices []Invoice) (CandidateSet, int) {
	seen := make(map[string]bool, len(invoices))
	set := make(CandidateSet, 0, len(invoices))
	dropped := 0
	for _, inv := range invoices {
		if seen[inv.ID] {
			dropped++
			continue
		}
		seen[inv.ID] = true
		set = append(set, inv)
	}
	return set, dropped
}

// IDs returns the candidate ids in set order.
func (c CandidateSet) IDs() []string {
	ids := make([]string, len(c))
	for i, inv := range c {
		ids[i] = inv.ID
	}
	return ids
}

// Total sums every candidate amount.
func (c CandidateSet) Total() Amount {
	var total Amount
	for _, inv := range c {
		total += inv.Amount
	}
	return total
}
