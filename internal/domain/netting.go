package domain

// NetEffect describes what netting did to one input invoice or credit note.
type NetEffect string

const (
	NetUnchanged              NetEffect = "UNCHANGED"
	NetAbsorbedByCreditNote   NetEffect = "ABSORBED_BY_CREDIT_NOTE"
	NetPartiallyNetted        NetEffect = "PARTIALLY_NETTED"
	NetCreditApplied          NetEffect = "CREDIT_APPLIED"
	NetCreditPartiallyApplied NetEffect = "CREDIT_PARTIALLY_APPLIED"
	NetCreditUnmatched        NetEffect = "CREDIT_UNMATCHED"
)

// NettingEntry records the effect of netting on a single input id. For credit
// notes Net holds the unspent (negative) remainder.
type NettingEntry struct {
	ID         string    `json:"id"`
	Effect     NetEffect `json:"effect"`
	Original   Amount    `json:"original_amount"`
	Net        Amount    `json:"net_amount"`
	NettedWith []string  `json:"netted_with,omitempty"`
}

// NettingResult is the per-id netting summary plus the reduced candidate set.
// Entries follow input order.
type NettingResult struct {
	Entries    []NettingEntry `json:"entries"`
	Candidates CandidateSet   `json:"candidates"`
}

// Entry looks up the netting effect recorded for id.
func (n NettingResult) Entry(id string) (NettingEntry, bool) {
	for _, e := range n.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return NettingEntry{}, false
}
