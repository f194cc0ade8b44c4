package engine

import (
	"sort"

	"invoice-reconciliation/internal/domain"
)

// openItem tracks the running state of one invoice or credit note while its
// counterparty group is being netted.
type openItem struct {
	index      int
	remaining  domain.Amount // magnitude still open
	nettedWith []string
}

// Net cancels credit notes against open invoices of the same counterparty.
// Each credit note, largest first, is paired with the open invoice whose
// remaining amount is closest to the credit still unspent; the pairing repeats
// until the credit is spent or the group has no open invoice left. Invoices
// reduced to zero and spent credit notes leave the candidate set, and credit
// notes that cannot be applied are excluded from it.
//
// Net only ever reduces amounts, and its output holds no credit notes, so
// netting a previous result changes nothing.
func Net(invoices domain.CandidateSet) domain.NettingResult {
	debits := make(map[string][]*openItem)
	credits := make(map[string][]*openItem)
	items := make([]*openItem, len(invoices))

	for i, inv := range invoices {
		item := &openItem{index: i, remaining: inv.Amount.Abs()}
		items[i] = item
		key := inv.Counterparty()
		if inv.IsCreditNote() {
			credits[key] = append(credits[key], item)
		} else {
			debits[key] = append(debits[key], item)
		}
	}

	for key, group := range credits {
		sort.SliceStable(group, func(a, b int) bool {
			if group[a].remaining != group[b].remaining {
				return group[a].remaining > group[b].remaining
			}
			return invoices[group[a].index].ID < invoices[group[b].index].ID
		})
		open := debits[key]
		for _, credit := range group {
			for credit.remaining > 0 {
				target := closestOpen(open, credit.remaining, invoices)
				if target == nil {
					break
				}
				applied := credit.remaining
				if target.remaining < applied {
					applied = target.remaining
				}
				target.remaining -= applied
				credit.remaining -= applied
				target.nettedWith = append(target.nettedWith, invoices[credit.index].ID)
				credit.nettedWith = append(credit.nettedWith, invoices[target.index].ID)
			}
		}
	}

	result := domain.NettingResult{
		Entries:    make([]domain.NettingEntry, 0, len(invoices)),
		Candidates: make(domain.CandidateSet, 0, len(invoices)),
	}
	for i, inv := range invoices {
		item := items[i]
		entry := domain.NettingEntry{
			ID:         inv.ID,
			Original:   inv.Amount,
			NettedWith: item.nettedWith,
		}
		if inv.IsCreditNote() {
			entry.Net = -item.remaining
			entry.Effect = creditEffect(inv.Amount.Abs(), item.remaining)
			result.Entries = append(result.Entries, entry)
			continue
		}

		entry.Net = item.remaining
		switch {
		case item.remaining == inv.Amount:
			entry.Effect = domain.NetUnchanged
		case item.remaining == 0:
			entry.Effect = domain.NetAbsorbedByCreditNote
		default:
			entry.Effect = domain.NetPartiallyNetted
		}
		result.Entries = append(result.Entries, entry)

		if item.remaining > 0 {
			netted := inv
			netted.Amount = item.remaining
			result.Candidates = append(result.Candidates, netted)
		}
	}
	return result
}

// closestOpen picks the open invoice whose remaining amount is nearest to
// want, breaking ties by id.
func closestOpen(open []*openItem, want domain.Amount, invoices domain.CandidateSet) *openItem {
	var best *openItem
	var bestGap domain.Amount
	for _, item := range open {
		if item.remaining == 0 {
			continue
		}
		gap := (item.remaining - want).Abs()
		if best == nil || gap < bestGap ||
			(gap == bestGap && invoices[item.index].ID < invoices[best.index].ID) {
			best = item
			bestGap = gap
		}
	}
	return best
}

func creditEffect(magnitude, unspent domain.Amount) domain.NetEffect {
	switch unspent {
	case 0:
		return domain.NetCreditApplied
	case magnitude:
		return domain.NetCreditUnmatched
	default:
		return domain.NetCreditPartiallyApplied
	}
}
