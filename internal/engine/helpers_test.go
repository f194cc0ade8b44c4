package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"invoice-reconciliation/internal/domain"
)

func invoice(id, amount string) domain.Invoice {
	return domain.Invoice{ID: id, Amount: domain.MustParseAmount(amount), Customer: "ACME"}
}

func invoiceFor(id, amount, customer string) domain.Invoice {
	return domain.Invoice{ID: id, Amount: domain.MustParseAmount(amount), Customer: customer}
}

func repeated(n int, amount string) domain.CandidateSet {
	set := make(domain.CandidateSet, n)
	for i := range set {
		set[i] = invoice(idFor(i), amount)
	}
	return set
}

func idFor(i int) string {
	return "INV" + string(rune('A'+i/26)) + string(rune('A'+i%26))
}

// randomCandidates builds n positive invoices with small cent amounts so that
// collisions, and therefore ambiguous matches, are frequent.
func randomCandidates(faker *gofakeit.Faker, n, maxCents int) domain.CandidateSet {
	set := make(domain.CandidateSet, n)
	for i := range set {
		set[i] = domain.Invoice{
			ID:       idFor(i),
			Amount:   domain.Amount(faker.Number(1, maxCents)),
			Customer: faker.RandomString([]string{"ACME", "GLOBEX", "INITECH"}),
			Date:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, faker.Number(0, 90)),
		}
	}
	return set
}

// bruteForceMinimal enumerates every subset and returns the sorted id lists of
// the smallest subsets summing to target.
func bruteForceMinimal(set domain.CandidateSet, target domain.Amount) []string {
	best := len(set) + 1
	var found []string
	for mask := 1; mask < 1<<len(set); mask++ {
		var sum domain.Amount
		var ids []string
		for i, inv := range set {
			if mask&(1<<i) != 0 {
				sum += inv.Amount
				ids = append(ids, inv.ID)
			}
		}
		if sum != target || len(ids) > best {
			continue
		}
		if len(ids) < best {
			best = len(ids)
			found = nil
		}
		sort.Strings(ids)
		found = append(found, strings.Join(ids, ","))
	}
	sort.Strings(found)
	return found
}

func joinedIDs(solutions []domain.Solution) []string {
	out := make([]string, len(solutions))
	for i, s := range solutions {
		out[i] = strings.Join(s.InvoiceIDs, ",")
	}
	sort.Strings(out)
	return out
}

func sumOf(set domain.CandidateSet, ids []string) domain.Amount {
	var sum domain.Amount
	for _, id := range ids {
		for _, inv := range set {
			if inv.ID == id {
				sum += inv.Amount
			}
		}
	}
	return sum
}

// steppingClock advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		current := now
		now = now.Add(step)
		return current
	}
}
