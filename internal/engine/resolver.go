package engine

import (
	"fmt"
	"sort"

	"invoice-reconciliation/internal/domain"
)

// Resolve picks one winner among perfect matches. Matches are ranked by
//  1. fewer invoices,
//  2. the tie-break stage: mean invoice date for oldest-first/newest-first,
//     nothing for fewest,
//  3. the lexicographically smallest sorted id sequence.
//
// The ranking is total over distinct id sets, so the winner does not depend
// on input order. Two matches that still compare equal carry the same ids;
// that is reported as ErrAmbiguityUnresolved rather than picking one of them.
// The full ranking, winner first, is returned alongside the winner.
func Resolve(matches []domain.Solution, tieBreak domain.TieBreak) (domain.Solution, []domain.Solution, error) {
	if len(matches) == 0 {
		return domain.Solution{}, nil, fmt.Errorf("%w: nothing to resolve", domain.ErrAmbiguityUnresolved)
	}
	if len(matches) == 1 {
		return matches[0], matches, nil
	}

	ranked := make([]domain.Solution, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		return compareSolutions(ranked[i], ranked[j], tieBreak) < 0
	})

	if compareSolutions(ranked[0], ranked[1], tieBreak) == 0 {
		return domain.Solution{}, nil, fmt.Errorf("%w: %v appears more than once", domain.ErrAmbiguityUnresolved, ranked[0].InvoiceIDs)
	}
	return ranked[0], ranked, nil
}

// rankKey is what the ranking looks at: size, summed invoice dates and the
// sorted ids.
type rankKey struct {
	size    int
	dateSum int64
	ids     []string
}

func solutionKey(s domain.Solution) rankKey {
	return rankKey{size: s.Size, dateSum: s.DateSum(), ids: s.InvoiceIDs}
}

func compareSolutions(a, b domain.Solution, tieBreak domain.TieBreak) int {
	return compareKeys(solutionKey(a), solutionKey(b), tieBreak)
}

func compareKeys(a, b rankKey, tieBreak domain.TieBreak) int {
	if a.size != b.size {
		return compareInt(int64(a.size), int64(b.size))
	}
	switch tieBreak {
	case domain.TieBreakOldestFirst:
		if c := compareInt(a.dateSum, b.dateSum); c != 0 {
			return c
		}
	case domain.TieBreakNewestFirst:
		if c := compareInt(b.dateSum, a.dateSum); c != 0 {
			return c
		}
	}
	return compareIDs(a.ids, b.ids)
}

func compareIDs(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return compareInt(int64(len(a)), int64(len(b)))
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
