package engine

import (
	"sort"

	"invoice-reconciliation/internal/domain"
)

// GreedyResult is the outcome of the heuristic solver.
type GreedyResult struct {
	Solution    domain.Solution
	Suggestions []domain.Invoice
	Swaps       int
}

// SearchGreedy takes candidates largest first, accepting each one that keeps
// the running sum within target. It then runs up to swapIterations rounds of
// single swaps, each replacing one accepted invoice with one unaccepted
// invoice when that strictly shrinks |target - sum|. A swap may overshoot the
// target, in which case the residual is negative.
//
// The remaining gap is reported as the residual even when it is zero; the
// solution keeps MethodGreedyApprox. Up to suggestionLimit unaccepted
// invoices nearest to the residual are returned as suggestions.
func SearchGreedy(candidates domain.CandidateSet, target domain.Amount, swapIterations, suggestionLimit int) GreedyResult {
	sorted := make([]domain.Invoice, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.AmountDescending(sorted[i], sorted[j])
	})

	accepted := make([]bool, len(sorted))
	var sum domain.Amount
	for i, inv := range sorted {
		if sum+inv.Amount <= target {
			accepted[i] = true
			sum += inv.Amount
		}
	}

	swaps := 0
	for round := 0; round < swapIterations; round++ {
		remaining := target - sum
		if remaining == 0 {
			break
		}
		out, in, ok := bestSwap(sorted, accepted, remaining)
		if !ok {
			break
		}
		accepted[out] = false
		accepted[in] = true
		sum += sorted[in].Amount - sorted[out].Amount
		swaps++
	}

	var picked, rest []domain.Invoice
	for i, inv := range sorted {
		if accepted[i] {
			picked = append(picked, inv)
		} else {
			rest = append(rest, inv)
		}
	}

	solution := domain.NewSolution(domain.MethodGreedyApprox, target, picked)
	return GreedyResult{
		Solution:    solution,
		Suggestions: suggest(rest, solution.Residual, suggestionLimit),
		Swaps:       swaps,
	}
}

// bestSwap finds the exchange of one accepted invoice for one unaccepted
// invoice that leaves the smallest absolute gap, and reports whether that gap
// is strictly smaller than |remaining|. For an accepted amount a the ideal
// replacement is a+remaining, so only its two neighbours in the amount-sorted
// pool are examined. Ties keep the first accepted invoice in largest-first
// order and, for it, the smaller replacement.
func bestSwap(sorted []domain.Invoice, accepted []bool, remaining domain.Amount) (out, in int, ok bool) {
	// Unaccepted indexes ascending by amount; among equal amounts the
	// smallest id sits last.
	pool := make([]int, 0, len(sorted))
	for i := len(sorted) - 1; i >= 0; i-- {
		if !accepted[i] {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		return -1, -1, false
	}

	out, in = -1, -1
	bestGap := remaining.Abs()
	for i, inv := range sorted {
		if !accepted[i] {
			continue
		}
		ideal := inv.Amount + remaining
		k := sort.Search(len(pool), func(k int) bool {
			return sorted[pool[k]].Amount > ideal
		})
		for _, c := range []int{k - 1, k} {
			if c < 0 || c >= len(pool) {
				continue
			}
			gap := (ideal - sorted[pool[c]].Amount).Abs()
			if gap < bestGap {
				out, in, bestGap = i, pool[c], gap
			}
		}
	}
	return out, in, out >= 0
}

// suggest lists the unselected invoices closest to a positive residual,
// nearest first.
func suggest(rest []domain.Invoice, residual domain.Amount, limit int) []domain.Invoice {
	if residual <= 0 || limit <= 0 || len(rest) == 0 {
		return nil
	}
	near := make([]domain.Invoice, len(rest))
	copy(near, rest)
	sort.SliceStable(near, func(i, j int) bool {
		gi, gj := (near[i].Amount - residual).Abs(), (near[j].Amount - residual).Abs()
		if gi != gj {
			return gi < gj
		}
		return near[i].ID < near[j].ID
	})
	if len(near) > limit {
		near = near[:limit]
	}
	return near
}
