package engine

import (
	"container/heap"
	"context"
	"fmt"
	"sort"
	"time"

	"invoice-reconciliation/internal/domain"
)

// checkInterval is how many explored nodes pass between deadline and
// cancellation checks.
const checkInterval = 1024

// pick is one included candidate. Frames share their prefix of picks, so
// pushing a frame never copies the chosen set.
type pick struct {
	index int
	prev  *pick
}

// searchFrame is a node of the include/exclude tree: the next candidate to
// decide on, the running sum and the picks made so far.
type searchFrame struct {
	next   int
	sum    domain.Amount
	size   int
	chosen *pick
}

// ExactResult is the outcome of an exact search. Found counts every
// minimum-size match, including those not kept in Matches.
type ExactResult struct {
	Matches []domain.Solution
	Found   int
	Nodes   int64
}

// searchBudget is the resolved form of domain.SearchBudget for one search.
type searchBudget struct {
	maxNodes int64
	deadline time.Time
	now      func() time.Time
}

func newSearchBudget(b domain.SearchBudget, now func() time.Time) searchBudget {
	sb := searchBudget{maxNodes: b.MaxNodes, now: now}
	if b.Timeout > 0 {
		sb.deadline = now().Add(b.Timeout)
	}
	return sb
}

func (b searchBudget) expired() bool {
	return !b.deadline.IsZero() && b.now().After(b.deadline)
}

// SearchExact finds every minimum-size subset of candidates summing exactly to
// target. Candidates are searched largest first on an explicit stack;
// branches that overshoot the target, or can no longer reach it with the
// remaining candidates, are pruned, as are branches that cannot beat the
// smallest match size already found.
//
// It returns ErrNoExactSolution when the space is exhausted without a match,
// ErrBudgetExceeded when the node limit or deadline is hit first, and the
// context error if ctx is cancelled. Nodes is set in every case.
//
// Every match is returned, in discovery order.
func SearchExact(ctx context.Context, candidates domain.CandidateSet, target domain.Amount, budget domain.SearchBudget) (ExactResult, error) {
	return searchExact(ctx, candidates, target, newSearchBudget(budget, time.Now), newMatchSet(0, domain.TieBreakFewest))
}

// searchExact runs the search, handing matches to kept. Ranking a match is
// part of visiting its node, so the budget covers it.
func searchExact(ctx context.Context, candidates domain.CandidateSet, target domain.Amount, budget searchBudget, kept *matchSet) (ExactResult, error) {
	sorted := make([]domain.Invoice, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return domain.AmountDescending(sorted[i], sorted[j])
	})

	n := len(sorted)
	suffix := make([]domain.Amount, n+1)
	for i := n - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + sorted[i].Amount
	}

	var (
		nodes    int64
		bestSize = n + 1
		stack    = []searchFrame{{}}
	)
	kept.sorted = sorted

	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		if budget.maxNodes > 0 && nodes > budget.maxNodes {
			return ExactResult{Nodes: nodes}, fmt.Errorf("%w: explored %d nodes", domain.ErrBudgetExceeded, budget.maxNodes)
		}
		if nodes%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return ExactResult{Nodes: nodes}, fmt.Errorf("exact search cancelled: %w", err)
			}
			if budget.expired() {
				return ExactResult{Nodes: nodes}, fmt.Errorf("%w: deadline passed after %d nodes", domain.ErrBudgetExceeded, nodes)
			}
		}

		if frame.sum == target && frame.size > 0 {
			if frame.size < bestSize {
				bestSize = frame.size
				kept.reset()
			}
			kept.add(frame.chosen)
			continue
		}

		if frame.next == n || frame.size >= bestSize {
			continue
		}
		if frame.sum+suffix[frame.next] < target {
			continue
		}

		stack = append(stack, searchFrame{
			next:   frame.next + 1,
			sum:    frame.sum,
			size:   frame.size,
			chosen: frame.chosen,
		})
		if amount := sorted[frame.next].Amount; frame.sum+amount <= target {
			stack = append(stack, searchFrame{
				next:   frame.next + 1,
				sum:    frame.sum + amount,
				size:   frame.size + 1,
				chosen: &pick{index: frame.next, prev: frame.chosen},
			})
		}
	}

	if kept.found == 0 {
		return ExactResult{Nodes: nodes}, domain.ErrNoExactSolution
	}

	picks := kept.picks()
	matches := make([]domain.Solution, 0, len(picks))
	for _, chosen := range picks {
		picked := make([]domain.Invoice, 0, bestSize)
		for p := chosen; p != nil; p = p.prev {
			picked = append(picked, sorted[p.index])
		}
		matches = append(matches, domain.NewSolution(domain.MethodExactMatch, target, picked))
	}
	return ExactResult{Matches: matches, Found: kept.found, Nodes: nodes}, nil
}

// matchSet collects the matches of the smallest size seen so far. With a
// positive limit it holds only the best limit matches under the resolver
// ranking, so memory and the work left after the search stay bounded.
type matchSet struct {
	limit  int
	found  int
	all    []*pick
	best   matchHeap
	sorted []domain.Invoice
}

func newMatchSet(limit int, tieBreak domain.TieBreak) *matchSet {
	return &matchSet{limit: limit, best: matchHeap{tieBreak: tieBreak}}
}

func (m *matchSet) reset() {
	m.found = 0
	m.all = m.all[:0]
	m.best.items = m.best.items[:0]
}

func (m *matchSet) add(chosen *pick) {
	m.found++
	if m.limit <= 0 {
		m.all = append(m.all, chosen)
		return
	}

	match := rankedMatch{key: m.keyOf(chosen), chosen: chosen}
	if m.best.Len() < m.limit {
		heap.Push(&m.best, match)
		return
	}
	if compareKeys(match.key, m.best.items[0].key, m.best.tieBreak) < 0 {
		m.best.items[0] = match
		heap.Fix(&m.best, 0)
	}
}

func (m *matchSet) keyOf(chosen *pick) rankKey {
	var key rankKey
	for p := chosen; p != nil; p = p.prev {
		inv := m.sorted[p.index]
		key.size++
		key.dateSum += inv.Date.Unix()
		key.ids = append(key.ids, inv.ID)
	}
	sort.Strings(key.ids)
	return key
}

// picks returns the kept matches, best first when the set is bounded.
func (m *matchSet) picks() []*pick {
	if m.limit <= 0 {
		return m.all
	}
	ranked := make([]rankedMatch, len(m.best.items))
	copy(ranked, m.best.items)
	sort.SliceStable(ranked, func(i, j int) bool {
		return compareKeys(ranked[i].key, ranked[j].key, m.best.tieBreak) < 0
	})

	picks := make([]*pick, len(ranked))
	for i, r := range ranked {
		picks[i] = r.chosen
	}
	return picks
}

type rankedMatch struct {
	key    rankKey
	chosen *pick
}

// matchHeap keeps the worst retained match on top.
type matchHeap struct {
	items    []rankedMatch
	tieBreak domain.TieBreak
}

func (h *matchHeap) Len() int { return len(h.items) }

func (h *matchHeap) Less(i, j int) bool {
	return compareKeys(h.items[i].key, h.items[j].key, h.tieBreak) > 0
}

func (h *matchHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *matchHeap) Push(x interface{}) { h.items = append(h.items, x.(rankedMatch)) }

func (h *matchHeap) Pop() interface{} {
	last := h.items[len(h.items)-1]
	h.items = h.items[:len(h.items)-1]
	return last
}
