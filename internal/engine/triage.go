package engine

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"invoice-reconciliation/internal/domain"
)

// SelectRoute sends candidate sets no larger than threshold to the exact
// solver and everything else to the greedy solver.
func SelectRoute(candidates, threshold int) domain.Route {
	if candidates <= threshold {
		return domain.RouteExact
	}
	return domain.RouteGreedy
}

// dispatch runs the solver chosen by triage. An exact search that runs out of
// budget, or finds nothing, re-enters dispatch with the greedy path forced;
// that is the only retry. A panic while solving becomes ErrInternalFault.
func (p *pipeline) dispatch(ctx context.Context, candidates domain.CandidateSet, route domain.Route) (result *domain.ReconciliationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: solver panicked: %v", domain.ErrInternalFault, r)
		}
	}()

	p.diag.Route = route
	p.enter(domain.StateDispatched)
	target := p.req.Payment.Amount

	if route == domain.RouteExact {
		p.enter(domain.StateSolving)
		exact, err := p.searchExact(ctx, candidates, target)
		p.diag.NodesExplored = exact.Nodes

		switch {
		case err == nil:
			return p.resolve(ctx, exact)
		case errors.Is(err, domain.ErrBudgetExceeded):
			p.diag.FallbackReason = domain.FallbackBudgetExceeded
			p.log.WithError(err).WithField("nodes", exact.Nodes).Warn("exact search over budget, falling back to greedy")
		case errors.Is(err, domain.ErrNoExactSolution):
			p.diag.FallbackReason = domain.FallbackNoExactSolution
			p.log.WithField("nodes", exact.Nodes).Debug("no exact match, falling back to greedy")
		default:
			return nil, err
		}
		p.diag.Fallback = true
		p.enter(domain.StateDispatched)
	}

	p.enter(domain.StateSolving)
	greedy := p.searchGreedy(ctx, candidates, target)
	return p.accept(greedy), nil
}

// keptMatches is how many exact matches the pipeline holds: the winner, the
// reported alternatives, and at least one runner-up so identical top matches
// are still detected.
func keptMatches(alternativeLimit int) int {
	if alternativeLimit < 1 {
		return 2
	}
	return alternativeLimit + 1
}

func (p *pipeline) searchExact(ctx context.Context, candidates domain.CandidateSet, target domain.Amount) (ExactResult, error) {
	ctx, span := p.engine.tracer.Start(ctx, "ExactSearch")
	defer span.End()

	opts := p.req.Options
	kept := newMatchSet(keptMatches(opts.AlternativeLimit), opts.TieBreak)
	exact, err := searchExact(ctx, candidates, target, newSearchBudget(opts.Budget, p.engine.now), kept)
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int64("nodes", exact.Nodes),
		attribute.Int("matches", exact.Found),
	)
	if err != nil {
		span.RecordError(err)
	}
	return exact, err
}

func (p *pipeline) searchGreedy(ctx context.Context, candidates domain.CandidateSet, target domain.Amount) GreedyResult {
	_, span := p.engine.tracer.Start(ctx, "GreedySearch")
	defer span.End()

	opts := p.req.Options
	greedy := SearchGreedy(candidates, target, opts.SwapIterations, opts.SuggestionLimit)
	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("swaps", greedy.Swaps),
		attribute.String("residual", greedy.Solution.Residual.String()),
	)
	return greedy
}
