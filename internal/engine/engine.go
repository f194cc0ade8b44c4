// Package engine reconciles one payment against a set of invoices: credit
// notes are netted, triage picks the exact or the greedy solver, and multiple
// perfect matches are narrowed to one by a deterministic tie-break.
//
// An Engine holds no per-request state and may be shared by concurrent
// callers; every request works on its own values.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"invoice-reconciliation/internal/domain"
)

const tracerName = "invoice-reconciliation/engine"

// Engine is the facade over the reconciliation pipeline.
type Engine struct {
	logger logrus.FieldLogger
	tracer trace.Tracer
	now    func() time.Time
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for state transitions and outcomes.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTracer sets the tracer used for pipeline spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithClock replaces time.Now for search deadlines and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine using the standard logrus logger and the global
// OpenTelemetry tracer provider unless overridden.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logrus.StandardLogger(),
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// pipeline carries the state of a single request through the engine.
type pipeline struct {
	engine *Engine
	req    domain.ReconciliationRequest
	log    logrus.FieldLogger
	state  domain.State
	diag   domain.Diagnostics
}

func (p *pipeline) enter(state domain.State) {
	p.state = state
	p.diag.Transitions = append(p.diag.Transitions, state)
	p.log.WithField("state", state).Debug("reconciliation state changed")
}

// Reconcile runs netting, triage, solving and ambiguity resolution for one
// request.
//
// Invalid requests are rejected with an error wrapping ErrInvalidInput before
// any solving. A cancelled ctx aborts the exact search with the context
// error. ErrInternalFault is returned when the pipeline fails while solving,
// including an unresolvable ambiguity. Every other outcome, including "no
// plausible solution", is a well-formed result.
func (e *Engine) Reconcile(ctx context.Context, req domain.ReconciliationRequest) (*domain.ReconciliationResult, error) {
	ctx, span := e.tracer.Start(ctx, "Reconcile", trace.WithAttributes(
		attribute.String("request_id", req.ID),
		attribute.Int("invoices", len(req.Invoices)),
		attribute.String("payment", req.Payment.Amount.String()),
	))
	defer span.End()

	started := e.now()
	p := &pipeline{
		engine: e,
		req:    req,
		log:    e.logger.WithField("request_id", req.ID),
	}
	p.enter(domain.StateReceived)

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		p.log.WithError(err).Info("reconciliation request rejected")
		return nil, err
	}

	invoices, dropped := domain.Dedupe(req.Invoices)
	if dropped > 0 {
		p.log.WithField("dropped", dropped).Warn("duplicate invoice ids dropped")
	}
	p.diag.DuplicatesDropped = dropped

	netting := p.net(ctx, invoices)
	p.enter(domain.StateNetted)

	route := SelectRoute(len(netting.Candidates), req.Options.BacktrackingThreshold)
	result, err := p.dispatch(ctx, netting.Candidates, route)
	if err != nil {
		failedIn := p.state
		p.enter(domain.StateFailed)
		span.RecordError(err)
		p.log.WithError(err).WithField("failed_in", failedIn).Error("reconciliation failed")
		return nil, err
	}

	p.enter(domain.StateCompleted)
	p.diag.Elapsed = e.now().Sub(started)
	result.RequestID = req.ID
	result.Netting = netting
	result.Diagnostics = p.diag

	span.SetAttributes(
		attribute.String("status", string(result.Status)),
		attribute.String("route", string(p.diag.Route)),
		attribute.Bool("fallback", p.diag.Fallback),
	)
	p.log.WithFields(logrus.Fields{
		"route":    p.diag.Route,
		"method":   result.MethodUsed,
		"nodes":    p.diag.NodesExplored,
		"fallback": p.diag.Fallback,
		"status":   result.Status,
	}).Info("reconciliation completed")

	return result, nil
}

func (p *pipeline) net(ctx context.Context, invoices domain.CandidateSet) domain.NettingResult {
	_, span := p.engine.tracer.Start(ctx, "Netting")
	defer span.End()

	netting := Net(invoices)
	span.SetAttributes(
		attribute.Int("invoices", len(invoices)),
		attribute.Int("candidates", len(netting.Candidates)),
		attribute.String("candidates_total", netting.Candidates.Total().String()),
	)
	p.log.WithField("candidates", netting.Candidates.IDs()).Debug("netting applied")
	return netting
}

// resolve turns the kept exact matches into a result. A resolver failure is
// fatal.
func (p *pipeline) resolve(ctx context.Context, exact ExactResult) (*domain.ReconciliationResult, error) {
	_, span := p.engine.tracer.Start(ctx, "ResolveAmbiguity")
	defer span.End()

	winner, ranked, err := Resolve(exact.Matches, p.req.Options.TieBreak)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %w", domain.ErrInternalFault, err)
	}
	p.enter(domain.StateResolved)
	p.diag.PerfectMatches = exact.Found
	span.SetAttributes(attribute.Int("matches", exact.Found))

	result := &domain.ReconciliationResult{
		Status:     domain.StatusUniqueSolution,
		Solution:   &winner,
		MethodUsed: domain.MethodExactMatch,
	}
	if exact.Found > 1 {
		result.Status = domain.StatusAmbiguityDetected
		alternatives := ranked[1:]
		if len(alternatives) > p.req.Options.AlternativeLimit {
			alternatives = alternatives[:p.req.Options.AlternativeLimit]
		}
		if len(alternatives) > 0 {
			result.Alternatives = alternatives
		}
		p.log.WithField("matches", exact.Found).Info("ambiguous exact matches resolved")
	}
	return result, nil
}

// accept turns a greedy selection into a result, applying the residual bound.
func (p *pipeline) accept(greedy GreedyResult) *domain.ReconciliationResult {
	p.enter(domain.StateResolved)
	p.diag.Swaps = greedy.Swaps

	solution := greedy.Solution
	result := &domain.ReconciliationResult{
		MethodUsed:  domain.MethodGreedyApprox,
		Suggestions: greedy.Suggestions,
	}

	bound := p.req.Options.MaxResidual
	switch {
	case solution.Size == 0:
		result.Status = domain.StatusNoSolution
	case bound != nil && solution.Residual.Abs() > *bound:
		result.Status = domain.StatusNoSolution
		result.BestEffort = &solution
		p.log.WithFields(logrus.Fields{
			"residual": solution.Residual.String(),
			"bound":    bound.String(),
		}).Info("greedy residual above acceptable bound")
	default:
		result.Status = domain.StatusGreedySolution
		result.Solution = &solution
	}
	return result
}
