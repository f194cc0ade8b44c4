package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status classifies the outcome of a reconciliation.
type Status string

const (
	StatusUniqueSolution    Status = "UNIQUE_SOLUTION_FOUND"
	StatusAmbiguityDetected Status = "AMBIGUITY_DETECTED"
	StatusGreedySolution    Status = "GREEDY_SOLUTION_FOUND"
	StatusNoSolution        Status = "NO_SOLUTION_FOUND"
)

// Route is the solver selected by triage.
type Route string

const (
	RouteExact  Route = "EXACT"
	RouteGreedy Route = "GREEDY"
)

// State is a step of the per-request pipeline.
type State string

const (
	StateReceived   State = "RECEIVED"
	StateNetted     State = "NETTED"
	StateDispatched State = "DISPATCHED"
	StateSolving    State = "SOLVING"
	StateResolved   State = "RESOLVED"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// Fallback reasons recorded in Diagnostics.
const (
	FallbackBudgetExceeded  = "budget_exceeded"
	FallbackNoExactSolution = "no_exact_solution"
)

// Diagnostics describes what the engine did to reach a result.
type Diagnostics struct {
	Route             Route         `json:"route"`
	NodesExplored     int64         `json:"nodes_explored"`
	Elapsed           time.Duration `json:"elapsed_ns"`
	Fallback          bool          `json:"fallback"`
	FallbackReason    string        `json:"fallback_reason,omitempty"`
	PerfectMatches    int           `json:"perfect_matches"`
	Swaps             int           `json:"swaps"`
	DuplicatesDropped int           `json:"duplicates_dropped"`
	Transitions       []State       `json:"transitions"`
}

// ReconciliationResult is the single output of the engine. BestEffort holds a
// greedy selection that was rejected by the residual bound.
type ReconciliationResult struct {
	RequestID    string        `json:"request_id"`
	Status       Status        `json:"status"`
	Solution     *Solution     `json:"solution"`
	MethodUsed   Method        `json:"method_used"`
	Alternatives []Solution    `json:"alternatives,omitempty"`
	Suggestions  []Invoice     `json:"discrepancy_suggestions,omitempty"`
	BestEffort   *Solution     `json:"best_effort,omitempty"`
	Netting      NettingResult `json:"netting_summary"`
	Diagnostics  Diagnostics   `json:"diagnostics"`
}

// ReportMetadata describes one reconciliation task for the JSON report.
type ReportMetadata struct {
	RequestID             string    `json:"request_id"`
	InvoiceFile           string    `json:"invoice_file"`
	TargetAmount          Amount    `json:"target_amount"`
	BacktrackingThreshold int       `json:"backtracking_threshold"`
	Tolerance             string    `json:"tolerance"`
	ExecutedAt            time.Time `json:"execution_timestamp"`
}

// ReconciliationReport is the top-level structure for the final JSON output.
type ReconciliationReport struct {
	Metadata ReportMetadata        `json:"metadata"`
	Result   *ReconciliationResult `json:"result,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// BatchTask is one transfer listed in a batch file.
type BatchTask struct {
	Payment               Payment
	InvoiceFile           string
	Tolerance             *decimal.Decimal
	BacktrackingThreshold int
}

// BatchReport collects the reports of every task in a batch.
type BatchReport struct {
	Reports   []ReconciliationReport `json:"reports"`
	Succeeded int                    `json:"succeeded"`
	Failed    int                    `json:"failed"`
	Duration  time.Duration          `json:"duration_ns"`
}
