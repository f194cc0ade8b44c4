package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput rejects a request before any solving is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrPrecision is raised when an amount cannot be held exactly in minor
	// units. It is a kind of ErrInvalidInput.
	ErrPrecision = fmt.Errorf("%w: numeric overflow or precision fault", ErrInvalidInput)

	// ErrNoExactSolution means the exact search space held no perfect match.
	ErrNoExactSolution = errors.New("no exact solution")

	// ErrBudgetExceeded means the exact search ran out of nodes or time.
	ErrBudgetExceeded = errors.New("search budget exceeded")

	// ErrAmbiguityUnresolved means the tie-break could not pick a single winner.
	ErrAmbiguityUnresolved = errors.New("ambiguity unresolved")

	// ErrInternalFault terminates a request in the Failed state.
	ErrInternalFault = errors.New("internal fault")
)
