// Package solver defines the boundary to a generic mixed-integer linear
// optimization backend. The rest of the application describes a problem as
// plain data (variables, sparse linear constraints, a linear objective) and
// receives back a normalized termination status plus variable values.
package solver

import "context"

// Status classifies how a solve terminated.
type Status int

const (
	// StatusOptimal means the backend proved the incumbent optimal.
	StatusOptimal Status = iota
	// StatusFeasible means an incumbent exists but optimality was not
	// proven, typically because the solve was time-boxed. Callers must not
	// treat this as StatusOptimal.
	StatusFeasible
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusUnbounded means the objective can be improved without limit.
	StatusUnbounded
	// StatusTimeout means the time budget expired before any incumbent was
	// found.
	StatusTimeout
	// StatusError covers backend-internal failures.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// VarKind distinguishes variable domains.
type VarKind int

const (
	// Continuous variables range over [Lower, Upper].
	Continuous VarKind = iota
	// Binary variables take values in {0, 1}.
	Binary
)

// Variable describes one decision variable. Bounds are ignored for binary
// variables.
type Variable struct {
	Kind  VarKind
	Lower float64
	Upper float64 // math.Inf(1) for unbounded above
}

// Op is a linear constraint comparison operator.
type Op int

const (
	LE Op = iota
	GE
	EQ
)

// Term is one nonzero coefficient of a sparse constraint row.
type Term struct {
	Col  int
	Coef float64
}

// Constraint is a sparse linear constraint: sum(Terms) Op RHS.
type Constraint struct {
	Terms []Term
	Op    Op
	RHS   float64
}

// Sense is the optimization direction.
type Sense int

const (
	Minimize Sense = iota
	Maximize
)

// Problem is a complete mixed-integer linear program.
type Problem struct {
	Variables   []Variable
	Constraints []Constraint
	Objective   []float64 // dense, one coefficient per variable
	Sense       Sense
}

// Outcome is the backend verdict. Values holds one entry per variable and
// is nil unless an incumbent solution exists.
type Outcome struct {
	Status    Status
	Values    []float64
	Objective float64
}

// Solver submits a problem to an optimization backend. The solve must honor
// ctx cancellation by returning StatusTimeout rather than blocking past the
// caller's time budget.
type Solver interface {
	Solve(ctx context.Context, p Problem) (Outcome, error)
}
