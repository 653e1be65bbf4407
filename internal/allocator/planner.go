package allocator

import (
	"context"
	"fmt"

	"github.com/finops-tools/vm-consolidator/internal/solver"
)

type milpPlanner struct {
	solver solver.Solver
}

// New creates a Planner that states each instance as a binary program and
// delegates the search to the given solver backend.
func New(s solver.Solver) Planner {
	return &milpPlanner{solver: s}
}

// Plan runs the single-pass pipeline: build the formulation, solve, decode.
// Construction errors abort before any solve attempt; non-success solver
// statuses are valid terminal outcomes carried in the report, not errors.
func (p *milpPlanner) Plan(ctx context.Context, inst Instance) (Report, error) {
	formulation, err := BuildFormulation(inst)
	if err != nil {
		return Report{}, err
	}

	outcome, err := p.solver.Solve(ctx, formulation.Problem)
	if err != nil {
		return Report{}, fmt.Errorf("solve: %w", err)
	}

	return DecodeOutcome(inst, formulation, outcome)
}
