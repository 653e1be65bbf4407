package allocator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/finops-tools/vm-consolidator/internal/solver"
)

// stubSolver returns a canned outcome and records the submitted problem.
type stubSolver struct {
	outcome solver.Outcome
	err     error

	lastProblem *solver.Problem
}

func (s *stubSolver) Solve(_ context.Context, p solver.Problem) (solver.Outcome, error) {
	s.lastProblem = &p
	return s.outcome, s.err
}

func TestPlanSolvedScenario(t *testing.T) {
	t.Parallel()

	inst := scenarioInstance()
	f, err := BuildFormulation(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stub := &stubSolver{
		outcome: solver.Outcome{
			Status:    solver.StatusOptimal,
			Values:    valuesForAssignment(f, inst, []int{2, 2, 2, 2, 1, 1, 1}),
			Objective: 650,
		},
	}

	report, err := New(stub).Plan(context.Background(), inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stub.lastProblem == nil {
		t.Fatalf("expected the formulation to be submitted to the solver")
	}
	if got, want := len(stub.lastProblem.Variables), 7*3+2*3; got != want {
		t.Fatalf("expected %d columns submitted, got %d", want, got)
	}

	if report.Status != solver.StatusOptimal {
		t.Fatalf("expected optimal report, got %v", report.Status)
	}
	if report.SolutionCost > report.BaselineCost {
		t.Fatalf("solution cost %v exceeds baseline %v", report.SolutionCost, report.BaselineCost)
	}
	for _, alloc := range report.Allocations {
		if alloc.Load > alloc.Capacity+loadTolerance {
			t.Fatalf("pool %s over capacity", alloc.Name)
		}
	}
}

func TestPlanInfeasibleOversizedWorkload(t *testing.T) {
	t.Parallel()

	// single workload larger than every pool: infeasible by construction
	inst := Instance{
		Pools:     []Pool{{Name: "SMALL", Capacity: 1, Cost: 100}, {Name: "MEDIUM", Capacity: 4, Cost: 300}},
		Workloads: []Workload{{Name: "huge-db", Size: 40}},
	}

	stub := &stubSolver{outcome: solver.Outcome{Status: solver.StatusInfeasible}}
	report, err := New(stub).Plan(context.Background(), inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Status != solver.StatusInfeasible {
		t.Fatalf("expected infeasible status, got %v", report.Status)
	}
	if report.Allocations != nil {
		t.Fatalf("expected no allocation for infeasible instance")
	}
}

func TestPlanAbortsBeforeSolveOnMalformedInstance(t *testing.T) {
	t.Parallel()

	stub := &stubSolver{}
	_, err := New(stub).Plan(context.Background(), Instance{})
	if !errors.Is(err, ErrEmptyInstance) {
		t.Fatalf("expected ErrEmptyInstance, got %v", err)
	}
	if stub.lastProblem != nil {
		t.Fatalf("solver must not be invoked for malformed instances")
	}
}

func TestPlanPropagatesSolverErrors(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("backend exploded")
	stub := &stubSolver{err: wantErr}

	_, err := New(stub).Plan(context.Background(), scenarioInstance())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped solver error, got %v", err)
	}
}

func TestPlanGrowthAdjustedInstance(t *testing.T) {
	t.Parallel()

	pct := 25.0
	inst, err := NewInstance(
		[]Pool{{Name: "L", Capacity: 10, Cost: 350}},
		[]Workload{{Name: "db", Size: 4}},
		&pct,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := BuildFormulation(inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stub := &stubSolver{
		outcome: solver.Outcome{
			Status: solver.StatusOptimal,
			Values: valuesForAssignment(f, inst, []int{0}),
		},
	}

	report, err := New(stub).Plan(context.Background(), inst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.Allocations) != 1 {
		t.Fatalf("expected one used pool, got %d", len(report.Allocations))
	}
	if math.Abs(report.Allocations[0].Load-5) > loadTolerance {
		t.Fatalf("expected growth-adjusted load 5, got %v", report.Allocations[0].Load)
	}

	// the formulation must carry the adjusted size, not the raw one
	loadRow := stub.lastProblem.Constraints[1]
	if loadRow.Terms[0].Coef != 5 {
		t.Fatalf("expected coefficient 5 in load row, got %v", loadRow.Terms[0].Coef)
	}
}
