package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/draffensperger/golp"
)

// lpSolveSolver runs problems through lp_solve via the golp bindings.
type lpSolveSolver struct{}

// NewLPSolve returns a Solver backed by lp_solve.
func NewLPSolve() Solver {
	return &lpSolveSolver{}
}

// Solve translates the problem into an lp_solve model and normalizes the
// backend status. lp_solve offers no interruption hook, so the solve runs in
// its own goroutine; when ctx expires first the result is discarded and
// StatusTimeout (no incumbent) is returned.
func (s *lpSolveSolver) Solve(ctx context.Context, p Problem) (Outcome, error) {
	if err := validateProblem(p); err != nil {
		return Outcome{}, err
	}

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)
	go func() {
		out, err := runLPSolve(p)
		done <- result{outcome: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return Outcome{Status: StatusTimeout}, nil
	case res := <-done:
		return res.outcome, res.err
	}
}

func runLPSolve(p Problem) (Outcome, error) {
	lp := golp.NewLP(0, len(p.Variables))

	for col, v := range p.Variables {
		if v.Kind == Binary {
			lp.SetBinary(col, true)
		}
	}

	for i, c := range p.Constraints {
		entries := make([]golp.Entry, len(c.Terms))
		for j, t := range c.Terms {
			entries[j] = golp.Entry{Col: t.Col, Val: t.Coef}
		}
		if err := lp.AddConstraintSparse(entries, constraintType(c.Op), c.RHS); err != nil {
			return Outcome{}, fmt.Errorf("add constraint %d: %w", i, err)
		}
	}

	lp.SetObjFn(p.Objective)
	if p.Sense == Maximize {
		lp.SetMaximize()
	}

	status := normalizeStatus(lp.Solve())
	outcome := Outcome{Status: status}
	if status == StatusOptimal || status == StatusFeasible {
		outcome.Values = lp.Variables()
		outcome.Objective = lp.Objective()
	}
	return outcome, nil
}

func constraintType(op Op) golp.ConstraintType {
	switch op {
	case LE:
		return golp.LE
	case GE:
		return golp.GE
	default:
		return golp.EQ
	}
}

// golpPresolved is lp_solve's PRESOLVED status (9); the golp bindings do not
// export a constant for it.
const golpPresolved golp.SolutionType = 9

func normalizeStatus(st golp.SolutionType) Status {
	switch st {
	case golp.OPTIMAL, golpPresolved:
		return StatusOptimal
	case golp.SUBOPTIMAL, golp.FEASFOUND:
		return StatusFeasible
	case golp.INFEASIBLE, golp.NOFEASFOUND:
		return StatusInfeasible
	case golp.UNBOUNDED:
		return StatusUnbounded
	case golp.TIMEOUT:
		return StatusTimeout
	default:
		return StatusError
	}
}

// validateProblem rejects problems the lp_solve translation cannot express.
// Continuous columns keep lp_solve's default [0, +inf) bounds.
func validateProblem(p Problem) error {
	if len(p.Variables) == 0 {
		return fmt.Errorf("problem has no variables")
	}
	if len(p.Objective) != len(p.Variables) {
		return fmt.Errorf("objective has %d coefficients for %d variables", len(p.Objective), len(p.Variables))
	}
	for col, v := range p.Variables {
		if v.Kind != Continuous {
			continue
		}
		if v.Lower != 0 || !math.IsInf(v.Upper, 1) {
			return fmt.Errorf("variable %d: continuous bounds other than [0, +inf) are not supported", col)
		}
	}
	for i, c := range p.Constraints {
		for _, t := range c.Terms {
			if t.Col < 0 || t.Col >= len(p.Variables) {
				return fmt.Errorf("constraint %d references unknown column %d", i, t.Col)
			}
		}
	}
	return nil
}
