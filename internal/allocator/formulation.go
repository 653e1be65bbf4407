package allocator

import (
	"math"

	"github.com/finops-tools/vm-consolidator/internal/solver"
)

// Formulation is the variable-sized bin-packing problem of an instance
// stated as a binary integer program, expressed as plain data for the
// solver boundary.
//
// For I workloads and J pools the column layout is:
//
//	x[i,j] binary at i*J + j      — workload i assigned to pool j
//	k[j]   binary at I*J + j      — pool j used
//	load[j] continuous at I*J+J+j — aggregate size assigned to pool j
//
// Constraint families:
//
//	∀i: Σ_j x[i,j] = 1                  (every workload placed exactly once)
//	∀j: Σ_i w_i·x[i,j] − load[j] = 0    (load definition)
//	∀j: load[j] − c_j·k[j] ≤ 0          (capacity / activation coupling)
//
// Objective: minimize Σ_j p_j·k[j]. The k·c coupling is what forces a
// pool's fixed cost into the objective exactly when it carries load; the
// load columns are not strictly required by the constraints but keep the
// solver output directly reportable.
type Formulation struct {
	Problem      solver.Problem
	NumWorkloads int
	NumPools     int
}

// XCol returns the column of the assignment variable x[i,j].
func (f Formulation) XCol(i, j int) int { return i*f.NumPools + j }

// UsedCol returns the column of the pool-used variable k[j].
func (f Formulation) UsedCol(j int) int { return f.NumWorkloads*f.NumPools + j }

// LoadCol returns the column of the load variable load[j].
func (f Formulation) LoadCol(j int) int { return f.NumWorkloads*f.NumPools + f.NumPools + j }

// BuildFormulation derives the binary program from an instance. The data is
// re-validated because an Instance literal can bypass NewInstance.
func BuildFormulation(inst Instance) (Formulation, error) {
	validated, err := NewInstance(inst.Pools, inst.Workloads, nil)
	if err != nil {
		return Formulation{}, err
	}

	numWorkloads := len(validated.Workloads)
	numPools := len(validated.Pools)
	numCols := numWorkloads*numPools + 2*numPools

	f := Formulation{
		NumWorkloads: numWorkloads,
		NumPools:     numPools,
	}

	variables := make([]solver.Variable, numCols)
	for i := 0; i < numWorkloads; i++ {
		for j := 0; j < numPools; j++ {
			variables[f.XCol(i, j)] = solver.Variable{Kind: solver.Binary}
		}
	}
	for j := 0; j < numPools; j++ {
		variables[f.UsedCol(j)] = solver.Variable{Kind: solver.Binary}
		variables[f.LoadCol(j)] = solver.Variable{Kind: solver.Continuous, Upper: math.Inf(1)}
	}

	constraints := make([]solver.Constraint, 0, numWorkloads+2*numPools)

	for i := 0; i < numWorkloads; i++ {
		terms := make([]solver.Term, numPools)
		for j := 0; j < numPools; j++ {
			terms[j] = solver.Term{Col: f.XCol(i, j), Coef: 1}
		}
		constraints = append(constraints, solver.Constraint{Terms: terms, Op: solver.EQ, RHS: 1})
	}

	for j := 0; j < numPools; j++ {
		terms := make([]solver.Term, 0, numWorkloads+1)
		for i := 0; i < numWorkloads; i++ {
			terms = append(terms, solver.Term{Col: f.XCol(i, j), Coef: validated.Workloads[i].Size})
		}
		terms = append(terms, solver.Term{Col: f.LoadCol(j), Coef: -1})
		constraints = append(constraints, solver.Constraint{Terms: terms, Op: solver.EQ, RHS: 0})
	}

	for j := 0; j < numPools; j++ {
		terms := []solver.Term{
			{Col: f.LoadCol(j), Coef: 1},
			{Col: f.UsedCol(j), Coef: -validated.Pools[j].Capacity},
		}
		constraints = append(constraints, solver.Constraint{Terms: terms, Op: solver.LE, RHS: 0})
	}

	objective := make([]float64, numCols)
	for j := 0; j < numPools; j++ {
		objective[f.UsedCol(j)] = validated.Pools[j].Cost
	}

	f.Problem = solver.Problem{
		Variables:   variables,
		Constraints: constraints,
		Objective:   objective,
		Sense:       solver.Minimize,
	}
	return f, nil
}
