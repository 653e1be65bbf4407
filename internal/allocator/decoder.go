package allocator

import (
	"fmt"

	"github.com/finops-tools/vm-consolidator/internal/solver"
)

// binaryThreshold tolerates floating-point solver output: any binary
// variable value at or above it decodes as logical 1.
const binaryThreshold = 0.5

// DecodeOutcome turns a raw solver outcome into an allocation report.
//
// A timeout that carried an incumbent is reported as a feasible
// (sub-optimal) allocation; a timeout without one, like infeasible,
// unbounded, and error outcomes, yields a status-only report with no
// allocation and no savings. The baseline cost sums every pool in the
// catalog — the current fully-provisioned state — while the solution cost
// sums only pools marked used.
func DecodeOutcome(inst Instance, f Formulation, out solver.Outcome) (Report, error) {
	status := out.Status
	if status == solver.StatusTimeout && out.Values != nil {
		status = solver.StatusFeasible
	}

	if status != solver.StatusOptimal && status != solver.StatusFeasible {
		return Report{Status: status}, nil
	}
	if out.Values == nil {
		return Report{}, fmt.Errorf("solver reported %s without variable values", status)
	}
	if want := f.NumWorkloads*f.NumPools + 2*f.NumPools; len(out.Values) != want {
		return Report{}, fmt.Errorf("solver returned %d values, formulation has %d columns", len(out.Values), want)
	}

	assignment := make([]int, f.NumWorkloads)
	for i := 0; i < f.NumWorkloads; i++ {
		assignment[i] = -1
		for j := 0; j < f.NumPools; j++ {
			if out.Values[f.XCol(i, j)] >= binaryThreshold {
				assignment[i] = j
				break
			}
		}
		if assignment[i] < 0 {
			return Report{}, fmt.Errorf("workload %d (%q) is unassigned in solver output", i, inst.Workloads[i].Name)
		}
	}

	report := Report{Status: status}
	for j := 0; j < f.NumPools; j++ {
		pool := inst.Pools[j]
		report.BaselineCost += pool.Cost

		if out.Values[f.UsedCol(j)] < binaryThreshold {
			continue
		}

		alloc := PoolAllocation{
			PoolIndex: j,
			Name:      pool.Name,
			Capacity:  pool.Capacity,
			Cost:      pool.Cost,
		}
		for i := 0; i < f.NumWorkloads; i++ {
			if assignment[i] != j {
				continue
			}
			alloc.Load += inst.Workloads[i].Size
			alloc.Workloads = append(alloc.Workloads, inst.Workloads[i].Name)
		}
		alloc.Utilization = alloc.Load / pool.Capacity

		report.SolutionCost += pool.Cost
		report.Allocations = append(report.Allocations, alloc)
	}

	report.Savings = report.BaselineCost - report.SolutionCost
	if report.BaselineCost > 0 {
		report.SavingsPercent = 100 * report.Savings / report.BaselineCost
	}
	return report, nil
}
