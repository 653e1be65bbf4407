package allocator

import (
	"context"

	"github.com/finops-tools/vm-consolidator/internal/solver"
)

// Workload is a unit of demand (e.g. a database) placed atomically onto a
// single pool. Names identify workloads in reports only; duplicates are
// distinct workload instances.
type Workload struct {
	Name string
	Size float64
}

// Pool is a provisioned resource container (e.g. a virtual machine) with a
// finite capacity and a fixed charge incurred whenever the pool holds any
// load, independent of how much. Pool names may repeat.
type Pool struct {
	Name     string
	Capacity float64
	Cost     float64
}

// Instance is one consolidation problem: ordered workloads and pools.
// Indices into the slices are the only identifiers the formulation uses.
type Instance struct {
	Workloads []Workload
	Pools     []Pool
}

// PoolAllocation describes one pool marked used in a solved plan.
type PoolAllocation struct {
	PoolIndex   int
	Name        string
	Capacity    float64
	Cost        float64
	Load        float64
	Utilization float64  // Load / Capacity, 0.0 - 1.0
	Workloads   []string // assigned workload names in instance order
}

// Report is the outcome of a consolidation run. Allocations and the cost
// fields are populated only when Status is optimal or feasible; for any
// other status the report carries the status alone.
type Report struct {
	Status         solver.Status
	Allocations    []PoolAllocation
	BaselineCost   float64
	SolutionCost   float64
	Savings        float64
	SavingsPercent float64
}

// Planner turns an instance into an allocation report.
type Planner interface {
	Plan(ctx context.Context, inst Instance) (Report, error)
}
