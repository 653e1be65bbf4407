package allocator

import (
	"fmt"
	"math"
)

// ApplyGrowth returns workloads with every size scaled by 1 + percent/100,
// reserving headroom for future growth. A nil percent means no adjustment
// and returns the input as-is. Negative percents above -100 are allowed
// (explicit shrink); -100 and below would produce zero-or-negative sizes
// and are rejected, as are NaN and infinities.
func ApplyGrowth(workloads []Workload, percent *float64) ([]Workload, error) {
	if percent == nil {
		return workloads, nil
	}
	p := *percent
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= -100 {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidGrowth, p)
	}

	factor := 1 + p/100
	out := make([]Workload, len(workloads))
	for i, w := range workloads {
		out[i] = Workload{Name: w.Name, Size: w.Size * factor}
	}
	return out, nil
}

// NewInstance validates the catalog and demand data, applies the growth
// adjustment exactly once, and returns an immutable instance holding
// defensive copies. Validation failures abort before any solve attempt.
func NewInstance(pools []Pool, workloads []Workload, growthPercent *float64) (Instance, error) {
	if len(pools) == 0 || len(workloads) == 0 {
		return Instance{}, ErrEmptyInstance
	}

	for j, p := range pools {
		if !isFinite(p.Capacity) || p.Capacity <= 0 {
			return Instance{}, fmt.Errorf("%w: pool %d (%q) capacity %v", ErrInvalidData, j, p.Name, p.Capacity)
		}
		if !isFinite(p.Cost) || p.Cost < 0 {
			return Instance{}, fmt.Errorf("%w: pool %d (%q) cost %v", ErrInvalidData, j, p.Name, p.Cost)
		}
	}
	for i, w := range workloads {
		if !isFinite(w.Size) || w.Size <= 0 {
			return Instance{}, fmt.Errorf("%w: workload %d (%q) size %v", ErrInvalidData, i, w.Name, w.Size)
		}
	}

	adjusted, err := ApplyGrowth(workloads, growthPercent)
	if err != nil {
		return Instance{}, err
	}

	inst := Instance{
		Workloads: make([]Workload, len(adjusted)),
		Pools:     make([]Pool, len(pools)),
	}
	copy(inst.Workloads, adjusted)
	copy(inst.Pools, pools)
	return inst, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
