package allocator

import "errors"

var (
	// ErrEmptyInstance is returned when an instance has no workloads or no pools.
	ErrEmptyInstance = errors.New("instance must contain at least one workload and one pool")
	// ErrInvalidData is returned when a size, capacity, or cost is negative or non-finite.
	ErrInvalidData = errors.New("sizes and capacities must be positive finite numbers, costs non-negative")
	// ErrInvalidGrowth is returned when a growth percent is non-finite or would
	// scale sizes to zero or below.
	ErrInvalidGrowth = errors.New("growth percent must be a finite number greater than -100")
)
