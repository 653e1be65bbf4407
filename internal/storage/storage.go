package storage

import (
	"errors"
	"math"
	"sync"

	"github.com/finops-tools/vm-consolidator/internal/allocator"
)

const maxPools = 64

var (
	// ErrInvalidPools indicates the provided catalog violates validation rules.
	ErrInvalidPools = errors.New("pool catalog must contain between 1 and 64 named pools with positive capacity and non-negative cost")
)

// defaultPools is a starter catalog; real deployments replace it via
// configuration or the API.
var defaultPools = []allocator.Pool{
	{Name: "SMALL", Capacity: 1, Cost: 100},
	{Name: "MEDIUM", Capacity: 4, Cost: 300},
	{Name: "LARGE", Capacity: 10, Cost: 350},
}

// Storage provides access to the pool catalog used by the planner.
type Storage interface {
	GetPools() ([]allocator.Pool, error)
	SetPools(pools []allocator.Pool) error
}

// MemoryStorage keeps the catalog in-memory and guards access with a
// RWMutex. Catalog order is preserved: the planner identifies pools by
// index.
type MemoryStorage struct {
	mu    sync.RWMutex
	pools []allocator.Pool
}

// NewMemoryStorage initialises storage with a copy of the default catalog.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		pools: clonePools(defaultPools),
	}
}

// DefaultPools returns a copy of the default pool catalog.
func DefaultPools() []allocator.Pool {
	return clonePools(defaultPools)
}

// GetPools returns a defensive copy of the current catalog.
func (s *MemoryStorage) GetPools() ([]allocator.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return clonePools(s.pools), nil
}

// SetPools validates and stores the provided catalog.
func (s *MemoryStorage) SetPools(pools []allocator.Pool) error {
	validated, err := validatePools(pools)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.pools = validated
	s.mu.Unlock()

	return nil
}

func clonePools(src []allocator.Pool) []allocator.Pool {
	if len(src) == 0 {
		return []allocator.Pool{}
	}

	out := make([]allocator.Pool, len(src))
	copy(out, src)
	return out
}

func validatePools(pools []allocator.Pool) ([]allocator.Pool, error) {
	if len(pools) == 0 || len(pools) > maxPools {
		return nil, ErrInvalidPools
	}

	for _, p := range pools {
		if p.Name == "" {
			return nil, ErrInvalidPools
		}
		if math.IsNaN(p.Capacity) || math.IsInf(p.Capacity, 0) || p.Capacity <= 0 {
			return nil, ErrInvalidPools
		}
		if math.IsNaN(p.Cost) || math.IsInf(p.Cost, 0) || p.Cost < 0 {
			return nil, ErrInvalidPools
		}
	}

	return clonePools(pools), nil
}
