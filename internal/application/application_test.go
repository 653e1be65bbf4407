package application

import (
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/finops-tools/vm-consolidator/internal/allocator"
	"github.com/finops-tools/vm-consolidator/internal/config"
)

func TestNewInitializesDependencies(t *testing.T) {
	cfg := baseTestConfig(":8085")
	cfg.InitialPools = []allocator.Pool{
		{Name: "XL", Capacity: 20, Cost: 600},
		{Name: "SMALL", Capacity: 1, Cost: 100},
	}
	logger := zaptest.NewLogger(t)

	app, err := New(cfg, logger)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	pools, err := app.storage.GetPools()
	if err != nil {
		t.Fatalf("GetPools returned error: %v", err)
	}
	if len(pools) != 2 || pools[0].Name != "XL" || pools[1].Name != "SMALL" {
		t.Fatalf("expected configured pool catalog in order, got %v", pools)
	}
	if app.server == nil || app.router == nil || app.handler == nil || app.planner == nil {
		t.Fatalf("expected server, router, handler, and planner to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig("9090")
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != ":9090" {
		t.Fatalf("expected address :9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewReturnsErrorForInvalidPools(t *testing.T) {
	cfg := baseTestConfig(":0")
	cfg.InitialPools = nil

	if _, err := New(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatalf("expected error for empty pool catalog")
	}
}

func baseTestConfig(port string) config.Config {
	return config.Config{
		Port: port,
		InitialPools: []allocator.Pool{
			{Name: "SMALL", Capacity: 1, Cost: 100},
			{Name: "LARGE", Capacity: 10, Cost: 350},
		},
		SolveTimeout:         time.Second,
		ShutdownGracePeriod:  50 * time.Millisecond,
		ReadHeaderTimeout:    20 * time.Millisecond,
		WriteTimeout:         30 * time.Millisecond,
		IdleTimeout:          40 * time.Millisecond,
		EnableRequestLogging: false,
		RateLimitRPS:         0,
		RateLimitBurst:       0,
	}
}
