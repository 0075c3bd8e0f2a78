package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/soffront/metabase-provisioner/internal/service"
	"github.com/soffront/metabase-provisioner/internal/store"
)

// HealthChecker provides health check endpoints
type HealthChecker struct {
	mappings store.MappingStore
	locker   store.Locker
	metabase service.MetabaseAPI
	logger   *zap.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status      string            `json:"status"`
	Timestamp   int64             `json:"timestamp"`
	Checks      map[string]string `json:"checks,omitempty"`
	TenantCount int64             `json:"tenant_count,omitempty"`
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(
	mappings store.MappingStore,
	locker store.Locker,
	metabase service.MetabaseAPI,
	logger *zap.Logger,
) *HealthChecker {
	return &HealthChecker{
		mappings: mappings,
		locker:   locker,
		metabase: metabase,
		logger:   logger,
	}
}

// LivenessHandler handles liveness probe requests
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "alive",
		Timestamp: time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// ReadinessHandler handles readiness probe requests. The mapping store, lock
// backend and Metabase are pinged in parallel so a slow dependency does not
// stack delays onto the others.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var mu sync.Mutex
	checks := make(map[string]string)
	allHealthy := true

	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			h.logger.Error("Health check failed",
				zap.String("check", name),
				zap.Error(err))
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record("mapping_store", h.checkMappings(gctx))
		return nil
	})
	g.Go(func() error {
		record("locker", h.checkLocker(gctx))
		return nil
	})
	g.Go(func() error {
		record("metabase", h.checkMetabase(gctx))
		return nil
	})
	g.Wait()

	status := HealthStatus{
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	if allHealthy {
		if count, err := h.mappings.CountMappings(ctx); err == nil {
			status.TenantCount = count
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if allHealthy {
		status.Status = "ready"
		w.WriteHeader(http.StatusOK)
	} else {
		status.Status = "not_ready"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(status)
}

// checkMappings checks if the mapping store is healthy
func (h *HealthChecker) checkMappings(ctx context.Context) error {
	if h.mappings == nil {
		return nil
	}
	return h.mappings.Ping(ctx)
}

// checkLocker checks if the lock backend is healthy
func (h *HealthChecker) checkLocker(ctx context.Context) error {
	if h.locker == nil {
		return nil
	}
	return h.locker.Ping(ctx)
}

// checkMetabase checks if the Metabase instance is reachable
func (h *HealthChecker) checkMetabase(ctx context.Context) error {
	if h.metabase == nil {
		return nil
	}
	return h.metabase.Ping(ctx)
}
