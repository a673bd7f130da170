// Package supervisor runs push workers: one goroutine per worker, exporting
// a filtered snapshot of counter samples to a remote collector over UDP or
// TCP on a fixed interval.
package supervisor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vmelnikov/statadmin/internal/backend"
	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/model"
)

// DefaultPushInterval is used when a worker config carries no interval.
const DefaultPushInterval = 10 * time.Second

// WorkerConfig is the sanitized tuple a worker is started with.
type WorkerConfig struct {
	Port     int
	Instance string
	TargetIP string
	Filter   []string // counter-name pattern; empty exports everything
	Interval time.Duration
}

// Sample is the reading a worker exports.
type Sample = backend.Sample

// SampleSource provides the counter readings workers export.
type SampleSource interface {
	Snapshot() []Sample
}

// NetSupervisor owns the live workers of this process. Instance names are
// unique: starting a second worker under a name already in use is refused,
// which bounds the duplicate-start window of concurrent setups.
type NetSupervisor struct {
	mu      sync.Mutex
	source  SampleSource
	logger  *zap.SugaredLogger
	workers map[string]*worker
}

func New(source SampleSource, logger *zap.SugaredLogger) *NetSupervisor {
	return &NetSupervisor{
		source:  source,
		logger:  logger,
		workers: make(map[string]*worker),
	}
}

// StartWorker spawns a push worker and returns its opaque handle.
func (s *NetSupervisor) StartWorker(ctx context.Context, protocol string, cfg WorkerConfig) (string, error) {
	if !model.ValidProtocol(protocol) {
		return "", fmt.Errorf("%s: %w", protocol, errs.ErrUnsupportedProtocol)
	}
	if cfg.Instance == "" {
		return "", fmt.Errorf("instance name: %w", errs.ErrInvalidArgument)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPushInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workers[cfg.Instance]; ok {
		return "", fmt.Errorf("%s: %w", cfg.Instance, errs.ErrDuplicateInstance)
	}

	// the worker outlives the caller's request context
	wctx, cancel := context.WithCancel(context.Background())
	w := &worker{
		handle:   uuid.NewString(),
		protocol: protocol,
		cfg:      cfg,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.workers[cfg.Instance] = w

	go w.run(wctx, s.source, s.logger)

	s.logger.Infof("started %s push worker %s -> %s:%d", protocol, cfg.Instance, cfg.TargetIP, cfg.Port)
	return w.handle, nil
}

// StopWorker stops the worker registered under instance and waits for its
// goroutine to drain. An unknown instance reports errs.ErrNotFound so a
// reconciling caller can treat it as already dead.
func (s *NetSupervisor) StopWorker(ctx context.Context, instance string) error {
	s.mu.Lock()
	w, ok := s.workers[instance]
	if ok {
		delete(s.workers, instance)
	}
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("worker %s: %w", instance, errs.ErrNotFound)
	}

	w.cancel()
	select {
	case <-w.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.logger.Infof("stopped push worker %s", instance)
	return nil
}

// Running returns the instance names of all live workers, sorted.
func (s *NetSupervisor) Running(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.workers))
	for name := range s.workers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Shutdown stops every live worker.
func (s *NetSupervisor) Shutdown(ctx context.Context) {
	names, _ := s.Running(ctx)
	for _, name := range names {
		if err := s.StopWorker(ctx, name); err != nil {
			s.logger.Warnf("failed to stop worker %s: %v", name, err)
		}
	}
}
