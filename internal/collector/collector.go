// Package collector maintains the built-in node counters: it registers them
// through the registry at startup and feeds fresh readings into the live
// backend on a poll interval.
package collector

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/vmelnikov/statadmin/internal/backend"
	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/internal/registry"
	"github.com/vmelnikov/statadmin/model"
)

type counterDef struct {
	name    []string
	typ     string
	aliases map[string]string
}

// builtin node counters. Registration defaults say enabled, but a persisted
// disable always wins the merge, so operator intent survives restarts.
var builtin = []counterDef{
	{name: []string{"node", "mem", "alloc"}, typ: "gauge", aliases: map[string]string{"value": "node_mem_alloc"}},
	{name: []string{"node", "mem", "heap_inuse"}, typ: "gauge", aliases: map[string]string{"value": "node_mem_heap_inuse"}},
	{name: []string{"node", "gc", "num_gc"}, typ: "counter", aliases: map[string]string{"value": "node_gc_num_gc"}},
	{name: []string{"node", "cpu", "percent"}, typ: "gauge", aliases: map[string]string{"value": "node_cpu_percent"}},
	{name: []string{"node", "vmem", "used_percent"}, typ: "gauge", aliases: map[string]string{"value": "node_vmem_used_percent"}},
	{name: []string{"node", "poll", "count"}, typ: "counter", aliases: map[string]string{"value": "node_poll_count"}},
}

type Collector struct {
	registry *registry.Registry
	backend  *backend.LiveBackend
	logger   *zap.SugaredLogger
	interval time.Duration
}

func New(reg *registry.Registry, back *backend.LiveBackend, logger *zap.SugaredLogger, interval time.Duration) *Collector {
	return &Collector{
		registry: reg,
		backend:  back,
		logger:   logger,
		interval: interval,
	}
}

// RegisterCounters registers every builtin counter and mirrors the effective
// status into the backend. A tombstoned counter stays gone: the refusal is
// logged and the counter is simply not collected.
func (c *Collector) RegisterCounters(ctx context.Context) error {
	for _, def := range builtin {
		opts := model.Options{model.StatusOption: string(model.StatusEnabled)}
		effective, err := c.registry.Register(ctx, def.name, def.typ, opts, def.aliases)
		if errors.Is(err, errs.ErrCounterUnregistered) {
			c.logger.Infof("counter %s is unregistered, skipping", model.JoinName(def.name))
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to register %s: %w", model.JoinName(def.name), err)
		}

		status := model.StatusEnabled
		if s, ok := effective.Status(); ok {
			status = s
		}
		c.backend.Ensure(model.JoinName(def.name), status)
	}
	return nil
}

// Run polls the sources until the context is done.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.collect(ctx)
		}
	}
}

func (c *Collector) collect(ctx context.Context) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	c.backend.Update("node.mem.alloc", float64(ms.Alloc))
	c.backend.Update("node.mem.heap_inuse", float64(ms.HeapInuse))
	c.backend.Update("node.gc.num_gc", float64(ms.NumGC))
	c.backend.Add("node.poll.count", 1)

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		c.backend.Update("node.cpu.percent", percents[0])
	} else if err != nil {
		c.logger.Warnf("failed to read cpu percent: %v", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		c.backend.Update("node.vmem.used_percent", vm.UsedPercent)
	} else {
		c.logger.Warnf("failed to read virtual memory: %v", err)
	}
}
