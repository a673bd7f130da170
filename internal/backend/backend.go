// Package backend holds the in-process instrumentation backend: the live
// counter values the registry toggles and the push workers sample.
package backend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vmelnikov/statadmin/model"
)

// Sample is one counter reading handed to a push worker.
type Sample struct {
	Name  string    `json:"name"` // dotted counter name
	Value float64   `json:"value"`
	Taken time.Time `json:"taken"`
}

type counter struct {
	enabled bool
	value   float64
}

// LiveBackend records counter values in process memory. Disabled counters
// keep their value but are excluded from snapshots.
type LiveBackend struct {
	mu       sync.RWMutex
	counters map[string]*counter
}

func NewLiveBackend() *LiveBackend {
	return &LiveBackend{
		counters: make(map[string]*counter),
	}
}

// Ensure creates the counter if absent and aligns its enabled flag with the
// registry's effective status.
func (b *LiveBackend) Ensure(name string, status model.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.counters[name]
	if !ok {
		c = &counter{}
		b.counters[name] = c
	}
	c.enabled = status == model.StatusEnabled
}

// Update sets a counter's current value. Unknown counters are ignored: the
// registry decides what exists.
func (b *LiveBackend) Update(name string, value float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.counters[name]; ok {
		c.value = value
	}
}

// Add increments a counter's current value.
func (b *LiveBackend) Add(name string, delta float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.counters[name]; ok {
		c.value += delta
	}
}

// ChangeStatus applies a batch of status toggles. Each entry is idempotent:
// moving a counter to the status it already has changes nothing.
func (b *LiveBackend) ChangeStatus(ctx context.Context, changes []model.StatusChange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range changes {
		c, ok := b.counters[ch.Name]
		if !ok {
			c = &counter{}
			b.counters[ch.Name] = c
		}
		c.enabled = ch.To == model.StatusEnabled
	}
	return nil
}

// Snapshot returns the current values of all enabled counters, sorted by
// name.
func (b *LiveBackend) Snapshot() []Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()

	now := time.Now()
	res := make([]Sample, 0, len(b.counters))
	for name, c := range b.counters {
		if !c.enabled {
			continue
		}
		res = append(res, Sample{Name: name, Value: c.value, Taken: now})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Name < res[j].Name })
	return res
}
