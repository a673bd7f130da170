// Package registry owns per-node counter metadata: the registration merge
// policy, status-aware queries and named status profiles, all persisted in
// the replicated store so a restarted process rebuilds intent from the store
// alone.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/model"
	"github.com/vmelnikov/statadmin/storage"
)

// MetricBackend is the live instrumentation backend the registry drives
// status changes into. Change batches are assumed idempotent per entry.
type MetricBackend interface {
	ChangeStatus(ctx context.Context, changes []model.StatusChange) error
}

type Registry struct {
	store   storage.Store
	backend MetricBackend
	node    string
	logger  *zap.SugaredLogger
}

func New(store storage.Store, backend MetricBackend, node string, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		store:   store,
		backend: backend,
		node:    node,
		logger:  logger,
	}
}

// Node returns the node identifier this registry persists under.
func (r *Registry) Node() string { return r.node }

// Register records counter metadata and returns the effective options.
//
// On first registration the status carried in opts (default enabled) wins.
// On re-registration the persisted status always wins over the freshly
// supplied default; the persisted option map is merged as the authoritative
// side. A tombstoned counter refuses registration with empty options: it was
// explicitly removed and must not silently reappear.
func (r *Registry) Register(ctx context.Context, name []string, typ string, opts model.Options, aliases map[string]string) (model.Options, error) {
	prefix := storage.StatsPrefix(r.node)

	raw, err := r.store.Get(ctx, prefix, name)
	switch {
	case errors.Is(err, errs.ErrTombstoned):
		return model.Options{}, fmt.Errorf("%s: %w", model.JoinName(name), errs.ErrCounterUnregistered)

	case errors.Is(err, errs.ErrNotFound):
		status := model.StatusEnabled
		if s, ok := opts.Status(); ok {
			status = s
		}
		effective := opts.Clone()
		effective[model.StatusOption] = string(status)
		if err := r.putCounter(ctx, model.Counter{
			Name:    name,
			Status:  status,
			Type:    typ,
			Options: effective,
			Aliases: aliases,
		}); err != nil {
			return nil, err
		}
		return effective, nil

	case err != nil:
		return nil, fmt.Errorf("failed to read counter %s: %w", model.JoinName(name), err)
	}

	var existing model.Counter
	if err := json.Unmarshal(raw, &existing); err != nil {
		return nil, fmt.Errorf("failed to decode counter %s: %w", model.JoinName(name), err)
	}

	if existing.Type != typ {
		return nil, fmt.Errorf("counter %s: have %s, got %s: %w",
			model.JoinName(name), existing.Type, typ, errs.ErrTypeMismatch)
	}

	status, _ := Reconcile(existing, opts)
	effective := MergeOptions(existing.Options, opts)
	effective[model.StatusOption] = string(status)

	// fresh registration is authoritative for aliases: the code knows its
	// own datapoints
	if aliases == nil {
		aliases = existing.Aliases
	}

	if err := r.putCounter(ctx, model.Counter{
		Name:    name,
		Status:  status,
		Type:    typ,
		Options: effective,
		Aliases: aliases,
	}); err != nil {
		return nil, err
	}
	return effective, nil
}

// Unregister tombstones a counter record. Subsequent registrations under the
// same name are refused until an operator re-creates the record.
func (r *Registry) Unregister(ctx context.Context, name []string) error {
	if err := r.store.Delete(ctx, storage.StatsPrefix(r.node), name); err != nil {
		return fmt.Errorf("failed to unregister counter %s: %w", model.JoinName(name), err)
	}
	return nil
}

func (r *Registry) putCounter(ctx context.Context, c model.Counter) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode counter %s: %w", model.JoinName(c.Name), err)
	}
	if err := r.store.Put(ctx, storage.StatsPrefix(r.node), c.Name, raw); err != nil {
		return fmt.Errorf("failed to persist counter %s: %w", model.JoinName(c.Name), err)
	}
	return nil
}

// getCounter reads one live counter record.
func (r *Registry) getCounter(ctx context.Context, name []string) (*model.Counter, error) {
	raw, err := r.store.Get(ctx, storage.StatsPrefix(r.node), name)
	if err != nil {
		return nil, err
	}
	var c model.Counter
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("failed to decode counter %s: %w", model.JoinName(name), err)
	}
	return &c, nil
}

// foldCounters runs fn over every live counter of this node matching pattern.
func (r *Registry) foldCounters(ctx context.Context, pattern []string, fn func(c *model.Counter) error) error {
	return r.store.Fold(ctx, storage.StatsPrefix(r.node), pattern, func(key []string, value []byte) error {
		var c model.Counter
		if err := json.Unmarshal(value, &c); err != nil {
			return fmt.Errorf("failed to decode counter %s: %w", model.JoinName(key), err)
		}
		return fn(&c)
	})
}
