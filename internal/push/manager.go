// Package push owns the durable lifecycle of export workers: idempotent
// setup, batched setdown, cluster-wide introspection and the startup
// reconciliation of stale records.
//
// Push records are toggled between running and stopped but never deleted,
// keeping an audit trail of every export endpoint ever configured.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/internal/supervisor"
	"github.com/vmelnikov/statadmin/model"
	"github.com/vmelnikov/statadmin/storage"
)

// Supervisor is the external process supervisor workers are delegated to.
// Its duplicate-instance rejection is the second line of defense behind the
// store records.
type Supervisor interface {
	StartWorker(ctx context.Context, protocol string, cfg supervisor.WorkerConfig) (string, error)
	StopWorker(ctx context.Context, instance string) error
	Running(ctx context.Context) ([]string, error)
}

type Manager struct {
	store  storage.Store
	sup    Supervisor
	node   string
	logger *zap.SugaredLogger
}

func NewManager(store storage.Store, sup Supervisor, node string, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		store:  store,
		sup:    sup,
		node:   node,
		logger: logger,
	}
}

// Setup parses the argument blob and stands up a push worker for
// (protocol, instance). A record already running reports
// errs.ErrAlreadyRunning and starts nothing; a stopped record is restarted
// in place, preserving its creation time.
func (m *Manager) Setup(ctx context.Context, rawArgs string) (model.Push, error) {
	args, err := ParseSetupArgs(rawArgs)
	if err != nil {
		return model.Push{}, err
	}

	existing, err := m.getRecord(ctx, args.Protocol, args.Instance)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Push{}, err
	}

	if existing != nil && existing.Running {
		return *existing, fmt.Errorf("%s %s: %w", args.Protocol, args.Instance, errs.ErrAlreadyRunning)
	}

	handle, err := m.sup.StartWorker(ctx, args.Protocol, supervisor.WorkerConfig{
		Port:     args.Port,
		Instance: args.Instance,
		TargetIP: args.TargetIP,
		Filter:   args.Filter,
	})
	if err != nil {
		return model.Push{}, fmt.Errorf("failed to start worker %s: %w", args.Instance, err)
	}

	now := time.Now().UTC()
	record := model.Push{
		Protocol:   args.Protocol,
		Instance:   args.Instance,
		CreatedAt:  now,
		ModifiedAt: now,
		Handle:     handle,
		Running:    true,
		Node:       m.node,
		Port:       args.Port,
		TargetIP:   args.TargetIP,
		Filter:     args.Filter,
	}
	if existing != nil {
		record.CreatedAt = existing.CreatedAt
	}

	if err := m.putRecord(ctx, record); err != nil {
		return model.Push{}, err
	}
	m.logger.Infof("push setup: %s %s -> %s:%d", record.Protocol, record.Instance, record.TargetIP, record.Port)
	return record, nil
}

// Setdown stops every matching running worker and persists the stopped
// state. Records already stopped are skipped per matched record; stopping a
// stopped worker is not an error. Returns the number of workers stopped.
func (m *Manager) Setdown(ctx context.Context, rawArgs string) (int, error) {
	args, err := ParseMatchArgs(rawArgs)
	if err != nil {
		return 0, err
	}

	matched, err := m.foldRecords(ctx, func(p *model.Push) bool { return args.Matches(p) })
	if err != nil {
		return 0, err
	}

	stopped := 0
	for _, record := range matched {
		if !record.Running {
			continue
		}
		if err := m.sup.StopWorker(ctx, record.Instance); err != nil {
			// a dead worker is the state we want anyway; the record is
			// still corrected
			m.logger.Warnf("push setdown: stop %s: %v", record.Instance, err)
		}
		record.Running = false
		record.Handle = ""
		record.ModifiedAt = time.Now().UTC()
		if err := m.putRecord(ctx, record); err != nil {
			return stopped, err
		}
		stopped++
	}
	m.logger.Infof("push setdown: %d workers stopped", stopped)
	return stopped, nil
}

// FindPushStats returns the push records matching the argument blob across
// the given node set. A node set containing "*" (or an empty set) selects
// all nodes. Unparseable or empty arguments report errs.ErrInvalidArgument,
// distinct from a valid query with no matches, which returns an empty slice.
func (m *Manager) FindPushStats(ctx context.Context, nodes []string, rawArgs string) ([]model.Push, error) {
	args, err := ParseMatchArgs(rawArgs)
	if err != nil {
		return nil, err
	}

	wantNode := make(map[string]bool, len(nodes))
	all := len(nodes) == 0
	for _, n := range nodes {
		if n == Wildcard {
			all = true
		}
		wantNode[n] = true
	}

	return m.foldRecords(ctx, func(p *model.Push) bool {
		if !all && !wantNode[p.Node] {
			return false
		}
		return args.Matches(p)
	})
}

// ReconcileRunning corrects records claiming running=true on this node whose
// instance the supervisor does not actually know. A worker handle does not
// survive a crash; the store record does, and after a restart the two must
// be brought back into agreement. Returns the number of corrected records.
func (m *Manager) ReconcileRunning(ctx context.Context) (int, error) {
	live, err := m.sup.Running(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list live workers: %w", err)
	}
	alive := make(map[string]bool, len(live))
	for _, name := range live {
		alive[name] = true
	}

	stale, err := m.foldRecords(ctx, func(p *model.Push) bool {
		return p.Running && p.Node == m.node && !alive[p.Instance]
	})
	if err != nil {
		return 0, err
	}

	for i := range stale {
		stale[i].Running = false
		stale[i].Handle = ""
		stale[i].ModifiedAt = time.Now().UTC()
		if err := m.putRecord(ctx, stale[i]); err != nil {
			return i, err
		}
		m.logger.Warnf("push reconcile: %s %s claimed running with no live worker",
			stale[i].Protocol, stale[i].Instance)
	}
	return len(stale), nil
}

func (m *Manager) getRecord(ctx context.Context, protocol, instance string) (*model.Push, error) {
	raw, err := m.store.Get(ctx, storage.PushList, []string{protocol, instance})
	if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrTombstoned) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read push record %s/%s: %w", protocol, instance, err)
	}
	var p model.Push
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to decode push record %s/%s: %w", protocol, instance, err)
	}
	return &p, nil
}

func (m *Manager) putRecord(ctx context.Context, p model.Push) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode push record %s/%s: %w", p.Protocol, p.Instance, err)
	}
	if err := m.store.Put(ctx, storage.PushList, []string{p.Protocol, p.Instance}, raw); err != nil {
		return fmt.Errorf("failed to persist push record %s/%s: %w", p.Protocol, p.Instance, err)
	}
	return nil
}

// foldRecords collects matching push records sorted by (protocol, instance).
func (m *Manager) foldRecords(ctx context.Context, keep func(p *model.Push) bool) ([]model.Push, error) {
	var res []model.Push
	err := m.store.Fold(ctx, storage.PushList, nil, func(key []string, value []byte) error {
		var p model.Push
		if err := json.Unmarshal(value, &p); err != nil {
			return fmt.Errorf("failed to decode push record %s: %w", model.JoinName(key), err)
		}
		if keep(&p) {
			res = append(res, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Protocol != res[j].Protocol {
			return res[i].Protocol < res[j].Protocol
		}
		return res[i].Instance < res[j].Instance
	})
	return res, nil
}
