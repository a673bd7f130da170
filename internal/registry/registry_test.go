package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/model"
	"github.com/vmelnikov/statadmin/storage/inmemory"
)

// fakeBackend records every batch handed to ChangeStatus.
type fakeBackend struct {
	batches [][]model.StatusChange
}

func (f *fakeBackend) ChangeStatus(ctx context.Context, changes []model.StatusChange) error {
	f.batches = append(f.batches, changes)
	return nil
}

func (f *fakeBackend) calls() int {
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func newTestRegistry(t *testing.T) (*Registry, *fakeBackend) {
	t.Helper()
	back := &fakeBackend{}
	store := inmemory.NewMemStore(context.Background())
	return New(store, back, "node1", zap.NewNop().Sugar()), back
}

func TestRegister_FreshDefaultsEnabled(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	effective, err := reg.Register(ctx, []string{"a", "b"}, "counter", model.Options{}, nil)
	require.NoError(t, err)
	require.Equal(t, "enabled", effective[model.StatusOption])

	c, err := reg.getCounter(ctx, []string{"a", "b"})
	require.NoError(t, err)
	require.Equal(t, model.StatusEnabled, c.Status)
}

func TestRegister_FreshExplicitDisabled(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()

	effective, err := reg.Register(ctx, []string{"a", "b", "c"}, "counter",
		model.Options{model.StatusOption: "disabled"}, nil)
	require.NoError(t, err)
	require.Equal(t, "disabled", effective[model.StatusOption])
}

// Re-registering with a fresh enabled default must not flip a persisted
// disable: the operator's intent survives restarts.
func TestRegister_StickyStatus(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	name := []string{"a", "b", "c"}

	_, err := reg.Register(ctx, name, "counter", model.Options{model.StatusOption: "disabled"}, nil)
	require.NoError(t, err)

	// boot-time re-registration with the code default
	effective, err := reg.Register(ctx, name, "counter", model.Options{model.StatusOption: "enabled"}, nil)
	require.NoError(t, err)
	require.Equal(t, "disabled", effective[model.StatusOption])

	c, err := reg.getCounter(ctx, name)
	require.NoError(t, err)
	require.Equal(t, model.StatusDisabled, c.Status)
}

func TestRegister_MergeKeepsUnconflictedOptions(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	name := []string{"a", "b"}

	_, err := reg.Register(ctx, name, "gauge", model.Options{"cache": "off"}, nil)
	require.NoError(t, err)

	effective, err := reg.Register(ctx, name, "gauge", model.Options{"cache": "on", "window": "60"}, nil)
	require.NoError(t, err)

	// persisted wins the conflict, the new key survives the merge
	require.Equal(t, "off", effective["cache"])
	require.Equal(t, "60", effective["window"])
}

func TestRegister_TombstoneRefusal(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	name := []string{"a", "b"}

	_, err := reg.Register(ctx, name, "counter", model.Options{}, nil)
	require.NoError(t, err)
	require.NoError(t, reg.Unregister(ctx, name))

	effective, err := reg.Register(ctx, name, "counter", model.Options{}, nil)
	require.ErrorIs(t, err, errs.ErrCounterUnregistered)
	require.Empty(t, effective)

	// no live record resurrected
	_, err = reg.getCounter(ctx, name)
	require.ErrorIs(t, err, errs.ErrTombstoned)
}

func TestRegister_TypeMismatch(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	name := []string{"a", "b"}

	_, err := reg.Register(ctx, name, "counter", model.Options{}, nil)
	require.NoError(t, err)

	_, err = reg.Register(ctx, name, "gauge", model.Options{}, nil)
	require.ErrorIs(t, err, errs.ErrTypeMismatch)

	// no mutation
	c, err := reg.getCounter(ctx, name)
	require.NoError(t, err)
	require.Equal(t, "counter", c.Type)
}

func seedQueryCounters(t *testing.T, reg *Registry) {
	t.Helper()
	ctx := context.Background()

	_, err := reg.Register(ctx, []string{"a", "b", "one"}, "counter",
		model.Options{}, map[string]string{"value": "a_b_one_value"})
	require.NoError(t, err)

	_, err = reg.Register(ctx, []string{"a", "b", "two"}, "gauge",
		model.Options{model.StatusOption: "disabled"}, map[string]string{"mean": "a_b_two_mean"})
	require.NoError(t, err)

	_, err = reg.Register(ctx, []string{"a", "c", "three"}, "counter", model.Options{}, nil)
	require.NoError(t, err)
}

func TestQuery_ShapeByFilter(t *testing.T) {
	reg, _ := newTestRegistry(t)
	seedQueryCounters(t, reg)
	ctx := context.Background()

	t.Run("status_only_two_fields", func(t *testing.T) {
		matches, err := reg.Query(ctx, Filter{
			Pattern: model.SplitName("a.b.**"),
			Status:  model.StatusEnabled,
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, "a.b.one", matches[0].Name)
		require.Equal(t, model.StatusEnabled, matches[0].Status)
		require.Empty(t, matches[0].Type)
		require.Empty(t, matches[0].Datapoints)
	})

	t.Run("status_and_type_three_fields", func(t *testing.T) {
		matches, err := reg.Query(ctx, Filter{
			Pattern: model.SplitName("a.**"),
			Status:  StatusWildcard,
			Type:    "counter",
		})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		for _, m := range matches {
			require.Equal(t, "counter", m.Type)
			require.Empty(t, m.Datapoints)
		}
	})

	t.Run("datapoints_include_type_and_aliases", func(t *testing.T) {
		matches, err := reg.Query(ctx, Filter{
			Pattern:    model.SplitName("a.b.**"),
			Status:     StatusWildcard,
			Datapoints: []string{"mean"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, "a.b.two", matches[0].Name)
		require.Equal(t, "gauge", matches[0].Type)
		require.Equal(t, []string{"a_b_two_mean"}, matches[0].Datapoints)
	})

	t.Run("datapoints_exclude_unresolved", func(t *testing.T) {
		matches, err := reg.Query(ctx, Filter{
			Pattern:    model.SplitName("a.**"),
			Status:     StatusWildcard,
			Datapoints: []string{"p99"},
		})
		require.NoError(t, err)
		require.Empty(t, matches)
	})

	t.Run("datapoints_and_type", func(t *testing.T) {
		matches, err := reg.Query(ctx, Filter{
			Pattern:    model.SplitName("a.**"),
			Status:     StatusWildcard,
			Type:       "counter",
			Datapoints: []string{"value"},
		})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		require.Equal(t, "a.b.one", matches[0].Name)
	})

	t.Run("wildcard_type_underscore", func(t *testing.T) {
		matches, err := reg.Query(ctx, Filter{
			Pattern: model.SplitName("a.**"),
			Status:  StatusWildcard,
			Type:    "_",
		})
		require.NoError(t, err)
		require.Len(t, matches, 3)
	})
}
