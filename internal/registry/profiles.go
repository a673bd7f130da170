package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/vmelnikov/statadmin/internal/errs"
	"github.com/vmelnikov/statadmin/model"
	"github.com/vmelnikov/statadmin/storage"
)

// SaveProfile snapshots every counter's (name, status) on this node into a
// named profile, overwriting any previous profile of that name.
func (r *Registry) SaveProfile(ctx context.Context, name string) error {
	if name == "" || name == model.NoProfile {
		return fmt.Errorf("profile name %q: %w", name, errs.ErrInvalidArgument)
	}

	var entries []model.ProfileEntry
	err := r.foldCounters(ctx, nil, func(c *model.Counter) error {
		entries = append(entries, model.ProfileEntry{
			Name:   model.JoinName(c.Name),
			Status: c.Status,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to snapshot counters: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	raw, err := json.Marshal(model.Profile{Name: name, Entries: entries})
	if err != nil {
		return fmt.Errorf("failed to encode profile %s: %w", name, err)
	}
	if err := r.store.Put(ctx, storage.ProfilesList, []string{name}, raw); err != nil {
		return fmt.Errorf("failed to persist profile %s: %w", name, err)
	}
	return nil
}

// LoadProfile applies a saved profile: only counters whose profile-specified
// status disagrees with their current status are changed, in one batch, then
// the loaded-profile pointer is set.
func (r *Registry) LoadProfile(ctx context.Context, name string) error {
	raw, err := r.store.Get(ctx, storage.ProfilesList, []string{name})
	if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrTombstoned) {
		return fmt.Errorf("%s: %w", name, errs.ErrProfileNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read profile %s: %w", name, err)
	}

	var profile model.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return fmt.Errorf("failed to decode profile %s: %w", name, err)
	}

	current := make(model.Options)
	err = r.foldCounters(ctx, nil, func(c *model.Counter) error {
		current[model.JoinName(c.Name)] = string(c.Status)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to read current statuses: %w", err)
	}

	// profile is the alpha side: only disagreements are applied
	profiled := make(model.Options, len(profile.Entries))
	for _, e := range profile.Entries {
		profiled[e.Name] = string(e.Status)
	}
	delta := DeltaOptions(profiled, current)

	changes := make([]model.StatusChange, 0, len(delta))
	for _, e := range profile.Entries {
		if _, ok := delta[e.Name]; !ok {
			continue
		}
		changes = append(changes, model.StatusChange{
			Name: e.Name,
			From: model.Status(current[e.Name]),
			To:   e.Status,
		})
	}

	if err := r.applyChanges(ctx, changes); err != nil {
		return fmt.Errorf("failed to apply profile %s: %w", name, err)
	}
	if err := r.setLoadedProfile(ctx, name); err != nil {
		return err
	}
	r.logger.Infof("loaded profile %s: %d counters changed", name, len(changes))
	return nil
}

// DeleteProfile tombstones a profile. When the deleted profile is the active
// one, the loaded-profile pointer is reset to "none".
func (r *Registry) DeleteProfile(ctx context.Context, name string) error {
	if err := r.store.Delete(ctx, storage.ProfilesList, []string{name}); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", name, err)
	}

	loaded, err := r.LoadedProfile(ctx)
	if err != nil {
		return err
	}
	if loaded == name {
		return r.setLoadedProfile(ctx, model.NoProfile)
	}
	return nil
}

// ResetProfile clears the loaded-profile pointer and re-enables every
// currently disabled counter. The disabled set is read before the pointer is
// cleared; the clear write's own result is never reused as the disabled set.
func (r *Registry) ResetProfile(ctx context.Context) error {
	disabled, err := r.Query(ctx, Filter{Status: model.StatusDisabled})
	if err != nil {
		return fmt.Errorf("failed to read disabled counters: %w", err)
	}

	if err := r.setLoadedProfile(ctx, model.NoProfile); err != nil {
		return err
	}

	changes := make([]model.StatusChange, 0, len(disabled))
	for _, m := range disabled {
		changes = append(changes, model.StatusChange{
			Name: m.Name,
			From: model.StatusDisabled,
			To:   model.StatusEnabled,
		})
	}
	if err := r.applyChanges(ctx, changes); err != nil {
		return fmt.Errorf("failed to re-enable counters: %w", err)
	}
	r.logger.Infof("profile reset: %d counters re-enabled", len(changes))
	return nil
}

// LoadedProfile returns the name of the profile active on this node, or
// model.NoProfile.
func (r *Registry) LoadedProfile(ctx context.Context) (string, error) {
	raw, err := r.store.Get(ctx, storage.ProfilesLoaded, []string{r.node})
	if errors.Is(err, errs.ErrNotFound) || errors.Is(err, errs.ErrTombstoned) {
		return model.NoProfile, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read loaded profile: %w", err)
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", fmt.Errorf("failed to decode loaded profile: %w", err)
	}
	return name, nil
}

func (r *Registry) setLoadedProfile(ctx context.Context, name string) error {
	raw, err := json.Marshal(name)
	if err != nil {
		return fmt.Errorf("failed to encode loaded profile: %w", err)
	}
	if err := r.store.Put(ctx, storage.ProfilesLoaded, []string{r.node}, raw); err != nil {
		return fmt.Errorf("failed to persist loaded profile: %w", err)
	}
	return nil
}

// applyChanges pushes one batched status change into the backend, then folds
// the new statuses back into the store records.
func (r *Registry) applyChanges(ctx context.Context, changes []model.StatusChange) error {
	if len(changes) == 0 {
		return nil
	}
	if err := r.backend.ChangeStatus(ctx, changes); err != nil {
		return fmt.Errorf("backend status change: %w", err)
	}

	for _, ch := range changes {
		name := model.SplitName(ch.Name)
		c, err := r.getCounter(ctx, name)
		if err != nil {
			r.logger.Warnf("status change for unknown counter %s: %v", ch.Name, err)
			continue
		}
		c.Status = ch.To
		if c.Options == nil {
			c.Options = make(model.Options)
		}
		c.Options[model.StatusOption] = string(ch.To)
		if err := r.putCounter(ctx, *c); err != nil {
			return err
		}
	}
	return nil
}
