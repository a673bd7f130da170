// Package storage defines the contract of the replicated key-value store the
// registry and the push lifecycle manager persist their state in.
//
// The store itself is external: eventually consistent, replicated across
// cluster nodes, last-write-wins per key. Deleting a key writes a tombstone
// that stays readable as "explicitly removed", distinguishable from a key
// that never existed. Implementations in the subpackages are single-process
// stand-ins with the same observable contract.
package storage

import "context"

// Prefix namespaces keys in the store.
type Prefix struct {
	Bucket string `json:"bucket"`
	Sub    string `json:"sub"`
}

func (p Prefix) String() string { return p.Bucket + "/" + p.Sub }

// StatsPrefix holds the counter records of one node.
func StatsPrefix(node string) Prefix { return Prefix{Bucket: "stats", Sub: node} }

var (
	// ProfilesList holds profile snapshots, keyed by profile name.
	ProfilesList = Prefix{Bucket: "profiles", Sub: "list"}
	// ProfilesLoaded holds the per-node active-profile pointer.
	ProfilesLoaded = Prefix{Bucket: "profiles", Sub: "loaded"}
	// PushList holds push worker records, keyed by (protocol, instance).
	PushList = Prefix{Bucket: "push", Sub: "list"}
)

// FoldFunc receives each matching live entry of a fold. Returning an error
// aborts the fold and propagates the error to the caller.
type FoldFunc func(key []string, value []byte) error

// Store is the replicated key-value store consumed by this project.
//
// All calls may block on network or disk; callers must not assume in-memory
// latency. Fold visits live entries only, in no particular order, and is
// O(records under the prefix).
type Store interface {
	// Get returns the live value under key. Absent keys report
	// errs.ErrNotFound, deleted keys errs.ErrTombstoned.
	Get(ctx context.Context, p Prefix, key []string) ([]byte, error)

	// Put writes value under key, replacing any previous value or tombstone.
	Put(ctx context.Context, p Prefix, key []string, value []byte) error

	// Delete writes a tombstone under key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, p Prefix, key []string) error

	// Fold calls fn for every live entry whose key matches pattern
	// (model.MatchName semantics; an empty pattern matches everything).
	Fold(ctx context.Context, p Prefix, pattern []string, fn FoldFunc) error
}
