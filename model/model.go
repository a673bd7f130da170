// Package model contains core data types for the project.
package model

// Status is the administrative state of a counter.
type Status string

const (
	StatusEnabled      Status = "enabled"      // counter reports datapoints
	StatusDisabled     Status = "disabled"     // counter is kept but silent
	StatusUnregistered Status = "unregistered" // tombstone; registration is refused
)

// ValidStatus reports whether s is one of the three known statuses.
func ValidStatus(s Status) bool {
	return s == StatusEnabled || s == StatusDisabled || s == StatusUnregistered
}

// StatusOption is the option key under which a counter's status is mirrored
// inside its option map, for legacy option-based queries.
const StatusOption = "status"

// Options maps option names to values. Status is mirrored under StatusOption.
type Options map[string]string

// Status returns the status mirrored in the option map, or ok=false when the
// map carries no recognizable status.
func (o Options) Status() (Status, bool) {
	v, ok := o[StatusOption]
	if !ok {
		return "", false
	}
	s := Status(v)
	if !ValidStatus(s) {
		return "", false
	}
	return s, true
}

// Clone returns a copy of the option map.
func (o Options) Clone() Options {
	res := make(Options, len(o))
	for k, v := range o {
		res[k] = v
	}
	return res
}

// Counter is the persisted metadata for one named counter on one node.
type Counter struct {
	Name    []string          `json:"name"`              // hierarchical name segments
	Status  Status            `json:"status"`            // authoritative status
	Type    string            `json:"type"`              // backend-defined tag
	Options Options           `json:"options,omitempty"` // status mirrored under "status"
	Aliases map[string]string `json:"aliases,omitempty"` // datapoint name -> internal reference
}
