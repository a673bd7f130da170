package model

// NoProfile is the loaded-profile pointer sentinel for "no active profile".
const NoProfile = "none"

// ProfileEntry is one (counter name, status) pair captured at save time.
type ProfileEntry struct {
	Name   string `json:"name"` // dotted counter name
	Status Status `json:"status"`
}

// Profile is a named point-in-time snapshot of every counter's status on a
// node. Saving overwrites; it never merges with a previous snapshot.
type Profile struct {
	Name    string         `json:"name"`
	Entries []ProfileEntry `json:"entries"`
}
