package model

// StatusChange asks the metric backend to move one counter between statuses.
// Applying a change whose counter is already in the target status is a no-op.
type StatusChange struct {
	Name string `json:"name"` // dotted counter name
	From Status `json:"from"`
	To   Status `json:"to"`
}
