package model

import "time"

// Accepted push protocols. Anything else is refused; "http" is refused with
// a dedicated error so operators get a better hint than "invalid".
const (
	ProtocolUDP = "udp"
	ProtocolTCP = "tcp"
)

// ValidProtocol reports whether p is one of the accepted push protocols.
func ValidProtocol(p string) bool {
	return p == ProtocolUDP || p == ProtocolTCP
}

// Push is the durable record of one export worker, keyed by
// (protocol, instance). Records are toggled, never deleted, so the store
// keeps a history of every endpoint ever configured.
type Push struct {
	Protocol   string    `json:"protocol"`
	Instance   string    `json:"instance"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
	Handle     string    `json:"handle,omitempty"` // opaque worker handle, empty when stopped
	Running    bool      `json:"running"`
	Node       string    `json:"node"` // owning node identifier
	Port       int       `json:"port"`
	TargetIP   string    `json:"target_ip"`
	Filter     []string  `json:"filter,omitempty"` // counter-name pattern exported by the worker
}
