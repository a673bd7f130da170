package model

import "strings"

// Wildcard segments accepted in name patterns.
const (
	WildcardSegment = "*"  // matches exactly one segment
	WildcardTail    = "**" // matches any remainder, valid only as the last segment
)

// JoinName renders name segments as a dotted string.
func JoinName(name []string) string {
	return strings.Join(name, ".")
}

// SplitName parses a dotted string into name segments.
func SplitName(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}

// MatchName reports whether name matches pattern segment by segment.
// A "*" segment matches any single segment; a trailing "**" matches zero or
// more remaining segments. An empty pattern matches everything.
func MatchName(pattern, name []string) bool {
	if len(pattern) == 0 {
		return true
	}
	for i, p := range pattern {
		if p == WildcardTail && i == len(pattern)-1 {
			return true
		}
		if i >= len(name) {
			return false
		}
		if p != WildcardSegment && p != name[i] {
			return false
		}
	}
	return len(pattern) == len(name)
}
