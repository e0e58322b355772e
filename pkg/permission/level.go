package permission

import "strings"

// Level represents a permission level on a catalog resource. Lower values
// grant more access: Owner < ReadWrite < ReadOnly < None.
type Level int

const (
	Owner Level = iota + 1
	ReadWrite
	ReadOnly
	None
)

// Parse maps a stored permission string to a Level. Empty and unrecognized
// strings map to None, which is the implicit default for any principal
// without a grant.
func Parse(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "owner":
		return Owner
	case "read-write":
		return ReadWrite
	case "read-only":
		return ReadOnly
	default:
		return None
	}
}

// String returns the stored string form of the level.
func (l Level) String() string {
	switch l {
	case Owner:
		return "owner"
	case ReadWrite:
		return "read-write"
	case ReadOnly:
		return "read-only"
	case None:
		return "none"
	default:
		return "none"
	}
}

// Valid reports whether l is one of the four defined levels.
func (l Level) Valid() bool {
	return l >= Owner && l <= None
}

// BetterOrEqual reports whether l grants at least as much access as other.
func (l Level) BetterOrEqual(other Level) bool {
	return l <= other
}

// WorseOrEqual reports whether l grants at most as much access as other.
func (l Level) WorseOrEqual(other Level) bool {
	return l >= other
}

// Min returns the most permissive of a and b.
func Min(a, b Level) Level {
	if a <= b {
		return a
	}
	return b
}

// Max returns the least permissive of a and b.
func Max(a, b Level) Level {
	if a >= b {
		return a
	}
	return b
}
