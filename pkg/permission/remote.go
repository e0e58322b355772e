package permission

import "strings"

// Remote is the access vocabulary of the external file-authorization
// system. It has no owner concept and is only used at the propagation
// boundary; access decisions never consult it.
type Remote string

const (
	RemoteReadWrite Remote = "READ_WRITE"
	RemoteRead      Remote = "READ"
	RemoteNone      Remote = "NONE"
)

// ParseRemote maps a permission string reported by the external system to
// a Remote. Unrecognized values map to RemoteNone.
func ParseRemote(s string) Remote {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "READ_WRITE":
		return RemoteReadWrite
	case "READ":
		return RemoteRead
	default:
		return RemoteNone
	}
}

// Remote translates l to the external vocabulary. The external system has
// no notion of ownership, so Owner degrades to READ_WRITE.
func (l Level) Remote() Remote {
	switch l {
	case Owner, ReadWrite:
		return RemoteReadWrite
	case ReadOnly:
		return RemoteRead
	default:
		return RemoteNone
	}
}

// rank orders the remote vocabulary: READ_WRITE > READ > NONE.
func (r Remote) rank() int {
	switch r {
	case RemoteReadWrite:
		return 2
	case RemoteRead:
		return 1
	default:
		return 0
	}
}

// Expands reports whether granting r would strictly expand access over
// current. Propagation is monotonic: only expanding updates are pushed,
// narrowing goes through the explicit revoke path.
func (r Remote) Expands(current Remote) bool {
	return r.rank() > current.rank()
}
