package sync

import "fmt"

// State is where the engine believes the local copy stands relative to the
// remote.
type State int

const (
	// NoSync means no remote is configured.
	NoSync State = iota

	// SyncOK means the last pull or push succeeded.
	SyncOK

	// SyncOffline means the remote could not be used and the local
	// encrypted backup is the fallback.
	SyncOffline

	// LocalOnly means the remote could not be used and there is no local
	// backup either. The plaintext is the only copy.
	LocalOnly
)

func (s State) String() string {
	switch s {
	case NoSync:
		return "no-sync"
	case SyncOK:
		return "ok"
	case SyncOffline:
		return "offline"
	case LocalOnly:
		return "local-only"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Label is the short marker shown in a menu header. NoSync has none.
func (s State) Label() string {
	switch s {
	case SyncOK:
		return "SYNC:OK"
	case SyncOffline:
		return "SYNC:OFFLINE"
	case LocalOnly:
		return "SYNC:NO-BACKUP"
	default:
		return ""
	}
}

// MarshalText renders the state by name in JSON and YAML output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
