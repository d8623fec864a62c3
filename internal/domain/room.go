// Package domain contains entity without logic, just meta-data
package domain

// RoomID identifies one negotiation session. It is a composite of two
// caller-chosen identifiers, e.g. "lotA__cam1".
type RoomID string

const roomIDSep = "__"

// ComposeRoomID joins a parking-lot id and a camera id deterministically.
func ComposeRoomID(lotID, cameraID string) RoomID {
	return RoomID(lotID + roomIDSep + cameraID)
}

// Role of a connection inside a room, assigned exactly once at join time.
type Role string

const (
	RoleHost   Role = "host"
	RoleViewer Role = "viewer"
)

func (r Role) Valid() bool {
	return r == RoleHost || r == RoleViewer
}
