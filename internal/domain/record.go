package domain

import "time"

type SessionStatus string

const (
	SessionCreated SessionStatus = "created"
	SessionActive  SessionStatus = "active"
	SessionEnded   SessionStatus = "ended"
)

// SessionRecord is the durable trace of one camera session. The relay only
// fires status notifications; the record itself belongs to the store.
type SessionRecord struct {
	ID        string        `json:"id"`
	Owner     string        `json:"owner"`
	Room      RoomID        `json:"room"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Plate is a single recognized license plate as reported by the worker.
type Plate struct {
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box,omitempty"`
}

// DetectionRecord is one persisted analysis outcome.
type DetectionRecord struct {
	ID         string    `json:"id"`
	Plates     []Plate   `json:"plates"`
	DetectedAt time.Time `json:"detectedAt"`
}
