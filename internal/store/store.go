// Package store persists session and detection records. The relay treats it
// as fire-and-forget; a store failure must never affect signaling state.
package store

import (
	"context"

	"github.com/therealtin05/SmartParking/internal/domain"
)

type RecordStore interface {
	// CreateSession registers a camera session for an owner.
	CreateSession(ctx context.Context, owner string, room domain.RoomID) (*domain.SessionRecord, error)
	// UpdateSessionStatus updates the session bound to room, if any.
	UpdateSessionStatus(ctx context.Context, room domain.RoomID, status domain.SessionStatus) error
	ListSessionsByOwner(ctx context.Context, owner string) ([]domain.SessionRecord, error)

	SaveDetection(ctx context.Context, rec *domain.DetectionRecord) error
	ListDetections(ctx context.Context, limit int64) ([]domain.DetectionRecord, error)
}
