package app

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/therealtin05/SmartParking/internal/core"
	"github.com/therealtin05/SmartParking/internal/domain"
)

// Room groups one host, its viewers and the last offer the host broadcast.
// Fields are only touched by Registry methods under the registry mutex.
type Room struct {
	host         core.SignalConnection
	viewers      map[core.SignalConnection]struct{}
	pendingOffer json.RawMessage
}

func (r *Room) empty() bool {
	return r.host == nil && len(r.viewers) == 0
}

func (r *Room) viewerSnapshot() []core.SignalConnection {
	out := make([]core.SignalConnection, 0, len(r.viewers))
	for v := range r.viewers {
		out = append(out, v)
	}
	return out
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	HostBound   bool          `json:"hostBound"`
	ViewerCount int           `json:"viewerCount"`
	HasOffer    bool          `json:"hasOffer"`
}

// Registry owns the room map. Every lookup-and-mutate sequence runs under a
// single coarse mutex; room churn is low-frequency relative to negotiation
// traffic. A room exists in the map iff it has a host or at least one viewer;
// the mutating methods below remove a room the moment both go empty.
type Registry struct {
	mu    sync.Mutex
	rooms map[domain.RoomID]*Room
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[domain.RoomID]*Room)}
}

// GetOrCreate returns the room for id, creating an empty one on first
// reference. Purely additive, no error conditions.
func (reg *Registry) GetOrCreate(id domain.RoomID) *Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.getOrCreateLocked(id)
}

func (reg *Registry) getOrCreateLocked(id domain.RoomID) *Room {
	room, ok := reg.rooms[id]
	if !ok {
		room = &Room{viewers: make(map[core.SignalConnection]struct{})}
		reg.rooms[id] = room
		log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room created")
	}
	return room
}

// Remove unconditionally drops the room. The caller is responsible for the
// emptiness invariant; removing a non-empty room is a programming error.
func (reg *Registry) Remove(id domain.RoomID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, id)
	log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room removed")
}

func (reg *Registry) removeIfEmptyLocked(id domain.RoomID, room *Room) {
	if room.empty() {
		delete(reg.rooms, id)
		log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("room removed")
	}
}

// BindHost assigns conn as the room's host, displacing any previous handle.
// When an offer from a prior host session is still cached it is returned
// together with the current viewers so the dispatcher can relay it and keep
// already-waiting viewers unblocked until the new host sends a fresh one.
func (reg *Registry) BindHost(id domain.RoomID, conn core.SignalConnection) (json.RawMessage, []core.SignalConnection) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room := reg.getOrCreateLocked(id)
	room.host = conn
	log.Info().Str("module", "app.registry").Str("room", string(id)).Msg("host joined")
	if room.pendingOffer == nil || len(room.viewers) == 0 {
		return nil, nil
	}
	return room.pendingOffer, room.viewerSnapshot()
}

// AddViewer inserts conn into the room's viewer set and returns the cached
// offer, if any, so the dispatcher can deliver it to this viewer alone.
func (reg *Registry) AddViewer(id domain.RoomID, conn core.SignalConnection) json.RawMessage {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room := reg.getOrCreateLocked(id)
	room.viewers[conn] = struct{}{}
	log.Info().Str("module", "app.registry").Str("room", string(id)).Int("viewers", len(room.viewers)).Msg("viewer joined")
	return room.pendingOffer
}

// SetOffer caches offer verbatim as the room's pendingOffer and returns the
// current viewers to broadcast to. The write is refused unless sender is the
// room's current host handle; a displaced host's offers are not its own
// negotiation state anymore.
func (reg *Registry) SetOffer(id domain.RoomID, sender core.SignalConnection, offer json.RawMessage) ([]core.SignalConnection, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok || room.host != sender {
		return nil, false
	}
	room.pendingOffer = offer
	return room.viewerSnapshot(), true
}

// Viewers returns the room's current viewer connections.
func (reg *Registry) Viewers(id domain.RoomID) []core.SignalConnection {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok {
		return nil
	}
	return room.viewerSnapshot()
}

// Host returns the room's host connection, if one is currently bound.
func (reg *Registry) Host(id domain.RoomID) (core.SignalConnection, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok || room.host == nil {
		return nil, false
	}
	return room.host, true
}

// DropHost evicts a departing host connection. When conn is still the bound
// host it clears the host reference and hands back the viewer set, emptied,
// for the caller to close. A displaced handle falls through to plain viewer
// removal. Either way the room is removed once hostless and viewerless.
func (reg *Registry) DropHost(id domain.RoomID, conn core.SignalConnection) ([]core.SignalConnection, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok {
		return nil, false
	}
	if room.host != conn {
		delete(room.viewers, conn)
		reg.removeIfEmptyLocked(id, room)
		return nil, false
	}
	room.host = nil
	orphans := room.viewerSnapshot()
	clear(room.viewers)
	reg.removeIfEmptyLocked(id, room)
	log.Info().Str("module", "app.registry").Str("room", string(id)).Int("orphans", len(orphans)).Msg("host left")
	return orphans, true
}

// DropViewer removes conn from the room's viewer set; host unaffected.
func (reg *Registry) DropViewer(id domain.RoomID, conn core.SignalConnection) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room, ok := reg.rooms[id]
	if !ok {
		return
	}
	delete(room.viewers, conn)
	log.Info().Str("module", "app.registry").Str("room", string(id)).Int("viewers", len(room.viewers)).Msg("viewer left")
	reg.removeIfEmptyLocked(id, room)
}

// Contains reports whether a room currently exists in the registry.
func (reg *Registry) Contains(id domain.RoomID) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	_, ok := reg.rooms[id]
	return ok
}

func (reg *Registry) List() []RoomInfo {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	out := make([]RoomInfo, 0, len(reg.rooms))
	for id, room := range reg.rooms {
		out = append(out, RoomInfo{
			ID:          id,
			HostBound:   room.host != nil,
			ViewerCount: len(room.viewers),
			HasOffer:    room.pendingOffer != nil,
		})
	}
	return out
}
