package app

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/therealtin05/SmartParking/internal/core"
	"github.com/therealtin05/SmartParking/internal/domain"
	"github.com/therealtin05/SmartParking/internal/store"
)

// Peer is the dispatcher-side view of one connection. Room and role are
// bound exactly once by the first valid join and are immutable afterwards.
// A Peer is only ever touched from its connection's read loop, so it needs
// no locking of its own.
type Peer struct {
	Conn   core.SignalConnection
	room   domain.RoomID
	role   domain.Role
	joined bool
}

func NewPeer(conn core.SignalConnection) *Peer {
	return &Peer{Conn: conn}
}

func (p *Peer) Room() domain.RoomID { return p.room }
func (p *Peer) Role() domain.Role   { return p.role }

// envelope is the outer shape of every control message. Offer, answer and
// candidate payloads stay opaque; the relay never looks inside them.
type envelope struct {
	Type      string          `json:"type"`
	Role      string          `json:"role,omitempty"`
	RoomID    string          `json:"roomId,omitempty"`
	Offer     json.RawMessage `json:"offer,omitempty"`
	Answer    json.RawMessage `json:"answer,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Dispatcher applies one state transition per inbound message. Messages from
// a single connection arrive strictly in order (the read loop calls
// OnMessage synchronously); different connections run concurrently and meet
// only inside the Registry's critical sections.
type Dispatcher struct {
	Registry *Registry
	Store    store.RecordStore // optional; nil disables session notifications
}

func NewDispatcher(reg *Registry, st store.RecordStore) *Dispatcher {
	return &Dispatcher{Registry: reg, Store: st}
}

// OnMessage interprets one inbound control message. Malformed input is
// dropped with a debug line; the relay is permissive by design and must
// never crash on bad frames.
func (d *Dispatcher) OnMessage(p *Peer, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Debug().Err(err).Str("module", "app.dispatch").Msg("dropping malformed frame")
		return
	}

	switch env.Type {
	case "join":
		d.handleJoin(p, env)
	case "offer":
		d.handleOffer(p, env.Offer, raw)
	case "answer":
		d.relay(p, env.Answer, raw, "answer")
	case "ice":
		d.relay(p, env.Candidate, raw, "ice")
	default:
		log.Debug().Str("module", "app.dispatch").Str("type", env.Type).Msg("dropping unknown signal")
	}
}

func (d *Dispatcher) handleJoin(p *Peer, env envelope) {
	if p.joined {
		log.Debug().Str("module", "app.dispatch").Str("room", string(p.room)).Msg("dropping repeat join")
		return
	}
	role := domain.Role(env.Role)
	if env.RoomID == "" || !role.Valid() {
		log.Debug().Str("module", "app.dispatch").Str("role", env.Role).Msg("dropping join with bad fields")
		return
	}
	p.room = domain.RoomID(env.RoomID)
	p.role = role
	p.joined = true

	if role == domain.RoleHost {
		offer, waiting := d.Registry.BindHost(p.room, p.Conn)
		if offer != nil {
			// Offer cached by a prior host session: relay it so viewers that
			// joined first are unblocked until this host sends a fresh one.
			frame := offerFrame(offer)
			for _, v := range waiting {
				d.send(v, frame)
			}
		}
		d.notifySession(p.room, domain.SessionActive)
		return
	}

	if offer := d.Registry.AddViewer(p.room, p.Conn); offer != nil {
		d.send(p.Conn, offerFrame(offer))
	}
}

func (d *Dispatcher) handleOffer(p *Peer, offer json.RawMessage, raw []byte) {
	if !p.joined || offer == nil {
		log.Debug().Str("module", "app.dispatch").Msg("dropping offer without join or payload")
		return
	}
	viewers, ok := d.Registry.SetOffer(p.room, p.Conn, offer)
	if !ok {
		log.Debug().Str("module", "app.dispatch").Str("room", string(p.room)).Msg("dropping offer from non-host")
		return
	}
	for _, v := range viewers {
		d.send(v, raw)
	}
}

// relay routes answer and ice frames: host-sent frames fan out to every
// viewer, viewer-sent frames go to the host only. With no host bound there
// is nothing to deliver to; no backlog is retained.
func (d *Dispatcher) relay(p *Peer, payload json.RawMessage, raw []byte, kind string) {
	if !p.joined || payload == nil {
		log.Debug().Str("module", "app.dispatch").Str("type", kind).Msg("dropping relay without join or payload")
		return
	}
	if p.role == domain.RoleHost {
		for _, v := range d.Registry.Viewers(p.room) {
			d.send(v, raw)
		}
		return
	}
	host, ok := d.Registry.Host(p.room)
	if !ok {
		log.Debug().Str("module", "app.dispatch").Str("room", string(p.room)).Str("type", kind).Msg("dropping frame, no host bound")
		return
	}
	d.send(host, raw)
}

// OnDisconnect evicts a departed connection. A lost host takes its viewers
// down with it: a viewer without a host has nothing to display, so their
// transports are closed proactively. Cleanup is unconditionally best-effort.
func (d *Dispatcher) OnDisconnect(p *Peer) {
	if !p.joined {
		return
	}
	if p.role == domain.RoleHost {
		orphans, wasHost := d.Registry.DropHost(p.room, p.Conn)
		for _, v := range orphans {
			v.Close()
		}
		if wasHost {
			d.notifySession(p.room, domain.SessionEnded)
		}
		return
	}
	d.Registry.DropViewer(p.room, p.Conn)
}

// send is the delivery guard: at-most-once, best-effort. A failed send means
// the peer is already gone or too slow; the negotiation protocol above us
// heals via reconnection and fresh offers, not relay-level retries.
func (d *Dispatcher) send(c core.SignalConnection, f core.Frame) bool {
	if err := c.TrySend(f); err != nil {
		log.Debug().Err(err).Str("module", "app.dispatch").Msg("send suppressed")
		return false
	}
	return true
}

func offerFrame(offer json.RawMessage) core.Frame {
	b, err := json.Marshal(struct {
		Type  string          `json:"type"`
		Offer json.RawMessage `json:"offer"`
	}{Type: "offer", Offer: offer})
	if err != nil {
		// offer is already valid JSON, so this cannot fail.
		log.Error().Err(err).Str("module", "app.dispatch").Msg("offer frame marshal")
		return nil
	}
	return b
}

func (d *Dispatcher) notifySession(room domain.RoomID, status domain.SessionStatus) {
	if d.Store == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.Store.UpdateSessionStatus(ctx, room, status); err != nil {
			log.Warn().Err(err).Str("module", "app.dispatch").Str("room", string(room)).Msg("session notification failed")
		}
	}()
}
