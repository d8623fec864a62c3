package app

import (
	"encoding/json"
	"testing"

	"github.com/therealtin05/SmartParking/internal/domain"
)

func TestRoomExistenceInvariant(t *testing.T) {
	reg := NewRegistry()
	id := domain.ComposeRoomID("lotA", "cam1")

	if reg.Contains(id) {
		t.Fatal("room must not exist before first reference")
	}

	viewer := &fakeConn{}
	reg.AddViewer(id, viewer)
	if !reg.Contains(id) {
		t.Fatal("room must exist while it has a viewer")
	}

	reg.DropViewer(id, viewer)
	if reg.Contains(id) {
		t.Fatal("room must be removed the instant the last member departs")
	}

	host := &fakeConn{}
	reg.BindHost(id, host)
	if !reg.Contains(id) {
		t.Fatal("room must exist while it has a host")
	}
	if _, wasHost := reg.DropHost(id, host); !wasHost {
		t.Fatal("bound host must be recognized on departure")
	}
	if reg.Contains(id) {
		t.Fatal("room must be removed once hostless and viewerless")
	}
}

func TestSetOfferOnlyFromCurrentHost(t *testing.T) {
	reg := NewRegistry()
	id := domain.ComposeRoomID("lotA", "cam1")
	offer := json.RawMessage(`{"sdp":"x"}`)

	stranger := &fakeConn{}
	if _, ok := reg.SetOffer(id, stranger, offer); ok {
		t.Fatal("offer against an unknown room must be refused")
	}

	host := &fakeConn{}
	reg.BindHost(id, host)
	viewer := &fakeConn{}
	reg.AddViewer(id, viewer)

	viewers, ok := reg.SetOffer(id, host, offer)
	if !ok || len(viewers) != 1 {
		t.Fatalf("host offer must be accepted and fan out to 1 viewer, got ok=%v n=%d", ok, len(viewers))
	}
	if _, ok := reg.SetOffer(id, stranger, offer); ok {
		t.Fatal("offer from a non-host handle must be refused")
	}
}

func TestBindHostReturnsWaitingViewers(t *testing.T) {
	reg := NewRegistry()
	id := domain.ComposeRoomID("lotA", "cam1")
	offer := json.RawMessage(`{"sdp":"x"}`)

	host1 := &fakeConn{}
	reg.BindHost(id, host1)

	// No cached offer yet: nothing to replay.
	host2 := &fakeConn{}
	if cached, _ := reg.BindHost(id, host2); cached != nil {
		t.Fatal("no offer should be replayed before one was cached")
	}

	viewer := &fakeConn{}
	reg.AddViewer(id, viewer)
	if _, ok := reg.SetOffer(id, host2, offer); !ok {
		t.Fatal("current host offer must be accepted")
	}

	host3 := &fakeConn{}
	cached, waiting := reg.BindHost(id, host3)
	if string(cached) != string(offer) || len(waiting) != 1 {
		t.Fatalf("rejoining host must get cached offer and waiting viewers, got %s / %d", cached, len(waiting))
	}
}

func TestDropHostHandsBackOrphans(t *testing.T) {
	reg := NewRegistry()
	id := domain.ComposeRoomID("lotB", "cam1")

	host := &fakeConn{}
	reg.BindHost(id, host)
	v1, v2 := &fakeConn{}, &fakeConn{}
	reg.AddViewer(id, v1)
	reg.AddViewer(id, v2)

	orphans, wasHost := reg.DropHost(id, host)
	if !wasHost || len(orphans) != 2 {
		t.Fatalf("expected 2 orphaned viewers, got wasHost=%v n=%d", wasHost, len(orphans))
	}
	if reg.Contains(id) {
		t.Fatal("room must be gone after host loss cleared the viewer set")
	}
}

func TestViewerDepartureLeavesHostAlone(t *testing.T) {
	reg := NewRegistry()
	id := domain.ComposeRoomID("lotB", "cam2")

	host := &fakeConn{}
	reg.BindHost(id, host)
	viewer := &fakeConn{}
	reg.AddViewer(id, viewer)

	reg.DropViewer(id, viewer)
	if got, ok := reg.Host(id); !ok || got != host {
		t.Fatal("host must be unaffected by viewer departure")
	}
}

func TestList(t *testing.T) {
	reg := NewRegistry()
	host := &fakeConn{}
	reg.BindHost(domain.ComposeRoomID("lotA", "cam1"), host)
	reg.AddViewer(domain.ComposeRoomID("lotA", "cam2"), &fakeConn{})

	infos := reg.List()
	if len(infos) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(infos))
	}
	for _, info := range infos {
		switch info.ID {
		case "lotA__cam1":
			if !info.HostBound || info.ViewerCount != 0 {
				t.Fatalf("unexpected info for %s: %+v", info.ID, info)
			}
		case "lotA__cam2":
			if info.HostBound || info.ViewerCount != 1 {
				t.Fatalf("unexpected info for %s: %+v", info.ID, info)
			}
		default:
			t.Fatalf("unexpected room %s", info.ID)
		}
	}
}
