package gateway

import (
	"sort"
	"testing"
)

func TestRegistryRoomBinding(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.RoomFor("c1"); ok {
		t.Error("unknown connection reported a room")
	}

	r.BindRoom("c1", "R1")
	r.BindRoom("c2", "R1")

	if room, ok := r.RoomFor("c1"); !ok || room != "R1" {
		t.Errorf("RoomFor(c1) = %q, %v", room, ok)
	}

	conns := r.ConnsInRoom("R1")
	sort.Strings(conns)
	if len(conns) != 2 || conns[0] != "c1" || conns[1] != "c2" {
		t.Errorf("ConnsInRoom = %v", conns)
	}

	r.UnbindRoom("c1")
	if _, ok := r.RoomFor("c1"); ok {
		t.Error("unbound connection still mapped")
	}
	if conns := r.ConnsInRoom("R1"); len(conns) != 1 || conns[0] != "c2" {
		t.Errorf("ConnsInRoom after unbind = %v", conns)
	}
}

func TestRegistryRebindMovesRooms(t *testing.T) {
	r := NewRegistry()

	r.BindRoom("c1", "R1")
	r.BindRoom("c1", "R2")

	if room, _ := r.RoomFor("c1"); room != "R2" {
		t.Errorf("RoomFor = %q, want R2", room)
	}
	if conns := r.ConnsInRoom("R1"); len(conns) != 0 {
		t.Errorf("stale membership in R1: %v", conns)
	}
	if conns := r.ConnsInRoom("R2"); len(conns) != 1 {
		t.Errorf("ConnsInRoom(R2) = %v", conns)
	}
}

func TestRegistryIdentify(t *testing.T) {
	r := NewRegistry()

	r.Identify("anna", "c1")
	if conn, ok := r.ConnForName("anna"); !ok || conn != "c1" {
		t.Errorf("ConnForName = %q, %v", conn, ok)
	}

	// Reconnecting under the same name moves the binding.
	r.Identify("anna", "c2")
	if conn, _ := r.ConnForName("anna"); conn != "c2" {
		t.Errorf("ConnForName after re-identify = %q, want c2", conn)
	}

	// A connection renaming itself drops the old name.
	r.Identify("anneta", "c2")
	if _, ok := r.ConnForName("anna"); ok {
		t.Error("old name still resolves after rename")
	}
	if conn, _ := r.ConnForName("anneta"); conn != "c2" {
		t.Error("new name does not resolve")
	}
}

func TestRegistryForget(t *testing.T) {
	r := NewRegistry()

	r.Identify("anna", "c1")
	r.Forget("c1")

	if _, ok := r.ConnForName("anna"); ok {
		t.Error("forgotten connection still resolvable by name")
	}

	// Forgetting an unknown connection is harmless.
	r.Forget("never-seen")
}
