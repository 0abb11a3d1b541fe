package bridge

import (
	"errors"
	"testing"
)

func TestModulesClosedSet(t *testing.T) {
	mods := Modules()
	want := []string{"fts5", "geopoly", "json", "rtree"}
	if len(mods) != len(want) {
		t.Fatalf("Modules = %v, want %v", mods, want)
	}
	for i := range want {
		if mods[i] != want[i] {
			t.Fatalf("Modules = %v, want %v", mods, want)
		}
	}
}

func TestActivateIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")

	if err := r.Activate("t1", "json"); err != nil {
		t.Fatalf("Activate json: %v", err)
	}
	// A second activation of the same module succeeds without re-probing.
	if err := r.Activate("t1", "json"); err != nil {
		t.Fatalf("re-Activate json: %v", err)
	}
	exts, err := r.Extensions("t1")
	if err != nil {
		t.Fatalf("Extensions: %v", err)
	}
	if !exts["json"] {
		t.Fatalf("Extensions = %v, json should be active", exts)
	}

	// The module's representative function works after activation.
	p, err := r.Query("t1", `SELECT json_extract('{"n":3}', '$.n') AS n`, nil)
	if err != nil {
		t.Fatalf("json_extract after activation: %v", err)
	}
	defer r.ReleasePayload(p.ID())
	if p.Rows().Rows[0]["n"] != int64(3) {
		t.Fatalf("json_extract = %v, want 3", p.Rows().Rows[0]["n"])
	}
}

func TestActivateFTS5(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")

	if err := r.Activate("t1", "fts5"); err != nil {
		t.Fatalf("Activate fts5: %v", err)
	}
	if _, err := r.Execute("t1",
		"CREATE VIRTUAL TABLE notes USING fts5(body)"); err != nil {
		t.Fatalf("fts5 table after activation: %v", err)
	}
}

func TestActivateUnknownModule(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	if err := r.Activate("t1", "vector_search"); !errors.Is(err, ErrActivationFailed) {
		t.Fatalf("Activate unknown = %v, want ErrActivationFailed", err)
	}
}

func TestActivateRequiresConnection(t *testing.T) {
	r := newTestRegistry(t)
	if err := r.Activate("t1", "json"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Activate closed = %v, want ErrNotOpen", err)
	}
	if _, err := r.Open("t1", false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := r.Activate("t1", "json"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Activate disconnected = %v, want ErrNotConnected", err)
	}
	// Listing activations only needs an open handle.
	exts, err := r.Extensions("t1")
	if err != nil {
		t.Fatalf("Extensions: %v", err)
	}
	for id, active := range exts {
		if active {
			t.Fatalf("module %s active without a connection", id)
		}
	}
}
