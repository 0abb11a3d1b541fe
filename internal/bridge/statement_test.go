package bridge

import (
	"bytes"
	"errors"
	"testing"
)

func prepareTest(t *testing.T, r *Registry, sql string) *Statement {
	t.Helper()
	s, err := r.Prepare("t1", sql)
	if err != nil {
		t.Fatalf("Prepare %q: %v", sql, err)
	}
	return s
}

func TestPrepareParameterCount(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")

	s := prepareTest(t, r, "SELECT $1, $2, $3")
	if s.ParameterCount() != 3 {
		t.Fatalf("ParameterCount = %d, want 3", s.ParameterCount())
	}
	if s.ID() == 0 {
		t.Fatal("statement id should be nonzero")
	}
}

func TestPrepareRequiresConnection(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Prepare("t1", "SELECT 1"); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("Prepare without open = %v, want ErrNotOpen", err)
	}
	if _, err := r.Open("t1", false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := r.Prepare("t1", "SELECT 1"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Prepare without connect = %v, want ErrNotConnected", err)
	}
}

func TestBindIndexRange(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	s := prepareTest(t, r, "SELECT $1, $2")
	if err := r.BindInt64(s.ID(), 0, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("bind index 0 = %v, want ErrIndexOutOfRange", err)
	}
	if err := r.BindInt64(s.ID(), 3, 1); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("bind index 3 of 2 = %v, want ErrIndexOutOfRange", err)
	}
	// A failed bind leaves the valid slots untouched.
	if err := r.BindInt64(s.ID(), 1, 10); err != nil {
		t.Fatalf("bind 1: %v", err)
	}
	if err := r.BindInt64(s.ID(), 9, 99); !errors.Is(err, ErrIndexOutOfRange) {
		t.Fatalf("bind index 9 = %v, want ErrIndexOutOfRange", err)
	}
	if !s.set[0] || s.slots[0].Int != 10 {
		t.Fatal("slot 1 lost its value after an out-of-range bind")
	}
}

func TestExecutePreparedUnbound(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	s := prepareTest(t, r, "SELECT $1 + $2 AS total")

	if err := r.BindInt64(s.ID(), 1, 40); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if _, err := r.ExecutePrepared(s.ID()); !errors.Is(err, ErrUnboundParameter) {
		t.Fatalf("execute with hole = %v, want ErrUnboundParameter", err)
	}
	if err := r.BindInt64(s.ID(), 2, 2); err != nil {
		t.Fatalf("bind: %v", err)
	}
	p, err := r.ExecutePrepared(s.ID())
	if err != nil {
		t.Fatalf("ExecutePrepared: %v", err)
	}
	defer r.ReleasePayload(p.ID())
	if got := p.Rows().Rows[0]["total"]; got != int64(42) {
		t.Fatalf("result = %v, want 42", got)
	}
}

func TestBindRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	if _, err := r.Execute("t1", "CREATE TABLE kv (k TEXT, v)"); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	ins := prepareTest(t, r, "INSERT INTO kv VALUES ($1, $2)")
	rows := []struct {
		key  string
		bind func() error
		want string
	}{
		{"null", func() error { return r.BindNull(ins.ID(), 2) }, "null"},
		{"bool", func() error { return r.BindBool(ins.ID(), 2, true) }, "1"},
		{"int", func() error { return r.BindInt64(ins.ID(), 2, -5) }, "-5"},
		{"double", func() error { return r.BindDouble(ins.ID(), 2, 1.5) }, "1.5"},
		{"text", func() error { return r.BindString(ins.ID(), 2, "hi") }, `"hi"`},
	}
	for _, row := range rows {
		if err := r.ClearBindings(ins.ID()); err != nil {
			t.Fatalf("ClearBindings: %v", err)
		}
		if err := r.BindString(ins.ID(), 1, row.key); err != nil {
			t.Fatalf("bind key: %v", err)
		}
		if err := row.bind(); err != nil {
			t.Fatalf("bind %s: %v", row.key, err)
		}
		p, err := r.ExecutePrepared(ins.ID())
		if err != nil {
			t.Fatalf("insert %s: %v", row.key, err)
		}
		r.ReleasePayload(p.ID())
	}

	sel := prepareTest(t, r, "SELECT v FROM kv WHERE k = $1")
	for _, row := range rows {
		if err := r.BindString(sel.ID(), 1, row.key); err != nil {
			t.Fatalf("bind: %v", err)
		}
		p, err := r.ExecutePrepared(sel.ID())
		if err != nil {
			t.Fatalf("select %s: %v", row.key, err)
		}
		want := `[{"v":` + row.want + `}]`
		if !bytes.Equal(p.Bytes(), []byte(want)) {
			t.Fatalf("select %s = %s, want %s", row.key, p.Bytes(), want)
		}
		r.ReleasePayload(p.ID())
	}
}

func TestBindBlobRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	if _, err := r.Execute("t1", "CREATE TABLE b (v BLOB)"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	ins := prepareTest(t, r, "INSERT INTO b VALUES ($1)")
	if err := r.BindBlob(ins.ID(), 1, []byte{0x00, 0x01, 0xff}); err != nil {
		t.Fatalf("BindBlob: %v", err)
	}
	p, err := r.ExecutePrepared(ins.ID())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	r.ReleasePayload(p.ID())

	p, err = r.Query("t1", "SELECT v FROM b", nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer r.ReleasePayload(p.ID())
	if got, want := string(p.Bytes()), `[{"v":"base64:AAH/"}]`; got != want {
		t.Fatalf("blob payload = %s, want %s", got, want)
	}
}

func TestStatementReuseAfterClear(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	s := prepareTest(t, r, "SELECT $1 AS v")

	for i, want := range []string{`[{"v":1}]`, `[{"v":2}]`} {
		if err := r.ClearBindings(s.ID()); err != nil {
			t.Fatalf("ClearBindings: %v", err)
		}
		if err := r.BindInt64(s.ID(), 1, int64(i+1)); err != nil {
			t.Fatalf("bind: %v", err)
		}
		p, err := r.ExecutePrepared(s.ID())
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		if string(p.Bytes()) != want {
			t.Fatalf("run %d payload = %s, want %s", i, p.Bytes(), want)
		}
		r.ReleasePayload(p.ID())
	}

	// After ClearBindings every slot is unbound again.
	if err := r.ClearBindings(s.ID()); err != nil {
		t.Fatalf("ClearBindings: %v", err)
	}
	if _, err := r.ExecutePrepared(s.ID()); !errors.Is(err, ErrUnboundParameter) {
		t.Fatalf("execute after clear = %v, want ErrUnboundParameter", err)
	}
}

func TestDestroyPrepared(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	s := prepareTest(t, r, "SELECT 1")

	if err := r.DestroyPrepared(s.ID()); err != nil {
		t.Fatalf("DestroyPrepared: %v", err)
	}
	if _, err := r.ExecutePrepared(s.ID()); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("execute destroyed = %v, want ErrStaleHandle", err)
	}
	if err := r.DestroyPrepared(s.ID()); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("double destroy = %v, want ErrStaleHandle", err)
	}
	if err := r.BindNull(s.ID(), 1); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("bind destroyed = %v, want ErrStaleHandle", err)
	}
}

func TestDisconnectInvalidatesStatements(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")
	s := prepareTest(t, r, "SELECT 1")

	if err := r.Disconnect("t1"); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, err := r.ExecutePrepared(s.ID()); !errors.Is(err, ErrStaleHandle) {
		t.Fatalf("execute after disconnect = %v, want ErrStaleHandle", err)
	}
}

func TestStatementIDsNotReused(t *testing.T) {
	r := newTestRegistry(t)
	openConnected(t, r, "t1")

	a := prepareTest(t, r, "SELECT 1")
	if err := r.DestroyPrepared(a.ID()); err != nil {
		t.Fatalf("DestroyPrepared: %v", err)
	}
	b := prepareTest(t, r, "SELECT 2")
	if b.ID() == a.ID() {
		t.Fatalf("statement id %d was reused", a.ID())
	}
}
