package bridge

import (
	"fmt"

	"github.com/bvinc/go-sqlite-lite/sqlite3"
)

// Statement wraps one compiled engine statement together with its ordered
// binding buffer: one slot per declared parameter, each tracking whether
// the host has set it. Host-visible indices are 1-based and translated to
// 0-based slots here. Engine binding is deferred until ExecutePrepared so
// that slots can be written in any order and rewritten freely.
type Statement struct {
	id uint64
	db *Database

	stmt  *sqlite3.Stmt
	slots []Value
	set   []bool

	// released flips when the statement is destroyed or its connection
	// goes away; it is guarded by db.mu so in-flight calls observe it.
	released bool
}

// ID returns the registry-issued statement handle.
func (s *Statement) ID() uint64 { return s.id }

// ParameterCount returns the statement's declared parameter count.
func (s *Statement) ParameterCount() int { return len(s.slots) }

// Prepare compiles sql on name's connection and issues a statement handle.
// The handle stays valid until DestroyPrepared, Disconnect or Close.
func (r *Registry) Prepare(name, sql string) (*Statement, error) {
	db, err := r.connected(name)
	if err != nil {
		return nil, err
	}
	defer db.mu.Unlock()

	stmt, err := db.conn.Prepare(sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSql, err)
	}
	if stmt == nil {
		return nil, fmt.Errorf("%w: empty statement", ErrSql)
	}

	n := stmt.BindParameterCount()
	s := &Statement{
		db:    db,
		stmt:  stmt,
		slots: make([]Value, n),
		set:   make([]bool, n),
	}

	r.mu.Lock()
	r.nextStmt++
	s.id = r.nextStmt
	r.stmts[s.id] = s
	r.mu.Unlock()
	db.stmts = append(db.stmts, s.id)

	return s, nil
}

// statement resolves a statement id and locks its database. On success the
// caller owns s.db.mu. Released ids fail with ErrStaleHandle; they are
// never reused, so a host holding a destroyed handle gets an error instead
// of another statement's resources.
func (r *Registry) statement(id uint64) (*Statement, error) {
	r.mu.RLock()
	s, ok := r.stmts[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: statement %d", ErrStaleHandle, id)
	}

	s.db.mu.Lock()
	if s.released {
		s.db.mu.Unlock()
		return nil, fmt.Errorf("%w: statement %d", ErrStaleHandle, id)
	}
	return s, nil
}

// bind writes v into the slot for the 1-based index. Out-of-range indices
// fail without touching any other binding.
func (r *Registry) bind(id uint64, index int, v Value) error {
	s, err := r.statement(id)
	if err != nil {
		return err
	}
	defer s.db.mu.Unlock()

	if index < 1 || index > len(s.slots) {
		return fmt.Errorf("%w: index %d of %d parameters", ErrIndexOutOfRange, index, len(s.slots))
	}
	s.slots[index-1] = v
	s.set[index-1] = true
	return nil
}

// BindNull sets the parameter at the 1-based index to null.
func (r *Registry) BindNull(id uint64, index int) error { return r.bind(id, index, Null()) }

// BindBool sets the parameter at the 1-based index to a boolean.
func (r *Registry) BindBool(id uint64, index int, v bool) error { return r.bind(id, index, Bool(v)) }

// BindInt64 sets the parameter at the 1-based index to a 64-bit integer.
func (r *Registry) BindInt64(id uint64, index int, v int64) error { return r.bind(id, index, Int64(v)) }

// BindDouble sets the parameter at the 1-based index to a double.
func (r *Registry) BindDouble(id uint64, index int, v float64) error {
	return r.bind(id, index, Double(v))
}

// BindString sets the parameter at the 1-based index to a UTF-8 string.
func (r *Registry) BindString(id uint64, index int, v string) error {
	return r.bind(id, index, Text(v))
}

// BindBlob sets the parameter at the 1-based index to a blob.
func (r *Registry) BindBlob(id uint64, index int, v []byte) error { return r.bind(id, index, Blob(v)) }

// ClearBindings resets every slot to unbound, for reusing the statement
// with a different value set.
func (r *Registry) ClearBindings(id uint64) error {
	s, err := r.statement(id)
	if err != nil {
		return err
	}
	defer s.db.mu.Unlock()

	for i := range s.slots {
		s.slots[i] = Null()
		s.set[i] = false
	}
	if err := s.stmt.ClearBindings(); err != nil {
		return fmt.Errorf("%w: %v", ErrSql, err)
	}
	return nil
}

// ExecutePrepared binds the buffered slots, runs the statement and marshals
// its rows into a payload. Every declared slot must have been set;
// executing with unset slots fails instead of binding nulls.
func (r *Registry) ExecutePrepared(id uint64) (*Payload, error) {
	s, err := r.statement(id)
	if err != nil {
		return nil, err
	}
	defer s.db.mu.Unlock()

	for i, ok := range s.set {
		if !ok {
			return nil, fmt.Errorf("%w: parameter %d", ErrUnboundParameter, i+1)
		}
	}

	if err := s.stmt.Reset(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSql, err)
	}
	if len(s.slots) > 0 {
		args := make([]interface{}, len(s.slots))
		for i, v := range s.slots {
			args[i] = v.engineArg()
		}
		if err := s.stmt.Bind(args...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
	}

	rows, err := marshalRows(s.stmt)
	if err != nil {
		return nil, err
	}
	return r.payloads.put(rows)
}

// DestroyPrepared finalizes the statement and retires its id. Destroying a
// stale id fails with ErrStaleHandle.
func (r *Registry) DestroyPrepared(id uint64) error {
	s, err := r.statement(id)
	if err != nil {
		return err
	}
	defer s.db.mu.Unlock()

	s.released = true
	r.mu.Lock()
	delete(r.stmts, id)
	r.mu.Unlock()
	for i, sid := range s.db.stmts {
		if sid == id {
			s.db.stmts = append(s.db.stmts[:i], s.db.stmts[i+1:]...)
			break
		}
	}
	if err := s.stmt.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrSql, err)
	}
	return nil
}
