package bridge

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bvinc/go-sqlite-lite/sqlite3"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// memoryName is the logical name (and engine path) of an in-memory
// database. In-memory databases have no file: Exists reports false and
// Delete fails for them.
const memoryName = ":memory:"

// Database is one live database handle. It is created by Registry.Open and
// owns at most one engine connection plus the prepared statements compiled
// on it. All engine calls on the handle are serialized by mu.
type Database struct {
	name     string
	path     string // engine path; ":memory:" for in-memory
	readOnly bool

	mu     sync.Mutex
	closed bool
	conn   *sqlite3.Conn // nil while disconnected
	connID string        // uuid, stable for the connection's lifetime
	stmts  []uint64      // statement ids compiled on this connection
	exts   map[string]bool
}

// Name returns the logical name the host uses to address this handle.
func (d *Database) Name() string { return d.name }

// Path returns the filesystem path of the database file, or ":memory:".
func (d *Database) Path() string { return d.path }

// Registry owns the mapping from logical database names to native
// resources and enforces the resource lifecycle rules: one handle per name,
// one connection per handle, statements and payloads addressed by issued
// ids only.
type Registry struct {
	dir string

	mu       sync.RWMutex
	dbs      map[string]*Database
	stmts    map[uint64]*Statement
	nextStmt uint64

	payloads payloadArena

	versionOnce sync.Once
	version     string
	versionErr  error
}

// NewRegistry creates a registry that stores database files under dir.
// Relative logical names resolve inside dir; dir is created on the first
// file-backed open.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		dbs:   make(map[string]*Database),
		stmts: make(map[uint64]*Statement),
	}
}

// dbPath maps a logical name to the engine path. Names are plain file
// names; anything that would escape the data directory is rejected. Names
// without a recognized suffix get ".db" appended, mirroring how the mobile
// hosts address databases.
func (r *Registry) dbPath(name string) (string, error) {
	if name == "" || name == memoryName {
		return memoryName, nil
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: invalid database name %q", ErrOpenFailed, name)
	}
	if !strings.HasSuffix(name, ".db") && !strings.HasSuffix(name, ".sqlite") {
		name += ".db"
	}
	return filepath.Join(r.dir, name), nil
}

func openFlags(readOnly bool) int {
	if readOnly {
		return sqlite3.OPEN_READONLY
	}
	return sqlite3.OPEN_READWRITE | sqlite3.OPEN_CREATE
}

// Open creates or re-opens the database behind name. Re-opening an already
// open name returns the existing handle rather than an error. The file is
// created if absent (unless readOnly). Open does not connect; data
// operations additionally require Connect.
func (r *Registry) Open(name string, readOnly bool) (*Database, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if db, ok := r.dbs[name]; ok {
		return db, nil
	}

	path, err := r.dbPath(name)
	if err != nil {
		return nil, err
	}
	if path != memoryName && !readOnly {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
		}
	}

	// Probe the engine once so that a bad path or missing read-only file
	// fails here, at open, instead of at the first data operation.
	probe, err := sqlite3.Open(path, openFlags(readOnly))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	if err := probe.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}

	db := &Database{
		name:     name,
		path:     path,
		readOnly: readOnly,
		exts:     make(map[string]bool),
	}
	r.dbs[name] = db
	return db, nil
}

// Close disconnects and releases the handle for name. Closing a name that
// is not open is a no-op, not an error; hosts routinely close everything
// during teardown.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	db, ok := r.dbs[name]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.dbs, name)
	r.mu.Unlock()

	return r.teardown(db)
}

// teardown finalizes statements, closes the connection and marks the
// handle dead. The handle must already be out of the registry map.
func (r *Registry) teardown(db *Database) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	var result error
	r.dropStatements(db)
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close %s: %w", db.name, err))
		}
		db.conn = nil
		db.connID = ""
	}
	return result
}

// dropStatements finalizes and unregisters every statement compiled on db.
// Callers hold db.mu; the registry map lock nests inside it. The lock order
// throughout the package is db.mu before r.mu, so statement lookups
// release r.mu before locking db.mu and re-check the statement under it.
func (r *Registry) dropStatements(db *Database) {
	if len(db.stmts) == 0 {
		return
	}
	r.mu.Lock()
	for _, id := range db.stmts {
		if s, ok := r.stmts[id]; ok {
			delete(r.stmts, id)
			s.released = true
			_ = s.stmt.Close()
		}
	}
	r.mu.Unlock()
	db.stmts = db.stmts[:0]
}

// CloseAll closes every open database. It is the host teardown hook; all
// failures are aggregated so one stubborn handle cannot hide the rest.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	all := make([]*Database, 0, len(r.dbs))
	for name, db := range r.dbs {
		all = append(all, db)
		delete(r.dbs, name)
	}
	r.mu.Unlock()

	var result error
	for _, db := range all {
		if err := r.teardown(db); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

// Connect establishes the single connection for name. If a connection is
// already live its id is returned again; the one-connection-per-database
// invariant makes a second connect a harmless repeat, not a conflict.
func (r *Registry) Connect(name string) (string, error) {
	db, err := r.database(name)
	if err != nil {
		return "", err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return "", fmt.Errorf("%w: %s", ErrNotOpen, name)
	}
	if db.conn != nil {
		return db.connID, nil
	}

	conn, err := sqlite3.Open(db.path, openFlags(db.readOnly))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOpenFailed, err)
	}
	db.conn = conn
	db.connID = uuid.NewString()
	return db.connID, nil
}

// Disconnect releases the connection only; the handle stays open and can
// be reconnected. Statements are connection-scoped in the engine, so they
// are finalized here as well. Disconnecting a disconnected database is a
// no-op.
func (r *Registry) Disconnect(name string) error {
	db, err := r.database(name)
	if err != nil {
		return err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed || db.conn == nil {
		return nil
	}
	r.dropStatements(db)
	err = db.conn.Close()
	db.conn = nil
	db.connID = ""
	if err != nil {
		return fmt.Errorf("disconnect %s: %w", name, err)
	}
	return nil
}

// IsOpen reports whether a live handle exists for name. Pure query.
func (r *Registry) IsOpen(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.dbs[name]
	return ok
}

// Exists reports whether the database file for name exists on disk.
// In-memory databases never exist on disk. Pure query.
func (r *Registry) Exists(name string) bool {
	path, err := r.dbPath(name)
	if err != nil || path == memoryName {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Delete force-closes name (ignoring not-open) and removes the underlying
// file plus the engine's -wal/-shm siblings. A missing file counts as
// success; a filesystem failure is ErrDeleteFailed.
func (r *Registry) Delete(name string) error {
	if err := r.Close(name); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	path, err := r.dbPath(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	if path == memoryName {
		return fmt.Errorf("%w: cannot delete an in-memory database", ErrDeleteFailed)
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	// Journal siblings are best effort; they may not exist.
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
	return nil
}

// Version returns the engine library version, probed once on a throwaway
// in-memory connection.
func (r *Registry) Version() (string, error) {
	r.versionOnce.Do(func() {
		conn, err := sqlite3.Open(memoryName)
		if err != nil {
			r.versionErr = fmt.Errorf("%w: %v", ErrSql, err)
			return
		}
		defer conn.Close()
		stmt, err := conn.Prepare(`SELECT sqlite_version()`)
		if err != nil {
			r.versionErr = fmt.Errorf("%w: %v", ErrSql, err)
			return
		}
		defer stmt.Close()
		if _, err := stmt.Step(); err != nil {
			r.versionErr = fmt.Errorf("%w: %v", ErrSql, err)
			return
		}
		v, _, err := stmt.ColumnText(0)
		if err != nil {
			r.versionErr = fmt.Errorf("%w: %v", ErrSql, err)
			return
		}
		r.version = v
	})
	return r.version, r.versionErr
}

// database looks a handle up by name.
func (r *Registry) database(name string) (*Database, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	db, ok := r.dbs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, name)
	}
	return db, nil
}

// connected locks db and verifies it still has a live connection. The
// caller must release db.mu when done with the engine.
func (r *Registry) connected(name string) (*Database, error) {
	db, err := r.database(name)
	if err != nil {
		return nil, err
	}
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, name)
	}
	if db.conn == nil {
		db.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, name)
	}
	return db, nil
}

// Query runs one SQL statement on name's connection and marshals the
// produced rows into a payload. Optional ordered values are bound before
// execution; the value count must match the statement's declared parameter
// count exactly.
func (r *Registry) Query(name, sql string, values []Value) (*Payload, error) {
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
	defer stmt.Close()

	if err := bindAll(stmt, values); err != nil {
		return nil, err
	}
	rows, err := marshalRows(stmt)
	if err != nil {
		return nil, err
	}
	return r.payloads.put(rows)
}

// Execute runs one or more SQL statements (separated by semicolons) on
// name's connection and returns the total rows-changed count across the
// write statements. A statement touching zero rows contributes zero; that
// is a result, not an error.
func (r *Registry) Execute(name, sql string) (int64, error) {
	db, err := r.connected(name)
	if err != nil {
		return 0, err
	}
	defer db.mu.Unlock()

	// TotalChanges deltas count only rows touched by INSERT/UPDATE/DELETE,
	// so DDL statements contribute zero instead of inheriting the stale
	// Changes() value of an earlier write.
	before := db.conn.TotalChanges()
	rest := sql
	for strings.TrimSpace(rest) != "" {
		stmt, err := db.conn.Prepare(rest)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSql, err)
		}
		if stmt == nil {
			break
		}
		rest = stmt.Tail
		if err := stmt.StepToCompletion(); err != nil {
			stmt.Close()
			return 0, fmt.Errorf("%w: %v", ErrSql, err)
		}
		if err := stmt.Close(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrSql, err)
		}
	}
	return int64(db.conn.TotalChanges() - before), nil
}

// Run executes one parameterized write statement and returns its
// rows-changed count.
func (r *Registry) Run(name, sql string, values []Value) (int64, error) {
	db, err := r.connected(name)
	if err != nil {
		return 0, err
	}
	defer db.mu.Unlock()

	stmt, err := db.conn.Prepare(sql)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSql, err)
	}
	if stmt == nil {
		return 0, fmt.Errorf("%w: empty statement", ErrSql)
	}
	defer stmt.Close()

	if err := bindAll(stmt, values); err != nil {
		return 0, err
	}
	before := db.conn.TotalChanges()
	if err := stmt.StepToCompletion(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSql, err)
	}
	return int64(db.conn.TotalChanges() - before), nil
}

// ListTables returns the user table names of name's database in
// lexicographic order, via the engine catalog.
func (r *Registry) ListTables(name string) ([]string, error) {
	db, err := r.connected(name)
	if err != nil {
		return nil, err
	}
	defer db.mu.Unlock()

	stmt, err := db.conn.Prepare(
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSql, err)
	}
	defer stmt.Close()

	tables := []string{}
	for {
		ok, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
		if !ok {
			break
		}
		t, _, err := stmt.ColumnText(0)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// bindAll binds an ordered ad-hoc value list to stmt. The value count must
// match the declared parameter count exactly; fewer values would execute
// with nulls and more would drop host data.
func bindAll(stmt *sqlite3.Stmt, values []Value) error {
	declared := stmt.BindParameterCount()
	if len(values) < declared {
		return fmt.Errorf("%w: %d of %d values supplied", ErrUnboundParameter, len(values), declared)
	}
	if len(values) > declared {
		return fmt.Errorf("%w: %d values for %d parameters", ErrIndexOutOfRange, len(values), declared)
	}
	if declared == 0 {
		return nil
	}
	args := make([]interface{}, declared)
	for i, v := range values {
		args[i] = v.engineArg()
	}
	if err := stmt.Bind(args...); err != nil {
		return fmt.Errorf("%w: %v", ErrSql, err)
	}
	return nil
}
