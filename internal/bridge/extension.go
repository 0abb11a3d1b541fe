package bridge

import (
	"fmt"
	"sort"
)

// Module describes one optional engine capability compiled statically into
// the binary. The deployment sandbox forbids loading engine extensions at
// runtime, so the only modules that exist are the ones linked in; whether a
// given build carries a module can only be learned by exercising it.
type Module struct {
	// ID is the host-visible module identifier.
	ID string

	// probe invokes one representative function or virtual table of the
	// module. It fails with a catalog lookup error ("no such function",
	// "no such module") when the module is not linked in.
	probe string

	// cleanup undoes probe side effects, if any. Best effort.
	cleanup string
}

// modules is the closed set of statically-linked optional engine modules.
// json: JSON functions; fts5: full-text search; rtree: spatial index;
// geopoly: spatial polygon functions.
var modules = []Module{
	{ID: "json", probe: `SELECT json_valid('{"ok":true}')`},
	{ID: "fts5",
		probe:   `CREATE VIRTUAL TABLE temp.sqlbridge_fts5_probe USING fts5(content)`,
		cleanup: `DROP TABLE temp.sqlbridge_fts5_probe`},
	{ID: "rtree",
		probe:   `CREATE VIRTUAL TABLE temp.sqlbridge_rtree_probe USING rtree(id, minx, maxx)`,
		cleanup: `DROP TABLE temp.sqlbridge_rtree_probe`},
	{ID: "geopoly", probe: `SELECT geopoly_area('[[0,0],[1,0],[1,1],[0,0]]')`},
}

// Modules returns the known module ids in stable order.
func Modules() []string {
	ids := make([]string, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	sort.Strings(ids)
	return ids
}

func moduleByID(id string) (Module, bool) {
	for _, m := range modules {
		if m.ID == id {
			return m, true
		}
	}
	return Module{}, false
}

// Activate registers the statically-linked module on name's database.
// Activation is idempotent per handle: the second call for the same module
// is a recorded no-op and never double-registers anything.
//
// Verification is done by invoking one representative function of the
// module and treating a catalog lookup failure as ErrActivationFailed. The
// engine has no catalog mechanism for introspecting compiled-in modules,
// so probing is the only way to tell a linked module from a missing one.
func (r *Registry) Activate(name, moduleID string) error {
	m, ok := moduleByID(moduleID)
	if !ok {
		return fmt.Errorf("%w: unknown module %q", ErrActivationFailed, moduleID)
	}

	db, err := r.connected(name)
	if err != nil {
		return err
	}
	defer db.mu.Unlock()

	if db.exts[moduleID] {
		return nil
	}
	if err := db.conn.Exec(m.probe); err != nil {
		return fmt.Errorf("%w: module %s: %v", ErrActivationFailed, moduleID, err)
	}
	if m.cleanup != "" {
		_ = db.conn.Exec(m.cleanup)
	}
	db.exts[moduleID] = true
	return nil
}

// Extensions reports the activation state of every known module on name's
// handle. Requires an open handle but not a connection.
func (r *Registry) Extensions(name string) (map[string]bool, error) {
	db, err := r.database(name)
	if err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, fmt.Errorf("%w: %s", ErrNotOpen, name)
	}
	state := make(map[string]bool, len(modules))
	for _, m := range modules {
		state[m.ID] = db.exts[m.ID]
	}
	return state, nil
}
