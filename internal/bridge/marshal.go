package bridge

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bvinc/go-sqlite-lite/sqlite3"
	"github.com/google/uuid"
)

// blobMarker prefixes base64-encoded blob cells in marshalled rows. JSON
// has no binary type; the marker makes the encoding recognizable instead of
// handing the host an unexplained base64 string.
const blobMarker = "base64:"

// releasedCap bounds the set of remembered released payload ids.
const releasedCap = 4096

// RowSet is an engine result converted to transportable form: ordered rows,
// each cell already mapped to its JSON-typed Go value (nil, bool, int64,
// float64 or string).
type RowSet struct {
	Columns []string
	Rows    []map[string]interface{}
}

// colClass is the per-column marshalling decision derived from the declared
// column type. The engine stores dynamically typed cells; the declaration
// only refines how INTEGER storage is presented (booleans, temporal
// values).
type colClass int

const (
	classPlain colClass = iota
	classBool
	classTemporal
)

func classify(decl string) colClass {
	d := strings.ToUpper(decl)
	switch {
	case strings.Contains(d, "BOOL"):
		return classBool
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return classTemporal
	default:
		return classPlain
	}
}

// marshalRows steps stmt to completion and converts every produced row
// using the closed type table: INTEGER and FLOAT storage become JSON
// numbers, TEXT becomes a string, NULL stays null regardless of the
// declared type, BLOB becomes a marked base64 string. Columns declared
// BOOLEAN surface as true/false and columns declared DATE/TIME surface as
// ISO-8601 strings (integer storage read as Unix seconds, UTC). Row order
// is preserved exactly as produced by the engine.
func marshalRows(stmt *sqlite3.Stmt) (*RowSet, error) {
	cols := stmt.ColumnNames()
	classes := make([]colClass, len(cols))
	for i := range cols {
		classes[i] = classify(stmt.DeclType(i))
	}

	rs := &RowSet{Columns: cols, Rows: []map[string]interface{}{}}
	for {
		ok, err := stmt.Step()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
		if !ok {
			return rs, nil
		}

		row := make(map[string]interface{}, len(cols))
		for i, name := range cols {
			cell, err := marshalCell(stmt, i, classes[i])
			if err != nil {
				return nil, err
			}
			row[name] = cell
		}
		rs.Rows = append(rs.Rows, row)
	}
}

func marshalCell(stmt *sqlite3.Stmt, i int, class colClass) (interface{}, error) {
	switch typ := stmt.ColumnType(i); typ {
	case sqlite3.NULL:
		return nil, nil
	case sqlite3.INTEGER:
		v, _, err := stmt.ColumnInt64(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
		switch class {
		case classBool:
			return v != 0, nil
		case classTemporal:
			return time.Unix(v, 0).UTC().Format(time.RFC3339), nil
		default:
			return v, nil
		}
	case sqlite3.FLOAT:
		v, _, err := stmt.ColumnDouble(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
		return v, nil
	case sqlite3.TEXT:
		v, _, err := stmt.ColumnText(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
		return v, nil
	case sqlite3.BLOB:
		v, err := stmt.ColumnBlob(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSql, err)
		}
		return blobMarker + base64.StdEncoding.EncodeToString(v), nil
	default:
		return nil, fmt.Errorf("%w: column storage class %d", ErrUnsupportedType, typ)
	}
}

// encodeRows serializes rs as a JSON array of column-keyed objects, keys in
// declared column order.
func encodeRows(rs *RowSet) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for ri, row := range rs.Rows {
		if ri > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for ci, col := range rs.Columns {
			if ci > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(col)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			val, err := json.Marshal(row[col])
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrUnsupportedType, err)
			}
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Payload is one serialized row sequence handed across the boundary. The
// caller owns it and must release it exactly once via ReleasePayload;
// the arena keeps the allocation alive until then.
type Payload struct {
	id   string
	body []byte
	rows *RowSet
}

// ID returns the payload handle.
func (p *Payload) ID() string { return p.id }

// Bytes returns the serialized JSON row sequence.
func (p *Payload) Bytes() []byte { return p.body }

// Rows returns the structured form of the payload, for in-process callers
// such as the exporter.
func (p *Payload) Rows() *RowSet { return p.rows }

// payloadArena implements the manual ownership contract for serialized
// payloads: every allocation has exactly one designated releaser. Payloads
// are addressed by issued ids, so releasing twice is detected and fails
// instead of corrupting anything.
type payloadArena struct {
	mu       sync.Mutex
	live     map[string]*Payload
	released map[string]struct{}
}

func (a *payloadArena) put(rs *RowSet) (*Payload, error) {
	body, err := encodeRows(rs)
	if err != nil {
		return nil, err
	}
	p := &Payload{id: uuid.NewString(), body: body, rows: rs}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.live == nil {
		a.live = make(map[string]*Payload)
		a.released = make(map[string]struct{})
	}
	a.live[p.id] = p
	return p, nil
}

func (a *payloadArena) release(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.live[id]; ok {
		delete(a.live, id)
		// The released set distinguishes a double free from a bogus id.
		// It is capped: once it cycles, an ancient double free degrades
		// to ErrStaleHandle, which is still a hard failure.
		if len(a.released) >= releasedCap {
			a.released = make(map[string]struct{})
		}
		a.released[id] = struct{}{}
		return nil
	}
	if _, ok := a.released[id]; ok {
		return fmt.Errorf("%w: %s", ErrPayloadReleased, id)
	}
	return fmt.Errorf("%w: payload %s", ErrStaleHandle, id)
}

// Payload resolves a live payload id.
func (r *Registry) Payload(id string) (*Payload, error) {
	r.payloads.mu.Lock()
	defer r.payloads.mu.Unlock()
	p, ok := r.payloads.live[id]
	if !ok {
		return nil, fmt.Errorf("%w: payload %s", ErrStaleHandle, id)
	}
	return p, nil
}

// ReleasePayload frees one payload. The first release succeeds; any
// further release of the same id fails with ErrPayloadReleased. This is the
// single designated free operation of the payload ownership contract.
func (r *Registry) ReleasePayload(id string) error {
	return r.payloads.release(id)
}
