// Package sqlbridge exposes an embedded analytical SQL engine to host
// applications through a JSON request/response protocol.
//
// The bridge manages named databases, each with at most one engine
// connection, and translates between host-side JSON values and the
// engine's typed bind/column interface:
//   - Name-keyed database handles with an explicit open/connect lifecycle
//   - Ordered 1-based parameter binding over a closed value union
//     (null, bool, int64, double, string, blob)
//   - Row marshalling into JSON arrays of column-keyed objects, with
//     base64 blobs and ISO-8601 temporals
//   - Activation of statically-linked engine modules (json, fts5,
//     rtree, geopoly) verified by probing a representative function
//
// # Basic Usage
//
// Open a database, connect, and run SQL:
//
//	reg := sqlbridge.NewRegistry("data")
//	defer reg.CloseAll()
//
//	reg.Open("app", false)
//	reg.Connect("app")
//
//	reg.Execute("app", "CREATE TABLE users (id INTEGER, name TEXT)")
//	reg.Run("app", "INSERT INTO users VALUES ($1, $2)",
//	    []sqlbridge.Value{sqlbridge.Int64(1), sqlbridge.Text("Alice")})
//
//	p, _ := reg.Query("app", "SELECT * FROM users", nil)
//	fmt.Println(string(p.Bytes())) // [{"id":1,"name":"Alice"}]
//	reg.ReleasePayload(p.ID())
//
// # Prepared Statements
//
// Compile once, bind by index, execute repeatedly:
//
//	st, _ := reg.Prepare("app", "SELECT name FROM users WHERE id = $1")
//	reg.BindInt64(st.ID(), 1, 1)
//	p, _ := reg.ExecutePrepared(st.ID())
//	// ...
//	reg.ReleasePayload(p.ID())
//	reg.DestroyPrepared(st.ID())
//
// # Serving Hosts
//
// Out-of-process hosts talk to the same operations over HTTP/JSON or
// gRPC; see the protocol, httpapi and grpcapi packages and cmd/sqlbridge.
package sqlbridge

import (
	"github.com/bangonkali/sqlbridge/internal/bridge"
	"github.com/bangonkali/sqlbridge/internal/protocol"
)

// Core types re-exported from the internal bridge package.
type (
	// Registry owns every database handle, prepared statement and
	// payload. One Registry per process is the intended shape.
	Registry = bridge.Registry

	// Database is one name-keyed handle.
	Database = bridge.Database

	// Statement is one compiled statement with its binding buffer.
	Statement = bridge.Statement

	// Value is the tagged union for one bound parameter.
	Value = bridge.Value

	// ValueType tags a Value.
	ValueType = bridge.ValueType

	// RowSet is a marshalled query result.
	RowSet = bridge.RowSet

	// Payload is one serialized row sequence with manual release.
	Payload = bridge.Payload

	// Service implements the full host protocol over a Registry.
	Service = protocol.Service
)

// Value constructors.
var (
	Null   = bridge.Null
	Bool   = bridge.Bool
	Int64  = bridge.Int64
	Double = bridge.Double
	Text   = bridge.Text
	Blob   = bridge.Blob
)

// Error taxonomy. Every failure returned by the bridge wraps one of
// these sentinels; Kind maps an error back to its taxonomy name.
var (
	ErrOpenFailed       = bridge.ErrOpenFailed
	ErrNotOpen          = bridge.ErrNotOpen
	ErrNotConnected     = bridge.ErrNotConnected
	ErrAlreadyConnected = bridge.ErrAlreadyConnected
	ErrStaleHandle      = bridge.ErrStaleHandle
	ErrIndexOutOfRange  = bridge.ErrIndexOutOfRange
	ErrUnboundParameter = bridge.ErrUnboundParameter
	ErrSql              = bridge.ErrSql
	ErrUnsupportedType  = bridge.ErrUnsupportedType
	ErrActivationFailed = bridge.ErrActivationFailed
	ErrDeleteFailed     = bridge.ErrDeleteFailed
	ErrPayloadReleased  = bridge.ErrPayloadReleased
)

// Kind returns the taxonomy name of err ("NotOpen", "SqlError", ...), or
// "Internal" for errors outside the taxonomy.
func Kind(err error) string { return bridge.Kind(err) }

// Modules lists the statically-linked engine modules available for
// activation.
func Modules() []string { return bridge.Modules() }

// NewRegistry creates a Registry storing database files under dir.
func NewRegistry(dir string) *Registry { return bridge.NewRegistry(dir) }

// NewService wires the host protocol over reg; exported files go to
// tmpDir (empty for the system default).
func NewService(reg *Registry, tmpDir string) *Service {
	return protocol.NewService(reg, tmpDir)
}
