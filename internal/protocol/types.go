// Package protocol defines the one logical host protocol of the bridge:
// the request/response message set and the Service implementing every
// operation against the bridge core. The HTTP and gRPC adapters are thin
// translations of their calling conventions onto this package; any logic
// beyond translation belongs here, so the two surfaces cannot drift apart.
package protocol

import (
	"encoding/json"

	"github.com/bangonkali/sqlbridge/internal/bridge"
)

// Status is embedded in every response. A failed call carries the error
// taxonomy kind plus the underlying message (engine text verbatim); a
// successful call leaves both empty. Errors travel in-band so both
// adapters report failures identically.
type Status struct {
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

func failure(err error) Status {
	return Status{Error: err.Error(), ErrorKind: bridge.Kind(err)}
}

// Failed reports whether the response carries an error.
func (s Status) Failed() bool { return s.Error != "" }

// DatabaseRequest addresses one database by its logical name.
type DatabaseRequest struct {
	Database string `json:"database"`
}

// StatementRequest addresses one prepared statement by its handle.
type StatementRequest struct {
	Statement uint64 `json:"statement"`
}

// AckResponse acknowledges an operation with no payload.
type AckResponse struct {
	Status
	Ok bool `json:"ok"`
}

// VersionResponse carries the engine library version.
type VersionResponse struct {
	Status
	Version string `json:"version,omitempty"`
}

// EchoRequest and EchoResponse implement the host liveness check.
type EchoRequest struct {
	Value string `json:"value"`
}

// EchoResponse returns the echoed value.
type EchoResponse struct {
	Status
	Value string `json:"value"`
}

// OpenRequest opens (or re-opens) a database.
type OpenRequest struct {
	Database string `json:"database"`
	ReadOnly bool   `json:"readOnly,omitempty"`
}

// ConnectResponse returns the connection handle for a database.
type ConnectResponse struct {
	Status
	Connection string `json:"connection,omitempty"`
}

// QueryRequest runs a row-producing statement with optional ordered
// values. Values must be decoded with json.Number enabled so integers stay
// integers.
type QueryRequest struct {
	Database  string        `json:"database"`
	Statement string        `json:"statement"`
	Values    []interface{} `json:"values,omitempty"`
}

// QueryResponse carries the marshalled row sequence.
type QueryResponse struct {
	Status
	Values   json.RawMessage `json:"values,omitempty"`
	Count    int             `json:"count"`
	Duration string          `json:"duration,omitempty"`
}

// ExecuteRequest runs one or more non-row statements.
type ExecuteRequest struct {
	Database   string `json:"database"`
	Statements string `json:"statements"`
}

// RunRequest runs one parameterized write statement.
type RunRequest struct {
	Database  string        `json:"database"`
	Statement string        `json:"statement"`
	Values    []interface{} `json:"values,omitempty"`
}

// ChangesResponse carries a rows-changed count.
type ChangesResponse struct {
	Status
	Changes  int64  `json:"changes"`
	Duration string `json:"duration,omitempty"`
}

// PrepareRequest compiles a statement on a database's connection.
type PrepareRequest struct {
	Database  string `json:"database"`
	Statement string `json:"statement"`
}

// PrepareResponse returns the issued statement handle and its declared
// parameter count.
type PrepareResponse struct {
	Status
	Statement  uint64 `json:"statement"`
	Parameters int    `json:"parameters"`
}

// BindNullRequest binds null at a 1-based parameter index.
type BindNullRequest struct {
	Statement uint64 `json:"statement"`
	Index     int    `json:"index"`
}

// BindBoolRequest binds a boolean at a 1-based parameter index.
type BindBoolRequest struct {
	Statement uint64 `json:"statement"`
	Index     int    `json:"index"`
	Value     bool   `json:"value"`
}

// BindInt64Request binds a 64-bit integer at a 1-based parameter index.
type BindInt64Request struct {
	Statement uint64 `json:"statement"`
	Index     int    `json:"index"`
	Value     int64  `json:"value"`
}

// BindDoubleRequest binds a double at a 1-based parameter index.
type BindDoubleRequest struct {
	Statement uint64  `json:"statement"`
	Index     int     `json:"index"`
	Value     float64 `json:"value"`
}

// BindStringRequest binds a UTF-8 string at a 1-based parameter index.
type BindStringRequest struct {
	Statement uint64 `json:"statement"`
	Index     int    `json:"index"`
	Value     string `json:"value"`
}

// BindBlobRequest binds a blob at a 1-based parameter index. The value is
// base64-encoded; blobs never travel as raw JSON strings.
type BindBlobRequest struct {
	Statement uint64 `json:"statement"`
	Index     int    `json:"index"`
	Value     string `json:"value"`
}

// BoolResponse answers a pure boolean query.
type BoolResponse struct {
	Status
	Result bool `json:"result"`
}

// TablesResponse lists the user tables of a database.
type TablesResponse struct {
	Status
	Tables []string `json:"tables,omitempty"`
}

// ExtensionRequest activates one statically-linked engine module.
type ExtensionRequest struct {
	Database string `json:"database"`
	Module   string `json:"module"`
}

// ExtensionsResponse reports per-module activation state.
type ExtensionsResponse struct {
	Status
	Extensions map[string]bool `json:"extensions,omitempty"`
}

// ExportRequest writes a table to a temporary file. Format is "csv" or
// "json".
type ExportRequest struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	Format   string `json:"format,omitempty"`
}

// ExportResponse returns the temporary file location for the host to copy
// out, plus the exported row count.
type ExportResponse struct {
	Status
	TempFilePath string `json:"tempFilePath,omitempty"`
	RowCount     int64  `json:"rowCount"`
}

// ImportRequest loads a shapefile into a table.
type ImportRequest struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	Path     string `json:"path"`
}

// ImportResponse returns the imported row count.
type ImportResponse struct {
	Status
	Rows int64 `json:"rows"`
}
