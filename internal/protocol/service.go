package protocol

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/bangonkali/sqlbridge/internal/bridge"
	"github.com/bangonkali/sqlbridge/internal/exporter"
	"github.com/bangonkali/sqlbridge/internal/importer"
)

// Service implements the full host protocol once, against the bridge core.
// Both ABI adapters call into the same instance; each host call arrives as
// an independent unit of work and every engine call inside it runs
// synchronously to completion (no cancellation, no retries).
type Service struct {
	reg      *bridge.Registry
	tmpDir   string
	autoExts []string
}

// NewService wires a Service over reg. Exported files are written under
// tmpDir; an empty tmpDir falls back to the system temporary directory.
func NewService(reg *bridge.Registry, tmpDir string) *Service {
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}
	return &Service{reg: reg, tmpDir: tmpDir}
}

// Registry exposes the underlying registry for in-process embedding.
func (s *Service) Registry() *bridge.Registry { return s.reg }

// AutoActivate sets engine modules to activate on every successful
// connect, so hosts get them without an explicit activateExtension call.
// Call before serving.
func (s *Service) AutoActivate(modules []string) { s.autoExts = modules }

// GetVersion reports the engine library version. Pure query.
func (s *Service) GetVersion(ctx context.Context, req *DatabaseRequest) (*VersionResponse, error) {
	v, err := s.reg.Version()
	if err != nil {
		return &VersionResponse{Status: failure(err)}, nil
	}
	return &VersionResponse{Version: v}, nil
}

// Echo returns its input, as a host liveness check.
func (s *Service) Echo(ctx context.Context, req *EchoRequest) (*EchoResponse, error) {
	return &EchoResponse{Value: req.Value}, nil
}

// Open opens or re-opens the named database.
func (s *Service) Open(ctx context.Context, req *OpenRequest) (*AckResponse, error) {
	db, err := s.reg.Open(req.Database, req.ReadOnly)
	if err != nil {
		return &AckResponse{Status: failure(err)}, nil
	}
	lgr.Printf("[INFO] opened database %q at %s", req.Database, db.Path())
	return &AckResponse{Ok: true}, nil
}

// Close closes the named database. Idempotent.
func (s *Service) Close(ctx context.Context, req *DatabaseRequest) (*AckResponse, error) {
	if err := s.reg.Close(req.Database); err != nil {
		return &AckResponse{Status: failure(err)}, nil
	}
	return &AckResponse{Ok: true}, nil
}

// Connect establishes (or returns) the single connection of a database.
func (s *Service) Connect(ctx context.Context, req *DatabaseRequest) (*ConnectResponse, error) {
	id, err := s.reg.Connect(req.Database)
	if err != nil {
		return &ConnectResponse{Status: failure(err)}, nil
	}
	for _, m := range s.autoExts {
		if err := s.reg.Activate(req.Database, m); err != nil {
			return &ConnectResponse{Status: failure(err)}, nil
		}
	}
	return &ConnectResponse{Connection: id}, nil
}

// Disconnect releases a database's connection; the handle stays open.
func (s *Service) Disconnect(ctx context.Context, req *DatabaseRequest) (*AckResponse, error) {
	if err := s.reg.Disconnect(req.Database); err != nil {
		return &AckResponse{Status: failure(err)}, nil
	}
	return &AckResponse{Ok: true}, nil
}

// Query runs a row-producing statement and returns the marshalled rows.
func (s *Service) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	start := time.Now()
	vals, err := bridge.ValuesFromJSON(req.Values)
	if err != nil {
		return &QueryResponse{Status: failure(err)}, nil
	}
	p, err := s.reg.Query(req.Database, req.Statement, vals)
	if err != nil {
		return &QueryResponse{Status: failure(err)}, nil
	}
	defer s.releasePayload(p)
	return &QueryResponse{
		Values:   append([]byte(nil), p.Bytes()...),
		Count:    len(p.Rows().Rows),
		Duration: time.Since(start).String(),
	}, nil
}

// Execute runs write/DDL statements and returns the rows-changed count.
func (s *Service) Execute(ctx context.Context, req *ExecuteRequest) (*ChangesResponse, error) {
	start := time.Now()
	n, err := s.reg.Execute(req.Database, req.Statements)
	if err != nil {
		return &ChangesResponse{Status: failure(err)}, nil
	}
	return &ChangesResponse{Changes: n, Duration: time.Since(start).String()}, nil
}

// Run executes one parameterized write statement.
func (s *Service) Run(ctx context.Context, req *RunRequest) (*ChangesResponse, error) {
	start := time.Now()
	vals, err := bridge.ValuesFromJSON(req.Values)
	if err != nil {
		return &ChangesResponse{Status: failure(err)}, nil
	}
	n, err := s.reg.Run(req.Database, req.Statement, vals)
	if err != nil {
		return &ChangesResponse{Status: failure(err)}, nil
	}
	return &ChangesResponse{Changes: n, Duration: time.Since(start).String()}, nil
}

// Prepare compiles a statement and issues its handle.
func (s *Service) Prepare(ctx context.Context, req *PrepareRequest) (*PrepareResponse, error) {
	st, err := s.reg.Prepare(req.Database, req.Statement)
	if err != nil {
		return &PrepareResponse{Status: failure(err)}, nil
	}
	return &PrepareResponse{Statement: st.ID(), Parameters: st.ParameterCount()}, nil
}

// BindNull binds null at the given 1-based index.
func (s *Service) BindNull(ctx context.Context, req *BindNullRequest) (*AckResponse, error) {
	return ack(s.reg.BindNull(req.Statement, req.Index))
}

// BindBool binds a boolean at the given 1-based index.
func (s *Service) BindBool(ctx context.Context, req *BindBoolRequest) (*AckResponse, error) {
	return ack(s.reg.BindBool(req.Statement, req.Index, req.Value))
}

// BindInt64 binds a 64-bit integer at the given 1-based index.
func (s *Service) BindInt64(ctx context.Context, req *BindInt64Request) (*AckResponse, error) {
	return ack(s.reg.BindInt64(req.Statement, req.Index, req.Value))
}

// BindDouble binds a double at the given 1-based index.
func (s *Service) BindDouble(ctx context.Context, req *BindDoubleRequest) (*AckResponse, error) {
	return ack(s.reg.BindDouble(req.Statement, req.Index, req.Value))
}

// BindString binds a UTF-8 string at the given 1-based index.
func (s *Service) BindString(ctx context.Context, req *BindStringRequest) (*AckResponse, error) {
	return ack(s.reg.BindString(req.Statement, req.Index, req.Value))
}

// BindBlob binds a base64-encoded blob at the given 1-based index.
func (s *Service) BindBlob(ctx context.Context, req *BindBlobRequest) (*AckResponse, error) {
	raw, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		return ack(fmt.Errorf("%w: blob is not base64: %v", bridge.ErrUnsupportedType, err))
	}
	return ack(s.reg.BindBlob(req.Statement, req.Index, raw))
}

// ClearBindings resets every parameter slot of a statement to unbound.
func (s *Service) ClearBindings(ctx context.Context, req *StatementRequest) (*AckResponse, error) {
	return ack(s.reg.ClearBindings(req.Statement))
}

// ExecutePrepared runs a fully bound statement and returns its rows.
func (s *Service) ExecutePrepared(ctx context.Context, req *StatementRequest) (*QueryResponse, error) {
	start := time.Now()
	p, err := s.reg.ExecutePrepared(req.Statement)
	if err != nil {
		return &QueryResponse{Status: failure(err)}, nil
	}
	defer s.releasePayload(p)
	return &QueryResponse{
		Values:   append([]byte(nil), p.Bytes()...),
		Count:    len(p.Rows().Rows),
		Duration: time.Since(start).String(),
	}, nil
}

// DestroyPrepared finalizes a statement and retires its handle.
func (s *Service) DestroyPrepared(ctx context.Context, req *StatementRequest) (*AckResponse, error) {
	return ack(s.reg.DestroyPrepared(req.Statement))
}

// IsDBOpen reports whether a handle is live for the name. Pure query.
func (s *Service) IsDBOpen(ctx context.Context, req *DatabaseRequest) (*BoolResponse, error) {
	return &BoolResponse{Result: s.reg.IsOpen(req.Database)}, nil
}

// IsDBExists reports whether the database file exists. Pure query.
func (s *Service) IsDBExists(ctx context.Context, req *DatabaseRequest) (*BoolResponse, error) {
	return &BoolResponse{Result: s.reg.Exists(req.Database)}, nil
}

// DeleteDatabase force-closes the database and removes its file.
func (s *Service) DeleteDatabase(ctx context.Context, req *DatabaseRequest) (*AckResponse, error) {
	if err := s.reg.Delete(req.Database); err != nil {
		return &AckResponse{Status: failure(err)}, nil
	}
	lgr.Printf("[INFO] deleted database %q", req.Database)
	return &AckResponse{Ok: true}, nil
}

// ListTables lists the user tables of a database via the engine catalog.
func (s *Service) ListTables(ctx context.Context, req *DatabaseRequest) (*TablesResponse, error) {
	tables, err := s.reg.ListTables(req.Database)
	if err != nil {
		return &TablesResponse{Status: failure(err)}, nil
	}
	return &TablesResponse{Tables: tables}, nil
}

// ActivateExtension activates one statically-linked engine module.
// Idempotent per database handle.
func (s *Service) ActivateExtension(ctx context.Context, req *ExtensionRequest) (*AckResponse, error) {
	if err := s.reg.Activate(req.Database, req.Module); err != nil {
		return &AckResponse{Status: failure(err)}, nil
	}
	lgr.Printf("[INFO] activated module %s on %q", req.Module, req.Database)
	return &AckResponse{Ok: true}, nil
}

// ListExtensions reports per-module activation state for a database.
func (s *Service) ListExtensions(ctx context.Context, req *DatabaseRequest) (*ExtensionsResponse, error) {
	state, err := s.reg.Extensions(req.Database)
	if err != nil {
		return &ExtensionsResponse{Status: failure(err)}, nil
	}
	return &ExtensionsResponse{Extensions: state}, nil
}

// ExportTable writes a whole table to a temporary file and returns its
// path for the host to copy out. The export itself is a delegation: one
// catalog-ordered SELECT marshalled by the bridge, written by the exporter.
func (s *Service) ExportTable(ctx context.Context, req *ExportRequest) (*ExportResponse, error) {
	p, err := s.reg.Query(req.Database, `SELECT * FROM `+quoteIdent(req.Table), nil)
	if err != nil {
		return &ExportResponse{Status: failure(err)}, nil
	}
	defer s.releasePayload(p)
	rows := p.Rows()

	format := req.Format
	if format == "" {
		format = "csv"
	}
	name := fmt.Sprintf("%s_%d.%s", req.Table, time.Now().UnixMilli(), format)
	path := filepath.Join(s.tmpDir, name)
	f, err := os.Create(path)
	if err != nil {
		return &ExportResponse{Status: failure(fmt.Errorf("%w: %v", bridge.ErrOpenFailed, err))}, nil
	}
	defer f.Close()

	switch format {
	case "csv":
		err = exporter.ExportCSV(f, rows, exporter.Options{})
	case "json":
		err = exporter.ExportJSON(f, rows, exporter.Options{})
	default:
		err = fmt.Errorf("%w: export format %q", bridge.ErrUnsupportedType, format)
	}
	if err != nil {
		return &ExportResponse{Status: failure(err)}, nil
	}
	lgr.Printf("[INFO] exported table %s from %q to %s (%d rows)", req.Table, req.Database, path, len(rows.Rows))
	return &ExportResponse{TempFilePath: path, RowCount: int64(len(rows.Rows))}, nil
}

// ImportShapefile loads a shapefile into a new table of the database.
func (s *Service) ImportShapefile(ctx context.Context, req *ImportRequest) (*ImportResponse, error) {
	n, err := importer.ImportShapefile(s.reg, req.Database, req.Table, req.Path)
	if err != nil {
		return &ImportResponse{Status: failure(err)}, nil
	}
	lgr.Printf("[INFO] imported %d shapefile rows into %s.%s", n, req.Database, req.Table)
	return &ImportResponse{Rows: n}, nil
}

// CloseAll closes every open database; the host teardown hook.
func (s *Service) CloseAll(ctx context.Context, req *DatabaseRequest) (*AckResponse, error) {
	if err := s.reg.CloseAll(); err != nil {
		return &AckResponse{Status: failure(err)}, nil
	}
	return &AckResponse{Ok: true}, nil
}

func (s *Service) releasePayload(p *bridge.Payload) {
	if err := s.reg.ReleasePayload(p.ID()); err != nil {
		lgr.Printf("[WARN] release payload %s: %v", p.ID(), err)
	}
}

func ack(err error) (*AckResponse, error) {
	if err != nil {
		return &AckResponse{Status: failure(err)}, nil
	}
	return &AckResponse{Ok: true}, nil
}

// quoteIdent quotes a SQL identifier; hosts supply table names, not SQL.
func quoteIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	out = append(out, '"')
	return string(out)
}
