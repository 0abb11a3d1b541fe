// Package httpapi is the HTTP/JSON realization of the bridge protocol. It
// only translates HTTP requests onto protocol.Service calls; every
// operation, state rule and error shape lives in the shared service, so
// this surface stays behaviorally identical to the gRPC one.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bangonkali/sqlbridge/internal/protocol"
)

// Server exposes the protocol over HTTP. All operations are POST with a
// JSON body; responses are the protocol response messages verbatim,
// errors in-band.
type Server struct {
	svc *protocol.Service
}

// New wires the HTTP surface over svc.
func New(svc *protocol.Service) *Server {
	return &Server{svc: svc}
}

// Routes returns the operation mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/getVersion", handle(s.svc.GetVersion))
	mux.HandleFunc("/api/echo", handle(s.svc.Echo))
	mux.HandleFunc("/api/open", handle(s.svc.Open))
	mux.HandleFunc("/api/close", handle(s.svc.Close))
	mux.HandleFunc("/api/connect", handle(s.svc.Connect))
	mux.HandleFunc("/api/disconnect", handle(s.svc.Disconnect))
	mux.HandleFunc("/api/query", handle(s.svc.Query))
	mux.HandleFunc("/api/execute", handle(s.svc.Execute))
	mux.HandleFunc("/api/run", handle(s.svc.Run))
	mux.HandleFunc("/api/prepare", handle(s.svc.Prepare))
	mux.HandleFunc("/api/bindNull", handle(s.svc.BindNull))
	mux.HandleFunc("/api/bindBool", handle(s.svc.BindBool))
	mux.HandleFunc("/api/bindInt64", handle(s.svc.BindInt64))
	mux.HandleFunc("/api/bindDouble", handle(s.svc.BindDouble))
	mux.HandleFunc("/api/bindString", handle(s.svc.BindString))
	mux.HandleFunc("/api/bindBlob", handle(s.svc.BindBlob))
	mux.HandleFunc("/api/clearBindings", handle(s.svc.ClearBindings))
	mux.HandleFunc("/api/executePrepared", handle(s.svc.ExecutePrepared))
	mux.HandleFunc("/api/destroyPrepared", handle(s.svc.DestroyPrepared))
	mux.HandleFunc("/api/isDBOpen", handle(s.svc.IsDBOpen))
	mux.HandleFunc("/api/isDBExists", handle(s.svc.IsDBExists))
	mux.HandleFunc("/api/deleteDatabase", handle(s.svc.DeleteDatabase))
	mux.HandleFunc("/api/listTables", handle(s.svc.ListTables))
	mux.HandleFunc("/api/activateExtension", handle(s.svc.ActivateExtension))
	mux.HandleFunc("/api/listExtensions", handle(s.svc.ListExtensions))
	mux.HandleFunc("/api/exportTable", handle(s.svc.ExportTable))
	mux.HandleFunc("/api/importShapefile", handle(s.svc.ImportShapefile))
	mux.HandleFunc("/api/closeAll", handle(s.svc.CloseAll))
	return mux
}

// handle adapts one protocol method to an HTTP handler: decode, call,
// encode. Numbers are decoded as json.Number so integer host values are
// not flattened to floats on the way to the binder. An empty body is a
// valid zero request (getVersion, closeAll).
func handle[Req any, Resp any](fn func(context.Context, *Req) (*Resp, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := new(Req)
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(req); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
		resp, err := fn(r.Context(), req)
		if err != nil {
			// Protocol methods report failures in-band; an error here is
			// an adapter-level defect.
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, resp)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
