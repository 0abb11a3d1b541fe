package grpcapi

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"

	"github.com/bangonkali/sqlbridge/internal/bridge"
	"github.com/bangonkali/sqlbridge/internal/protocol"
)

func TestCodecKeepsIntegers(t *testing.T) {
	RegisterCodec()

	in := &protocol.RunRequest{Values: []interface{}{int64(7), "x"}}
	data, err := Codec{}.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	out := new(protocol.RunRequest)
	if err := (Codec{}).Unmarshal(data, out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	v, err := bridge.FromJSON(out.Values[0])
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if v.Type != bridge.TypeInt64 || v.Int != 7 {
		t.Fatalf("decoded value = %v, integer lost in transit", v)
	}
}

func startTestServer(t *testing.T) *Client {
	t.Helper()
	RegisterCodec()

	reg := bridge.NewRegistry(t.TempDir())
	svc := protocol.NewService(reg, t.TempDir())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := grpc.NewServer()
	Register(srv, svc)
	go srv.Serve(lis)

	client, err := Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
		reg.CloseAll()
	})
	return client
}

func TestGRPCSessionScenario(t *testing.T) {
	client := startTestServer(t)
	ctx := context.Background()

	var ver protocol.VersionResponse
	if err := client.Invoke(ctx, "GetVersion", &protocol.DatabaseRequest{}, &ver); err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if ver.Failed() || ver.Version == "" {
		t.Fatalf("GetVersion = %+v", ver)
	}

	var ack protocol.AckResponse
	if err := client.Invoke(ctx, "Open", &protocol.OpenRequest{Database: "t1"}, &ack); err != nil || ack.Failed() {
		t.Fatalf("Open: %v %s", err, ack.Error)
	}
	var conn protocol.ConnectResponse
	if err := client.Invoke(ctx, "Connect", &protocol.DatabaseRequest{Database: "t1"}, &conn); err != nil || conn.Failed() {
		t.Fatalf("Connect: %v %s", err, conn.Error)
	}

	var changes protocol.ChangesResponse
	err := client.Invoke(ctx, "Execute", &protocol.ExecuteRequest{
		Database:   "t1",
		Statements: "CREATE TABLE users (id INTEGER, name TEXT)",
	}, &changes)
	if err != nil || changes.Failed() {
		t.Fatalf("Execute: %v %s", err, changes.Error)
	}
	err = client.Invoke(ctx, "Run", &protocol.RunRequest{
		Database:  "t1",
		Statement: "INSERT INTO users VALUES ($1, $2)",
		Values:    []interface{}{int64(7), "ada"},
	}, &changes)
	if err != nil || changes.Failed() || changes.Changes != 1 {
		t.Fatalf("Run: %v %+v", err, changes)
	}

	var q protocol.QueryResponse
	err = client.Invoke(ctx, "Query", &protocol.QueryRequest{
		Database:  "t1",
		Statement: "SELECT id FROM users WHERE name = $1",
		Values:    []interface{}{"ada"},
	}, &q)
	if err != nil || q.Failed() {
		t.Fatalf("Query: %v %s", err, q.Error)
	}
	if string(q.Values) != `[{"id":7}]` {
		t.Fatalf("Query values = %s", q.Values)
	}
}

func TestGRPCErrorsInBand(t *testing.T) {
	client := startTestServer(t)

	var q protocol.QueryResponse
	err := client.Invoke(context.Background(), "Query",
		&protocol.QueryRequest{Database: "ghost", Statement: "SELECT 1"}, &q)
	if err != nil {
		t.Fatalf("transport error: %v", err)
	}
	if !q.Failed() || q.ErrorKind != "NotOpen" {
		t.Fatalf("kind = %q, want NotOpen", q.ErrorKind)
	}
}
