// Package grpcapi is the gRPC realization of the bridge protocol. The
// service descriptor is written by hand over a JSON codec: the message
// set is the shared protocol package, so no generated message types exist
// and both surfaces exchange byte-identical payloads. As with httpapi,
// this package only maps the calling convention; all behavior lives in
// protocol.Service.
package grpcapi

import (
	"bytes"
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"

	"github.com/bangonkali/sqlbridge/internal/protocol"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "sqlbridge.Bridge"

// Codec is the JSON codec both ends of the gRPC surface use. Unmarshal
// decodes numbers as json.Number so integer host values survive the trip
// into the binder.
type Codec struct{}

// Name implements encoding.Codec.
func (Codec) Name() string { return "json" }

// Marshal implements encoding.Codec.
func (Codec) Marshal(v interface{}) ([]byte, error) { return json.Marshal(v) }

// Unmarshal implements encoding.Codec.
func (Codec) Unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// RegisterCodec installs the JSON codec into the grpc encoding registry.
// Call once before serving or dialing.
func RegisterCodec() {
	encoding.RegisterCodec(Codec{})
}

// unary builds one MethodDesc around a protocol method. The handler shape
// matches what protoc would emit, minus the generated types.
func unary[Req any, Resp any](name string, call func(*protocol.Service, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			svc := srv.(*protocol.Service)
			if interceptor == nil {
				return call(svc, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(svc, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func serviceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*interface{})(nil),
		Methods: []grpc.MethodDesc{
			unary("GetVersion", (*protocol.Service).GetVersion),
			unary("Echo", (*protocol.Service).Echo),
			unary("Open", (*protocol.Service).Open),
			unary("Close", (*protocol.Service).Close),
			unary("Connect", (*protocol.Service).Connect),
			unary("Disconnect", (*protocol.Service).Disconnect),
			unary("Query", (*protocol.Service).Query),
			unary("Execute", (*protocol.Service).Execute),
			unary("Run", (*protocol.Service).Run),
			unary("Prepare", (*protocol.Service).Prepare),
			unary("BindNull", (*protocol.Service).BindNull),
			unary("BindBool", (*protocol.Service).BindBool),
			unary("BindInt64", (*protocol.Service).BindInt64),
			unary("BindDouble", (*protocol.Service).BindDouble),
			unary("BindString", (*protocol.Service).BindString),
			unary("BindBlob", (*protocol.Service).BindBlob),
			unary("ClearBindings", (*protocol.Service).ClearBindings),
			unary("ExecutePrepared", (*protocol.Service).ExecutePrepared),
			unary("DestroyPrepared", (*protocol.Service).DestroyPrepared),
			unary("IsDBOpen", (*protocol.Service).IsDBOpen),
			unary("IsDBExists", (*protocol.Service).IsDBExists),
			unary("DeleteDatabase", (*protocol.Service).DeleteDatabase),
			unary("ListTables", (*protocol.Service).ListTables),
			unary("ActivateExtension", (*protocol.Service).ActivateExtension),
			unary("ListExtensions", (*protocol.Service).ListExtensions),
			unary("ExportTable", (*protocol.Service).ExportTable),
			unary("ImportShapefile", (*protocol.Service).ImportShapefile),
			unary("CloseAll", (*protocol.Service).CloseAll),
		},
		Streams:  []grpc.StreamDesc{},
		Metadata: "sqlbridge", // informational
	}
}

// Register installs the bridge service on a gRPC server.
func Register(s *grpc.Server, svc *protocol.Service) {
	s.RegisterService(serviceDesc(), svc)
}

// Client is a minimal JSON-codec client for the bridge service, used by
// hosts and tests.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a bridge gRPC endpoint.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close releases the client connection.
func (c *Client) Close() error { return c.conn.Close() }

// Invoke calls one protocol method by name with a JSON request/response
// pair.
func (c *Client) Invoke(ctx context.Context, method string, req, resp interface{}) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, resp)
}
