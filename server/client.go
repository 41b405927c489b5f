package server

import (
	"context"
	"fmt"

	"github.com/golang/protobuf/proto"
	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/dynamic/grpcdynamic"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls a remote script service. It discovers the service through
// gRPC reflection, so it needs no generated stubs.
type Client struct {
	conn    *grpc.ClientConn
	reflect *grpcreflect.Client
	stub    grpcdynamic.Stub
	service *desc.ServiceDescriptor
}

// Dial connects to a script service at addr ("host:port") without TLS.
func Dial(ctx context.Context, addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", addr, err)
	}
	rc := grpcreflect.NewClientAuto(ctx, conn)
	service, err := rc.ResolveService(ScriptServiceName)
	if err != nil {
		rc.Reset()
		conn.Close()
		return nil, fmt.Errorf("resolving %s: %w", ScriptServiceName, err)
	}
	return &Client{conn: conn, reflect: rc, stub: grpcdynamic.NewStub(conn), service: service}, nil
}

// Methods lists the methods the remote service offers.
func (c *Client) Methods() []string {
	var names []string
	for _, m := range c.service.GetMethods() {
		names = append(names, m.GetName())
	}
	return names
}

// Call invokes method with fields as the request.
func (c *Client) Call(ctx context.Context, method string, fields map[string]any) (map[string]any, error) {
	md := c.service.FindMethodByName(method)
	if md == nil {
		return nil, fmt.Errorf("remote service has no method %s", method)
	}
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	resp, err := c.stub.InvokeRpc(ctx, md, req)
	if err != nil {
		return nil, err
	}
	out, err := asStruct(resp)
	if err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

func asStruct(m proto.Message) (*structpb.Struct, error) {
	switch m := m.(type) {
	case *structpb.Struct:
		return m, nil
	case *dynamic.Message:
		out := &structpb.Struct{}
		if err := m.ConvertTo(out); err != nil {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unexpected response type %T", m)
}

// Close releases the connection.
func (c *Client) Close() error {
	c.reflect.Reset()
	return c.conn.Close()
}
