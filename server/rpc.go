package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/eischet/janitor-sub000/env"
	"github.com/eischet/janitor-sub000/vm"
)

// ScriptServiceName is the fully qualified name of the script service.
const ScriptServiceName = "janitor.v1.ScriptService"

// Methods of the script service. Every method takes and returns a
// google.protobuf.Struct.
const (
	MethodEval           = "Eval"
	MethodCheck          = "Check"
	MethodCreateSession  = "CreateSession"
	MethodDestroySession = "DestroySession"
)

var scriptMethods = []string{MethodEval, MethodCheck, MethodCreateSession, MethodDestroySession}

// The service has no .proto file; its descriptor is built here and
// registered globally so that gRPC reflection can serve it.
var scriptServiceDescriptor protoreflect.ServiceDescriptor

func init() {
	structType := ".google.protobuf.Struct"
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("janitor/v1/script.proto"),
		Package:    proto.String("janitor.v1"),
		Dependency: []string{"google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("ScriptService"),
		}},
	}
	for _, m := range scriptMethods {
		fdp.Service[0].Method = append(fdp.Service[0].Method, &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(m),
			InputType:  proto.String(structType),
			OutputType: proto.String(structType),
		})
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("server: failed to build service descriptor: %v", err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("server: failed to register service descriptor: %v", err))
	}
	scriptServiceDescriptor = fd.Services().Get(0)
}

// ScriptService evaluates and checks scripts for remote clients.
type ScriptService struct {
	worker   *Worker
	sessions *SessionStore
}

// NewScriptService creates a ScriptService.
func NewScriptService(worker *Worker, sessions *SessionStore) *ScriptService {
	return &ScriptService{worker: worker, sessions: sessions}
}

func requiredString(req *structpb.Struct, field string) (string, error) {
	v := req.GetFields()[field].GetStringValue()
	if v == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("%s is required", field))
	}
	return v, nil
}

// Eval runs source and reports its result and output. With a session ID
// the script runs in that session's globals; without one it runs in a
// fresh global scope. Script failures are a successful response with
// success false.
func (s *ScriptService) Eval(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source, err := requiredString(req, "source")
	if err != nil {
		return nil, err
	}
	var globals *vm.Scope
	if id := req.GetFields()["session"].GetStringValue(); id != "" {
		session, ok := s.sessions.Get(id)
		if !ok {
			return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("session %q not found", id))
		}
		globals = session.Globals
	}

	out, err := s.worker.Do(func(e *env.Environment) (any, error) {
		rt := env.NewOutputCatchingRuntime(e)
		fields := map[string]any{"success": false}
		script, err := rt.Compile("<eval>", source)
		if err == nil {
			var v vm.Value
			if globals != nil {
				v, err = script.RunIn(globals)
			} else {
				v, err = script.Run(nil)
			}
			if err == nil {
				fields["success"] = true
				fields["result"] = vm.Display(v)
				fields["kind"] = v.TypeName()
			}
		}
		if err != nil {
			fields["error"] = err.Error()
			var se *vm.Error
			if errors.As(err, &se) {
				fields["traceback"] = se.Traceback()
			}
		}
		fields["output"] = rt.AllOutput()
		return structpb.NewStruct(fields)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return out.(*structpb.Struct), nil
}

// Check compiles and lints source without running it.
func (s *ScriptService) Check(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	source, err := requiredString(req, "source")
	if err != nil {
		return nil, err
	}
	out, err := s.worker.Do(func(e *env.Environment) (any, error) {
		warnings, compileErr := e.Check("<check>", source)
		var diags []any
		add := func(severity string, ds []vm.Diagnostic) {
			for _, d := range ds {
				diags = append(diags, map[string]any{
					"line":     d.Line,
					"column":   d.Column,
					"message":  d.Message,
					"severity": severity,
				})
			}
		}
		add("error", env.Diagnostics(compileErr))
		add("warning", warnings)
		return structpb.NewStruct(map[string]any{
			"valid":       compileErr == nil,
			"diagnostics": diags,
		})
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return out.(*structpb.Struct), nil
}

// CreateSession starts a session with its own global scope.
func (s *ScriptService) CreateSession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	session := s.sessions.Create(req.GetFields()["name"].GetStringValue())
	return structpb.NewStruct(map[string]any{"session": session.ID})
}

// DestroySession ends a session.
func (s *ScriptService) DestroySession(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := requiredString(req, "session")
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{"destroyed": s.sessions.Destroy(id)})
}

func (s *ScriptService) method(name string) func(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	switch name {
	case MethodEval:
		return s.Eval
	case MethodCheck:
		return s.Check
	case MethodCreateSession:
		return s.CreateSession
	case MethodDestroySession:
		return s.DestroySession
	}
	return nil
}

// --- Connect ---

// connectHandler mounts the service's Connect handlers. Connect handlers
// also speak the gRPC and gRPC-Web protocols.
func (s *ScriptService) connectHandler() (string, http.Handler) {
	mux := http.NewServeMux()
	for _, name := range scriptMethods {
		fn := s.method(name)
		procedure := "/" + ScriptServiceName + "/" + name
		mux.Handle(procedure, connect.NewUnaryHandler(procedure,
			func(ctx context.Context, req *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error) {
				res, err := fn(ctx, req.Msg)
				if err != nil {
					return nil, err
				}
				return connect.NewResponse(res), nil
			},
			connect.WithSchema(scriptServiceDescriptor.Methods().ByName(protoreflect.Name(name))),
		))
	}
	return "/" + ScriptServiceName + "/", mux
}

// --- gRPC ---

// scriptServer is the handler type of the gRPC service description.
type scriptServer interface {
	method(name string) func(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

func grpcUnary(name string) grpc.MethodHandler {
	fullMethod := "/" + ScriptServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		fn := srv.(scriptServer).method(name)
		handler := func(ctx context.Context, req any) (any, error) {
			res, err := fn(ctx, req.(*structpb.Struct))
			return res, grpcError(err)
		}
		if interceptor == nil {
			return handler(ctx, in)
		}
		return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, handler)
	}
}

// grpcError maps Connect errors onto gRPC status errors; the code values
// are the same.
func grpcError(err error) error {
	if err == nil {
		return nil
	}
	var ce *connect.Error
	if errors.As(err, &ce) {
		return status.Error(codes.Code(ce.Code()), ce.Message())
	}
	return status.Error(codes.Internal, err.Error())
}

var scriptServiceDesc = func() grpc.ServiceDesc {
	desc := grpc.ServiceDesc{
		ServiceName: ScriptServiceName,
		HandlerType: (*scriptServer)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    "janitor/v1/script.proto",
	}
	for _, name := range scriptMethods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{MethodName: name, Handler: grpcUnary(name)})
	}
	return desc
}()

// isGRPC reports whether r is a native gRPC call, which the grpc server
// handles so that reflection works.
func isGRPC(r *http.Request) bool {
	return r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc") &&
		!strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc-web")
}
