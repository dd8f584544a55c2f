// Package rpc registers unary gRPC services whose requests are google.protobuf.Struct
// messages. Services describe themselves with a name and a list of methods; the descriptor
// is built here instead of by protoc.
package rpc

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// UnaryFunc serves one method.
type UnaryFunc func(ctx context.Context, req *structpb.Struct) (proto.Message, error)

// Method binds a method name to its implementation.
type Method struct {
	Name    string
	Handler UnaryFunc
}

// FullMethod returns the gRPC full method name, e.g. /govportal.auth.v1.AuthService/VerifyOTP.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// ServiceDesc builds a descriptor for service. Interceptors see the full method name and the
// decoded *structpb.Struct.
func ServiceDesc(service string, methods ...Method) *grpc.ServiceDesc {
	desc := &grpc.ServiceDesc{
		ServiceName: service,
		HandlerType: (*any)(nil),
		Streams:     []grpc.StreamDesc{},
		Metadata:    service,
	}
	for _, m := range methods {
		desc.Methods = append(desc.Methods, grpc.MethodDesc{
			MethodName: m.Name,
			Handler:    unaryHandler(FullMethod(service, m.Name), m.Handler),
		})
	}
	return desc
}

// Register adds service to s.
func Register(s grpc.ServiceRegistrar, service string, methods ...Method) {
	s.RegisterService(ServiceDesc(service, methods...), nil)
}

func unaryHandler(fullMethod string, fn UnaryFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(_ any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return fn(ctx, in)
		}
		info := &grpc.UnaryServerInfo{FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(*structpb.Struct))
		})
	}
}

// String returns the trimmed string field name, or "" when absent or not a string.
func String(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(v.GetStringValue())
}

// RequiredString returns field name or an InvalidArgument status when it is empty.
func RequiredString(req *structpb.Struct, name string) (string, error) {
	s := String(req, name)
	if s == "" {
		return "", status.Error(codes.InvalidArgument, name+" is required")
	}
	return s, nil
}

// Int returns the numeric field name truncated to int, or def when absent.
func Int(req *structpb.Struct, name string, def int) int {
	if req == nil {
		return def
	}
	v, ok := req.GetFields()[name]
	if !ok {
		return def
	}
	if _, isNum := v.GetKind().(*structpb.Value_NumberValue); !isNum {
		return def
	}
	return int(v.GetNumberValue())
}

// Reply builds a Struct response. It fails only for values structpb cannot represent.
func Reply(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return s, nil
}

// List converts a string slice to the []any form structpb accepts.
func List(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}
