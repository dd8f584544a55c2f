package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Call invokes a Struct-request method on conn and decodes the reply into out.
func Call(ctx context.Context, conn grpc.ClientConnInterface, service, method string, fields map[string]any, out proto.Message, opts ...grpc.CallOption) error {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return err
	}
	return conn.Invoke(ctx, FullMethod(service, method), req, out, opts...)
}
