// Package handler implements the dev-only DevService.
package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"govportal/backend/internal/devotp"
	"govportal/backend/internal/server/rpc"
)

// ServiceName is the registered gRPC service name.
const ServiceName = "govportal.dev.v1.DevService"

const devOTPNote = "DEV MODE ONLY"

// Server implements DevService. Only registered when dev OTP is enabled and not production.
type Server struct {
	store devotp.Store
}

// NewServer returns a DevService server that reads codes from store.
func NewServer(store devotp.Store) *Server {
	return &Server{store: store}
}

// Register adds DevService to s.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	rpc.Register(r, ServiceName, rpc.Method{Name: "GetOTP", Handler: s.GetOTP})
}

// GetOTP returns the latest code issued for email. NotFound if missing or expired.
func (s *Server) GetOTP(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	if s.store == nil {
		return nil, status.Error(codes.Unimplemented, "dev OTP store not configured")
	}
	email, err := rpc.RequiredString(req, "email")
	if err != nil {
		return nil, err
	}
	code, ok := s.store.Get(ctx, strings.ToLower(email))
	if !ok {
		return nil, status.Error(codes.NotFound, "OTP not found or expired")
	}
	return rpc.Reply(map[string]any{"code": code, "note": devOTPNote})
}
