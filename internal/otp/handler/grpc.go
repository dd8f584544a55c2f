// Package handler exposes the OTP engine as AuthService.
package handler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"govportal/backend/internal/metrics"
	"govportal/backend/internal/otp"
	"govportal/backend/internal/otp/domain"
	"govportal/backend/internal/server/rpc"
)

// ServiceName is the registered gRPC service name.
const ServiceName = "govportal.auth.v1.AuthService"

// Engine is the subset of *otp.Engine the handler uses.
type Engine interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*domain.Identity, error)
}

// TokenIssuer mints access tokens for verified identities.
type TokenIssuer interface {
	IssueAccess(userID, email string) (token string, expiresAt time.Time, err error)
}

// PublicMethods are the AuthService methods callable without a bearer token.
func PublicMethods() []string {
	return []string{
		rpc.FullMethod(ServiceName, "RequestOTP"),
		rpc.FullMethod(ServiceName, "VerifyOTP"),
	}
}

// Server implements AuthService.
type Server struct {
	engine Engine
	tokens TokenIssuer
	logger *zap.Logger
}

// NewServer returns an AuthService server. tokens may be nil; then VerifyOTP is unavailable.
func NewServer(engine Engine, tokens TokenIssuer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: engine, tokens: tokens, logger: logger.Named("auth_handler")}
}

// Register adds AuthService to r.
func (s *Server) Register(r grpc.ServiceRegistrar) {
	rpc.Register(r, ServiceName,
		rpc.Method{Name: "RequestOTP", Handler: s.RequestOTP},
		rpc.Method{Name: "VerifyOTP", Handler: s.VerifyOTP},
	)
}

// RequestOTP issues a login code for {email}. The reply is identical whether or not a user
// owns the address.
func (s *Server) RequestOTP(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	if err := s.engine.RequestOTP(ctx, rpc.String(req, "email")); err != nil {
		if !errors.Is(err, otp.ErrInvalidInput) && !errors.Is(err, otp.ErrRateLimited) {
			metrics.OTPRequested("error")
		}
		return nil, s.toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// VerifyOTP redeems {email, code} and returns the user plus an access token.
func (s *Server) VerifyOTP(ctx context.Context, req *structpb.Struct) (proto.Message, error) {
	if s.tokens == nil {
		return nil, status.Error(codes.Unimplemented, "access tokens are not configured")
	}
	ident, err := s.engine.VerifyOTP(ctx, rpc.String(req, "email"), rpc.String(req, "code"))
	if err != nil {
		if !errors.Is(err, otp.ErrInvalidInput) && !errors.Is(err, otp.ErrAuthFailed) {
			metrics.OTPVerified("error")
		}
		return nil, s.toStatus(err)
	}
	token, expiresAt, err := s.tokens.IssueAccess(ident.ID, ident.Email)
	if err != nil {
		s.logger.Error("issue access token", zap.String("user_id", ident.ID), zap.Error(err))
		return nil, status.Error(codes.Internal, "could not issue access token")
	}
	return rpc.Reply(map[string]any{
		"user": map[string]any{
			"id":         ident.ID,
			"email":      ident.Email,
			"name":       ident.Name,
			"avatar_url": ident.AvatarURL,
		},
		"access_token": token,
		"expires_at":   expiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) toStatus(err error) error {
	switch {
	case errors.Is(err, otp.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, otp.ErrAuthFailed):
		return status.Error(codes.Unauthenticated, "invalid or expired code")
	case errors.Is(err, otp.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "too many code requests, try again later")
	default:
		s.logger.Error("otp engine failure", zap.Error(err))
		return status.Error(codes.Internal, "internal error")
	}
}
