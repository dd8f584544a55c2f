// Package metrics holds the Prometheus collectors for the auth core and the gRPC surface.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	otpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_requests_total",
			Help: "Login code requests by result.",
		},
		[]string{"result"},
	)

	otpVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Login code verifications by outcome.",
		},
		[]string{"outcome"},
	)

	permissionChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "permission_checks_total",
			Help: "Capability checks by scope and result.",
		},
		[]string{"scope", "result"},
	)

	grpcRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_requests_total",
			Help: "Total number of unary gRPC requests.",
		},
		[]string{"method", "code"},
	)

	grpcRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grpc_request_duration_seconds",
			Help:    "Unary gRPC latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		otpRequestsTotal,
		otpVerificationsTotal,
		permissionChecksTotal,
		grpcRequestsTotal,
		grpcRequestDuration,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// OTPRequested counts a code request; result is "issued", "rate_limited" or "error".
func OTPRequested(result string) {
	otpRequestsTotal.WithLabelValues(result).Inc()
}

// OTPVerified counts a verification; outcome is "success", "error" or a failure reason.
func OTPVerified(outcome string) {
	otpVerificationsTotal.WithLabelValues(outcome).Inc()
}

// PermissionChecked counts a capability check. scope is "system" or "org".
func PermissionChecked(scope string, granted bool, err error) {
	result := "denied"
	switch {
	case err != nil:
		result = "error"
	case granted:
		result = "granted"
	}
	permissionChecksTotal.WithLabelValues(scope, result).Inc()
}

// UnaryServerInterceptor records request counts and latency per full method.
func UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		grpcRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		grpcRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}
