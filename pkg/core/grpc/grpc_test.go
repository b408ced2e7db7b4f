package grpc

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func TestServer_HealthStatus(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Port = 0
	cfg.EnableReflection = false

	srv := NewServer(cfg)
	if err := srv.StartAsync(); err != nil {
		t.Fatalf("StartAsync() error = %v", err)
	}
	defer srv.Stop()

	client := DefaultClientConfig(srv.Address())
	ctx := context.Background()

	got, err := CheckHealth(ctx, client, "")
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("overall status = %v, want SERVING", got)
	}

	srv.SetServing("signspeak.Backend", false)
	got, err = CheckHealth(ctx, client, "signspeak.Backend")
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("backend status = %v, want NOT_SERVING", got)
	}

	srv.SetServing("signspeak.Backend", true)
	got, _ = CheckHealth(ctx, client, "signspeak.Backend")
	if got != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("backend status = %v, want SERVING", got)
	}

	if _, err := CheckHealth(ctx, client, "unknown.Service"); err == nil {
		t.Error("CheckHealth() expected error for unregistered service")
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	interceptor := RecoveryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Panic"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		panic("boom")
	})
	if status.Code(err) != codes.Internal {
		t.Errorf("status = %v, want Internal", status.Code(err))
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	interceptor := RequestIDInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/ID"}

	tests := []struct {
		name     string
		ctx      context.Context
		expected string
	}{
		{"from metadata", metadata.NewIncomingContext(context.Background(), metadata.Pairs(RequestIDHeader, "abc-123")), "abc-123"},
		{"generated", context.Background(), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			_, err := interceptor(tt.ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
				seen = GetRequestID(ctx)
				return nil, nil
			})
			if err != nil {
				t.Fatalf("interceptor error = %v", err)
			}
			if tt.expected != "" && seen != tt.expected {
				t.Errorf("request ID = %q, want %q", seen, tt.expected)
			}
			if seen == "" {
				t.Error("request ID should never be empty")
			}
		})
	}
}

func TestLoggingInterceptor_PassesThrough(t *testing.T) {
	interceptor := LoggingInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Echo"}
	want := errors.New("failed")

	resp, err := interceptor(context.Background(), "req", info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return req, want
	})
	if resp != "req" || err != want {
		t.Errorf("interceptor returned %v, %v", resp, err)
	}
}
