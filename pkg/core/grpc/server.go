package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/msto63/signspeak/pkg/core/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"
)

var serverLogger = logging.New("grpc-server")

// ServerConfig holds gRPC server configuration
type ServerConfig struct {
	Host              string
	Port              int
	EnableReflection  bool
	KeepaliveInterval time.Duration
	KeepaliveTimeout  time.Duration
}

// DefaultServerConfig returns a default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              9190,
		EnableReflection:  true,
		KeepaliveInterval: 30 * time.Second,
		KeepaliveTimeout:  10 * time.Second,
	}
}

// Server wraps a gRPC server that exposes the standard health service
type Server struct {
	server   *grpc.Server
	health   *health.Server
	config   ServerConfig
	listener net.Listener
}

// NewServer creates a new gRPC server with the health service registered.
// The overall status ("") starts as SERVING.
func NewServer(cfg ServerConfig, opts ...grpc.ServerOption) *Server {
	serverOpts := []grpc.ServerOption{
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.KeepaliveInterval,
			Timeout: cfg.KeepaliveTimeout,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor(),
			RequestIDInterceptor(),
			LoggingInterceptor(),
		),
		grpc.ChainStreamInterceptor(
			StreamRecoveryInterceptor(),
			StreamLoggingInterceptor(),
		),
	}
	serverOpts = append(serverOpts, opts...)

	server := grpc.NewServer(serverOpts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	if cfg.EnableReflection {
		reflection.Register(server)
	}

	return &Server{
		server: server,
		health: hs,
		config: cfg,
	}
}

// GRPCServer returns the underlying gRPC server for service registration
func (s *Server) GRPCServer() *grpc.Server {
	return s.server
}

// SetServing reports service as SERVING or NOT_SERVING
func (s *Server) SetServing(service string, serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(service, status)
}

// Start listens and serves, blocking until the server stops
func (s *Server) Start() error {
	if err := s.listen(); err != nil {
		return err
	}
	return s.server.Serve(s.listener)
}

// StartAsync starts the gRPC server in a goroutine
func (s *Server) StartAsync() error {
	if err := s.listen(); err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil {
			serverLogger.Error("gRPC server error", "error", err)
		}
	}()

	serverLogger.Info("gRPC health server listening", "address", s.Address())
	return nil
}

func (s *Server) listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	return nil
}

// Stop marks every service NOT_SERVING and stops gracefully
func (s *Server) Stop() {
	s.health.Shutdown()
	s.server.GracefulStop()
}

// StopWithTimeout stops the server, forcing it after ctx expires
func (s *Server) StopWithTimeout(ctx context.Context) {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.server.Stop()
	}
}

// Address returns the listen address
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
