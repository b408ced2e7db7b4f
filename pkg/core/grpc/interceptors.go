package grpc

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/msto63/signspeak/pkg/core/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var interceptorLogger = logging.New("grpc")

// Context keys for request metadata
type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader string     = "x-request-id"
)

// recovered converts a panic into an Internal status
func recovered(kind string, err *error) {
	if r := recover(); r != nil {
		interceptorLogger.Error("gRPC panic recovered", "kind", kind, "panic", r, "stack", string(debug.Stack()))
		*err = status.Errorf(codes.Internal, "internal server error")
	}
}

// RecoveryInterceptor recovers from panics in unary handlers
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer recovered("unary", &err)
		return handler(ctx, req)
	}
}

// StreamRecoveryInterceptor recovers from panics in streaming handlers
// such as health Watch.
func StreamRecoveryInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer recovered("stream", &err)
		return handler(srv, ss)
	}
}

func logCall(msg, requestID, method string, start time.Time, err error) {
	interceptorLogger.Debug(msg,
		"request_id", requestID,
		"method", method,
		"status", status.Code(err).String(),
		"duration", time.Since(start),
	)
}

// LoggingInterceptor logs unary requests at debug level
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		logCall("gRPC request", GetRequestID(ctx), info.FullMethod, start, err)
		return resp, err
	}
}

// StreamLoggingInterceptor logs streaming requests when they end
func StreamLoggingInterceptor() grpc.StreamServerInterceptor {
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		err := handler(srv, ss)
		logCall("gRPC stream", GetRequestID(ss.Context()), info.FullMethod, start, err)
		return err
	}
}

// RequestIDInterceptor stores the caller's request ID, or a new one, in the context
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		requestID := extractRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		return handler(WithRequestID(ctx, requestID), req)
	}
}

// ClientRequestIDInterceptor propagates the request ID to outgoing requests
func ClientRequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		requestID := GetRequestID(ctx)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDHeader, requestID)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// ClientLoggingInterceptor logs outgoing requests at debug level
func ClientLoggingInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		start := time.Now()
		err := invoker(ctx, method, req, reply, cc, opts...)
		logCall("gRPC client request", GetRequestID(ctx), method, start, err)
		return err
	}
}

// GetRequestID returns the request ID from the context or incoming metadata
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return extractRequestID(ctx)
}

func extractRequestID(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(RequestIDHeader); len(values) > 0 {
		return values[0]
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}
