package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/matheus3301/rtlink/internal/api"
	"github.com/matheus3301/rtlink/internal/profile"
)

// Server serves the control plane on the profile's unix socket.
type Server struct {
	grpc       *grpc.Server
	listener   net.Listener
	socketPath string
	logger     *zap.Logger
}

// NewServer binds the control socket. A socket file left by a daemon that
// died is replaced; one that still accepts connections is an error.
func NewServer(p Params, logger *zap.Logger, svc *api.ConnectionService) (*Server, error) {
	socketPath := p.SocketPath
	if socketPath == "" {
		socketPath = profile.SocketPath(p.ProfileName)
	}
	ln, err := listenUnix(socketPath)
	if err != nil {
		return nil, err
	}

	logger = logger.Named("grpc")
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(logCalls(logger)))
	api.RegisterConnectionServer(srv, svc)

	return &Server{
		grpc:       srv,
		listener:   ln,
		socketPath: socketPath,
		logger:     logger,
	}, nil
}

func listenUnix(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		if c, err := net.DialTimeout("unix", path, 200*time.Millisecond); err == nil {
			_ = c.Close()
			return nil, fmt.Errorf("control socket %s is in use", path)
		}
		_ = os.Remove(path)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod %s: %w", path, err)
	}
	return ln, nil
}

// logCalls logs every control call at debug level and failed ones at warn.
func logCalls(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("took", time.Since(start)),
		}
		if err != nil {
			logger.Warn("control call failed", append(fields, zap.String("code", status.Code(err).String()), zap.Error(err))...)
		} else {
			logger.Debug("control call", fields...)
		}
		return resp, err
	}
}

// Start serves until Stop. It blocks.
func (s *Server) Start() error {
	s.logger.Info("control socket listening", zap.String("socket", s.socketPath))
	if err := s.grpc.Serve(s.listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

// Stop drains in-flight calls, falling back to a hard stop when ctx ends
// first, and removes the socket file.
func (s *Server) Stop(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("graceful stop timed out, closing connections")
		s.grpc.Stop()
		<-done
	}
	_ = os.Remove(s.socketPath)
}
