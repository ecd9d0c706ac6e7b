// Package rpcapi provides the local RPC API for credshift. The API is
// shared by the CLI and any other frontend over a unix socket or a
// loopback TCP listener; it never exposes profile secrets on the wire.
package rpcapi

import (
	"fmt"
	"net"
	"os"

	"google.golang.org/grpc"

	"github.com/credshift/credshift/internal/engine"
)

// Server wraps the gRPC server and the credshift engine.
type Server struct {
	grpcServer *grpc.Server
	listener   net.Listener
	handler    *Handler
}

// NewServer creates a gRPC server bound to a unix socket. A stale
// socket file from a previous run is removed first.
func NewServer(socketPath string, eng *engine.Engine) (*Server, error) {
	_ = os.Remove(socketPath)
	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", socketPath, err)
	}
	return NewListenerServer(lis, eng), nil
}

// NewTCPServer creates a plaintext gRPC server for loopback use.
func NewTCPServer(addr string, eng *engine.Engine) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return NewListenerServer(lis, eng), nil
}

// NewListenerServer creates a server over an existing listener.
func NewListenerServer(lis net.Listener, eng *engine.Engine) *Server {
	s := grpc.NewServer(grpc.ForceServerCodec(JSONCodec{}))
	h := NewHandler(NewService(eng))
	h.RegisterWithGRPC(s)

	return &Server{
		grpcServer: s,
		listener:   lis,
		handler:    h,
	}
}

// Serve starts serving gRPC requests.
func (s *Server) Serve() error {
	return s.grpcServer.Serve(s.listener)
}

// Stop gracefully stops the gRPC server.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}

// Addr returns the listener address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Handler returns the JSON-RPC handler for direct access.
func (s *Server) Handler() *Handler {
	return s.handler
}
