// Package transport serves a plugin registry over gRPC so other beanexport
// processes can resolve its handlers as grpc://host:port/<name> modules.
package transport

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"beanexport/internal/logging"
	"beanexport/internal/plugin"
)

// HandlersServer is the server side of the handler service.
type HandlersServer interface {
	Describe(context.Context, *plugin.DescribeRequest) (*plugin.DescribeResponse, error)
	Handle(context.Context, *plugin.HandleRequest) (*plugin.HandleResponse, error)
}

type Server struct {
	grpc *grpc.Server
	lis  net.Listener
}

// NewServer registers reg on a fresh gRPC server. Bodies use the YAML codec
// registered by package plugin.
func NewServer(reg *plugin.Registry, opts ...grpc.ServerOption) *Server {
	s := &Server{grpc: grpc.NewServer(opts...)}
	s.grpc.RegisterService(&handlersServiceDesc, &registryServer{reg: reg})
	return s
}

func StartServer(addr string, reg *plugin.Registry, opts ...grpc.ServerOption) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s := NewServer(reg, opts...)
	s.lis = lis
	return s, nil
}

// Addr is the bound address, nil until a listener is attached.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) Serve() error {
	if s.lis == nil {
		return errors.New("transport: no listener")
	}
	return s.grpc.Serve(s.lis)
}

func (s *Server) ServeListener(lis net.Listener) error {
	s.lis = lis
	return s.grpc.Serve(lis)
}

func (s *Server) Stop() {
	s.grpc.GracefulStop()
}

type registryServer struct {
	reg *plugin.Registry
}

func (r *registryServer) Describe(ctx context.Context, req *plugin.DescribeRequest) (*plugin.DescribeResponse, error) {
	_, err := r.reg.Lookup(ctx, req.Name)
	switch {
	case errors.Is(err, plugin.ErrUnknownHandler):
		return &plugin.DescribeResponse{Name: req.Name}, nil
	case err != nil:
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &plugin.DescribeResponse{Name: req.Name, Found: true}, nil
}

func (r *registryServer) Handle(ctx context.Context, req *plugin.HandleRequest) (*plugin.HandleResponse, error) {
	h, err := r.reg.Lookup(ctx, req.Name)
	if errors.Is(err, plugin.ErrUnknownHandler) {
		return nil, status.Errorf(codes.NotFound, "handler %q not served", req.Name)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}

	entries, err := plugin.DecodeEntries(req.Ledger)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	log := logging.L().With(zap.String("handler", req.Name))
	out, errs, err := h.Handle(ctx, entries, req.Config)
	if err != nil {
		log.Warn("transport: handler failed", zap.Error(err))
		return &plugin.HandleResponse{Fatal: err.Error()}, nil
	}

	payload, err := plugin.EncodeEntries(out)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	resp := &plugin.HandleResponse{Ledger: payload}
	for _, e := range errs {
		resp.Errors = append(resp.Errors, e.Error())
	}
	log.Debug("transport: handled",
		zap.Int("in", len(entries)), zap.Int("out", len(out)), zap.Int("errors", len(errs)))
	return resp, nil
}

func describeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(plugin.DescribeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HandlersServer).Describe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: plugin.DescribeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HandlersServer).Describe(ctx, req.(*plugin.DescribeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func handleHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(plugin.HandleRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HandlersServer).Handle(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: plugin.HandleMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(HandlersServer).Handle(ctx, req.(*plugin.HandleRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var handlersServiceDesc = grpc.ServiceDesc{
	ServiceName: plugin.ServiceName,
	HandlerType: (*HandlersServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Describe",
			Handler:    describeHandler,
		},
		{
			MethodName: "Handle",
			Handler:    handleHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "beanexport/handler/v1",
}
