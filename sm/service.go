package sm

import (
	"context"

	"google.golang.org/grpc"
)

// serviceName is the gRPC service path sm.ServiceManager methods hang off
// of, matching spec.md's naming for the service-manager RPC surface.
const serviceName = "sm.ServiceManager"

// ServiceDesc is the hand-rolled equivalent of a protoc-generated
// _grpc.pb.go ServiceDesc: this control plane is seven one-shot unary calls
// behind a JSON codec (codec.go), not worth a .proto/codegen step for.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*Server)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "RegisterService", Handler: registerServiceHandler},
		{MethodName: "UnregisterService", Handler: unregisterServiceHandler},
		{MethodName: "AtmosphereInstallMitm", Handler: atmosphereInstallMitmHandler},
		{MethodName: "AtmosphereUninstallMitm", Handler: atmosphereUninstallMitmHandler},
		{MethodName: "AtmosphereAcknowledgeMitmSession", Handler: atmosphereAcknowledgeMitmSessionHandler},
		{MethodName: "AtmosphereClearFutureMitm", Handler: atmosphereClearFutureMitmHandler},
		{MethodName: "DetachClient", Handler: detachClientHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "sm/service.proto",
}

func registerServiceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(RegisterServiceRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).registerService(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/RegisterService"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).registerService(ctx, req.(*RegisterServiceRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func unregisterServiceHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(UnregisterServiceRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).unregisterService(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/UnregisterService"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).unregisterService(ctx, req.(*UnregisterServiceRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func atmosphereInstallMitmHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(AtmosphereInstallMitmRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).atmosphereInstallMitm(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AtmosphereInstallMitm"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).atmosphereInstallMitm(ctx, req.(*AtmosphereInstallMitmRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func atmosphereUninstallMitmHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(AtmosphereUninstallMitmRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).atmosphereUninstallMitm(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AtmosphereUninstallMitm"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).atmosphereUninstallMitm(ctx, req.(*AtmosphereUninstallMitmRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func atmosphereAcknowledgeMitmSessionHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(AtmosphereAcknowledgeMitmSessionRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).atmosphereAcknowledgeMitmSession(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AtmosphereAcknowledgeMitmSession"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).atmosphereAcknowledgeMitmSession(ctx, req.(*AtmosphereAcknowledgeMitmSessionRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func atmosphereClearFutureMitmHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(AtmosphereClearFutureMitmRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).atmosphereClearFutureMitm(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/AtmosphereClearFutureMitm"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).atmosphereClearFutureMitm(ctx, req.(*AtmosphereClearFutureMitmRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func detachClientHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	req := new(DetachClientRequest)
	if err := dec(req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(*Server).detachClient(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/DetachClient"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(*Server).detachClient(ctx, req.(*DetachClientRequest))
	}
	return interceptor(ctx, req, info, handler)
}

// RegisterServer registers srv against s using ServiceDesc, the manual
// equivalent of a generated RegisterServiceManagerServer call.
func RegisterServer(s grpc.ServiceRegistrar, srv *Server) {
	s.RegisterService(&ServiceDesc, srv)
}
