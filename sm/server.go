package sm

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nestybox/horizon-ipc/kernel"
)

// Server implements the sm.ServiceManager RPC methods (see service.go for
// the hand-rolled gRPC wiring) against a Registry and the kernel surface
// that actually owns named ports.
type Server struct {
	sys kernel.Syscalls
	reg *Registry
	log *logrus.Entry
}

// NewServer returns a Server that creates named ports through sys and
// tracks them in reg.
func NewServer(sys kernel.Syscalls, reg *Registry, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{sys: sys, reg: reg, log: log}
}

func (s *Server) registerService(ctx context.Context, req *RegisterServiceRequest) (*RegisterServiceResponse, error) {
	port, err := s.sys.ManageNamedPort(req.ServiceName, req.MaxSessions)
	if err != nil {
		return nil, fmt.Errorf("sm: register %q: %w", req.ServiceName, err)
	}
	if err := s.reg.Register(req.ServiceName, port); err != nil {
		_ = s.sys.CloseHandle(port)
		return nil, err
	}
	s.log.WithField("service", req.ServiceName).Info("registered service")
	return &RegisterServiceResponse{PortHandle: uint32(port)}, nil
}

func (s *Server) unregisterService(ctx context.Context, req *UnregisterServiceRequest) (*UnregisterServiceResponse, error) {
	port, ok := s.reg.Lookup(req.ServiceName)
	if !ok {
		return nil, fmt.Errorf("sm: service %q not registered", req.ServiceName)
	}
	if err := s.reg.Unregister(req.ServiceName); err != nil {
		return nil, err
	}
	if err := s.sys.CloseHandle(port); err != nil {
		s.log.WithError(err).Warn("error closing port on unregister; continuing")
	}
	return &UnregisterServiceResponse{}, nil
}

func (s *Server) atmosphereInstallMitm(ctx context.Context, req *AtmosphereInstallMitmRequest) (*AtmosphereInstallMitmResponse, error) {
	port, ok := s.reg.Lookup(req.ServiceName)
	if !ok {
		return nil, fmt.Errorf("sm: service %q not registered", req.ServiceName)
	}
	queryPort, err := s.sys.ManageNamedPort(req.ServiceName+".mitm-query", 1)
	if err != nil {
		return nil, fmt.Errorf("sm: allocate mitm query port for %q: %w", req.ServiceName, err)
	}
	if err := s.reg.InstallMitm(req.ServiceName, queryPort); err != nil {
		_ = s.sys.CloseHandle(queryPort)
		return nil, err
	}
	s.log.WithField("service", req.ServiceName).Info("installed mitm")
	return &AtmosphereInstallMitmResponse{
		PortHandle:  uint32(port),
		QueryHandle: uint32(queryPort),
	}, nil
}

func (s *Server) atmosphereUninstallMitm(ctx context.Context, req *AtmosphereUninstallMitmRequest) (*AtmosphereUninstallMitmResponse, error) {
	if err := s.reg.UninstallMitm(req.ServiceName); err != nil {
		return nil, err
	}
	return &AtmosphereUninstallMitmResponse{}, nil
}

func (s *Server) atmosphereAcknowledgeMitmSession(ctx context.Context, req *AtmosphereAcknowledgeMitmSessionRequest) (*AtmosphereAcknowledgeMitmSessionResponse, error) {
	info, found, err := s.reg.AcknowledgeMitmSession(req.ServiceName)
	if err != nil {
		return nil, err
	}
	return &AtmosphereAcknowledgeMitmSessionResponse{
		Found:     found,
		ProcessID: info.ProcessID,
		ProgramID: info.ProgramID,
		Keygen:    info.Keygen,
		Override:  info.Override,
	}, nil
}

func (s *Server) atmosphereClearFutureMitm(ctx context.Context, req *AtmosphereClearFutureMitmRequest) (*AtmosphereClearFutureMitmResponse, error) {
	if err := s.reg.ClearFutureMitm(req.ServiceName); err != nil {
		return nil, err
	}
	return &AtmosphereClearFutureMitmResponse{}, nil
}

func (s *Server) detachClient(ctx context.Context, req *DetachClientRequest) (*DetachClientResponse, error) {
	// A real deployment would sweep every registered MITM's pending
	// attribution for this process id. Nothing here pins pending state by
	// process id independent of service name, so there's nothing to sweep
	// yet; this is the hook future callers attach that logic to.
	return &DetachClientResponse{}, nil
}
