package sm

// Wire messages for the sm.ServiceManager gRPC service, JSON-coded per
// codec.go. Field names are exported and JSON-tagged explicitly rather
// than left to Go's default (capitalized) marshaling so the wire shape is
// pinned independent of any future rename.

// RegisterServiceRequest asks the service manager to reserve a name and
// hand back a listening port handle for it.
type RegisterServiceRequest struct {
	ServiceName string `json:"service_name"`
	MaxSessions int32  `json:"max_sessions"`
}

type RegisterServiceResponse struct {
	PortHandle uint32 `json:"port_handle"`
}

// UnregisterServiceRequest releases a previously registered name.
type UnregisterServiceRequest struct {
	ServiceName string `json:"service_name"`
}

type UnregisterServiceResponse struct{}

// AtmosphereInstallMitmRequest asks to intercept an already-registered
// service name; the response carries both the forwarding port handle (new
// connections on the real name arrive here instead) and the query-service
// handle the caller hosts ipc.MitmQueryService on.
type AtmosphereInstallMitmRequest struct {
	ServiceName string `json:"service_name"`
}

type AtmosphereInstallMitmResponse struct {
	PortHandle  uint32 `json:"port_handle"`
	QueryHandle uint32 `json:"query_handle"`
}

// AtmosphereUninstallMitmRequest removes a prior MITM installation.
type AtmosphereUninstallMitmRequest struct {
	ServiceName string `json:"service_name"`
}

type AtmosphereUninstallMitmResponse struct{}

// AtmosphereAcknowledgeMitmSessionRequest asks for the process identity
// attached to the most recent session that arrived on serviceName's real
// port, consuming it so a later call doesn't see it again.
type AtmosphereAcknowledgeMitmSessionRequest struct {
	ServiceName string `json:"service_name"`
}

type AtmosphereAcknowledgeMitmSessionResponse struct {
	Found     bool   `json:"found"`
	ProcessID uint64 `json:"process_id"`
	ProgramID uint64 `json:"program_id"`
	Keygen    uint8  `json:"keygen"`
	Override  bool   `json:"override"`
}

// AtmosphereClearFutureMitmRequest cancels a pending (not yet
// acknowledged) MITM attribution without uninstalling the MITM itself.
type AtmosphereClearFutureMitmRequest struct {
	ServiceName string `json:"service_name"`
}

type AtmosphereClearFutureMitmResponse struct{}

// DetachClientRequest tells sm a client process is going away, so any
// MITM attribution pinned to it should be dropped too.
type DetachClientRequest struct {
	ProcessID uint64 `json:"process_id"`
}

type DetachClientResponse struct{}
