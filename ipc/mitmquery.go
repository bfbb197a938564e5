package ipc

// mitmQueryShouldMitm is the fixed request id IMitmQueryService answers.
const mitmQueryShouldMitm uint32 = 0

// MitmQueryService is the tiny session object the service manager calls
// into to decide, per connecting process, whether a MITM-registered
// service should actually intercept that process's session. One is
// registered alongside every MITM server holder.
type MitmQueryService struct {
	shouldMitm func(info MitmProcessInfo) bool
}

// NewMitmQueryService binds a query service to svc's ShouldMitm predicate.
func NewMitmQueryService(svc MitmService) *MitmQueryService {
	return &MitmQueryService{shouldMitm: svc.ShouldMitm}
}

// CommandMetadataTable implements SessionObject.
func (s *MitmQueryService) CommandMetadataTable() []CommandMetadata {
	return []CommandMetadata{
		{CommandID: mitmQueryShouldMitm, Fn: mitmQueryShouldMitmFn},
	}
}

func mitmQueryShouldMitmFn(obj SessionObject, sc *ServerContext) error {
	s := obj.(*MitmQueryService)
	info := MitmProcessInfo{
		ProcessID: ReadPOD[uint64](sc),
		ProgramID: ReadPOD[uint64](sc),
		Keygen:    ReadPOD[uint8](sc),
	}
	result := s.shouldMitm(info)
	var v uint8
	if result {
		v = 1
	}
	WritePOD(sc, v)
	return nil
}
