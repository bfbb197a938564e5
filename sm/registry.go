// Package sm implements the out-of-band service-manager control plane:
// a gRPC side channel (JSON-coded, no protoc step) that hosts register,
// unregister, and MITM-install/uninstall against a name registry, mirroring
// the wire methods spec.md calls out as "Service-manager RPC consumed".
package sm

import (
	"fmt"
	"sync"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/nestybox/horizon-ipc/kernel"
)

// registration is what the registry keeps per service name.
type registration struct {
	portHandle kernel.Handle
	mitm       *mitmState
}

// mitmState tracks an installed MITM interception for a service name: the
// query-service handle handed to the intercepting process, and the
// process identity pinned for the next session to arrive on the real port
// (consumed once by AtmosphereAcknowledgeMitmSession, per spec.md's MITM
// registration flow).
type mitmState struct {
	queryHandle kernel.Handle
	pending     *ProcessInfo
}

// ProcessInfo identifies the process a MITM session is being attributed
// to, handed back by AtmosphereAcknowledgeMitmSession.
type ProcessInfo struct {
	ProcessID uint64
	ProgramID uint64
	Keygen    uint8
	Override  bool
}

// Registry is the server-side name database: a radix tree indexed by
// service name, the same ordered-lookup idiom the teacher's handlerDB
// uses for filesystem-path handlers, repurposed here for service names.
type Registry struct {
	mu   sync.Mutex
	tree *iradix.Tree
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tree: iradix.New()}
}

// Register adds serviceName bound to portHandle. Returns an error if the
// name is already taken.
func (r *Registry) Register(serviceName string, portHandle kernel.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tree.Get([]byte(serviceName)); ok {
		return fmt.Errorf("sm: service %q already registered", serviceName)
	}
	tree, _, _ := r.tree.Insert([]byte(serviceName), &registration{portHandle: portHandle})
	r.tree = tree
	return nil
}

// Unregister removes serviceName. Returns an error if it was never
// registered.
func (r *Registry) Unregister(serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tree.Get([]byte(serviceName)); !ok {
		return fmt.Errorf("sm: service %q not registered", serviceName)
	}
	tree, _, _ := r.tree.Delete([]byte(serviceName))
	r.tree = tree
	return nil
}

// Lookup returns the port handle registered for serviceName.
func (r *Registry) Lookup(serviceName string) (kernel.Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.tree.Get([]byte(serviceName))
	if !ok {
		return kernel.InvalidHandle, false
	}
	return v.(*registration).portHandle, true
}

// InstallMitm marks serviceName as intercepted and records the query
// handle handed to the intercepting process. Returns an error if the
// service isn't registered or already has a MITM installed.
func (r *Registry) InstallMitm(serviceName string, queryHandle kernel.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.tree.Get([]byte(serviceName))
	if !ok {
		return fmt.Errorf("sm: service %q not registered", serviceName)
	}
	reg := v.(*registration)
	if reg.mitm != nil {
		return fmt.Errorf("sm: service %q already has a MITM installed", serviceName)
	}
	reg.mitm = &mitmState{queryHandle: queryHandle}
	return nil
}

// UninstallMitm clears a prior InstallMitm. A no-op if none was installed.
func (r *Registry) UninstallMitm(serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.tree.Get([]byte(serviceName))
	if !ok {
		return fmt.Errorf("sm: service %q not registered", serviceName)
	}
	v.(*registration).mitm = nil
	return nil
}

// ClearFutureMitm marks serviceName's MITM as not applying to the next
// session (the per-session "pending" identity is reset without removing
// the MITM installation itself).
func (r *Registry) ClearFutureMitm(serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.tree.Get([]byte(serviceName))
	if !ok {
		return fmt.Errorf("sm: service %q not registered", serviceName)
	}
	reg := v.(*registration)
	if reg.mitm == nil {
		return fmt.Errorf("sm: service %q has no MITM installed", serviceName)
	}
	reg.mitm.pending = nil
	return nil
}

// SetPendingMitmProcess records the process identity the next session to
// arrive on serviceName's real port should be attributed to.
func (r *Registry) SetPendingMitmProcess(serviceName string, info ProcessInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.tree.Get([]byte(serviceName))
	if !ok {
		return fmt.Errorf("sm: service %q not registered", serviceName)
	}
	reg := v.(*registration)
	if reg.mitm == nil {
		return fmt.Errorf("sm: service %q has no MITM installed", serviceName)
	}
	reg.mitm.pending = &info
	return nil
}

// AcknowledgeMitmSession consumes and returns the pending process identity
// set by SetPendingMitmProcess, if any.
func (r *Registry) AcknowledgeMitmSession(serviceName string) (ProcessInfo, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.tree.Get([]byte(serviceName))
	if !ok {
		return ProcessInfo{}, false, fmt.Errorf("sm: service %q not registered", serviceName)
	}
	reg := v.(*registration)
	if reg.mitm == nil || reg.mitm.pending == nil {
		return ProcessInfo{}, false, nil
	}
	info := *reg.mitm.pending
	reg.mitm.pending = nil
	return info, true, nil
}

// Names returns every currently registered service name, ordered by the
// radix tree's key order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var names []string
	r.tree.Root().Walk(func(key []byte, _ interface{}) bool {
		names = append(names, string(key))
		return false
	})
	return names
}
