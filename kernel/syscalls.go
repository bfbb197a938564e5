// Package kernel models the Horizon-style microkernel's session-IPC
// syscall surface consumed by the ipc server core: session creation,
// accept, the combined reply-and-receive primitive, handle waiting, and
// the named-port registry. It is deliberately out of scope to implement
// the real microkernel; Syscalls is the boundary the core is written
// against, with a real socketpair-backed implementation for tests and
// local operation (local.go).
package kernel

import "context"

// Handle is a kernel object reference. Defined here (rather than in
// package ipc, which depends on Syscalls) so the dependency runs one way.
type Handle uint32

// InvalidHandle is never a valid kernel handle.
const InvalidHandle Handle = 0

// Syscalls is the kernel surface the ipc server core drives its wait
// loop and session lifecycle through.
type Syscalls interface {
	// CreateSession returns a connected (server, client) handle pair.
	CreateSession(isLight bool) (server Handle, client Handle, err error)

	// AcceptSession accepts one pending connection on a listening port
	// handle, returning the new session's server-side handle.
	AcceptSession(port Handle) (Handle, error)

	// ReplyAndReceive replies on replyTarget (if non-zero) with whatever
	// is currently in the session's outgoing message buffer, then blocks
	// until one of handles is signaled or the context is done.
	ReplyAndReceive(ctx context.Context, handles []Handle, replyTarget Handle) (signaled Handle, err error)

	// SendSyncRequest performs a full synchronous IPC round trip on
	// handle: the caller has already written the request into the
	// session's message buffer, and the response is placed back into it.
	SendSyncRequest(handle Handle) error

	// CloseHandle releases a kernel handle.
	CloseHandle(handle Handle) error

	// ManageNamedPort registers name as a listening port with the given
	// max session backlog, returning its server-side handle.
	ManageNamedPort(name string, maxSessions int32) (Handle, error)

	// ConnectToNamedPort resolves name to a connected client handle.
	ConnectToNamedPort(name string) (Handle, error)

	// MessageBuffer returns the fixed-size thread-local message buffer
	// associated with handle, allocating it on first use.
	MessageBuffer(handle Handle) *MessageBuffer
}

// MessageBuffer models the fixed-size thread-local buffer backing one
// session's in-flight request/response. Real Horizon threads have one
// 0x100-byte buffer; this implementation gives one to each session handle
// it knows about, which is the local stand-in for "the buffer at a
// given kernel handle's address" used throughout the source.
type MessageBuffer [0x100]byte
