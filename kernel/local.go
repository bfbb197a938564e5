package kernel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/nestybox/horizon-ipc/result"
)

// Local is a real, in-process implementation of Syscalls: sessions are
// backed by actual AF_UNIX socket pairs (via golang.org/x/sys/unix, the
// same primitive the teacher's own process-inspection code builds on),
// and named ports are Unix-domain listeners in Linux's abstract
// namespace. It exists so ipc.ServerManager has something real to drive
// end to end without a genuine Horizon kernel underneath it.
type Local struct {
	mu           sync.Mutex
	nextHandle   uint32
	conns        map[Handle]net.Conn
	listeners    map[Handle]net.Listener
	pendingConns map[Handle]net.Conn
	buffers      map[Handle]*MessageBuffer
}

// NewLocal returns an empty kernel simulator.
func NewLocal() *Local {
	return &Local{
		conns:        make(map[Handle]net.Conn),
		listeners:    make(map[Handle]net.Listener),
		pendingConns: make(map[Handle]net.Conn),
		buffers:      make(map[Handle]*MessageBuffer),
	}
}

func (k *Local) allocHandle() Handle {
	return Handle(atomic.AddUint32(&k.nextHandle, 1))
}

// MessageBuffer returns the fixed-size buffer associated with handle,
// allocating it on first use.
func (k *Local) MessageBuffer(handle Handle) *MessageBuffer {
	k.mu.Lock()
	defer k.mu.Unlock()
	buf, ok := k.buffers[handle]
	if !ok {
		buf = &MessageBuffer{}
		k.buffers[handle] = buf
	}
	return buf
}

func (k *Local) connFor(handle Handle) (net.Conn, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	conn, ok := k.conns[handle]
	if !ok {
		return nil, result.ErrSessionClosed
	}
	return conn, nil
}

// CreateSession allocates a connected pair of handles over a real
// AF_UNIX socketpair.
func (k *Local) CreateSession(isLight bool) (Handle, Handle, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return 0, 0, fmt.Errorf("kernel: socketpair: %w", err)
	}

	serverFile := os.NewFile(uintptr(fds[0]), "hipc-server")
	clientFile := os.NewFile(uintptr(fds[1]), "hipc-client")
	serverConn, err := net.FileConn(serverFile)
	if err != nil {
		serverFile.Close()
		clientFile.Close()
		return 0, 0, err
	}
	clientConn, err := net.FileConn(clientFile)
	if err != nil {
		serverConn.Close()
		clientFile.Close()
		return 0, 0, err
	}
	serverFile.Close()
	clientFile.Close()

	k.mu.Lock()
	serverHandle := k.allocHandle()
	clientHandle := k.allocHandle()
	k.conns[serverHandle] = serverConn
	k.conns[clientHandle] = clientConn
	k.mu.Unlock()

	return serverHandle, clientHandle, nil
}

// ManageNamedPort opens a Unix-domain listener in Linux's abstract
// namespace (leading NUL byte, never touches the filesystem) and returns
// its handle.
func (k *Local) ManageNamedPort(name string, maxSessions int32) (Handle, error) {
	ln, err := net.Listen("unix", "@hipc-"+name)
	if err != nil {
		return 0, fmt.Errorf("kernel: listen %s: %w", name, err)
	}
	k.mu.Lock()
	h := k.allocHandle()
	k.listeners[h] = ln
	k.mu.Unlock()
	return h, nil
}

// ConnectToNamedPort dials a port previously opened with ManageNamedPort.
func (k *Local) ConnectToNamedPort(name string) (Handle, error) {
	conn, err := net.Dial("unix", "@hipc-"+name)
	if err != nil {
		return 0, fmt.Errorf("kernel: dial %s: %w", name, err)
	}
	k.mu.Lock()
	h := k.allocHandle()
	k.conns[h] = conn
	k.mu.Unlock()
	return h, nil
}

// AcceptSession claims the connection ReplyAndReceive already accepted
// when it signaled this port handle (the kernel's actual accept() call
// happens inside the wait primitive, same as real Horizon session
// waiting — AcceptSession only materializes the handle for it).
func (k *Local) AcceptSession(port Handle) (Handle, error) {
	k.mu.Lock()
	conn, ok := k.pendingConns[port]
	if ok {
		delete(k.pendingConns, port)
	}
	k.mu.Unlock()
	if !ok {
		return 0, result.ErrSessionClosed
	}

	k.mu.Lock()
	h := k.allocHandle()
	k.conns[h] = conn
	k.mu.Unlock()
	return h, nil
}

// SendSyncRequest writes the handle's current outgoing message buffer and
// blocks until the same buffer holds the reply.
func (k *Local) SendSyncRequest(handle Handle) error {
	conn, err := k.connFor(handle)
	if err != nil {
		return err
	}
	buf := k.MessageBuffer(handle)

	if _, err := conn.Write(buf[:]); err != nil {
		return result.ErrSessionClosed
	}
	if _, err := io.ReadFull(conn, buf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return result.ErrSessionClosed
		}
		return err
	}
	return nil
}

type waitResult struct {
	handle Handle
	err    error
}

// ReplyAndReceive optionally flushes replyTarget's pending outgoing
// buffer, then blocks until one of handles has a full message buffer
// available or ctx is done.
func (k *Local) ReplyAndReceive(ctx context.Context, handles []Handle, replyTarget Handle) (Handle, error) {
	if replyTarget != InvalidHandle {
		conn, err := k.connFor(replyTarget)
		if err != nil {
			return 0, err
		}
		buf := k.MessageBuffer(replyTarget)
		if _, err := conn.Write(buf[:]); err != nil {
			return 0, result.ErrSessionClosed
		}
	}

	ch := make(chan waitResult, len(handles))
	for _, h := range handles {
		h := h

		k.mu.Lock()
		ln, isListener := k.listeners[h]
		k.mu.Unlock()

		if isListener {
			go func() {
				conn, err := ln.Accept()
				if err != nil {
					ch <- waitResult{h, err}
					return
				}
				k.mu.Lock()
				k.pendingConns[h] = conn
				k.mu.Unlock()
				ch <- waitResult{h, nil}
			}()
			continue
		}

		go func() {
			conn, err := k.connFor(h)
			if err != nil {
				ch <- waitResult{h, err}
				return
			}
			buf := k.MessageBuffer(h)
			_, err = io.ReadFull(conn, buf[:])
			ch <- waitResult{h, err}
		}()
	}

	select {
	case <-ctx.Done():
		return 0, result.ErrCancelled
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return r.handle, result.ErrSessionClosed
			}
			return r.handle, r.err
		}
		return r.handle, nil
	}
}

// CloseHandle releases whatever kind of handle this is (session or port).
func (k *Local) CloseHandle(handle Handle) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if conn, ok := k.conns[handle]; ok {
		delete(k.conns, handle)
		delete(k.buffers, handle)
		return conn.Close()
	}
	if ln, ok := k.listeners[handle]; ok {
		delete(k.listeners, handle)
		return ln.Close()
	}
	return nil
}
