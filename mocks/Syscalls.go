package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/nestybox/horizon-ipc/kernel"
)

// Syscalls is a hand-written mock for kernel.Syscalls, in the shape
// mockery would generate (one _m.Called per method, return values taken
// from the recorded call) but written by hand since no mockery codegen
// step runs in this repo.
type Syscalls struct {
	mock.Mock
}

func (_m *Syscalls) CreateSession(isLight bool) (kernel.Handle, kernel.Handle, error) {
	ret := _m.Called(isLight)

	var r0, r1 kernel.Handle
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(kernel.Handle)
	}
	if ret.Get(1) != nil {
		r1 = ret.Get(1).(kernel.Handle)
	}
	return r0, r1, ret.Error(2)
}

func (_m *Syscalls) AcceptSession(port kernel.Handle) (kernel.Handle, error) {
	ret := _m.Called(port)

	var r0 kernel.Handle
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(kernel.Handle)
	}
	return r0, ret.Error(1)
}

func (_m *Syscalls) ReplyAndReceive(ctx context.Context, handles []kernel.Handle, replyTarget kernel.Handle) (kernel.Handle, error) {
	ret := _m.Called(ctx, handles, replyTarget)

	var r0 kernel.Handle
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(kernel.Handle)
	}
	return r0, ret.Error(1)
}

func (_m *Syscalls) SendSyncRequest(handle kernel.Handle) error {
	ret := _m.Called(handle)
	return ret.Error(0)
}

func (_m *Syscalls) CloseHandle(handle kernel.Handle) error {
	ret := _m.Called(handle)
	return ret.Error(0)
}

func (_m *Syscalls) ManageNamedPort(name string, maxSessions int32) (kernel.Handle, error) {
	ret := _m.Called(name, maxSessions)

	var r0 kernel.Handle
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(kernel.Handle)
	}
	return r0, ret.Error(1)
}

func (_m *Syscalls) ConnectToNamedPort(name string) (kernel.Handle, error) {
	ret := _m.Called(name)

	var r0 kernel.Handle
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(kernel.Handle)
	}
	return r0, ret.Error(1)
}

func (_m *Syscalls) MessageBuffer(handle kernel.Handle) *kernel.MessageBuffer {
	ret := _m.Called(handle)

	var r0 *kernel.MessageBuffer
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*kernel.MessageBuffer)
	}
	return r0
}
