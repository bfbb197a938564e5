package mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/horizon-ipc/kernel"
	"github.com/nestybox/horizon-ipc/sm"
)

func TestSyscallsMockSatisfiesInterface(t *testing.T) {
	var _ kernel.Syscalls = (*Syscalls)(nil)

	s := &Syscalls{}
	s.On("ManageNamedPort", "nn.hosbinder", int32(4)).Return(kernel.Handle(7), nil)

	h, err := s.ManageNamedPort("nn.hosbinder", 4)
	require.NoError(t, err)
	assert.EqualValues(t, 7, h)
	s.AssertExpectations(t)
}

func TestSyscallsMockPropagatesError(t *testing.T) {
	s := &Syscalls{}
	s.On("CloseHandle", kernel.Handle(3)).Return(errors.New("boom"))

	err := s.CloseHandle(3)
	assert.EqualError(t, err, "boom")
}

func TestServiceManagerClientMock(t *testing.T) {
	c := &ServiceManagerClient{}
	c.On("RegisterService", context.Background(), "nn.hosbinder", int32(4)).
		Return(&sm.RegisterServiceResponse{PortHandle: 9}, nil)

	resp, err := c.RegisterService(context.Background(), "nn.hosbinder", 4)
	require.NoError(t, err)
	assert.EqualValues(t, 9, resp.PortHandle)
	c.AssertExpectations(t)
}
