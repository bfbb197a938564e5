package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/nestybox/horizon-ipc/sm"
)

// ServiceManagerClient is a hand-written mock for sm.ServiceManagerClient.
type ServiceManagerClient struct {
	mock.Mock
}

var _ sm.ServiceManagerClient = (*ServiceManagerClient)(nil)

func (_m *ServiceManagerClient) RegisterService(ctx context.Context, serviceName string, maxSessions int32) (*sm.RegisterServiceResponse, error) {
	ret := _m.Called(ctx, serviceName, maxSessions)

	var r0 *sm.RegisterServiceResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sm.RegisterServiceResponse)
	}
	return r0, ret.Error(1)
}

func (_m *ServiceManagerClient) UnregisterService(ctx context.Context, serviceName string) (*sm.UnregisterServiceResponse, error) {
	ret := _m.Called(ctx, serviceName)

	var r0 *sm.UnregisterServiceResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sm.UnregisterServiceResponse)
	}
	return r0, ret.Error(1)
}

func (_m *ServiceManagerClient) AtmosphereInstallMitm(ctx context.Context, serviceName string) (*sm.AtmosphereInstallMitmResponse, error) {
	ret := _m.Called(ctx, serviceName)

	var r0 *sm.AtmosphereInstallMitmResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sm.AtmosphereInstallMitmResponse)
	}
	return r0, ret.Error(1)
}

func (_m *ServiceManagerClient) AtmosphereUninstallMitm(ctx context.Context, serviceName string) (*sm.AtmosphereUninstallMitmResponse, error) {
	ret := _m.Called(ctx, serviceName)

	var r0 *sm.AtmosphereUninstallMitmResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sm.AtmosphereUninstallMitmResponse)
	}
	return r0, ret.Error(1)
}

func (_m *ServiceManagerClient) AtmosphereAcknowledgeMitmSession(ctx context.Context, serviceName string) (*sm.AtmosphereAcknowledgeMitmSessionResponse, error) {
	ret := _m.Called(ctx, serviceName)

	var r0 *sm.AtmosphereAcknowledgeMitmSessionResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sm.AtmosphereAcknowledgeMitmSessionResponse)
	}
	return r0, ret.Error(1)
}

func (_m *ServiceManagerClient) AtmosphereClearFutureMitm(ctx context.Context, serviceName string) (*sm.AtmosphereClearFutureMitmResponse, error) {
	ret := _m.Called(ctx, serviceName)

	var r0 *sm.AtmosphereClearFutureMitmResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sm.AtmosphereClearFutureMitmResponse)
	}
	return r0, ret.Error(1)
}

func (_m *ServiceManagerClient) DetachClient(ctx context.Context, processID uint64) (*sm.DetachClientResponse, error) {
	ret := _m.Called(ctx, processID)

	var r0 *sm.DetachClientResponse
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*sm.DetachClientResponse)
	}
	return r0, ret.Error(1)
}
