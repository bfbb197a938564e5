package main

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/horizon-ipc/config"
	"github.com/nestybox/horizon-ipc/ipc"
	"github.com/nestybox/horizon-ipc/kernel"
	"github.com/nestybox/horizon-ipc/mocks"
	"github.com/nestybox/horizon-ipc/sm"
)

func TestRegisterConfiguredServicePlain(t *testing.T) {
	sys := kernel.NewLocal()
	manager := ipc.NewServerManager(sys, 0, nil)
	client := &mocks.ServiceManagerClient{}
	log := logrus.NewEntry(logrus.StandardLogger())

	entry := config.ServiceEntry{Name: "nn.test", MaxSessions: 2}
	client.On("RegisterService", context.Background(), entry.Name, entry.MaxSessions).
		Return(&sm.RegisterServiceResponse{PortHandle: 11}, nil)

	err := registerConfiguredService(context.Background(), client, manager, entry, log)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestRegisterConfiguredServiceMitm(t *testing.T) {
	sys := kernel.NewLocal()
	manager := ipc.NewServerManager(sys, 0, nil)
	client := &mocks.ServiceManagerClient{}
	log := logrus.NewEntry(logrus.StandardLogger())

	entry := config.ServiceEntry{Name: "nn.hosbinder", MaxSessions: 4, Mitm: true}
	client.On("RegisterService", context.Background(), entry.Name, entry.MaxSessions).
		Return(&sm.RegisterServiceResponse{PortHandle: 21}, nil)
	client.On("AtmosphereInstallMitm", context.Background(), entry.Name).
		Return(&sm.AtmosphereInstallMitmResponse{PortHandle: 21, QueryHandle: 22}, nil)

	err := registerConfiguredService(context.Background(), client, manager, entry, log)
	require.NoError(t, err)
	client.AssertExpectations(t)
}
