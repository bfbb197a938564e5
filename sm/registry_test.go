package sm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterLookupUnregister(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register("nn.hosbinder", 7))
	h, ok := r.Lookup("nn.hosbinder")
	require.True(t, ok)
	assert.EqualValues(t, 7, h)

	assert.Error(t, r.Register("nn.hosbinder", 8), "duplicate registration must fail")

	require.NoError(t, r.Unregister("nn.hosbinder"))
	_, ok = r.Lookup("nn.hosbinder")
	assert.False(t, ok)
}

func TestRegistryMitmLifecycle(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("nn.hosbinder", 7))

	require.NoError(t, r.InstallMitm("nn.hosbinder", 99))
	assert.Error(t, r.InstallMitm("nn.hosbinder", 100), "double install must fail")

	require.NoError(t, r.SetPendingMitmProcess("nn.hosbinder", ProcessInfo{ProcessID: 42, ProgramID: 1}))

	info, found, err := r.AcknowledgeMitmSession("nn.hosbinder")
	require.NoError(t, err)
	require.True(t, found)
	assert.EqualValues(t, 42, info.ProcessID)

	_, found, err = r.AcknowledgeMitmSession("nn.hosbinder")
	require.NoError(t, err)
	assert.False(t, found, "acknowledging twice must not replay the same attribution")

	require.NoError(t, r.UninstallMitm("nn.hosbinder"))
	assert.Error(t, r.SetPendingMitmProcess("nn.hosbinder", ProcessInfo{}), "no mitm installed after uninstall")
}

func TestRegistryNamesOrdered(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("b.svc", 1))
	require.NoError(t, r.Register("a.svc", 2))
	require.NoError(t, r.Register("c.svc", 3))

	assert.Equal(t, []string{"a.svc", "b.svc", "c.svc"}, r.Names())
}
