package diag

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotStoreSaveListRead(t *testing.T) {
	store := NewSnapshotStore(afero.NewMemMapFs(), "/snapshots")

	name, err := store.Save("sess-1", []byte{0xde, 0xad})
	require.NoError(t, err)

	names, err := store.List()
	require.NoError(t, err)
	assert.Equal(t, []string{name}, names)

	data, err := store.Read(name)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, data)
}

func TestSnapshotStoreSequenceNumbers(t *testing.T) {
	store := NewSnapshotStore(afero.NewMemMapFs(), "/snapshots")

	first, err := store.Save("sess-1", []byte{1})
	require.NoError(t, err)
	second, err := store.Save("sess-1", []byte{2})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestMetricsHolderCountAndForwards(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetHolderCount(3)
	m.IncMitmForward()
	m.IncMitmForward()

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawHolderCount, sawForwards bool
	for _, f := range families {
		switch f.GetName() {
		case "hipc_holder_count":
			sawHolderCount = true
			assert.Equal(t, float64(3), f.Metric[0].GetGauge().GetValue())
		case "hipc_mitm_forwards_total":
			sawForwards = true
			assert.Equal(t, float64(2), f.Metric[0].GetCounter().GetValue())
		}
	}
	assert.True(t, sawHolderCount)
	assert.True(t, sawForwards)
}

func TestServerServesMetricsAndSnapshots(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewMetrics(reg)
	store := NewSnapshotStore(afero.NewMemMapFs(), "/snapshots")
	name, err := store.Save("sess-1", []byte("hello"))
	require.NoError(t, err)

	srv := NewServer("127.0.0.1:0", reg, store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/debug/snapshots", nil)
	srv.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/debug/snapshots/"+name[len("/snapshots/"):], nil)
	srv.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestServerRunRespectsContextCancellation(t *testing.T) {
	reg := prometheus.NewRegistry()
	store := NewSnapshotStore(afero.NewMemMapFs(), "/snapshots")
	srv := NewServer("127.0.0.1:0", reg, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}
