package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hipcd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
pointer_buf_size: 512
services:
  - name: nn.hosbinder
    max_sessions: 4
    mitm: true
diag:
  enabled: true
  addr: 127.0.0.1:9469
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.PointerBufSize)
	require.Len(t, cfg.Services, 1)
	assert.Equal(t, "nn.hosbinder", cfg.Services[0].Name)
	assert.True(t, cfg.Services[0].Mitm)
}

func TestLoadAppliesDiagDefaults(t *testing.T) {
	path := writeConfig(t, `
services:
  - name: nn.hosbinder
    max_sessions: 1
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9469", cfg.Diag.Addr)
}

func TestLoadRejectsMissingServiceName(t *testing.T) {
	path := writeConfig(t, `
services:
  - max_sessions: 1
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsEmptyServiceList(t *testing.T) {
	path := writeConfig(t, `
pointer_buf_size: 0
`)
	_, err := Load(path)
	assert.Error(t, err)
}
