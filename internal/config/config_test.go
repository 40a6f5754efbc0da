package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromYamlOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "swarmcore.yaml")
	const doc = `
geometry:
  height_offset: 1.2
cbs:
  max_threads: 8
server:
  drone_listen_addr: ":9001"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := FromYaml(path)
	require.NoError(t, err)

	require.Equal(t, 1.2, cfg.Geometry.HeightOffset)
	require.Equal(t, 8, cfg.CBS.MaxThreads)
	require.Equal(t, ":9001", cfg.Server.DroneListenAddr)

	// Fields the file didn't mention keep their defaults.
	def := Default()
	require.Equal(t, def.Geometry.Step, cfg.Geometry.Step)
	require.Equal(t, def.OpHandler, cfg.OpHandler)
}

func TestFromYamlMissingFile(t *testing.T) {
	_, err := FromYaml(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
