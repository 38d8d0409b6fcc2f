package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/config"
	"github.com/fwojciec/raftspec/pattern"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "raftspec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg, err := config.Default()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Window.Before)
	assert.Equal(t, 10, cfg.Window.After)
	assert.Equal(t, pattern.Range{Min: 0.5, Max: 10}, cfg.Plausibility["psi"])
	assert.Equal(t, pattern.Range{Min: 20, Max: 500}, cfg.Plausibility["packed_weight:kg"])
	assert.Equal(t, pattern.Range{Min: 13.5, Max: 280}, cfg.Plausibility["inH2O"])
	assert.Equal(t, []string{"CERTIFICADO", "QUADRO", "text"}, cfg.Precedence[raftspec.FamilyAdministrative])
	assert.Equal(t, 3, cfg.Identifier.Width)
	assert.Equal(t, []string{raftspec.FieldCertificateNumber, raftspec.FieldSerialNumber}, cfg.Identifier.Fields)
	assert.InDelta(t, 0.005, cfg.Merge.Tolerance, 1e-12)
	assert.Equal(t, 2, cfg.Output.Decimals)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("file overrides defaults key by key", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, `
window:
  after: 6
plausibility:
  psi: {min: 1, max: 5}
precedence:
  technical: [QUADRO, text]
`)
		cfg, err := config.Load(path)
		require.NoError(t, err)

		assert.Equal(t, 3, cfg.Window.Before)
		assert.Equal(t, 6, cfg.Window.After)
		assert.Equal(t, pattern.Range{Min: 1, Max: 5}, cfg.Plausibility["psi"])
		assert.Equal(t, pattern.Range{Min: 1, Max: 15}, cfg.Plausibility["kN"])
		assert.Equal(t, []string{"QUADRO", "text"}, cfg.Precedence[raftspec.FamilyTechnical])
		assert.Equal(t, []string{"CERTIFICADO", "QUADRO", "text"}, cfg.Precedence[raftspec.FamilyAdministrative])
	})

	t.Run("rejects negative window", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(writeConfig(t, "window:\n  before: -2\n"))
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(writeConfig(t, "plausibility:\n  psi: {min: 10, max: 1}\n"))
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
	})

	t.Run("rejects malformed yaml", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(writeConfig(t, "window: [\n"))
		assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(err))
	})

	t.Run("fails on missing file", func(t *testing.T) {
		t.Parallel()

		_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("RAFTSPEC_WINDOW_BEFORE", "5")
	t.Setenv("RAFTSPEC_OUTPUT_DECIMALS", "4")
	t.Setenv("RAFTSPEC_DATABASE", "/tmp/records.db")

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Window.Before)
	assert.Equal(t, 4, cfg.Output.Decimals)
	assert.Equal(t, "/tmp/records.db", cfg.Database)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := func() *config.Config {
		cfg, err := config.Default()
		require.NoError(t, err)
		return cfg
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Precedence = nil
	assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(cfg.Validate()))

	cfg = valid()
	cfg.Identifier.Width = 0
	assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(cfg.Validate()))

	cfg = valid()
	cfg.Identifier.Fields = nil
	assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(cfg.Validate()))

	cfg = valid()
	cfg.Merge.Tolerance = -1
	assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(cfg.Validate()))

	cfg = valid()
	cfg.Output.Decimals = -1
	assert.Equal(t, raftspec.EINVALID, raftspec.ErrorCode(cfg.Validate()))
}
