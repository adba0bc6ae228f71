package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string `json:"name"`
	Workers int    `json:"workers"`
	Nested  struct {
		Url string `json:"url"`
	} `json:"nested"`
}

func TestReadConfigMergesLocalOverrides(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.json5"), []byte(`{
		// comments are allowed
		name: "base",
		workers: 2,
		nested: { url: "https://example.com" },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{ workers: 8 }`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", cfg.Name)
	require.Equal(t, 8, cfg.Workers)
	require.Equal(t, "https://example.com", cfg.Nested.Url)
}

func TestReadConfigNotFound(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "missing.json5"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWithDefaults(t *testing.T) {
	var defaults testConfig
	defaults.Name = "default"
	defaults.Workers = 1
	defaults.Nested.Url = "https://default"

	var cfg testConfig
	cfg.Workers = 4

	merged, err := WithDefaults(cfg, defaults)
	require.NoError(t, err)
	require.Equal(t, "default", merged.Name)
	require.Equal(t, 4, merged.Workers)
	require.Equal(t, "https://default", merged.Nested.Url)
}

func TestWithDefaultsKeepsZeroPointer(t *testing.T) {
	type limits struct {
		MaxPages *int `json:"max_pages"`
	}
	defaultPages := 1000
	zero := 0

	merged, err := WithDefaults(limits{MaxPages: &zero}, limits{MaxPages: &defaultPages})
	require.NoError(t, err)
	require.Equal(t, 0, *merged.MaxPages)

	merged, err = WithDefaults(limits{}, limits{MaxPages: &defaultPages})
	require.NoError(t, err)
	require.Equal(t, 1000, *merged.MaxPages)
}

func TestReadConfigLocalZeroPointerOverrides(t *testing.T) {
	type portal struct {
		DelayMs *int `json:"delay_ms"`
	}
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "sentinel.json5"), []byte(`{ delay_ms: 3000 }`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "sentinel.local.json5"), []byte(`{ delay_ms: 0 }`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[portal](filepath.Join(dir, "sentinel.json5"))
	require.NoError(t, err)
	require.NotNil(t, cfg.DelayMs)
	require.Equal(t, 0, *cfg.DelayMs)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{ name: "local" }`), 0600)
	require.NoError(t, err)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Name)
}
