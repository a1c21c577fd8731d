package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ensureFiles(t *testing.T, rootDir string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := rootify(f, rootDir)
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
}

func TestEnsureRoot(t *testing.T) {
	tmpDir := t.TempDir()

	// create root dir
	require.NoError(t, EnsureRoot(tmpDir))

	// make sure config is set properly
	data, err := os.ReadFile(filepath.Join(tmpDir, defaultConfigFilePath))
	require.NoError(t, err)

	checkConfig(t, string(data))

	ensureFiles(t, tmpDir, "data")
}

func TestEnsureTestRoot(t *testing.T) {
	testName := "ensureTestRoot"

	// create root dir
	cfg, err := ResetTestRoot(t.TempDir(), testName)
	require.NoError(t, err)
	rootDir := cfg.RootDir

	// make sure config is set properly
	data, err := os.ReadFile(filepath.Join(rootDir, defaultConfigFilePath))
	require.NoError(t, err)

	checkConfig(t, string(data))

	ensureFiles(t, rootDir, defaultDataDir)
}

func TestWriteConfigFileRoundTrips(t *testing.T) {
	rootDir := t.TempDir()
	require.NoError(t, EnsureRoot(rootDir))

	cfg := DefaultConfig()
	cfg.Moniker = "roundtrip"
	cfg.VM.CostTable = "costs.toml"
	cfg.VM.PrefetchConcurrency = 3
	cfg.Instrumentation.Prometheus = true
	require.NoError(t, WriteConfigFile(rootDir, cfg))

	v := viper.New()
	v.SetConfigFile(filepath.Join(rootDir, defaultConfigFilePath))
	require.NoError(t, v.ReadInConfig())

	loaded := DefaultConfig()
	require.NoError(t, v.Unmarshal(loaded))
	loaded.SetRoot(rootDir)
	cfg.SetRoot(rootDir)
	assert.Equal(t, cfg, loaded)
}

func checkConfig(t *testing.T, configFile string) {
	t.Helper()
	// list of words we expect in the config
	var elems = []string{
		"moniker",
		"db-backend",
		"db-dir",
		"log-level",
		"log-format",
		"vm",
		"cost-table-file",
		"prefetch-concurrency",
		"instrumentation",
		"prometheus",
		"namespace",
	}
	for _, e := range elems {
		if !strings.Contains(configFile, e) {
			t.Errorf("config file was expected to contain %s but did not", e)
		}
	}
}
