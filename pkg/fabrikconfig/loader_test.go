package fabrikconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, yamlBody string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fabrik.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))
	return path
}

func TestLoad_ParsesAndDefaultsConfig(t *testing.T) {
	path := writeConfigFile(t, `
version: "1.0"
provider:
  kind: openai
  apiKey: sk-test
  model: gpt-4o
adapter:
  kind: http
  url: http://localhost:8080
run:
  retries: 2
`)
	cfg, err := Load(LoaderOptions{Path: path, EnvFile: filepath.Join(t.TempDir(), "nonexistent.env")})
	require.NoError(t, err)
	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, ProviderOpenAI, cfg.Provider.Kind)
	assert.Equal(t, "sk-test", cfg.Provider.APIKey)
	assert.Equal(t, 2, cfg.Run.Retries)
	assert.Equal(t, 1, cfg.Run.Parallelism) // defaulted
}

func TestLoad_ExpandsEnvReferences(t *testing.T) {
	t.Setenv("FABRIK_TEST_KEY", "expanded-secret")
	path := writeConfigFile(t, `
provider:
  kind: openai
  apiKey: "${env.FABRIK_TEST_KEY}"
adapter:
  kind: http
  url: http://localhost:8080
`)
	cfg, err := Load(LoaderOptions{Path: path, EnvFile: filepath.Join(t.TempDir(), "nonexistent.env")})
	require.NoError(t, err)
	assert.Equal(t, "expanded-secret", cfg.Provider.APIKey)
}

func TestLoad_MissingPathErrors(t *testing.T) {
	_, err := Load(LoaderOptions{})
	assert.Error(t, err)
}

func TestLoad_InvalidAdapterConfigErrors(t *testing.T) {
	path := writeConfigFile(t, `
provider:
  kind: openai
adapter:
  kind: http
`)
	_, err := Load(LoaderOptions{Path: path, EnvFile: filepath.Join(t.TempDir(), "nonexistent.env")})
	assert.Error(t, err)
}

func TestLoadWithLoader_WatchReloadsOnWrite(t *testing.T) {
	path := writeConfigFile(t, `
provider:
  kind: openai
  apiKey: sk-initial
adapter:
  kind: http
  url: http://localhost:8080
`)
	changed := make(chan *Config, 1)
	cfg, loader, err := LoadWithLoader(LoaderOptions{
		Path:     path,
		EnvFile:  filepath.Join(t.TempDir(), "nonexistent.env"),
		Watch:    true,
		OnChange: func(c *Config) { changed <- c },
	})
	require.NoError(t, err)
	defer loader.Stop()
	assert.Equal(t, "sk-initial", cfg.Provider.APIKey)

	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  kind: openai
  apiKey: sk-updated
adapter:
  kind: http
  url: http://localhost:8080
`), 0o644))

	select {
	case updated := <-changed:
		assert.Equal(t, "sk-updated", updated.Provider.APIKey)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config reload")
	}
}
