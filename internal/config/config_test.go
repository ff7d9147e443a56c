package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
llm:
  apiKey: gsk_test
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "gsk_test", cfg.LLM.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultModel, cfg.LLM.Model)
	assert.Equal(t, "loopback", cfg.Server.Bind)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	var cerr *ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CALBOT_PORT", "7777")
	t.Setenv("CALBOT_GROQ_API_KEY", "gsk_env")
	t.Setenv("CALBOT_LOG_LEVEL", "DEBUG")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "gsk_env", cfg.LLM.APIKey)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSensitiveFieldExpansion(t *testing.T) {
	t.Setenv("MY_GROQ_KEY", "gsk_expanded")
	path := writeConfig(t, `
llm:
  apiKey: ${MY_GROQ_KEY}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gsk_expanded", cfg.LLM.APIKey)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.APIKey = "gsk_test"
	assert.Empty(t, Validate(&cfg))

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad bind", func(c *Config) { c.Server.Bind = "tailnet" }, "server.bind"},
		{"custom without host", func(c *Config) { c.Server.Bind = "custom" }, "server.customBindHost"},
		{"bad provider", func(c *Config) { c.LLM.Provider = "openai" }, "llm.provider"},
		{"groq without key", func(c *Config) { c.LLM.APIKey = "" }, "llm.apiKey"},
		{"partial oauth", func(c *Config) { c.Google.ClientID = "id" }, "google"},
		{"bad driver", func(c *Config) { c.Store.Driver = "postgres" }, "store.driver"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.LLM.APIKey = "gsk_test"
			tt.mutate(&cfg)
			issues := Validate(&cfg)
			require.NotEmpty(t, issues)
			assert.Equal(t, tt.path, issues[0].Path)
		})
	}
}

func TestMockProviderNeedsNoKey(t *testing.T) {
	cfg := Defaults()
	cfg.LLM.Provider = "mock"
	assert.Empty(t, Validate(&cfg))
}

func TestResolvePathsHonorsHomeOverride(t *testing.T) {
	base := t.TempDir()
	t.Setenv("CALBOT_HOME", base)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, base, paths.Base)
	assert.Equal(t, filepath.Join(base, "config.yaml"), paths.Config)

	require.NoError(t, paths.EnsureDirs())
	assert.DirExists(t, paths.Data)
	assert.DirExists(t, paths.Logs)

	assert.Equal(t, filepath.Join(paths.Data, "calbot.db"), paths.DBPath(StoreConfig{}))
	assert.Equal(t, ":memory:", paths.DBPath(StoreConfig{Path: ":memory:"}))
}
