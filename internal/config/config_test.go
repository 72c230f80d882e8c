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
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 18990, cfg.Server.Port)
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 20, cfg.History.MaxSize)
	assert.Equal(t, 5, cfg.History.Window)
	assert.Equal(t, 24, cfg.History.IdleExpiryHours)
	assert.Equal(t, 3, cfg.Escalation.MaxAttempts)
	assert.Equal(t, 30, cfg.Engagement.WorkerIntervalSeconds)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
logging:
  level: debug
history:
  maxSize: 50
escalation:
  maxAttempts: 4
  rules:
    - high_priority_keywords
routing:
  knowledgeIntents:
    - billing
engagement:
  enabled: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.History.MaxSize)
	assert.Equal(t, 4, cfg.Escalation.MaxAttempts)
	assert.Equal(t, []string{"high_priority_keywords"}, cfg.Escalation.Rules)
	assert.Equal(t, []string{"billing"}, cfg.Routing.KnowledgeIntents)
	assert.True(t, cfg.Engagement.Enabled)

	// Untouched fields keep defaults.
	assert.Equal(t, "loopback", cfg.Server.Bind)
	assert.Equal(t, 5, cfg.History.Window)
}

func TestLoadBadYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DESKFLOW_SERVER_PORT", "7777")
	t.Setenv("DESKFLOW_LOG_LEVEL", "WARN")
	t.Setenv("DESKFLOW_AUTH_TOKEN", "sekrit")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "sekrit", cfg.Server.AuthToken)
}

func TestExpandSensitiveFields(t *testing.T) {
	t.Setenv("TOKEN_FROM_ENV", "abc123")
	path := writeConfig(t, `
server:
  authToken: ${TOKEN_FROM_ENV}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc123", cfg.Server.AuthToken)
}

func TestExpandEnvVarsUnsetLeftAlone(t *testing.T) {
	assert.Equal(t, "${DEFINITELY_NOT_SET_XYZ}", expandEnvVars("${DEFINITELY_NOT_SET_XYZ}"))
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateCatchesIssues(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 99999
	cfg.Server.Bind = "public"
	cfg.Logging.Level = "verbose"
	cfg.Escalation.MaxAttempts = 1
	cfg.Escalation.Rules = []string{"made_up_rule"}
	cfg.Routing.KnowledgeIntents = []string{"nonsense"}

	issues := Validate(&cfg)
	paths := make([]string, len(issues))
	for i, issue := range issues {
		paths[i] = issue.Path
	}
	assert.Contains(t, paths, "server.port")
	assert.Contains(t, paths, "server.bind")
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "escalation.maxAttempts")
	assert.Contains(t, paths, "escalation.rules")
	assert.Contains(t, paths, "routing.knowledgeIntents")
}

func TestResolvePathsHonorsHomeOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DESKFLOW_HOME", dir)

	paths, err := ResolvePaths()
	require.NoError(t, err)
	assert.Equal(t, dir, paths.Base)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), paths.Config)

	require.NoError(t, paths.EnsureDirs())
	assert.DirExists(t, paths.Data)
	assert.DirExists(t, paths.Logs)

	cfg := Defaults()
	assert.Equal(t, filepath.Join(dir, "data", "deskflow.db"), paths.DatabasePath(cfg))
	cfg.Storage.Path = "/tmp/custom.db"
	assert.Equal(t, "/tmp/custom.db", paths.DatabasePath(cfg))
}
