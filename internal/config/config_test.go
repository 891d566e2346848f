package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/seoplan/internal/response"
)

func noEnv(string) (string, bool) { return "", false }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIKey, EnvGeminiAPIKey, EnvGoogleAPIKey, EnvModel, EnvDB} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	assert.Equal(t, 2*time.Minute, cfg.StageTimeout.Duration)
	assert.True(t, cfg.Grounded)
	assert.Equal(t, response.Lenient, cfg.Policy())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seoplan.yaml"), []byte(`
model: gemini-2.5-pro
temperature: 0.3
stageTimeout: 45s
strict: true
grounded: false
dbPath: /tmp/runs.db
proxies:
  - https://proxy.example/?u=%s
audit:
  maxChars: 5000
`), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.3, *cfg.Temperature, 1e-6)
	assert.Equal(t, 45*time.Second, cfg.StageTimeout.Duration)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout.Duration)
	assert.Equal(t, response.Strict, cfg.Policy())
	assert.False(t, cfg.Grounded)
	assert.Equal(t, "/tmp/runs.db", cfg.DBPath)
	assert.Equal(t, []string{"https://proxy.example/?u=%s"}, cfg.Proxies)
	assert.Equal(t, 5000, cfg.Audit.MaxChars)
}

func TestLoad_PrefersYml(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seoplan.yml"), []byte("model: from-yml\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seoplan.yaml"), []byte("model: from-yaml\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-yml", cfg.Model)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "model: [unterminated", "parse seoplan.yml"},
		{"bad duration", "stageTimeout: soon", "line 1"},
		{"temperature", "temperature: 3", "temperature"},
		{"proxy placeholder", "proxies: [https://p.example/]", "placeholder"},
		{"negative chars", "audit: {maxChars: -1}", "maxChars"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "seoplan.yml"), []byte(tt.body), 0o644))
			_, err := Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvGeminiAPIKey, "gemini-key")
	t.Setenv(EnvModel, "gemini-2.0-flash")
	t.Setenv(EnvDB, "/var/lib/seoplan.db")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seoplan.yml"), []byte("model: file-model\ndbPath: file.db\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", cfg.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.Model)
	assert.Equal(t, "/var/lib/seoplan.db", cfg.DBPath)
}

func TestApplyEnv_KeyPrecedence(t *testing.T) {
	env := func(vals map[string]string) func(string) (string, bool) {
		return func(k string) (string, bool) {
			v, ok := vals[k]
			return v, ok
		}
	}

	cfg := &Config{APIKey: "file-key"}
	cfg.ApplyEnv(env(map[string]string{EnvGoogleAPIKey: "google"}))
	assert.Equal(t, "file-key", cfg.APIKey)

	cfg.ApplyEnv(env(map[string]string{EnvAPIKey: " explicit ", EnvGeminiAPIKey: "gemini"}))
	assert.Equal(t, "explicit", cfg.APIKey)

	cfg = &Config{}
	cfg.ApplyEnv(env(map[string]string{EnvGeminiAPIKey: "gemini", EnvGoogleAPIKey: "google"}))
	assert.Equal(t, "gemini", cfg.APIKey)

	cfg = &Config{}
	cfg.ApplyEnv(env(map[string]string{EnvGoogleAPIKey: "google"}))
	assert.Equal(t, "google", cfg.APIKey)

	cfg = &Config{Model: "m"}
	cfg.ApplyEnv(noEnv)
	assert.Equal(t, "m", cfg.Model)
}

func TestDuration_MarshalRoundTrip(t *testing.T) {
	in := struct {
		D Duration `yaml:"d"`
	}{D: Duration{90 * time.Second}}

	data, err := yaml.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, "d: 1m30s\n", string(data))

	var out struct {
		D Duration `yaml:"d"`
	}
	require.NoError(t, yaml.Unmarshal(data, &out))
	assert.Equal(t, in.D, out.D)
}
