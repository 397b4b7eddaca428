package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, uint32(200), cfg.Engine.TappingTermMs)
	assert.Equal(t, uint32(10), cfg.Engine.SettleMs)
	assert.Equal(t, "builtin:sofle", cfg.KeymapRef())
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel())
}

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestNew_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tapdance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
engine:
  tapping_term_ms: 175
logging:
  level: debug
  format: json
keymap:
  dir: ./keymaps/sofle
`), 0644))

	v, err := New(path)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, uint32(175), cfg.Engine.TappingTermMs)
	assert.Equal(t, uint32(10), cfg.Engine.SettleMs)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
	assert.Equal(t, "./keymaps/sofle", cfg.KeymapRef())
}

func TestNew_MissingExplicitFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNew_NoFileIsFine(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestNew_EnvOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	t.Setenv("TAPDANCE_ENGINE_SETTLE_MS", "25")
	t.Setenv("TAPDANCE_STORE_PATH", "/tmp/x.db")

	v, err := New("")
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, uint32(25), cfg.Engine.SettleMs)
	assert.Equal(t, "/tmp/x.db", cfg.Store.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero tapping term", func(c *Config) { c.Engine.TappingTermMs = 0 }, "engine.tapping_term_ms"},
		{"huge tapping term", func(c *Config) { c.Engine.TappingTermMs = MaxTappingTermMs + 1 }, "engine.tapping_term_ms"},
		{"huge settle", func(c *Config) { c.Engine.SettleMs = MaxSettleMs + 1 }, "engine.settle_ms"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"empty store path", func(c *Config) { c.Store.Path = " " }, "store.path"},
		{"no keymap", func(c *Config) { c.Keymap = KeymapConfig{} }, "keymap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestLoad_ReturnsValidationErrors(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("logging.level", "loud")
	v.Set("logging.format", "xml")

	_, err := Load(v)
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, err.Error(), "2 validation errors")
	assert.Contains(t, err.Error(), "logging.level")
}

func TestConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "tapdance"), ConfigDir())
}
