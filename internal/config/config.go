// Package config loads tapdance settings from a YAML file, TAPDANCE_*
// environment variables and built-in defaults, in that order of precedence
// below command-line flags.
package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides. Nested keys use
// underscores: TAPDANCE_ENGINE_TAPPING_TERM_MS sets engine.tapping_term_ms.
const EnvPrefix = "TAPDANCE"

// Config holds all tapdance configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Logging LoggingConfig `mapstructure:"logging"`
	Store   StoreConfig   `mapstructure:"store"`
	Keymap  KeymapConfig  `mapstructure:"keymap"`
}

// EngineConfig controls classification timing. Scripts and scenarios that
// set their own timing override these.
type EngineConfig struct {
	// TappingTermMs is the idle time after the last press that finalizes a
	// dance.
	TappingTermMs uint32 `mapstructure:"tapping_term_ms"`
	// SettleMs is the delay between the final release and the reset.
	SettleMs uint32 `mapstructure:"settle_ms"`
}

// LoggingConfig controls the stderr logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is text or json.
	Format string `mapstructure:"format"`
}

// StoreConfig locates the session database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// KeymapConfig selects the keymap used when a command is not given one.
// Dir wins over Builtin when both are set.
type KeymapConfig struct {
	Dir     string `mapstructure:"dir"`
	Builtin string `mapstructure:"builtin"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			TappingTermMs: 200,
			SettleMs:      10,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		Store: StoreConfig{
			Path: "tapdance.db",
		},
		Keymap: KeymapConfig{
			Builtin: "sofle",
		},
	}
}

// SetDefaults registers the defaults on v.
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("engine.tapping_term_ms", defaults.Engine.TappingTermMs)
	v.SetDefault("engine.settle_ms", defaults.Engine.SettleMs)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)

	v.SetDefault("store.path", defaults.Store.Path)

	v.SetDefault("keymap.dir", defaults.Keymap.Dir)
	v.SetDefault("keymap.builtin", defaults.Keymap.Builtin)
}

// New returns a viper instance with defaults and environment binding set
// up. If file is empty, config.yaml is searched for in ConfigDir() and the
// working directory; a missing file is not an error.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}
	return v, nil
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// KeymapRef returns the keymap reference selected by the configuration, in
// the form keymap.Resolve accepts.
func (c *Config) KeymapRef() string {
	if c.Keymap.Dir != "" {
		return c.Keymap.Dir
	}
	return "builtin:" + c.Keymap.Builtin
}

// LogLevel parses Logging.Level. Validate rejects unknown levels.
func (c *Config) LogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelWarn
	}
	return level
}

// ConfigDir returns the tapdance configuration directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tapdance")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tapdance"
	}
	return filepath.Join(home, ".config", "tapdance")
}
