package clipime

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	defaults "github.com/Paranoid-AF/clipime/default"
)

// Backend names accepted in ConversionConfig.Backend.
const (
	BackendWorker = "worker"
	BackendDirect = "direct"
)

// Output modes accepted in OutputConfig.Mode.
const (
	OutputStdout       = "stdout"
	OutputChatbox      = "chatbox"
	OutputSendDirectly = "send_directly"
)

// Config represents the user's clipime configuration.
type Config struct {
	Version    int              `toml:"version" json:"version"`
	Conversion ConversionConfig `toml:"conversion" json:"conversion"`
	Worker     WorkerConfig     `toml:"worker" json:"worker"`
	Output     OutputConfig     `toml:"output" json:"output"`
	Dictionary DictionaryConfig `toml:"dictionary" json:"dictionary"`
	Log        LogConfig        `toml:"log" json:"log"`
}

// ConversionConfig controls which text gets converted and by what.
type ConversionConfig struct {
	Backend   string `toml:"backend" json:"backend"`
	MaxLength int    `toml:"max_length,omitempty" json:"max_length,omitempty"`
	SkipURL   *bool  `toml:"skip_url,omitempty" json:"skip_url,omitempty"`
}

// WorkerConfig holds settings for the out-of-process conversion worker.
type WorkerConfig struct {
	// Command overrides the worker command line. Empty means this
	// executable started with the "worker" argument.
	Command            string `toml:"command,omitempty" json:"command,omitempty"`
	HandshakeTimeoutMS int    `toml:"handshake_timeout_ms,omitempty" json:"handshake_timeout_ms,omitempty"`
	// RequestTimeoutMS bounds a candidate round trip. Negative means wait forever.
	RequestTimeoutMS int `toml:"request_timeout_ms,omitempty" json:"request_timeout_ms,omitempty"`
}

// OutputConfig selects the text sink.
type OutputConfig struct {
	Mode       string `toml:"mode" json:"mode"`
	OSCAddress string `toml:"osc_address,omitempty" json:"osc_address,omitempty"`
}

// DictionaryConfig locates the user dictionary.
type DictionaryConfig struct {
	Path string `toml:"path,omitempty" json:"path,omitempty"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	File string `toml:"file,omitempty" json:"file,omitempty"`
}

// ConfigDir returns the config directory path.
// Resolution order: $CLIPIME_CONFIG_DIR > $XDG_CONFIG_HOME/clipime > ~/.config/clipime
func ConfigDir() string {
	if dir := os.Getenv("CLIPIME_CONFIG_DIR"); dir != "" {
		return dir
	}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "clipime")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join("/tmp", "clipime-config")
	}
	return filepath.Join(home, ".config", "clipime")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DictionaryPath returns the user dictionary path.
func DictionaryPath(cfg *Config) string {
	if cfg != nil && cfg.Dictionary.Path != "" {
		return cfg.Dictionary.Path
	}
	return filepath.Join(ConfigDir(), "dictionary.toml")
}

// DefaultConfig returns the default configuration from the embedded default_config.toml.
func DefaultConfig() *Config {
	var cfg Config
	if _, err := toml.Decode(defaults.DefaultConfigTOML, &cfg); err != nil {
		panic("clipime: invalid embedded default_config.toml: " + err.Error())
	}
	return &cfg
}

// LoadConfig loads config from disk or returns defaults if not found.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile loads config from path, filling missing fields from defaults.
func LoadConfigFile(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	// Apply defaults for missing fields
	defaults := DefaultConfig()
	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}
	if cfg.Conversion.Backend == "" {
		cfg.Conversion.Backend = defaults.Conversion.Backend
	}
	if cfg.Conversion.MaxLength == 0 {
		cfg.Conversion.MaxLength = defaults.Conversion.MaxLength
	}
	if cfg.Conversion.SkipURL == nil {
		cfg.Conversion.SkipURL = defaults.Conversion.SkipURL
	}
	if cfg.Worker.HandshakeTimeoutMS == 0 {
		cfg.Worker.HandshakeTimeoutMS = defaults.Worker.HandshakeTimeoutMS
	}
	if cfg.Worker.RequestTimeoutMS == 0 {
		cfg.Worker.RequestTimeoutMS = defaults.Worker.RequestTimeoutMS
	}
	if cfg.Output.Mode == "" {
		cfg.Output.Mode = defaults.Output.Mode
	}
	if cfg.Output.OSCAddress == "" {
		cfg.Output.OSCAddress = defaults.Output.OSCAddress
	}

	return &cfg, nil
}

// ValidateConfig checks configuration for potential issues and returns warnings.
func ValidateConfig(cfg *Config) []string {
	var warnings []string
	if cfg == nil {
		return warnings
	}
	switch ResolveBackend(cfg) {
	case BackendWorker, BackendDirect:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown conversion backend %q; the worker backend will be used", cfg.Conversion.Backend))
	}
	switch ResolveOutputMode(cfg) {
	case OutputStdout, OutputChatbox, OutputSendDirectly:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown output mode %q; converted text will be written to stdout", cfg.Output.Mode))
	}
	if cfg.Conversion.MaxLength < 0 {
		warnings = append(warnings, "max_length is negative; no text will be converted")
	}
	if ResolveBackend(cfg) == BackendDirect && cfg.Worker.Command != "" {
		warnings = append(warnings, "worker.command is set but the direct backend is selected; the command is ignored")
	}
	return warnings
}

// ResolveBackend returns the conversion backend name.
// Priority: $CLIPIME_BACKEND env > config value.
func ResolveBackend(cfg *Config) string {
	if b := os.Getenv("CLIPIME_BACKEND"); b != "" {
		return b
	}
	if cfg != nil {
		return cfg.Conversion.Backend
	}
	return BackendWorker
}

// ResolveWorkerCommand returns the worker command line override.
// Priority: $CLIPIME_WORKER_COMMAND env > config value.
func ResolveWorkerCommand(cfg *Config) string {
	if cmd := os.Getenv("CLIPIME_WORKER_COMMAND"); cmd != "" {
		return cmd
	}
	if cfg != nil {
		return cfg.Worker.Command
	}
	return ""
}

// ResolveOutputMode returns the text sink mode.
// Priority: $CLIPIME_OUTPUT_MODE env > config value.
func ResolveOutputMode(cfg *Config) string {
	if mode := os.Getenv("CLIPIME_OUTPUT_MODE"); mode != "" {
		return mode
	}
	if cfg != nil {
		return cfg.Output.Mode
	}
	return OutputStdout
}

// SkipURL reports whether text containing a URL should be left unconverted.
func SkipURL(cfg *Config) bool {
	if cfg == nil || cfg.Conversion.SkipURL == nil {
		return true // default true
	}
	return *cfg.Conversion.SkipURL
}

// HandshakeTimeout returns how long to wait for the worker bootstrap line.
func HandshakeTimeout(cfg *Config) time.Duration {
	if cfg == nil || cfg.Worker.HandshakeTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(cfg.Worker.HandshakeTimeoutMS) * time.Millisecond
}

// RequestTimeout returns the candidate round-trip bound. Zero means no bound.
func RequestTimeout(cfg *Config) time.Duration {
	if cfg == nil || cfg.Worker.RequestTimeoutMS == 0 {
		return 30 * time.Second
	}
	if cfg.Worker.RequestTimeoutMS < 0 {
		return 0
	}
	return time.Duration(cfg.Worker.RequestTimeoutMS) * time.Millisecond
}
