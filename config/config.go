package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

// Config represents the analyzer configuration
type Config struct {
	// Disassembly settings
	Disassembly struct {
		Algorithm      string `toml:"algorithm"` // linear, recursive
		DecodePayloads bool   `toml:"decode_payloads"`
	} `toml:"disassembly"`

	// Lifter settings
	Lifter struct {
		SkipUnsupported bool `toml:"skip_unsupported"`
		MaxRegisters    int  `toml:"max_registers"`
	} `toml:"lifter"`

	// Analysis settings
	Analysis struct {
		ExternalPrefixes []string `toml:"external_prefixes"`
		BuildXref        bool     `toml:"build_xref"`
	} `toml:"analysis"`

	// Display settings
	Display struct {
		ColorOutput  bool   `toml:"color_output"`
		BytesPerLine int    `toml:"bytes_per_line"`
		NumberFormat string `toml:"number_format"` // hex, dec, both
	} `toml:"display"`

	// API server settings
	API struct {
		Port           int `toml:"port"`
		MaxUploadBytes int `toml:"max_upload_bytes"`
	} `toml:"api"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Disassembly defaults
	cfg.Disassembly.Algorithm = "linear"
	cfg.Disassembly.DecodePayloads = true

	// Lifter defaults
	cfg.Lifter.SkipUnsupported = true
	cfg.Lifter.MaxRegisters = 65536

	// Analysis defaults
	cfg.Analysis.ExternalPrefixes = []string{
		"Ljava/", "Ljavax/", "Landroid/", "Landroidx/", "Lkotlin/", "Ldalvik/",
	}
	cfg.Analysis.BuildXref = false

	// Display defaults
	cfg.Display.ColorOutput = true
	cfg.Display.BytesPerLine = 16
	cfg.Display.NumberFormat = "hex"

	// API defaults
	cfg.API.Port = 8080
	cfg.API.MaxUploadBytes = 64 * 1024 * 1024

	return cfg
}

// GetConfigPath returns the platform-specific config file path
func GetConfigPath() string {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\dex-analyzer\config.toml
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		configDir = filepath.Join(configDir, "dex-analyzer")

	case "darwin", "linux":
		// macOS/Linux: ~/.config/dex-analyzer/config.toml
		homeDir, err := os.UserHomeDir()
		if err != nil {
			// Fallback to current directory
			return "config.toml"
		}
		configDir = filepath.Join(homeDir, ".config", "dex-analyzer")

	default:
		// Unknown platform: use current directory
		return "config.toml"
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0750); err != nil {
		// If we can't create the directory, fall back to current directory
		return "config.toml"
	}

	return filepath.Join(configDir, "config.toml")
}

// GetLogPath returns the platform-specific log directory path
func GetLogPath() string {
	var logDir string

	switch runtime.GOOS {
	case "windows":
		// Windows: %APPDATA%\dex-analyzer\logs
		logDir = os.Getenv("APPDATA")
		if logDir == "" {
			logDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		logDir = filepath.Join(logDir, "dex-analyzer", "logs")

	case "darwin", "linux":
		// macOS/Linux: ~/.local/share/dex-analyzer/logs
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "logs"
		}
		logDir = filepath.Join(homeDir, ".local", "share", "dex-analyzer", "logs")

	default:
		return "logs"
	}

	// Ensure directory exists
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "logs"
	}

	return logDir
}

// Load loads configuration from the default config file
func Load() (*Config, error) {
	return LoadFrom(GetConfigPath())
}

// LoadFrom loads configuration from the specified file
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read and parse config file
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to the default config file
func (c *Config) Save() error {
	return c.SaveTo(GetConfigPath())
}

// SaveTo saves configuration to the specified file
func (c *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path) // #nosec G304 -- user config file path
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close config file: %w", closeErr)
		}
	}()

	// Encode to TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}
