package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Test disassembly defaults
	if cfg.Disassembly.Algorithm != "linear" {
		t.Errorf("Expected Algorithm=linear, got %s", cfg.Disassembly.Algorithm)
	}
	if !cfg.Disassembly.DecodePayloads {
		t.Error("Expected DecodePayloads=true")
	}

	// Test lifter defaults
	if !cfg.Lifter.SkipUnsupported {
		t.Error("Expected SkipUnsupported=true")
	}
	if cfg.Lifter.MaxRegisters != 65536 {
		t.Errorf("Expected MaxRegisters=65536, got %d", cfg.Lifter.MaxRegisters)
	}

	// Test analysis defaults
	if len(cfg.Analysis.ExternalPrefixes) == 0 {
		t.Error("Expected default external prefixes")
	}
	found := false
	for _, p := range cfg.Analysis.ExternalPrefixes {
		if p == "Ljava/" {
			found = true
		}
	}
	if !found {
		t.Error("Expected Ljava/ among default external prefixes")
	}

	// Test display defaults
	if cfg.Display.BytesPerLine != 16 {
		t.Errorf("Expected BytesPerLine=16, got %d", cfg.Display.BytesPerLine)
	}
	if cfg.Display.NumberFormat != "hex" {
		t.Errorf("Expected NumberFormat=hex, got %s", cfg.Display.NumberFormat)
	}

	// Test API defaults
	if cfg.API.Port != 8080 {
		t.Errorf("Expected Port=8080, got %d", cfg.API.Port)
	}
}

func TestGetConfigPath(t *testing.T) {
	path := GetConfigPath()

	// Verify path is not empty
	if path == "" {
		t.Error("GetConfigPath returned empty string")
	}

	// Verify path ends with config.toml
	if filepath.Base(path) != "config.toml" {
		t.Errorf("Expected path to end with config.toml, got %s", path)
	}

	// Platform-specific checks
	switch runtime.GOOS {
	case "windows":
		if !filepath.IsAbs(path) && path != "config.toml" {
			t.Errorf("Expected absolute path on Windows, got %s", path)
		}

	case "darwin", "linux":
		dir := filepath.Dir(path)
		if filepath.Base(dir) != "dex-analyzer" && path != "config.toml" {
			t.Errorf("Expected path in dex-analyzer directory or fallback, got %s", path)
		}
	}
}

func TestSaveAndLoad(t *testing.T) {
	// Create a temporary directory for testing
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "test_config.toml")

	// Create a config with custom values
	cfg := DefaultConfig()
	cfg.Disassembly.Algorithm = "recursive"
	cfg.Lifter.SkipUnsupported = false
	cfg.Analysis.ExternalPrefixes = []string{"Lcom/vendor/"}
	cfg.Display.ColorOutput = false
	cfg.API.Port = 3000

	// Save config
	if err := cfg.SaveTo(configPath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// Verify file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatal("Config file was not created")
	}

	// Load config
	loaded, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify values match
	if loaded.Disassembly.Algorithm != "recursive" {
		t.Errorf("Expected Algorithm=recursive, got %s", loaded.Disassembly.Algorithm)
	}
	if loaded.Lifter.SkipUnsupported {
		t.Error("Expected SkipUnsupported=false")
	}
	if len(loaded.Analysis.ExternalPrefixes) != 1 || loaded.Analysis.ExternalPrefixes[0] != "Lcom/vendor/" {
		t.Errorf("Expected custom prefixes, got %v", loaded.Analysis.ExternalPrefixes)
	}
	if loaded.Display.ColorOutput {
		t.Error("Expected ColorOutput=false")
	}
	if loaded.API.Port != 3000 {
		t.Errorf("Expected Port=3000, got %d", loaded.API.Port)
	}
}

func TestLoadNonExistent(t *testing.T) {
	// Try to load from a non-existent file
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nonexistent.toml")

	// Should return default config without error
	cfg, err := LoadFrom(configPath)
	if err != nil {
		t.Fatalf("LoadFrom should not error on non-existent file: %v", err)
	}

	// Verify we got default config
	if cfg.Disassembly.Algorithm != "linear" {
		t.Error("Expected default config when file doesn't exist")
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	// Create a temporary file with invalid TOML
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "invalid.toml")

	invalidTOML := `
[api]
port = "not a number"  # Invalid: should be int
`
	if err := os.WriteFile(configPath, []byte(invalidTOML), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	// Should return error
	_, err := LoadFrom(configPath)
	if err == nil {
		t.Error("Expected error when loading invalid TOML")
	}
}
