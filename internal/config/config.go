// Package config loads service configuration from the platform-native
// backend, environment variables and the platform secret store.
package config

import (
	"path/filepath"
	"strings"
)

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Storage  StorageConfig
	Learning LearningConfig
	Catalog  CatalogConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type LLMConfig struct {
	BaseURL string
	Model   string
	Enabled bool
}

type StorageConfig struct {
	DataDir string
}

type LearningConfig struct {
	// DataFile is the JSON document holding feedback history, insights and
	// preference patterns. Defaults to learning_data.json under DataDir.
	DataFile string
}

type CatalogConfig struct {
	AWSRegion     string
	AzureLocation string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		LLM: LLMConfig{
			BaseURL: "http://localhost:11434",
			Model:   "mistral-nemo",
			Enabled: true,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Catalog: CatalogConfig{
			AWSRegion:     "us-east-1",
			AzureLocation: "eastus",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.archon.app) and secrets
// fall back to macOS Keychain. On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/archon/config.json and secrets live in a data-dir
// secrets file.
//
// Environment variables (ARCHON_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.APIToken == "" {
		if tok, err := kc.Get(secretService, secretAPITokenAccount); err == nil && tok != "" {
			cfg.Server.APIToken = tok
		}
	}

	if cfg.Learning.DataFile == "" {
		cfg.Learning.DataFile = filepath.Join(cfg.Storage.DataDir, "learning_data.json")
	}

	return cfg, nil
}

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
