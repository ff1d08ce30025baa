package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	envConfigPath  = "VIDEOCHAT_CONFIG"
	configDirName  = "videochat"
	configFileName = "config.json"
)

var errNoSession = errors.New("no session selected (run 'videochat session create' or pass --session)")

// GlobalConfig is the CLI state stored in config.json: the server to talk to
// and the session commands use when none is given.
type GlobalConfig struct {
	APIURL    string `json:"api_url,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// configPathFunc is swapped in tests.
var configPathFunc = defaultConfigPath

// defaultConfigPath honours VIDEOCHAT_CONFIG, otherwise
// <user config dir>/videochat/config.json.
func defaultConfigPath() (string, error) {
	if p := os.Getenv(envConfigPath); p != "" {
		return p, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, configDirName, configFileName), nil
}

// GetConfigPath returns the location of config.json.
func GetConfigPath() (string, error) {
	return configPathFunc()
}

// LoadGlobalConfig reads config.json. A missing file yields a nil config and
// no error.
func LoadGlobalConfig() (*GlobalConfig, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config GlobalConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}
	return &config, nil
}

// SaveGlobalConfig writes config.json with 0600 permissions (os.CreateTemp's mode). The file is
// replaced by rename so a concurrent reader never sees a partial write.
func SaveGlobalConfig(config *GlobalConfig) error {
	if config == nil {
		return errors.New("config cannot be nil")
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, configFileName+".*")
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp.Name(), configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// UpdateGlobalConfig loads the config, applies fn and saves it back.
func UpdateGlobalConfig(fn func(*GlobalConfig)) error {
	config, err := LoadGlobalConfig()
	if err != nil {
		return err
	}
	if config == nil {
		config = &GlobalConfig{}
	}
	fn(config)
	return SaveGlobalConfig(config)
}

// ResolveSessionID picks the session to act on: flag, then VIDEOCHAT_SESSION,
// then the session remembered in config.json.
func ResolveSessionID(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if env := os.Getenv(envSession); env != "" {
		return env, nil
	}

	config, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if config == nil || config.SessionID == "" {
		return "", errNoSession
	}
	return config.SessionID, nil
}
