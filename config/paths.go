package config

import (
	"os"
	"path/filepath"
)

const (
	defaultConfigDirName = "iglogin"
	defaultConfigFile    = "iglogin.conf"
	defaultTokenFile     = "tokens.json"
	defaultLogFile       = "iglogin.log"
)

func DefaultConfigPath() string {
	if env := os.Getenv("IGLOGIN_CONFIG"); env != "" {
		return env
	}
	return filepath.Join(configDir(), defaultConfigFile)
}

func DefaultTokenPath() string {
	return filepath.Join(configDir(), defaultTokenFile)
}

func DefaultLogPath() string {
	return filepath.Join(configDir(), defaultLogFile)
}

func configDir() string {
	base, err := os.UserConfigDir()
	if err == nil {
		return filepath.Join(base, defaultConfigDirName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".iglogin")
}
