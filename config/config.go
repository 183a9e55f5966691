package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/njyeung/iglogin/login"
	"golang.org/x/oauth2"
)

const (
	StorageFile     = "file"
	StorageKeychain = "keychain"
)

// Settings is everything a login run can be configured with
type Settings struct {
	AppID        string   `env:"IGLOGIN_APP_ID"`
	AppSecret    string   `env:"IGLOGIN_APP_SECRET"`
	RedirectURL  string   `env:"IGLOGIN_REDIRECT_URL"`
	Scopes       []string `env:"IGLOGIN_SCOPES" envSeparator:","`
	ResponseType string   `env:"IGLOGIN_RESPONSE_TYPE"`
	State        string   `env:"IGLOGIN_STATE"`
	AuthURL      string   `env:"IGLOGIN_AUTH_URL"`
	TokenURL     string   `env:"IGLOGIN_TOKEN_URL"`
	TokenStorage string   `env:"IGLOGIN_TOKEN_STORAGE"`
	Headless     bool     `env:"IGLOGIN_HEADLESS"`
}

// Defaults returns the settings used when nothing else is configured
func Defaults() Settings {
	return Settings{
		Scopes:       []string{"user_profile", "user_media"},
		ResponseType: string(login.ModeCode),
		AuthURL:      login.AuthorizeURL,
		TokenURL:     login.TokenURL,
		TokenStorage: StorageFile,
	}
}

// Load builds settings from defaults, then the conf file at path, then
// IGLOGIN_* environment variables
func Load(path string) (Settings, error) {
	s := Defaults()
	if path != "" {
		if err := applyConf(path, &s); err != nil {
			return Settings{}, err
		}
	}
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, nil
}

// EnsureFile writes the default settings to path when nothing is there yet.
// It reports whether the file was created.
func EnsureFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to stat config: %w", err)
	}
	if err := Save(path, Defaults()); err != nil {
		return false, err
	}
	return true, nil
}

// LoadDotenv loads .env style files into the process environment. Missing
// files are skipped and variables that are already set win.
func LoadDotenv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Validate checks the settings can drive a login
func (s Settings) Validate() error {
	if err := s.LoginConfig().Validate(); err != nil {
		return err
	}
	if s.TokenStorage != StorageFile && s.TokenStorage != StorageKeychain {
		return fmt.Errorf("unsupported token storage %q", s.TokenStorage)
	}
	return nil
}

// LoginConfig converts the settings into a login attempt configuration
func (s Settings) LoginConfig() login.Config {
	return login.Config{
		AppID:       s.AppID,
		AppSecret:   s.AppSecret,
		RedirectURL: s.RedirectURL,
		Scopes:      append([]string(nil), s.Scopes...),
		Mode:        login.ResponseMode(s.ResponseType),
		State:       s.State,
		Endpoint: oauth2.Endpoint{
			AuthURL:   s.AuthURL,
			TokenURL:  s.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// NewState returns a random opaque state value
func NewState() string {
	return uuid.NewString()
}
