package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

// DefaultService is the keychain service tokens are stored under
const DefaultService = "iglogin"

// StoredToken is a credential saved after a successful login
type StoredToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	Expiry      time.Time `json:"expiry,omitempty"`
	ObtainedAt  time.Time `json:"obtained_at"`
}

// FromOAuth2 builds a StoredToken from tok
func FromOAuth2(tok *oauth2.Token, userID string) StoredToken {
	return StoredToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		UserID:      userID,
		Expiry:      tok.Expiry,
		ObtainedAt:  time.Now().UTC(),
	}
}

// OAuth2 converts the stored token back into an oauth2.Token
func (t StoredToken) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		Expiry:      t.Expiry,
	}
}

// Store persists tokens keyed by app id
type Store interface {
	Get(appID string) (StoredToken, bool, error)
	Save(appID string, token StoredToken) error
	Delete(appID string) error
}

// New returns the store for kind, "file" or "keychain"
func New(kind, path string) (Store, error) {
	switch kind {
	case "", "file":
		return &FileStore{Path: path}, nil
	case "keychain":
		return &KeyringStore{Service: DefaultService}, nil
	default:
		return nil, fmt.Errorf("unsupported token storage: %s", kind)
	}
}

type tokenCache struct {
	Tokens map[string]StoredToken `json:"tokens"`
}

// FileStore keeps all tokens in one JSON file readable only by the user
type FileStore struct {
	Path string
}

func (s *FileStore) load() (*tokenCache, error) {
	content, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	var cache tokenCache
	if err := json.Unmarshal(content, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse token cache: %w", err)
	}
	if cache.Tokens == nil {
		cache.Tokens = map[string]StoredToken{}
	}
	return &cache, nil
}

func (s *FileStore) save(cache *tokenCache) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("failed to create token dir: %w", err)
	}
	content, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}
	return os.WriteFile(s.Path, content, 0o600)
}

func (s *FileStore) Get(appID string) (StoredToken, bool, error) {
	cache, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return StoredToken{}, false, nil
		}
		return StoredToken{}, false, err
	}
	token, ok := cache.Tokens[appID]
	return token, ok, nil
}

func (s *FileStore) Save(appID string, token StoredToken) error {
	cache, err := s.load()
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		cache = &tokenCache{Tokens: map[string]StoredToken{}}
	}
	cache.Tokens[appID] = token
	return s.save(cache)
}

func (s *FileStore) Delete(appID string) error {
	cache, err := s.load()
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	delete(cache.Tokens, appID)
	return s.save(cache)
}

// KeyringStore keeps each token in the OS keychain
type KeyringStore struct {
	Service string
}

func (s *KeyringStore) Get(appID string) (StoredToken, bool, error) {
	secret, err := keyring.Get(s.Service, appID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return StoredToken{}, false, nil
		}
		return StoredToken{}, false, fmt.Errorf("failed to read keychain: %w", err)
	}
	var token StoredToken
	if err := json.Unmarshal([]byte(secret), &token); err != nil {
		return StoredToken{}, false, fmt.Errorf("failed to parse keychain token: %w", err)
	}
	return token, true, nil
}

func (s *KeyringStore) Save(appID string, token StoredToken) error {
	content, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := keyring.Set(s.Service, appID, string(content)); err != nil {
		return fmt.Errorf("failed to write keychain: %w", err)
	}
	return nil
}

func (s *KeyringStore) Delete(appID string) error {
	if err := keyring.Delete(s.Service, appID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete keychain entry: %w", err)
	}
	return nil
}
