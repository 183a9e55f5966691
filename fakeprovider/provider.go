// Package fakeprovider emulates Instagram's authorize and token endpoints so
// the login flow can be run without a real app registration.
package fakeprovider

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	AuthorizePath = "/oauth/authorize/"
	TokenPath     = "/oauth/access_token"
)

// Config controls what the fake provider accepts and hands out
type Config struct {
	// AppID is the only app id accepted, any is accepted when empty
	AppID       string
	AppSecret   string
	AccessToken string
	UserID      int64

	// Deny makes every authorization end in access_denied
	Deny bool
}

type grant struct {
	redirectURI string
}

// Provider is an http.Handler serving the fake endpoints
type Provider struct {
	cfg    Config
	log    *zap.Logger
	router chi.Router

	mu    sync.Mutex
	codes map[string]grant
}

// New returns a provider for cfg
func New(cfg Config, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.AccessToken == "" {
		cfg.AccessToken = "IGQVfake" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	p := &Provider{
		cfg:   cfg,
		log:   log.Named("fakeprovider"),
		codes: make(map[string]grant),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(AuthorizePath, p.handleAuthorize)
	r.Get(strings.TrimSuffix(AuthorizePath, "/"), p.handleAuthorize)
	r.Post(TokenPath, p.handleToken)
	p.router = r
	return p
}

func (p *Provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

func (p *Provider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appID := q.Get("app_id")
	redirectURI := q.Get("redirect_uri")
	responseType := q.Get("response_type")
	state := q.Get("state")

	if p.cfg.AppID != "" && appID != p.cfg.AppID {
		writeError(w, http.StatusBadRequest, "OAuthException", "Invalid platform app")
		return
	}
	target, err := url.Parse(redirectURI)
	if err != nil || redirectURI == "" {
		writeError(w, http.StatusBadRequest, "OAuthException", "Invalid redirect_uri")
		return
	}

	values := url.Values{}
	if state != "" {
		values.Set("state", state)
	}

	switch {
	case p.cfg.Deny:
		values.Set("error", "access_denied")
		values.Set("error_reason", "user_denied")
		values.Set("error_description", "The user denied your request.")
		target.RawQuery = values.Encode()
	case responseType == "code":
		code := strings.ReplaceAll(uuid.NewString(), "-", "")
		p.mu.Lock()
		p.codes[code] = grant{redirectURI: redirectURI}
		p.mu.Unlock()
		values.Set("code", code)
		target.RawQuery = values.Encode()
		// Instagram tacks this onto every code redirect
		target.Fragment = "_"
	case responseType == "token":
		values.Set("access_token", p.cfg.AccessToken)
		target.Fragment = values.Encode()
	default:
		writeError(w, http.StatusBadRequest, "OAuthException", "Invalid response_type")
		return
	}

	p.log.Debug("authorize", zap.String("redirect", target.String()))
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "OAuthException", "Invalid form")
		return
	}
	form := r.PostForm

	if (p.cfg.AppID != "" && form.Get("app_id") != p.cfg.AppID) ||
		subtle.ConstantTimeCompare([]byte(form.Get("app_secret")), []byte(p.cfg.AppSecret)) != 1 {
		writeError(w, http.StatusBadRequest, "OAuthException", "Invalid client secret")
		return
	}
	if form.Get("grant_type") != "authorization_code" {
		writeError(w, http.StatusBadRequest, "OAuthException", "Unsupported grant_type")
		return
	}

	code := form.Get("code")
	p.mu.Lock()
	g, ok := p.codes[code]
	delete(p.codes, code)
	p.mu.Unlock()

	if !ok {
		writeError(w, http.StatusBadRequest, "OAuthException", "This authorization code has been used")
		return
	}
	if g.redirectURI != form.Get("redirect_uri") {
		writeError(w, http.StatusBadRequest, "OAuthException", "Error validating verification code. Please make sure your redirect_uri is identical to the one you used in the OAuth dialog request")
		return
	}

	p.log.Debug("issued token", zap.Int64("user_id", p.cfg.UserID))
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": p.cfg.AccessToken,
		"user_id":      p.cfg.UserID,
	})
}

func writeError(w http.ResponseWriter, status int, errorType, message string) {
	writeJSON(w, status, map[string]any{
		"error_type":    errorType,
		"code":          status,
		"error_message": message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
