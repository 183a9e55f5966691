package login

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

// CodeExchanger trades an authorization code for an access token
type CodeExchanger interface {
	Exchange(ctx context.Context, code string) (*TokenResponse, error)
}

// TokenResponse is the decoded token endpoint body
type TokenResponse struct {
	AccessToken string
	UserID      string
	ExpiresIn   int64
	Raw         map[string]any
}

// Token converts the response into an oauth2.Token. The raw body is kept in
// the token's extras.
func (r *TokenResponse) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken: r.AccessToken,
		TokenType:   "bearer",
		ExpiresIn:   r.ExpiresIn,
	}
	if r.ExpiresIn > 0 {
		tok.Expiry = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return tok.WithExtra(r.Raw)
}

func decodeTokenResponse(body []byte) (*TokenResponse, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	resp := &TokenResponse{Raw: raw}
	resp.AccessToken, _ = raw["access_token"].(string)
	if v, ok := raw["user_id"]; ok && v != nil {
		resp.UserID = fmt.Sprint(v)
	}
	if n, ok := raw["expires_in"].(json.Number); ok {
		resp.ExpiresIn, _ = n.Int64()
	}
	return resp, nil
}

// Exchanger posts codes to the token endpoint as a confidential client
type Exchanger struct {
	client *resty.Client
	cfg    Config
}

// NewExchanger returns an Exchanger for cfg. A nil client gets a default
// resty client, which has no timeout of its own.
func NewExchanger(cfg Config, client *resty.Client) *Exchanger {
	if client == nil {
		client = resty.New()
	}
	return &Exchanger{client: client, cfg: cfg}
}

// Exchange makes a single attempt, there is no retry
func (e *Exchanger) Exchange(ctx context.Context, code string) (*TokenResponse, error) {
	if e.cfg.AppSecret == "" {
		return nil, errors.New("app secret is required for code exchange")
	}

	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetFormData(map[string]string{
			"app_id":       e.cfg.AppID,
			"app_secret":   e.cfg.AppSecret,
			"grant_type":   "authorization_code",
			"redirect_uri": e.cfg.RedirectURL,
			"code":         code,
		}).
		Post(e.cfg.endpoint().TokenURL)
	if err != nil {
		return nil, fmt.Errorf("failed to post token request: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("token endpoint returned %s: %s", resp.Status(), bytes.TrimSpace(resp.Body()))
	}

	return decodeTokenResponse(resp.Body())
}
