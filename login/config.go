package login

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

const (
	// AuthorizeURL is Instagram's OAuth authorization page
	AuthorizeURL = "https://api.instagram.com/oauth/authorize/"

	// TokenURL is the endpoint codes are exchanged at
	TokenURL = "https://api.instagram.com/oauth/access_token"

	// LandingURL and LandingTitle identify the instagram.com home page. Landing
	// there mid-login means the session is stale and the surface needs a reset.
	LandingURL   = "https://www.instagram.com/"
	LandingTitle = "Instagram"
)

// Endpoint is the Instagram Basic Display endpoint pair
var Endpoint = oauth2.Endpoint{
	AuthURL:   AuthorizeURL,
	TokenURL:  TokenURL,
	AuthStyle: oauth2.AuthStyleInParams,
}

// ResponseMode is the OAuth response_type requested from the provider
type ResponseMode string

const (
	ModeCode  ResponseMode = "code"
	ModeToken ResponseMode = "token"
)

// Config describes a single login attempt. It is never mutated after the
// attempt starts.
type Config struct {
	AppID       string
	AppSecret   string
	RedirectURL string
	Scopes      []string
	Mode        ResponseMode
	State       string

	// Endpoint overrides the Instagram endpoints, zero value means Endpoint
	Endpoint oauth2.Endpoint
}

// Validate checks the fields every login attempt needs
func (c Config) Validate() error {
	if c.AppID == "" {
		return errors.New("app id is required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect url is required")
	}
	if c.Mode != ModeCode && c.Mode != ModeToken {
		return fmt.Errorf("unsupported response type %q", c.Mode)
	}
	return nil
}

func (c Config) endpoint() oauth2.Endpoint {
	ep := c.Endpoint
	if ep.AuthURL == "" {
		ep.AuthURL = Endpoint.AuthURL
	}
	if ep.TokenURL == "" {
		ep.TokenURL = Endpoint.TokenURL
	}
	return ep
}

// AuthCodeURL builds the authorize page URL the surface is pointed at.
// Scopes are comma joined, which is what Instagram expects.
func (c Config) AuthCodeURL() string {
	scopes := make([]string, len(c.Scopes))
	for i, s := range c.Scopes {
		scopes[i] = url.QueryEscape(s)
	}

	var b strings.Builder
	b.WriteString(c.endpoint().AuthURL)
	if strings.Contains(c.endpoint().AuthURL, "?") {
		b.WriteByte('&')
	} else {
		b.WriteByte('?')
	}
	b.WriteString("app_id=" + url.QueryEscape(c.AppID))
	b.WriteString("&redirect_uri=" + url.QueryEscape(c.RedirectURL))
	b.WriteString("&response_type=" + url.QueryEscape(string(c.Mode)))
	b.WriteString("&scope=" + strings.Join(scopes, ","))
	if c.State != "" {
		b.WriteString("&state=" + url.QueryEscape(c.State))
	}
	return b.String()
}
