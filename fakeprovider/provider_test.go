package fakeprovider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/njyeung/iglogin/login"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newServer(t *testing.T, cfg Config) (*httptest.Server, login.Config) {
	t.Helper()
	server := httptest.NewServer(New(cfg, nil))
	t.Cleanup(server.Close)

	return server, login.Config{
		AppID:       cfg.AppID,
		AppSecret:   cfg.AppSecret,
		RedirectURL: "https://app.example/cb",
		Scopes:      []string{"user_profile", "user_media"},
		Mode:        login.ModeCode,
		State:       "st",
		Endpoint: oauth2.Endpoint{
			AuthURL:  server.URL + AuthorizePath,
			TokenURL: server.URL + TokenPath,
		},
	}
}

// follow requests the authorize url and returns where the provider redirects to
func follow(t *testing.T, authURL string) string {
	t.Helper()
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	return resp.Header.Get("Location")
}

func TestCodeFlow(t *testing.T) {
	_, cfg := newServer(t, Config{AppID: "app", AppSecret: "shh", AccessToken: "T", UserID: 42})

	location := follow(t, cfg.AuthCodeURL())
	assert.Contains(t, location, "https://app.example/cb?code=")
	assert.Contains(t, location, "state=st")
	assert.True(t, len(location) > 2 && location[len(location)-2:] == "#_")

	i := login.NewInterceptor(cfg, login.Options{})
	out := i.OnNavigation(context.Background(), login.NavigationEvent{URL: location})
	require.NotNil(t, out)
	require.True(t, out.Success(), "%v", out.Err)
	assert.Equal(t, "T", out.Credential)
	assert.Equal(t, "42", out.Token.UserID)
	assert.Equal(t, "st", out.Params.Get("state"))
}

func TestCodeFlow_WithoutSecret(t *testing.T) {
	_, cfg := newServer(t, Config{AppID: "app"})
	cfg.AppSecret = ""

	location := follow(t, cfg.AuthCodeURL())
	out := login.NewInterceptor(cfg, login.Options{}).OnNavigation(context.Background(), login.NavigationEvent{URL: location})
	require.NotNil(t, out)
	require.True(t, out.Success())
	assert.NotContains(t, out.Credential, "#_")
	assert.Len(t, out.Credential, 32)
}

func TestTokenFlow(t *testing.T) {
	_, cfg := newServer(t, Config{AppID: "app", AccessToken: "T"})
	cfg.Mode = login.ModeToken
	cfg.AppSecret = ""

	location := follow(t, cfg.AuthCodeURL())
	assert.Contains(t, location, "#access_token=T")

	out := login.NewInterceptor(cfg, login.Options{}).OnNavigation(context.Background(), login.NavigationEvent{URL: location})
	require.NotNil(t, out)
	require.True(t, out.Success())
	assert.Equal(t, "T", out.Credential)
}

func TestDeny(t *testing.T) {
	_, cfg := newServer(t, Config{AppID: "app", Deny: true})

	location := follow(t, cfg.AuthCodeURL())
	out := login.NewInterceptor(cfg, login.Options{}).OnNavigation(context.Background(), login.NavigationEvent{URL: location})
	require.NotNil(t, out)
	assert.ErrorIs(t, out.Err, login.ErrProviderDenied)
	assert.Equal(t, "user_denied", out.Params.Get("error_reason"))
}

func TestAuthorize_BadApp(t *testing.T) {
	_, cfg := newServer(t, Config{AppID: "app"})
	cfg.AppID = "someone-else"

	resp, err := http.Get(cfg.AuthCodeURL())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "OAuthException", body["error_type"])
}

func TestToken_CodeIsSingleUse(t *testing.T) {
	_, cfg := newServer(t, Config{AppID: "app", AppSecret: "shh", AccessToken: "T"})

	location := follow(t, cfg.AuthCodeURL())
	params, err := login.ParseRedirect(location)
	require.NoError(t, err)
	code := params.Get("code")
	require.NotEmpty(t, code)

	exchanger := login.NewExchanger(cfg, nil)
	_, err = exchanger.Exchange(context.Background(), code)
	require.NoError(t, err)

	_, err = exchanger.Exchange(context.Background(), code)
	assert.ErrorContains(t, err, "has been used")
}

func TestToken_WrongSecret(t *testing.T) {
	_, cfg := newServer(t, Config{AppID: "app", AppSecret: "shh"})

	location := follow(t, cfg.AuthCodeURL())
	cfg.AppSecret = "wrong"

	out := login.NewInterceptor(cfg, login.Options{}).OnNavigation(context.Background(), login.NavigationEvent{URL: location})
	require.NotNil(t, out)
	assert.ErrorIs(t, out.Err, login.ErrExchangeFailed)
}

func TestAnyAppIDWhenUnset(t *testing.T) {
	_, cfg := newServer(t, Config{AccessToken: "T"})
	cfg.AppID = "whatever"
	cfg.Mode = login.ModeToken

	location := follow(t, cfg.AuthCodeURL())
	assert.Contains(t, location, "#access_token=T")
}
