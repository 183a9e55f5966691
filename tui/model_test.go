package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/iglogin/backend"
	"github.com/njyeung/iglogin/login"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	startErr error
	shown    []string
	hides    int
	stops    int
	reloads  int
	events   chan backend.Event
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{events: make(chan backend.Event, 1)}
}

func (b *fakeBackend) Start() error { return b.startErr }
func (b *fakeBackend) Show(url string) error {
	b.shown = append(b.shown, url)
	return nil
}

func (b *fakeBackend) Hide() { b.hides++ }
func (b *fakeBackend) Visible() bool { return len(b.shown) > 0 && b.hides == 0 }
func (b *fakeBackend) Key() int { return len(b.shown) + b.reloads }
func (b *fakeBackend) Stop() { b.stops++ }
func (b *fakeBackend) Events() <-chan backend.Event { return b.events }
func (b *fakeBackend) StopLoading() error { return nil }

func (b *fakeBackend) Reload() error {
	b.reloads++
	return nil
}

const redirect = "https://app/cb"

func newTestModel(t *testing.T, closed *int) (Model, *fakeBackend) {
	t.Helper()
	b := newFakeBackend()
	cfg := login.Config{AppID: "app", RedirectURL: redirect, Mode: login.ModeCode}
	m := NewModel(Options{
		Backend:     b,
		Interceptor: login.NewInterceptor(cfg, login.Options{Surface: b}),
		AuthURL:     cfg.AuthCodeURL(),
		RedirectURL: redirect,
		OnClose: func() {
			if closed != nil {
				*closed++
			}
		},
	})
	return m, b
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestStartBackend(t *testing.T) {
	m, b := newTestModel(t, nil)

	assert.Equal(t, backendReadyMsg{}, m.startBackend())
	require.Len(t, b.shown, 1)
	assert.Contains(t, b.shown[0], "app_id=app")

	m, _ = update(t, m, backendReadyMsg{})
	assert.Equal(t, stateLogin, m.state)
	assert.Contains(t, m.View(), "Log in to Instagram")
}

func TestStartBackend_Error(t *testing.T) {
	m, b := newTestModel(t, nil)
	b.startErr = errors.New("no chrome")

	msg := m.startBackend()
	m, _ = update(t, m, msg)
	assert.Equal(t, stateError, m.state)
	assert.Contains(t, m.View(), "no chrome")
	assert.Contains(t, m.View(), "Could not open the login page")
	assert.Empty(t, b.shown)
}

func TestRedirectProducesOutcome(t *testing.T) {
	m, b := newTestModel(t, nil)
	m, _ = update(t, m, backendReadyMsg{})

	ev := backend.Event{Type: backend.EventNavigation, URL: redirect + "?code=ABC#_"}
	m, cmd := update(t, m, backendEventMsg(ev))
	assert.Equal(t, stateExchanging, m.state)
	require.NotNil(t, cmd)

	msg := m.intercept(ev)()
	require.IsType(t, outcomeMsg{}, msg)

	m, _ = update(t, m, msg)
	assert.Equal(t, stateDone, m.state)
	assert.Equal(t, 1, b.hides)
	require.NotNil(t, m.Outcome())
	assert.Equal(t, "ABC", m.Outcome().Credential)
	assert.Contains(t, m.View(), "Logged in")
}

func TestUnrelatedNavigationIsIgnored(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, _ = update(t, m, backendReadyMsg{})

	ev := backend.Event{Type: backend.EventNavigation, URL: "https://www.instagram.com/accounts/login/"}
	m, _ = update(t, m, backendEventMsg(ev))
	assert.Equal(t, stateLogin, m.state)
	assert.Nil(t, m.intercept(ev)())
}

func TestInlineErrorMessage(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, _ = update(t, m, backendReadyMsg{})

	ev := backend.Event{Type: backend.EventMessage, Payload: `{"error_type":"OAuthException","error_message":"Invalid redirect_uri"}`}
	msg := m.intercept(ev)()
	require.IsType(t, outcomeMsg{}, msg)

	m, _ = update(t, m, msg)
	assert.Equal(t, stateDone, m.state)
	assert.ErrorIs(t, m.Outcome().Err, login.ErrProviderDenied)
	assert.Contains(t, m.View(), "Login failed")
	assert.Contains(t, m.View(), "Invalid redirect_uri")
}

func TestQuitBeforeOutcome(t *testing.T) {
	closed := 0
	m, b := newTestModel(t, &closed)
	m, _ = update(t, m, backendReadyMsg{})

	_, cmd := update(t, m, key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, b.hides)
	assert.Equal(t, 1, b.stops)
}

func TestQuitAfterOutcomeSkipsOnClose(t *testing.T) {
	closed := 0
	m, _ := newTestModel(t, &closed)
	m, _ = update(t, m, outcomeMsg{&login.Outcome{Credential: "T"}})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Equal(t, 0, closed)
}

func TestReloadKey(t *testing.T) {
	m, b := newTestModel(t, nil)

	// ignored until the page is showing
	m, _ = update(t, m, key("r"))
	assert.Equal(t, 0, b.reloads)

	m, _ = update(t, m, backendReadyMsg{})
	_, _ = update(t, m, key("r"))
	assert.Equal(t, 1, b.reloads)
}

func TestBrowserErrorEvent(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m, _ = update(t, m, backendReadyMsg{})

	m, cmd := update(t, m, backendEventMsg(backend.Event{Type: backend.EventError, Message: "navigation failed"}))
	assert.NotNil(t, cmd)
	assert.Equal(t, stateLogin, m.state)
	assert.Contains(t, m.View(), "navigation failed")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "IGQVJa…", maskSecret("IGQVJabcdef"))
	assert.Equal(t, "short", maskSecret("short"))
}
