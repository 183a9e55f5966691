package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/njyeung/iglogin/backend"
	"github.com/njyeung/iglogin/login"
	"go.uber.org/zap"
)

// Messages
type (
	backendReadyMsg struct{}
	backendErrorMsg struct{ err error }
	backendEventMsg backend.Event
	outcomeMsg      struct{ outcome *login.Outcome }
)

// State represents the app state
type state int

const (
	stateLoading state = iota
	stateLogin
	stateExchanging
	stateDone
	stateError
)

// Options configures a Model
type Options struct {
	Backend     backend.Backend
	Interceptor *login.Interceptor

	// AuthURL is the authorize URL the login page is opened at
	AuthURL string
	// RedirectURL is used to tell when the provider has handed control back
	RedirectURL string

	// OnClose runs when the user closes the login before it finished
	OnClose func()
	Logger  *zap.Logger
}

// Model is the Bubble Tea model
type Model struct {
	state       state
	backend     backend.Backend
	interceptor *login.Interceptor

	authURL     string
	redirectURL string
	onClose     func()
	log         *zap.Logger

	width   int
	height  int
	spinner spinner.Model
	err     error
	status  string

	outcome *login.Outcome
}

// NewModel creates a new TUI model
func NewModel(opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return Model{
		state:       stateLoading,
		backend:     opts.Backend,
		interceptor: opts.Interceptor,
		authURL:     opts.AuthURL,
		redirectURL: opts.RedirectURL,
		onClose:     opts.OnClose,
		log:         log.Named("tui"),
		spinner:     s,
		status:      "Starting browser...",
	}
}

// Outcome returns the login result, or nil if the user closed the page first
func (m Model) Outcome() *login.Outcome {
	return m.outcome
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startBackend,
	)
}

func (m Model) startBackend() tea.Msg {
	if err := m.backend.Start(); err != nil {
		return backendErrorMsg{err}
	}
	if err := m.backend.Show(m.authURL); err != nil {
		return backendErrorMsg{err}
	}
	return backendReadyMsg{}
}

func (m Model) listenForEvents() tea.Msg {
	event, ok := <-m.backend.Events()
	if !ok {
		return nil
	}
	return backendEventMsg(event)
}

// intercept hands a page event to the interceptor. It blocks while a code is
// being exchanged, so it runs as a command.
func (m Model) intercept(ev backend.Event) tea.Cmd {
	return func() tea.Msg {
		var out *login.Outcome
		switch ev.Type {
		case backend.EventNavigation:
			out = m.interceptor.OnNavigation(context.Background(), ev.NavigationEvent())
		case backend.EventMessage:
			out = m.interceptor.OnMessage(ev.Payload)
		}
		if out == nil {
			return nil
		}
		return outcomeMsg{out}
	}
}

func (m Model) isRedirect(ev backend.Event) bool {
	return ev.Type == backend.EventNavigation && m.redirectURL != "" && strings.HasPrefix(ev.URL, m.redirectURL)
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m.close()
		case "enter":
			if m.state == stateDone || m.state == stateError {
				return m.close()
			}
		case "r":
			if m.state == stateLogin {
				if err := m.backend.Reload(); err != nil {
					m.status = fmt.Sprintf("Reload failed: %v", err)
				} else {
					m.status = ""
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case backendReadyMsg:
		m.state = stateLogin
		m.status = ""
		return m, m.listenForEvents

	case backendErrorMsg:
		m.state = stateError
		m.err = msg.err
		return m, nil

	case backendEventMsg:
		ev := backend.Event(msg)
		if m.state == stateDone {
			return m, m.listenForEvents
		}
		switch ev.Type {
		case backend.EventError:
			m.log.Warn("browser error", zap.String("message", ev.Message))
			m.status = ev.Message
			return m, m.listenForEvents
		case backend.EventNavigation:
			if m.isRedirect(ev) {
				m.state = stateExchanging
			}
		}
		return m, tea.Batch(m.intercept(ev), m.listenForEvents)

	case outcomeMsg:
		m.outcome = msg.outcome
		m.state = stateDone
		m.backend.Hide()
		return m, nil
	}

	return m, nil
}

func (m Model) close() (tea.Model, tea.Cmd) {
	if m.outcome == nil && m.onClose != nil {
		m.onClose()
	}
	if m.backend != nil {
		m.backend.Hide()
		m.backend.Stop()
	}
	return m, tea.Quit
}

// View renders the UI
func (m Model) View() string {
	switch m.state {
	case stateLoading:
		return m.viewLoading()
	case stateLogin:
		return m.viewLogin()
	case stateExchanging:
		return m.viewExchanging()
	case stateDone:
		return m.viewDone()
	case stateError:
		return m.viewError()
	default:
		return ""
	}
}
