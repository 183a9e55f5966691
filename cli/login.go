package cli

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/iglogin/backend"
	"github.com/njyeung/iglogin/login"
	"github.com/njyeung/iglogin/store"
	"github.com/njyeung/iglogin/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var errLoginCancelled = errors.New("login cancelled")

func newLoginCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Open the Instagram login page and capture the redirect",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg, err := rt.loginConfig()
			if err != nil {
				return err
			}

			b := backend.NewChromeBackend(cfg.RedirectURL, rt.settings.Headless, rt.log)
			interceptor := login.NewInterceptor(cfg, login.Options{
				Surface: b,
				Logger:  rt.log,
			})
			model := tui.NewModel(tui.Options{
				Backend:     b,
				Interceptor: interceptor,
				AuthURL:     cfg.AuthCodeURL(),
				RedirectURL: cfg.RedirectURL,
				OnClose: func() {
					rt.log.Info("login closed before completing")
				},
				Logger: rt.log,
			})

			final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
			if err != nil {
				return fmt.Errorf("failed to run login ui: %w", err)
			}
			m, ok := final.(tui.Model)
			if !ok || m.Outcome() == nil {
				return errLoginCancelled
			}
			return rt.finishLogin(cfg, m.Outcome())
		},
	}
}

// finishLogin reports the outcome and saves any access token it carries. A
// bare authorization code is printed so it can be passed to exchange.
func (rt *runtimeState) finishLogin(cfg login.Config, out *login.Outcome) error {
	if !out.Success() {
		return out.Err
	}

	var tok store.StoredToken
	switch {
	case out.Token != nil:
		tok = store.FromOAuth2(out.Token.Token(), out.Token.UserID)
	case out.Params.Get("access_token") != "":
		tok = store.FromOAuth2(&oauth2.Token{AccessToken: out.Credential}, out.Params.Get("user_id"))
	default:
		_, _ = fmt.Fprintf(rt.Writer(), "Authorization code: %s\n", out.Credential)
		return nil
	}
	return rt.saveToken(cfg.AppID, tok)
}

func (rt *runtimeState) saveToken(appID string, tok store.StoredToken) error {
	s, err := rt.store()
	if err != nil {
		return err
	}
	if err := s.Save(appID, tok); err != nil {
		return err
	}
	rt.log.Info("token saved", zap.String("app_id", appID), zap.String("storage", rt.settings.TokenStorage))

	msg := "Logged in."
	if tok.UserID != "" {
		msg = fmt.Sprintf("Logged in as user %s.", tok.UserID)
	}
	if !tok.Expiry.IsZero() {
		msg += fmt.Sprintf(" Token expires at %s", tok.Expiry.UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintln(rt.Writer(), msg)
	return nil
}
