package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/njyeung/iglogin/login"
	"github.com/njyeung/iglogin/store"
	"github.com/spf13/cobra"
)

func newURLCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the authorize URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg, err := rt.loginConfig()
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), cfg.AuthCodeURL())
			return nil
		},
	}
}

func newExchangeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code for an access token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			cfg, err := rt.loginConfig()
			if err != nil {
				return err
			}
			code := login.CleanCode(args[0])
			resp, err := login.NewExchanger(cfg, nil).Exchange(cmd.Context(), code)
			if err != nil {
				return err
			}
			return rt.saveToken(cfg.AppID, store.FromOAuth2(resp.Token(), resp.UserID))
		},
	}
}

func newTokenCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			tok, err := rt.storedToken()
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(rt.Writer())
				enc.SetIndent("", "  ")
				return enc.Encode(tok)
			}
			_, _ = fmt.Fprintln(rt.Writer(), tok.AccessToken)
			if !tok.Expiry.IsZero() && time.Now().After(tok.Expiry) {
				return fmt.Errorf("token expired at %s", tok.Expiry.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the whole stored token as JSON")
	return cmd
}

func newLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Delete the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			s, err := rt.store()
			if err != nil {
				return err
			}
			if err := s.Delete(rt.settings.AppID); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(rt.Writer(), "Logged out.")
			return nil
		},
	}
}

func (rt *runtimeState) storedToken() (store.StoredToken, error) {
	if rt.settings.AppID == "" {
		return store.StoredToken{}, errors.New("app id is required")
	}
	s, err := rt.store()
	if err != nil {
		return store.StoredToken{}, err
	}
	tok, ok, err := s.Get(rt.settings.AppID)
	if err != nil {
		return store.StoredToken{}, err
	}
	if !ok {
		return store.StoredToken{}, errors.New("not logged in, run iglogin login")
	}
	return tok, nil
}
