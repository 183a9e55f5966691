package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/njyeung/iglogin/config"
	"github.com/spf13/cobra"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigViewCommand())
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file from defaults and the given flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if _, err := os.Stat(rt.configPath); err == nil && !force {
				return fmt.Errorf("config file already exists: %s (use --force to overwrite)", rt.configPath)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
			if err := config.Save(rt.configPath, rt.settings); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(rt.Writer(), "Config written to %s\n", rt.configPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func newConfigViewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			s := rt.settings
			if s.AppSecret != "" {
				s.AppSecret = "********"
			}
			w := rt.Writer()
			_, _ = fmt.Fprintf(w, "config:        %s\n", rt.configPath)
			_, _ = fmt.Fprintf(w, "app_id:        %s\n", s.AppID)
			_, _ = fmt.Fprintf(w, "app_secret:    %s\n", s.AppSecret)
			_, _ = fmt.Fprintf(w, "redirect_url:  %s\n", s.RedirectURL)
			_, _ = fmt.Fprintf(w, "scopes:        %v\n", s.Scopes)
			_, _ = fmt.Fprintf(w, "response_type: %s\n", s.ResponseType)
			_, _ = fmt.Fprintf(w, "auth_url:      %s\n", s.AuthURL)
			_, _ = fmt.Fprintf(w, "token_url:     %s\n", s.TokenURL)
			_, _ = fmt.Fprintf(w, "token_storage: %s\n", s.TokenStorage)
			_, _ = fmt.Fprintf(w, "headless:      %t\n", s.Headless)
			return nil
		},
	}
}
