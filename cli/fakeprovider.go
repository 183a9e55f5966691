package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/njyeung/iglogin/fakeprovider"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewFakeProviderCommand returns a command serving the local stand-in for
// Instagram's authorize and token endpoints
func NewFakeProviderCommand() *cobra.Command {
	var (
		addr string
		cfg  fakeprovider.Config
	)
	cmd := &cobra.Command{
		Use:   "fake-provider",
		Short: "Serve fake Instagram OAuth endpoints for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			log := zap.NewNop()
			out := cmd.OutOrStdout()
			if rt, err := getRuntime(cmd); err == nil {
				log = rt.log
				out = rt.Writer()
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := &http.Server{
				Addr:              addr,
				Handler:           fakeprovider.New(cfg, log),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()

			base := "http://" + addr
			_, _ = fmt.Fprintf(out, "Fake provider listening on %s\n", base)
			_, _ = fmt.Fprintf(out, "  --auth-url %s%s --token-url %s%s\n", base, fakeprovider.AuthorizePath, base, fakeprovider.TokenPath)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("failed to serve: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8089", "Listen address")
	cmd.Flags().StringVar(&cfg.AppID, "fake-app-id", "", "App id to accept, any when empty")
	cmd.Flags().StringVar(&cfg.AppSecret, "fake-app-secret", "", "App secret to require at the token endpoint")
	cmd.Flags().StringVar(&cfg.AccessToken, "access-token", "", "Access token to hand out, random when empty")
	cmd.Flags().Int64Var(&cfg.UserID, "user-id", 17841400000000000, "User id returned with the token")
	cmd.Flags().BoolVar(&cfg.Deny, "deny", false, "Deny every authorization")
	return cmd
}
