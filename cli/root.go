package cli

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/njyeung/iglogin/config"
	"github.com/njyeung/iglogin/login"
	"github.com/njyeung/iglogin/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Config holds the paths and output the root command runs with
type Config struct {
	ConfigPath   string
	TokenPath    string
	LogPath      string
	OutputWriter io.Writer
}

type runtimeState struct {
	configPath string
	tokenPath  string
	logPath    string
	settings   config.Settings
	log        *zap.Logger
	writer     io.Writer

	appID        string
	appSecret    string
	redirectURL  string
	scopes       []string
	responseType string
	state        string
	authURL      string
	tokenURL     string
	tokenStorage string
	headless     bool
	verbose      bool
}

type runtimeKey struct{}

// DefaultConfig returns the config used by the iglogin binary
func DefaultConfig() Config {
	return Config{
		ConfigPath:   config.DefaultConfigPath(),
		TokenPath:    config.DefaultTokenPath(),
		LogPath:      config.DefaultLogPath(),
		OutputWriter: os.Stdout,
	}
}

// NewRootCommand builds the iglogin command tree
func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{
		configPath: cfg.ConfigPath,
		tokenPath:  cfg.TokenPath,
		logPath:    cfg.LogPath,
		writer:     cfg.OutputWriter,
		log:        zap.NewNop(),
	}

	root := &cobra.Command{
		Use:          "iglogin",
		Short:        "Log in to Instagram in an embedded browser",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.configPath == "" {
				rt.configPath = config.DefaultConfigPath()
			}
			if rt.tokenPath == "" {
				rt.tokenPath = config.DefaultTokenPath()
			}

			log, err := setupLogger(rt.verbose, rt.logPath)
			if err != nil {
				return err
			}
			rt.log = log

			if err := config.LoadDotenv(".env"); err != nil {
				return err
			}

			// config init starts from defaults, not the existing file
			path := rt.configPath
			if cmd.Name() == "init" && cmd.Parent() != nil && cmd.Parent().Name() == "config" {
				path = ""
			} else if created, err := config.EnsureFile(path); err != nil {
				return err
			} else if created {
				rt.log.Info("wrote default config", zap.String("path", path))
			}
			settings, err := config.Load(path)
			if err != nil {
				return err
			}
			rt.settings = rt.applyFlags(cmd, settings)
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = rt.log.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&rt.configPath, "config", rt.configPath, "Path to config file")
	flags.StringVar(&rt.logPath, "log-file", rt.logPath, "Path to log file, empty disables logging")
	flags.StringVar(&rt.appID, "app-id", "", "Instagram app id")
	flags.StringVar(&rt.appSecret, "app-secret", "", "Instagram app secret, enables code exchange")
	flags.StringVar(&rt.redirectURL, "redirect-url", "", "Registered redirect URL")
	flags.StringSliceVar(&rt.scopes, "scopes", nil, "Requested scopes")
	flags.StringVar(&rt.responseType, "response-type", "", "Response type: code or token")
	flags.StringVar(&rt.state, "state", "", "Opaque state value, generated when empty")
	flags.StringVar(&rt.authURL, "auth-url", "", "Authorize endpoint override")
	flags.StringVar(&rt.tokenURL, "token-url", "", "Token endpoint override")
	flags.StringVar(&rt.tokenStorage, "token-storage", "", "Token storage backend: file or keychain")
	flags.BoolVar(&rt.headless, "headless", false, "Run the browser headless")
	flags.BoolVarP(&rt.verbose, "verbose", "v", false, "Enable debug logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		newLoginCommand(),
		newURLCommand(),
		newExchangeCommand(),
		newTokenCommand(),
		newLogoutCommand(),
		newConfigCommand(),
		NewFakeProviderCommand(),
	)

	return root
}

// Execute runs the root command with the default configuration
func Execute() error {
	return NewRootCommand(DefaultConfig()).Execute()
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// applyFlags overrides s with every flag the user set explicitly
func (rt *runtimeState) applyFlags(cmd *cobra.Command, s config.Settings) config.Settings {
	changed := cmd.Flags().Changed
	if changed("app-id") {
		s.AppID = rt.appID
	}
	if changed("app-secret") {
		s.AppSecret = rt.appSecret
	}
	if changed("redirect-url") {
		s.RedirectURL = rt.redirectURL
	}
	if changed("scopes") {
		s.Scopes = rt.scopes
	}
	if changed("response-type") {
		s.ResponseType = rt.responseType
	}
	if changed("state") {
		s.State = rt.state
	}
	if changed("auth-url") {
		s.AuthURL = rt.authURL
	}
	if changed("token-url") {
		s.TokenURL = rt.tokenURL
	}
	if changed("token-storage") {
		s.TokenStorage = rt.tokenStorage
	}
	if changed("headless") {
		s.Headless = rt.headless
	}
	return s
}

// loginConfig validates the settings and fills in a state when none is set
func (rt *runtimeState) loginConfig() (login.Config, error) {
	if err := rt.settings.Validate(); err != nil {
		return login.Config{}, err
	}
	cfg := rt.settings.LoginConfig()
	if cfg.State == "" {
		cfg.State = config.NewState()
	}
	return cfg, nil
}

func (rt *runtimeState) store() (store.Store, error) {
	return store.New(rt.settings.TokenStorage, rt.tokenPath)
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer == nil {
		return os.Stdout
	}
	return rt.writer
}
