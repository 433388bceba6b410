package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var (
	verbose         bool
	configPath      string
	baseURLFlag     string
	credentialsPath string
	version         string = "dev"
	commit          string = "unknown"
	date            string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "chatdesk",
	Short: "Admin console for the chatbot backend",
	Long: `A command-line admin console for the chatbot backend.

Browse chat sessions and their logs, upload knowledge files, manage admin
users and their permissions, and edit the bot settings.

Quick Start:
  chatdesk login -u admin                 # Log in and save the session token
  chatdesk sessions --sort messages-desc  # List sessions by message count
  chatdesk show <uuid>                    # View the logs of one session
  chatdesk upload manual.pdf --wait       # Upload a file and wait for Drive

Configuration is read from ~/.chatdesk.yaml and CHATDESK_* environment
variables (e.g. CHATDESK_BASE_URL).`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if internal.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "Your session has expired or is invalid. Run `chatdesk login` again.")
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.chatdesk.yaml)")
	rootCmd.PersistentFlags().StringVar(&baseURLFlag, "base-url", "", "Backend address, overrides the config file")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "", "Credentials file (default ~/.chatdesk/credentials.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// commandContext returns a context cancelled on interrupt
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// loadConfig reads the config file and applies --base-url
func loadConfig() (*internal.Config, error) {
	cfg, err := internal.LoadConfig(internal.NewViper(), configPath)
	if err != nil {
		return nil, err
	}
	if baseURLFlag != "" {
		cfg.BaseURL = baseURLFlag
	}
	return cfg, nil
}

func resolveCredentialsPath() (string, error) {
	if credentialsPath != "" {
		return credentialsPath, nil
	}
	return internal.DefaultCredentialsPath()
}

// session bundles what most commands need
type session struct {
	cfg     *internal.Config
	creds   *internal.Credentials
	console *internal.Console
}

// openSession builds a Console from the config and the saved login. The
// saved token is only used when it was issued by the configured backend.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	credsPath, err := resolveCredentialsPath()
	if err != nil {
		return nil, err
	}
	creds, err := internal.LoadCredentials(credsPath)
	if err != nil {
		internal.LogWarn("Ignoring saved credentials: %v", err)
		creds = nil
	}
	if cfg.BaseURL == "" && creds != nil {
		cfg.BaseURL = creds.BaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []internal.ClientOption{
		internal.WithTimeout(cfg.Timeout),
		internal.WithCookieName(cfg.CookieName),
	}
	if creds != nil && creds.Token != "" && creds.BaseURL == cfg.BaseURL {
		opts = append(opts, internal.WithToken(creds.Token))
	} else if creds != nil {
		internal.LogDebug("saved credentials belong to %s, not %s", creds.BaseURL, cfg.BaseURL)
		creds = nil
	}

	client, err := internal.NewClient(cfg.BaseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, creds: creds, console: internal.NewConsole(client, cfg.ConsoleOptions())}, nil
}

// requireLogin fails early when no token is available
func (s *session) requireLogin() error {
	if s.console.Client().Token() == "" {
		return fmt.Errorf("not logged in to %s, run `chatdesk login` first", s.cfg.BaseURL)
	}
	return nil
}

// require checks the current admin may perform action on category
func (s *session) require(ctx context.Context, category string, action internal.Action) error {
	if err := s.requireLogin(); err != nil {
		return err
	}
	return s.console.Require(ctx, category, action)
}

func (s *session) cache() *internal.CacheManager {
	return internal.NewCacheManager(s.cfg.CacheDir)
}

// formatWhen renders a timestamp relative to now the way listings show it
func formatWhen(ts string, now time.Time) string {
	if ts == "" {
		return "—"
	}
	t := internal.ParseTimestamp(ts)
	if t.IsZero() {
		return ts
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff >= 0 && diff < 24*time.Hour && t.Day() == now.Day():
		return t.Format("Today 15:04")
	case diff >= 0 && diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff >= 0 && diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}
