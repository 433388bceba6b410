package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var healthDetails bool

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:     "health",
	Aliases: []string{"healthcheck"},
	Short:   "Check the configuration, the backend and the saved login",
	Long: `Check that chatdesk can work by verifying:
  • the configuration resolves a backend address
  • the backend answers /api/health
  • the saved login is still accepted
  • the local snapshot and archive are readable`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 chatdesk health check"))
		fmt.Fprintln(out)

		// Step 1: configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		s, err := openSession()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Configuration is not usable:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ Backend: "+s.cfg.BaseURL))
		if healthDetails {
			fmt.Fprintf(out, "   Timeout: %s\n", s.cfg.Timeout)
			fmt.Fprintf(out, "   Cache dir: %s\n", s.cfg.CacheDir)
			fmt.Fprintf(out, "   Archive: %s\n", s.cfg.ArchivePath)
		}
		fmt.Fprintln(out)

		ctx, cancel := commandContext(cmd)
		defer cancel()

		// Step 2: backend
		fmt.Fprintln(out, infoStyle.Render("Step 2: Contacting backend..."))
		backendUp := true
		if err := s.console.Client().Health(ctx); err != nil {
			backendUp = false
			fmt.Fprintln(out, errorStyle.Render("❌ Backend unreachable:"), err)
		} else {
			fmt.Fprintln(out, successStyle.Render("✅ Backend is up"))
		}
		fmt.Fprintln(out)

		// Step 3: login
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking saved login..."))
		loggedIn := false
		switch {
		case s.console.Client().Token() == "":
			fmt.Fprintln(out, warningStyle.Render("⚠️  Not logged in, run `chatdesk login`"))
		case !backendUp:
			fmt.Fprintln(out, warningStyle.Render("⚠️  Skipped, backend unreachable"))
		default:
			me, err := s.console.Me(ctx)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render("❌ Saved login rejected:"), err)
			} else {
				loggedIn = true
				fmt.Fprintln(out, successStyle.Render("✅ Logged in as "+me.Username))
				if healthDetails {
					displayPermissions(out, me.Permissions, me.IsSuperAdmin)
				}
			}
		}
		fmt.Fprintln(out)

		// Step 4: local data
		fmt.Fprintln(out, infoStyle.Render("Step 4: Checking local data..."))
		checkLocalData(ctx, out, s)
		fmt.Fprintln(out)

		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		switch {
		case backendUp && loggedIn:
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			return nil
		case backendUp:
			fmt.Fprintln(out, warningStyle.Render("⚠️  Backend is up but no valid login"))
			return nil
		default:
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			if s.cache().IsCacheValid(s.cfg.BaseURL) {
				fmt.Fprintln(out, "   The snapshot can still be browsed with --offline.")
			}
			return fmt.Errorf("health check failed: backend %s unreachable", s.cfg.BaseURL)
		}
	},
}

func checkLocalData(ctx context.Context, out io.Writer, s *session) {
	cache := s.cache()
	if list, meta, err := cache.LoadSessions(); err == nil && cache.IsCacheValid(s.cfg.BaseURL) {
		fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Snapshot: %d session(s), taken %s", len(list), meta.FetchedAt.Local().Format("2006-01-02 15:04"))))
	} else {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No snapshot for this backend"))
	}

	if _, err := os.Stat(s.cfg.ArchivePath); err != nil {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No archive, run `chatdesk archive` to create one"))
		return
	}
	db, err := internal.OpenDatabase(s.cfg.ArchivePath, true)
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("❌ Archive unreadable:"), err)
		return
	}
	defer db.Close()
	n, err := internal.NewStorage(db).CountSessions(ctx)
	if err != nil {
		fmt.Fprintln(out, errorStyle.Render("❌ Archive unreadable:"), err)
		return
	}
	fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Archive: %d session(s)", n)))
}

func init() {
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().BoolVarP(&healthDetails, "details", "d", false, "Show detailed diagnostic information")
}
