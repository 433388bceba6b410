package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var (
	sessionsSort       string
	sessionsOffline    bool
	sessionsClearCache bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	refStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"list"},
	Short:   "List chat sessions",
	Long: `List every chat session recorded by the backend.

Sort keys:
  default        most recent first (ended_at, else started_at)
  messages-desc  most messages first
  messages-asc   fewest messages first
  text-desc      ordered like messages-desc
  text-asc       ordered like messages-asc

Each online listing is saved as a snapshot; --offline lists the snapshot.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := internal.ParseSortKey(sessionsSort)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		cache := s.cache()

		if sessionsClearCache {
			if err := cache.ClearCache(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		if sessionsOffline {
			if !cache.IsCacheValid(s.cfg.BaseURL) {
				return fmt.Errorf("no snapshot of %s in %s, run `chatdesk sessions` online first", s.cfg.BaseURL, cache.GetCacheDir())
			}
			list, meta, err := cache.LoadSessions()
			if err != nil {
				return err
			}
			internal.LogInfo("Showing snapshot taken %s", meta.FetchedAt.Local().Format(time.DateTime))
			s.console.SetSessions(list)
		} else {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := s.require(ctx, "chat-history", internal.ActionView); err != nil {
				return err
			}
			list, err := s.console.LoadSessions(ctx)
			if err != nil {
				return err
			}
			if err := cache.SaveSessions(list, s.cfg.BaseURL); err != nil {
				internal.LogWarn("Failed to save snapshot: %v", err)
			}
		}

		displaySessions(cmd.OutOrStdout(), s.console.Sessions(key), key, time.Now())
		return nil
	},
}

func displaySessions(out io.Writer, sessions []internal.SessionSummary, key internal.SortKey, now time.Time) {
	if len(sessions) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No sessions found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 %d session(s), %s", len(sessions), key.Label())))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Started")+"\t"+titleStyle.Render("Ended")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Refs")+"\t")
	fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, s := range sessions {
		refs := ""
		if s.HasReferences {
			refs = refStyle.Render("✓")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(s.ID),
			dateStyle.Render(formatWhen(s.StartedAt, now)),
			dateStyle.Render(formatWhen(s.EndedAt, now)),
			countStyle.Render(fmt.Sprint(s.Messages())),
			refs,
		)
	}

	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: chatdesk show ")+
		lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Render(sessions[0].ID))
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.Flags().StringVarP(&sessionsSort, "sort", "s", "", "Sort key: default, messages-desc, messages-asc, text-desc, text-asc")
	sessionsCmd.Flags().BoolVar(&sessionsOffline, "offline", false, "List the last saved snapshot instead of the backend")
	sessionsCmd.Flags().BoolVar(&sessionsClearCache, "clear-cache", false, "Clear the snapshot before running")
}
