package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var (
	limit       int
	since       string
	showRefs    bool
	showOffline bool
)

var (
	// Styles for show command
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <session-uuid>",
	Short: "Show the chat logs of a session",
	Long: `Display the messages of one chat session in server order.

Logs fetched online are kept in the snapshot so they can be shown again
with --offline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := strings.TrimSpace(args[0])

		var sinceTime time.Time
		if since != "" {
			sinceTime = internal.ParseTimestamp(since)
			if sinceTime.IsZero() {
				return &internal.ValidationError{Field: "since", Msg: fmt.Sprintf("cannot parse %q as a time", since)}
			}
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		cache := s.cache()

		var (
			logs    []internal.ChatLogEntry
			summary = internal.SessionSummary{ID: sessionID}
		)
		if showOffline {
			logs, err = cache.LoadLogs(sessionID)
			if err != nil {
				return fmt.Errorf("session %s is not in the snapshot: %w", sessionID, err)
			}
			if list, _, err := cache.LoadSessions(); err == nil {
				summary = findSummary(list, summary)
			}
		} else {
			ctx, cancel := commandContext(cmd)
			defer cancel()
			if err := s.require(ctx, "chat-history", internal.ActionView); err != nil {
				return err
			}
			logs, err = s.console.ChatLogs(ctx, sessionID)
			if err != nil {
				return err
			}
			if err := cache.SaveLogs(sessionID, logs); err != nil {
				internal.LogWarn("Failed to save logs to snapshot: %v", err)
			}
			if list, _, err := cache.LoadSessions(); err == nil {
				summary = findSummary(list, summary)
			}
		}

		t, err := internal.NewNormalizer(s.cfg.BaseURL).Normalize(summary, logs, "api")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		displaySessionHeader(out, t)

		messages := filterSince(t.Messages, sinceTime)
		total := len(messages)
		if limit > 0 && limit < total {
			messages = messages[:limit]
		}

		if total == 0 {
			fmt.Fprintln(out, timestampStyle.Render("(no messages)"))
			return nil
		}
		for i, msg := range messages {
			displayMessage(out, i+1, msg, total, showRefs)
		}

		if limit > 0 && limit < total {
			fmt.Fprintln(out)
			fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("... (%d more message(s))", total-limit)))
		}
		return nil
	},
}

func findSummary(list []internal.SessionSummary, fallback internal.SessionSummary) internal.SessionSummary {
	for _, s := range list {
		if s.ID == fallback.ID {
			return s
		}
	}
	return fallback
}

// filterSince keeps messages at or after t. Messages without a parsable
// timestamp are dropped once a bound is set.
func filterSince(messages []internal.Message, t time.Time) []internal.Message {
	if t.IsZero() {
		return messages
	}
	filtered := make([]internal.Message, 0, len(messages))
	for _, msg := range messages {
		ts := internal.ParseTimestamp(msg.Timestamp)
		if !ts.IsZero() && !ts.Before(t) {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

func displaySessionHeader(out io.Writer, t *internal.Transcript) {
	fmt.Fprintln(out, sessionHeaderStyle.Render(fmt.Sprintf("💬 %s", t.ID)))

	var metaParts []string
	if t.Metadata.StartedAt != "" {
		metaParts = append(metaParts, fmt.Sprintf("Started: %s", t.Metadata.StartedAt))
	}
	if t.Metadata.EndedAt != "" {
		metaParts = append(metaParts, fmt.Sprintf("Ended: %s", t.Metadata.EndedAt))
	}
	metaParts = append(metaParts, fmt.Sprintf("Messages: %d", len(t.Messages)))
	fmt.Fprintln(out, sessionMetaStyle.Render(strings.Join(metaParts, " • ")))
	fmt.Fprintln(out)
}

func displayMessage(out io.Writer, index int, msg internal.Message, total int, refs bool) {
	actorStyle, actorLabel := userMessageStyle, "👤 User"
	if msg.Actor == "assistant" {
		actorStyle, actorLabel = assistantMessageStyle, "🤖 Bot"
	}

	header := actorStyle.Render(actorLabel) + " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	if msg.Timestamp != "" {
		if t := internal.ParseTimestamp(msg.Timestamp); !t.IsZero() {
			header += " " + timestampStyle.Render(t.Local().Format(time.DateTime))
		} else {
			header += " " + timestampStyle.Render(msg.Timestamp)
		}
	}
	fmt.Fprintln(out, header)

	content := strings.TrimSpace(msg.Content)
	if content != "" {
		fmt.Fprintln(out, messageContentStyle.Render(wrapText(content, 80)))
	} else {
		fmt.Fprintln(out, messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)"))
	}

	if refs && msg.References != "" {
		fmt.Fprintln(out, refStyle.Render("  📎 "+strings.ReplaceAll(msg.References, "\n", "\n     ")))
	}
	fmt.Fprintln(out)
}

func wrapText(text string, width int) string {
	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if len(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		currentLine := ""
		for _, word := range strings.Fields(line) {
			switch {
			case currentLine == "":
				currentLine = word
			case len(currentLine)+len(word)+1 > width:
				wrapped = append(wrapped, currentLine)
				currentLine = word
			default:
				currentLine += " " + word
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since a timestamp")
	showCmd.Flags().BoolVar(&showRefs, "refs", false, "Show the references of bot answers")
	showCmd.Flags().BoolVar(&showOffline, "offline", false, "Read the logs from the snapshot")
}
