package cmd

import (
	"fmt"
	"strings"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var archiveWorkers int

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Copy every session and its logs into the local archive",
	Long: `Fetch every chat session and its logs and store them in a local SQLite
database (archive_path in the config, default ~/.chatdesk/archive.db).
Archived sessions can be exported offline with ` + "`chatdesk export --archive`" + `.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := s.require(ctx, "chat-history", internal.ActionView); err != nil {
			return err
		}

		db, err := internal.OpenDatabase(s.cfg.ArchivePath, false)
		if err != nil {
			return fmt.Errorf("failed to open archive %s: %w", s.cfg.ArchivePath, err)
		}
		defer db.Close()
		store := internal.NewStorage(db)

		sp := internal.NewSpinner(cmd.ErrOrStderr(), "Archiving sessions")
		sp.Start(ctx)
		res, err := s.console.Archive(ctx, store, archiveWorkers, func(done, total int) {
			sp.Update(fmt.Sprintf("Archiving sessions [%d/%d]", done, total))
		})
		sp.Stop(err)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		internal.PrintSuccess(out, fmt.Sprintf("Archived %d session(s), %d message(s) to %s", res.Sessions, res.Messages, s.cfg.ArchivePath))
		if len(res.Failed) > 0 {
			internal.PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("%d session(s) could not be fetched: %s", len(res.Failed), strings.Join(res.Failed, ", ")))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.Flags().IntVar(&archiveWorkers, "workers", internal.DefaultArchiveWorkers, "Log fetches in flight")
}
