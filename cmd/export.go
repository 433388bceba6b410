package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/iksnae/chatdesk/internal"
	"github.com/iksnae/chatdesk/internal/export"
	"github.com/spf13/cobra"
)

var (
	format        string
	outputDir     string
	sessionID     string
	exportArchive bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export chat sessions to files",
	Long: `Export chat sessions as JSONL, Markdown, YAML or JSON, one file per
session. Sessions are fetched from the backend, or read from the local
archive with --archive (see ` + "`chatdesk archive`" + `).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		var transcripts []*internal.Transcript
		if exportArchive {
			transcripts, err = archivedTranscripts(ctx, s.cfg.ArchivePath, sessionID)
		} else {
			transcripts, err = fetchTranscripts(ctx, s, sessionID)
		}
		if err != nil {
			return err
		}
		if len(transcripts) == 0 {
			internal.PrintWarning(cmd.ErrOrStderr(), "No sessions to export")
			return nil
		}

		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return &internal.StorageError{Path: outputDir, Op: "mkdir", Err: err}
		}

		err = internal.ShowProgress(ctx, fmt.Sprintf("Exporting %d session(s) to %s", len(transcripts), outputDir), func() error {
			for _, t := range transcripts {
				if err := writeTranscript(exporter, t, outputDir); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Export complete: %d session(s) exported to %s", len(transcripts), outputDir))
		return nil
	},
}

func writeTranscript(e export.Exporter, t *internal.Transcript, dir string) error {
	path := filepath.Join(dir, export.FileName(t, e))
	f, err := os.Create(path)
	if err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	if err := e.Export(t, f); err != nil {
		f.Close()
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &internal.ExportError{Format: e.Extension(), Path: path, Err: err}
	}
	internal.LogDebug("wrote %s", path)
	return nil
}

// fetchTranscripts loads sessions and their logs from the backend
func fetchTranscripts(ctx context.Context, s *session, id string) ([]*internal.Transcript, error) {
	if err := s.require(ctx, "chat-history", internal.ActionView); err != nil {
		return nil, err
	}
	list, err := s.console.LoadSessions(ctx)
	if err != nil {
		return nil, err
	}
	if id != "" {
		idx := slices.IndexFunc(list, func(row internal.SessionSummary) bool { return row.ID == id })
		if idx < 0 {
			return nil, fmt.Errorf("session not found: %s", id)
		}
		list = list[idx : idx+1]
	}

	normalizer := internal.NewNormalizer(s.cfg.BaseURL)
	transcripts := make([]*internal.Transcript, 0, len(list))
	err = internal.ShowProgress(ctx, fmt.Sprintf("Fetching logs of %d session(s)", len(list)), func() error {
		for _, summary := range list {
			logs, err := s.console.ChatLogs(ctx, summary.ID)
			if err != nil {
				return fmt.Errorf("failed to fetch logs of %s: %w", summary.ID, err)
			}
			t, err := normalizer.Normalize(summary, logs, "api")
			if err != nil {
				internal.LogWarn("Skipping session %s: %v", summary.ID, err)
				continue
			}
			transcripts = append(transcripts, t)
		}
		return nil
	})
	return transcripts, err
}

// archivedTranscripts reads transcripts from the local archive
func archivedTranscripts(ctx context.Context, path, id string) ([]*internal.Transcript, error) {
	db, err := internal.OpenDatabase(path, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer db.Close()

	store := internal.NewStorage(db)
	if id != "" {
		t, err := store.LoadTranscript(ctx, id)
		if err != nil {
			return nil, err
		}
		return []*internal.Transcript{t}, nil
	}
	return store.LoadTranscripts(ctx)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "jsonl", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "out", "o", "./exports", "Output directory")
	exportCmd.Flags().StringVar(&sessionID, "session-id", "", "Export a specific session by ID")
	exportCmd.Flags().BoolVar(&exportArchive, "archive", false, "Read sessions from the local archive")
}
