package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var uploadWait bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload knowledge files",
	Long: `Upload one or more files to the backend. Every file is checked before
anything is sent: the type must be supported and the size at most 50MB.

The backend copies uploads to Google Drive in the background. With --wait
the command polls each Drive job until it finishes or 30s pass.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := validateUploads(args)
		if err != nil {
			return err
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := s.require(ctx, "data-setting", internal.ActionSave); err != nil {
			return err
		}

		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
		failed := 0
		for _, path := range files {
			name := filepath.Base(path)
			var resp *internal.UploadResponse
			err := internal.ShowProgress(ctx, "Uploading "+name, func() error {
				var err error
				resp, err = s.console.Upload(ctx, path)
				return err
			})
			if err != nil {
				internal.PrintError(errOut, fmt.Sprintf("%s: %v", name, err))
				failed++
				continue
			}
			reportUpload(out, errOut, resp)

			if uploadWait && resp.DriveUploadJobID != "" {
				if err := waitForJob(ctx, s.console, resp.DriveUploadJobID, out, errOut); err != nil {
					failed++
				}
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d upload(s) failed", failed, len(files))
		}
		return nil
	},
}

// validateUploads checks every file up front and drops repeats of the same
// name and size
func validateUploads(paths []string) ([]string, error) {
	type key struct {
		name string
		size int64
	}
	seen := make(map[key]bool, len(paths))
	files := make([]string, 0, len(paths))
	for _, path := range paths {
		info, err := internal.ValidateUpload(path)
		if err != nil {
			return nil, err
		}
		k := key{filepath.Base(path), info.Size()}
		if seen[k] {
			internal.LogWarn("Skipping duplicate %s", path)
			continue
		}
		seen[k] = true
		files = append(files, path)
	}
	return files, nil
}

func reportUpload(out, errOut io.Writer, resp *internal.UploadResponse) {
	msg := resp.Message
	if msg == "" {
		msg = fmt.Sprintf("Uploaded %s", resp.Filename)
	}
	internal.PrintSuccess(out, msg)
	if resp.ConvertedPDFPath != "" {
		internal.PrintInfo(out, "Converted to PDF: "+resp.ConvertedPDFPath)
	}
	switch {
	case resp.DriveUploadScheduleError != "":
		internal.PrintWarning(errOut, "Drive upload not scheduled: "+resp.DriveUploadScheduleError)
	case resp.DriveUploadJobID != "":
		internal.PrintInfo(out, "Drive upload job: "+resp.DriveUploadJobID)
	}
}

// waitForJob polls jobID behind a spinner and reports the outcome
func waitForJob(ctx context.Context, console *internal.Console, jobID string, out, errOut io.Writer) error {
	sp := internal.NewSpinner(errOut, "Waiting for Drive upload "+jobID)
	onStatus := func(id string, status internal.JobStatus, attempt int) {
		sp.Update(fmt.Sprintf("Waiting for Drive upload %s: %s (check %d)", id, status, attempt))
	}

	sp.Start(ctx)
	res, err := console.WaitForJob(ctx, jobID, onStatus)
	if err == nil && res.Status == internal.JobError {
		err = fmt.Errorf("drive upload failed: %s", res.Detail)
	}
	sp.Stop(err)

	if err != nil {
		internal.PrintError(errOut, fmt.Sprintf("Job %s: %v", jobID, err))
		return err
	}
	msg := fmt.Sprintf("Drive upload %s finished in %s", jobID, res.Elapsed.Round(100*time.Millisecond))
	if res.Link != "" {
		msg += ": " + res.Link
	}
	internal.PrintSuccess(out, msg)
	return nil
}

func init() {
	rootCmd.AddCommand(uploadCmd)
	uploadCmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "Wait for the Drive upload of each file")
}
