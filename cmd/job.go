package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var jobWait bool

var jobCmd = &cobra.Command{
	Use:   "job <job-id>",
	Short: "Show the status of a background Drive upload",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		if err := s.requireLogin(); err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		out := cmd.OutOrStdout()
		if jobWait {
			return waitForJob(ctx, s.console, args[0], out, cmd.ErrOrStderr())
		}

		data, err := s.console.Client().UploadStatus(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Status:"), data.Status)
		if data.Detail != "" {
			fmt.Fprintf(out, "%s %s\n", titleStyle.Render("Detail:"), data.Detail)
		}
		if data.DriveFile != nil {
			fmt.Fprintf(out, "%s %s (%s)\n", titleStyle.Render("File:"), data.DriveFile.Name, data.DriveFile.WebViewLink)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobCmd)
	jobCmd.Flags().BoolVarP(&jobWait, "wait", "w", false, "Poll until the job finishes")
}
