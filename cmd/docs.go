package cmd

import (
	"fmt"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the indexed knowledge documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := s.require(ctx, "reference-data", internal.ActionView); err != nil {
			return err
		}

		docs, err := s.console.Client().ListDocuments(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(docs) == 0 {
			fmt.Fprintln(out, headerStyle.Render("📄 No documents indexed"))
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📄 %d document(s)", len(docs))))
		for _, d := range docs {
			fmt.Fprintf(out, "  %s\n", d.Name)
		}
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a document from the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := s.require(ctx, "reference-data", internal.ActionSave); err != nil {
			return err
		}

		if err := s.console.Client().DeleteDocument(ctx, args[0]); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted %s", args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsListCmd, docsDeleteCmd)
}
