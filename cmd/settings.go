package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	settingsFormat string
	settingsFile   string
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the bot settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current bot settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := s.require(ctx, "gpt-setting", internal.ActionView); err != nil {
			return err
		}

		settings, err := s.console.LoadSettings(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		switch strings.ToLower(settingsFormat) {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(settings.Request())
		case "yaml", "yml", "":
			enc := yaml.NewEncoder(out)
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(settings)
		default:
			return &internal.ValidationError{Field: "format", Msg: fmt.Sprintf("unsupported format %q (supported: yaml, json)", settingsFormat)}
		}
	},
}

var settingsSaveCmd = &cobra.Command{
	Use:   "save",
	Short: "Update the bot settings from a YAML file",
	Long: `Update the bot settings from a YAML file laid out like the output of
` + "`chatdesk settings show`" + `. Keys missing from the file keep their
current values.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(settingsFile)
		if err != nil {
			return &internal.StorageError{Path: settingsFile, Op: "read", Err: err}
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		if err := s.require(ctx, "gpt-setting", internal.ActionSave); err != nil {
			return err
		}

		settings, err := s.console.LoadSettings(ctx)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return &internal.ParseError{Source: "settings", Key: settingsFile, Err: err}
		}
		if err := s.console.SaveSettings(ctx, settings); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), "Settings saved")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd, settingsSaveCmd)
	settingsShowCmd.Flags().StringVarP(&settingsFormat, "format", "f", "yaml", "Output format (yaml, json)")
	settingsSaveCmd.Flags().StringVar(&settingsFile, "file", "", "YAML file with the new settings")
	_ = settingsSaveCmd.MarkFlagRequired("file")
}
