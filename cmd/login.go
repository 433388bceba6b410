package cmd

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var (
	loginUsername      string
	loginPassword      string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session token",
	Long: `Log in to the backend as an admin. The session token is saved to the
credentials file and reused by later commands until logout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}

		password := loginPassword
		if loginPasswordStdin || password == "" {
			if !loginPasswordStdin {
				fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			}
			password, err = readLine(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		client := s.console.Client()
		if err := client.Login(ctx, strings.TrimSpace(loginUsername), password); err != nil {
			return err
		}

		path, err := resolveCredentialsPath()
		if err != nil {
			return err
		}
		creds := &internal.Credentials{
			BaseURL:  s.cfg.BaseURL,
			Username: strings.TrimSpace(loginUsername),
			Token:    client.Token(),
			SavedAt:  time.Now().UTC(),
		}
		if err := internal.SaveCredentials(path, creds); err != nil {
			return err
		}

		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Logged in to %s as %s", s.cfg.BaseURL, creds.Username))
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and forget the saved token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if s.console.Client().Token() != "" {
			if err := s.console.Client().Logout(ctx); err != nil {
				internal.LogWarn("Backend logout failed: %v", err)
			}
		}
		s.console.Reset()

		path, err := resolveCredentialsPath()
		if err != nil {
			return err
		}
		if err := internal.RemoveCredentials(path); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), "Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged-in admin and their permissions",
	Args:  cobra.NoArgs,
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

		me, err := s.console.Me(ctx)
		if err != nil {
			return err
		}
		displayMe(cmd.OutOrStdout(), me)
		return nil
	},
}

func displayMe(out io.Writer, me *internal.Me) {
	role := "admin"
	if me.IsSuperAdmin {
		role = "super admin"
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%s (%s)", me.Username, role)))
	fmt.Fprintln(out)
	displayPermissions(out, me.Permissions, me.IsSuperAdmin)
}

func displayPermissions(out io.Writer, perms map[string]internal.PermissionFlags, all bool) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, titleStyle.Render("Category")+"\t"+titleStyle.Render("View")+"\t"+titleStyle.Render("Save")+"\t")

	categories := append([]string(nil), internal.Categories...)
	for c := range perms {
		if !internal.IsCategory(c) {
			categories = append(categories, c)
		}
	}
	sort.Strings(categories[len(internal.Categories):])

	for _, c := range categories {
		flags := perms[c]
		if all {
			flags = internal.PermissionFlags{CanView: true, CanSave: true}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t\n", c, yesNo(flags.CanView), yesNo(flags.CanSave))
	}
	_ = w.Flush()
}

func yesNo(b bool) string {
	if b {
		return countStyle.Render("yes")
	}
	return dateStyle.Render("no")
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Admin username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Admin password (prompted when omitted)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "Read the password from stdin")
	_ = loginCmd.MarkFlagRequired("username")
}
