package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/iksnae/chatdesk/internal"
	"github.com/spf13/cobra"
)

var (
	adminRefresh  bool
	adminPassword string
	adminSuper    bool
	grantCategory string
	grantView     bool
	grantSave     bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Manage admin users and their permissions (super admins only)",
}

var adminUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "List admin users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, ctx, cancel, err := openSuperAdmin(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		users, err := s.console.Admins(ctx, adminRefresh)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(users) == 0 {
			fmt.Fprintln(out, headerStyle.Render("No admin users"))
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("👥 %d admin(s)", len(users))))
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, titleStyle.Render("Username")+"\t"+titleStyle.Render("Role")+"\t")
		for _, u := range users {
			role := "admin"
			if u.IsSuperAdmin {
				role = countStyle.Render("super admin")
			}
			fmt.Fprintf(w, "%s\t%s\t\n", u.Username, role)
		}
		return w.Flush()
	},
}

var adminSaveCmd = &cobra.Command{
	Use:   "save <username>",
	Short: "Create an admin or reset their password and role",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, ctx, cancel, err := openSuperAdmin(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		if err := s.console.SaveAdmin(ctx, args[0], adminPassword, adminSuper); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Saved admin %s", args[0]))
		return nil
	},
}

var adminDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete an admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, ctx, cancel, err := openSuperAdmin(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		if s.creds != nil && s.creds.Username == args[0] {
			return fmt.Errorf("refusing to delete the logged-in admin %s", args[0])
		}
		if err := s.console.DeleteAdmin(ctx, args[0]); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Deleted admin %s", args[0]))
		return nil
	},
}

var adminPermsCmd = &cobra.Command{
	Use:   "perms <username>",
	Short: "Show the permissions of an admin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, ctx, cancel, err := openSuperAdmin(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		perms, err := s.console.Client().Permissions(ctx, args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headerStyle.Render("Permissions of "+args[0]))
		fmt.Fprintln(out)
		displayPermissions(out, perms, false)
		return nil
	},
}

var adminGrantCmd = &cobra.Command{
	Use:   "grant <username>",
	Short: "Set the view/save permissions of one category",
	Long: `Set the view and save permissions of one category for an admin. The
other categories keep their current values. Passing neither --view nor
--save revokes the category.

Categories: chatbot-connect, chat-history, gpt-setting, prompt-setting,
data-setting, reference-data.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !internal.IsCategory(grantCategory) {
			return &internal.ValidationError{Field: "category", Msg: fmt.Sprintf("unknown category %q", grantCategory)}
		}
		s, ctx, cancel, err := openSuperAdmin(cmd)
		if err != nil {
			return err
		}
		defer cancel()

		current, err := s.console.Client().Permissions(ctx, args[0])
		if err != nil {
			return err
		}
		current[grantCategory] = internal.PermissionFlags{CanView: grantView || grantSave, CanSave: grantSave}

		if err := s.console.SetPermissions(ctx, args[0], permissionList(current)); err != nil {
			return err
		}
		internal.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("Updated %s permissions of %s", grantCategory, args[0]))
		return nil
	},
}

// permissionList flattens flags into the update payload, known categories only
func permissionList(flags map[string]internal.PermissionFlags) []internal.Permission {
	perms := make([]internal.Permission, 0, len(internal.Categories))
	for _, c := range internal.Categories {
		f := flags[c]
		perms = append(perms, internal.Permission{Category: c, CanView: f.CanView, CanSave: f.CanSave})
	}
	return perms
}

// openSuperAdmin opens a session and checks the logged-in admin is a super admin
func openSuperAdmin(cmd *cobra.Command) (*session, context.Context, context.CancelFunc, error) {
	s, err := openSession()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := s.requireLogin(); err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := commandContext(cmd)
	me, err := s.console.Me(ctx)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	if !me.IsSuperAdmin {
		cancel()
		return nil, nil, nil, fmt.Errorf("permission denied: %s is not a super admin", me.Username)
	}
	return s, ctx, cancel, nil
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminUsersCmd, adminSaveCmd, adminDeleteCmd, adminPermsCmd, adminGrantCmd)

	adminUsersCmd.Flags().BoolVar(&adminRefresh, "refresh", false, "Bypass the admin list cache")
	adminSaveCmd.Flags().StringVarP(&adminPassword, "password", "p", "", "Password of the admin")
	adminSaveCmd.Flags().BoolVar(&adminSuper, "super", false, "Make the admin a super admin")
	_ = adminSaveCmd.MarkFlagRequired("password")
	adminGrantCmd.Flags().StringVarP(&grantCategory, "category", "c", "", "Permission category")
	adminGrantCmd.Flags().BoolVar(&grantView, "view", false, "Allow viewing the category")
	adminGrantCmd.Flags().BoolVar(&grantSave, "save", false, "Allow saving the category (implies --view)")
	_ = adminGrantCmd.MarkFlagRequired("category")
}
