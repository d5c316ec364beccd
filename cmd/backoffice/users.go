package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mundobebe/backoffice/app"
	"github.com/mundobebe/backoffice/core"
	"github.com/mundobebe/backoffice/users"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage backoffice users",
}

var (
	userList   listFlags
	inviteRole string
)

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, _ []string) error {
		p, err := userList.params()
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			page, err := a.Users.GetUsers(ctx, p)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		})
	},
}

var usersRolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "Count users per role",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			counts, err := a.Users.GetUserRoleCounts(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), counts)
		})
	},
}

var usersInviteCmd = &cobra.Command{
	Use:   "invite EMAIL",
	Short: "Invite an administrator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := users.InviteInput{Email: args[0], Role: core.Role(inviteRole)}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			u, err := a.Users.InviteAdmin(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invitation sent to %s (%s)\n", u.Email, u.Role)
			return nil
		})
	},
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete ID...",
	Short: "Delete users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			n, err := a.Users.DeleteUsers(ctx, users.DeleteUsersInput{IDs: splitIDs(args)})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d user(s) deleted\n", n)
			return nil
		})
	},
}

func init() {
	userList.register(usersListCmd)
	usersInviteCmd.Flags().StringVar(&inviteRole, "role", string(core.RoleAdmin), "role of the invited account (admin|superadmin)")
	usersCmd.AddCommand(usersListCmd, usersRolesCmd, usersInviteCmd, usersDeleteCmd)
}
