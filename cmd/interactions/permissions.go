package main

import (
	"fmt"

	"github.com/rvald/interactions/internal/admin"
	"github.com/spf13/cobra"
)

var (
	permGuild    string
	permCommand  string
	permRoles    []string
	permUsers    []string
	permChannels []string
)

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Read or replace per-guild command permissions",
}

var permissionsGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the permission overwrites of a command",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg, _, ids, err := newRegistrar(ctx)
		if err != nil {
			return err
		}
		defer ids.Close()

		perms, err := reg.Permissions(ctx, permGuild, permCommand)
		if err != nil {
			return err
		}
		if len(perms) == 0 {
			fmt.Println("No permission overwrites.")
			return nil
		}
		for _, p := range perms {
			fmt.Println(admin.FormatPermission(p))
		}
		return nil
	},
}

var permissionsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Replace the permission overwrites of a command",
	Long: `Replace every overwrite of a command in a guild. Entries take the form
ID or ID:allow|deny; no entries clears the overwrites.`,
	Example: `  interactions permissions set --guild 123 --command feedback --role 456:allow --user 789:deny`,
	RunE: func(cmd *cobra.Command, args []string) error {
		perms, err := admin.ParsePermissions(permRoles, permUsers, permChannels)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		reg, _, ids, err := newRegistrar(ctx)
		if err != nil {
			return err
		}
		defer ids.Close()

		if err := reg.SetPermissions(ctx, permGuild, permCommand, perms); err != nil {
			return err
		}
		fmt.Printf("Set %d permission overwrites on %s in guild %s.\n", len(perms), permCommand, permGuild)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{permissionsGetCmd, permissionsSetCmd} {
		c.Flags().StringVar(&permGuild, "guild", "", "Guild id")
		c.Flags().StringVar(&permCommand, "command", "", "Command name")
		_ = c.MarkFlagRequired("guild")
		_ = c.MarkFlagRequired("command")
	}
	permissionsSetCmd.Flags().StringSliceVar(&permRoles, "role", nil, "Role overwrite, ID[:allow|deny]")
	permissionsSetCmd.Flags().StringSliceVar(&permUsers, "user", nil, "User overwrite, ID[:allow|deny]")
	permissionsSetCmd.Flags().StringSliceVar(&permChannels, "channel", nil, "Channel overwrite, ID[:allow|deny]")

	permissionsCmd.AddCommand(permissionsGetCmd, permissionsSetCmd)
	rootCmd.AddCommand(permissionsCmd)
}
