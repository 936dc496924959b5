package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var registerGuild string

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Overwrite the application's commands with the built-in set",
	Long: `Bulk-overwrite the registered commands, globally or for one guild, and
store the assigned ids. With DONT_REGISTER_WITH_DISCORD set the upload is
simulated and each command's name stands in for its id.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		reg, client, ids, err := newRegistrar(ctx)
		if err != nil {
			return err
		}
		defer ids.Close()

		assigned, err := reg.UpdateCommands(ctx, registerGuild)
		if err != nil {
			return err
		}

		scope := "global"
		if registerGuild != "" {
			scope = "guild " + registerGuild
		}
		if client.DryRun() {
			fmt.Printf("Dry run: %d commands (%s), nothing sent.\n", len(assigned), scope)
		} else {
			fmt.Printf("Registered %d commands (%s).\n", len(assigned), scope)
		}

		names := make([]string, 0, len(assigned))
		for name := range assigned {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Printf("%-20s  %s\n", "NAME", "ID")
		for _, name := range names {
			fmt.Printf("%-20s  %s\n", name, assigned[name])
		}
		return nil
	},
}

func init() {
	registerCmd.Flags().StringVar(&registerGuild, "guild", "", "Register for this guild only")
	rootCmd.AddCommand(registerCmd)
}
