package main

import (
	"encoding/json"
	"fmt"

	"github.com/rvald/interactions/internal/commands"
	"github.com/spf13/cobra"
)

var commandsRemoteGuild string

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Print the command definitions that register would upload",
	RunE: func(cmd *cobra.Command, args []string) error {
		bp, err := commands.Blueprint()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(bp.Commands.Dump()); err != nil {
			return fmt.Errorf("encode commands: %w", err)
		}
		return nil
	},
}

var commandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in command names and component custom ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		bp, err := commands.Blueprint()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%-10s  %s\n", "KIND", "NAME")
		for _, name := range bp.Commands.Names() {
			fmt.Fprintf(out, "%-10s  %s\n", "command", name)
		}
		for _, id := range bp.Handlers.IDs() {
			fmt.Fprintf(out, "%-10s  %s\n", "custom_id", id)
		}
		return nil
	},
}

var commandsRemoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "List the commands currently registered with the platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		_, client, ids, err := newRegistrar(ctx)
		if err != nil {
			return err
		}
		defer ids.Close()

		remote, err := client.ListCommands(ctx, commandsRemoteGuild)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(remote) == 0 {
			if client.DryRun() {
				fmt.Fprintln(out, "Dry run: nothing fetched.")
			} else {
				fmt.Fprintln(out, "No commands registered.")
			}
			return nil
		}

		fmt.Fprintf(out, "%-20s  %-20s  %s\n", "NAME", "ID", "VERSION")
		for _, c := range remote {
			fmt.Fprintf(out, "%-20s  %-20s  %s\n", c.Name, c.ID, c.Version)
		}
		return nil
	},
}

func init() {
	commandsRemoteCmd.Flags().StringVar(&commandsRemoteGuild, "guild", "", "List guild commands instead of global ones")
	commandsCmd.AddCommand(commandsListCmd, commandsRemoteCmd)
	rootCmd.AddCommand(commandsCmd)
}
