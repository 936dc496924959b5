package main

import (
	"fmt"
	"time"

	"github.com/rvald/interactions/internal/discovery"
	"github.com/spf13/cobra"
)

var discoverTimeout time.Duration

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find interactions servers advertised on the local network",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Browsing %s for %s...\n", discovery.ServiceType, discoverTimeout)
		endpoints, err := discovery.Browse(cmd.Context(), discoverTimeout)
		if err != nil {
			return err
		}
		if len(endpoints) == 0 {
			fmt.Println("No servers found.")
			return nil
		}

		fmt.Printf("%-24s  %-40s  %-10s  %s\n", "INSTANCE", "URL", "VERSION", "APP")
		for _, e := range endpoints {
			fmt.Printf("%-24s  %-40s  %-10s  %s\n", e.Instance, e.URL(), e.Meta.Version, e.Meta.AppID)
		}
		return nil
	},
}

func init() {
	discoverCmd.Flags().DurationVar(&discoverTimeout, "timeout", 3*time.Second, "How long to listen for responses")
	rootCmd.AddCommand(discoverCmd)
}
