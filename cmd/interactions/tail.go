package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rvald/interactions/internal/feed"
	"github.com/spf13/cobra"
)

var (
	tailURL   string
	tailToken string
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Stream handled interactions from a running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := tailToken
		if token == "" {
			token = cfg.FeedToken
		}
		if token == "" {
			return fmt.Errorf("feed token required (--token or FEED_TOKEN)")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return feed.Tail(ctx, tailURL, token, func(f *feed.EventFrame) error {
			if f.Event != feed.EventHandled {
				fmt.Printf("#%d %s\n", f.Seq, f.Event)
				return nil
			}
			p, err := f.Handled()
			if err != nil {
				return err
			}
			line := fmt.Sprintf("#%d %-12s %-20s %d %-10s %.1fms", f.Seq, p.Type, p.Target, p.Status, p.Outcome, p.DurationMS)
			var flags []string
			if p.Canonicalized {
				flags = append(flags, "canonicalized")
			}
			if p.Bypassed {
				flags = append(flags, "bypassed")
			}
			if len(flags) > 0 {
				line += " [" + strings.Join(flags, ",") + "]"
			}
			if p.Error != "" {
				line += " error=" + p.Error
			}
			fmt.Println(line)
			return nil
		})
	},
}

func init() {
	tailCmd.Flags().StringVar(&tailURL, "url", "ws://127.0.0.1:8080/events", "Feed URL")
	tailCmd.Flags().StringVar(&tailToken, "token", "", "Feed token (default $FEED_TOKEN)")
	rootCmd.AddCommand(tailCmd)
}
