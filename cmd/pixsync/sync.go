package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/pixsync/pixsync/internal/client"
)

const timePrecision = 10 * time.Millisecond

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single synchronization pass and exit",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd.Root())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFromViper()
		if err := cfg.Validate(); err != nil {
			return err
		}

		cmd.SilenceUsage = true
		setupLogging(cfg)

		fullRefresh, _ := cmd.Flags().GetBool("full")
		noUpload, _ := cmd.Flags().GetBool("no-upload")
		if noUpload {
			cfg.AutoUpload = false
		}

		c, err := client.New(cfg)
		if err != nil {
			return err
		}
		defer c.Close()

		// stream per-item upload progress to the terminal
		uploads := c.Engine().Progress().SubscribeUpload()
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range uploads {
				fmt.Printf("\r%s %d/%d uploaded", cyan("↑"), ev.CurrentIndex, ev.TotalCount)
			}
		}()

		result, err := c.SyncOnce(cmd.Context(), fullRefresh)
		c.Engine().Progress().UnsubscribeUpload(uploads)
		<-done
		fmt.Println()
		if err != nil {
			return err
		}

		fmt.Println(green("✓"), "sync pass complete")
		fmt.Printf("  scanned:   %s\n", humanize.Comma(int64(result.Scanned)))
		fmt.Printf("  synced:    %s\n", humanize.Comma(int64(result.AlreadySynced)))
		fmt.Printf("  uploaded:  %s\n", humanize.Comma(int64(result.Uploaded)))
		if result.Failed > 0 {
			fmt.Printf("  failed:    %s\n", red(humanize.Comma(int64(result.Failed))))
		}
		if result.PendingUpload > 0 {
			fmt.Printf("  pending:   %s\n", humanize.Comma(int64(result.PendingUpload)))
		}
		if result.RemoteOnly > 0 {
			fmt.Printf("  remote-only: %s\n", humanize.Comma(int64(result.RemoteOnly)))
		}
		fmt.Printf("  took:      %s\n", result.FinishedAt.Sub(result.StartedAt).Round(timePrecision))
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("full", false, "Request a full remote snapshot instead of a delta")
	syncCmd.Flags().Bool("no-upload", false, "Reconcile only, do not upload")
}
