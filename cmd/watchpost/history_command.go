package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"watchpost/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var path string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent artifact activity from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Logging.Journal == "" {
				return fmt.Errorf("activity journal disabled (logging.journal is empty)")
			}
			if _, err := os.Stat(cfg.Logging.Journal); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No activity recorded yet")
				return nil
			}
			store, err := ledger.Open(cfg.Logging.Journal)
			if err != nil {
				return err
			}
			defer store.Close()

			var events []ledger.Event
			if path != "" {
				events, err = store.ForPath(cmd.Context(), path)
			} else {
				events, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No activity recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				rows = append(rows, []string{
					strconv.FormatInt(ev.ID, 10),
					ev.Time.Local().Format("2006-01-02 15:04:05"),
					ev.Worker,
					ev.Name,
					ev.Path,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Time", "Worker", "Event", "Path"},
				rows,
				[]columnAlignment{alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events to show")
	cmd.Flags().StringVar(&path, "path", "", "Show every event for one artifact path")
	return cmd
}
