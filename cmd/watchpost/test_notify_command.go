package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"watchpost/internal/config"
	"watchpost/internal/notifications"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify [image]",
		Short: "Send one notification through the configured transport",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Notify.Transport == config.TransportNone {
				fmt.Fprintln(out, "Notifications disabled (notify.transport = none)")
				return nil
			}
			msg := notifications.Message{
				Subject: cfg.Notify.Subject + " (test)",
				Body:    "watchpost test notification sent at " + time.Now().Format("2006-01-02 15:04:05"),
			}
			if len(args) == 1 {
				msg.Attachment = args[0]
			}
			if err := notifications.NewSender(cfg).Send(cmd.Context(), msg); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintf(out, "Test notification sent via %s\n", notifications.Describe(cfg))
			return nil
		},
	}
}
