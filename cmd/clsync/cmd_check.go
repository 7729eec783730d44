package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the browser connection and login state",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mgr, conn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer mgr.Shutdown()

			if err := conn.Navigate(ctx, cfg.Sync.BaseURL); err != nil {
				return err
			}
			loggedIn, err := conn.IsLoggedIn(ctx)
			if err != nil {
				return err
			}
			if !loggedIn {
				fmt.Println(warnStyle.Render("connected, but the claude.ai session is logged out"))
				return nil
			}
			fmt.Println(okStyle.Render("browser connected and logged in"))
			return nil
		},
	}
}
