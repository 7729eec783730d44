package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clsync/internal/browser"
)

func newBrowserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browser",
		Short: "Manage the Chrome session clsync attaches to",
	}
	cmd.AddCommand(newBrowserLaunchCmd())
	return cmd
}

// newBrowserLaunchCmd starts a Chrome instance with remote debugging and
// keeps it alive so the user can sign in to claude.ai once, then run syncs
// against the same session.
func newBrowserLaunchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Launch Chrome with remote debugging and keep it running",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			browserCfg := cfg.Browser
			browserCfg.DebuggerURL = "" // always launch, never attach
			mgr := browser.NewManager(browserCfg)
			if err := mgr.Start(ctx); err != nil {
				return err
			}
			defer mgr.Shutdown()

			if _, err := mgr.OpenPage(ctx, cfg.Sync.BaseURL); err != nil {
				return err
			}

			fmt.Println(okStyle.Render("chrome running"))
			fmt.Printf("  debugger  %s\n", mgr.ControlURL())
			fmt.Println(subtleStyle.Render("sign in to claude.ai in the opened tab, then run clsync sync"))
			fmt.Println(subtleStyle.Render("press ctrl-c to stop"))

			<-ctx.Done()
			fmt.Println()
			fmt.Println(subtleStyle.Render("shutting down"))
			return nil
		},
	}
}
