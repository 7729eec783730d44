package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List claude.ai projects without syncing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mgr, conn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer mgr.Shutdown()

			if err := conn.Navigate(ctx, cfg.Sync.BaseURL+"/projects"); err != nil {
				return err
			}
			if err := requireLogin(ctx, conn); err != nil {
				return err
			}
			projects, err := conn.ExtractProjects(ctx)
			if err != nil {
				return err
			}

			if len(projects) == 0 {
				fmt.Println(subtleStyle.Render("no projects found"))
				return nil
			}
			fmt.Println(headerStyle.Render(fmt.Sprintf("%d projects", len(projects))))
			for _, p := range projects {
				fmt.Printf("  %s", projectStyle.Render(p.Name))
				if p.Updated != "" {
					fmt.Printf("  %s", subtleStyle.Render(p.Updated))
				}
				fmt.Println()
				if p.Description != "" {
					fmt.Println(subtleStyle.Render("    " + p.Description))
				}
			}
			return nil
		},
	}
}
