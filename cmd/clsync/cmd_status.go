package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clsync/internal/storage"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the outcome of the last sync run",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := storage.OpenState(cfg.Storage.StateDB)
			if err != nil {
				return err
			}
			defer state.Close()

			last, err := state.Last(cmd.Context())
			if err != nil {
				return err
			}
			if last == nil {
				fmt.Println(subtleStyle.Render("no sync has run yet"))
				return nil
			}

			status := string(last.Status)
			fmt.Printf("%s %s\n", headerStyle.Render("last sync:"), statusStyle(status).Render(status))
			fmt.Printf("  run      %s\n", last.RunID)
			fmt.Printf("  when     %s (%.1fh ago)\n", last.LastSync.Local().Format("2006-01-02 15:04"), last.HoursSinceSync())
			fmt.Printf("  projects %d\n", last.ProjectCount)
			fmt.Printf("  files    %d\n", last.FileCount)
			if last.Error != "" {
				fmt.Printf("  %s %s\n", errorStyle.Render("error"), last.Error)
			}
			return nil
		},
	}
}
