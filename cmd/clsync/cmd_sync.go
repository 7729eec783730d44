package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clsync/internal/browser"
	"clsync/internal/modal"
	"clsync/internal/storage"
	"clsync/internal/syncer"
)

func newSyncCmd() *cobra.Command {
	var (
		maxAge   time.Duration
		force    bool
		projects []string
	)
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Sync all projects and their knowledge files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			mgr, conn, err := connect(ctx)
			if err != nil {
				return err
			}
			defer mgr.Shutdown()

			if err := requireLogin(ctx, conn); err != nil {
				return err
			}

			state, err := storage.OpenState(cfg.Storage.StateDB)
			if err != nil {
				return err
			}
			defer state.Close()

			o := syncer.New(syncer.Params{
				Conn: conn,
				Content: modal.NewManager(conn.Page(), modal.Options{
					SettleDelay: cfg.Sync.SettleDelay(),
				}),
				Store:      storage.NewLocal(cfg.Storage),
				State:      state,
				Config:     cfg.Sync,
				Filter:     projects,
				OnProgress: printProgress,
			})

			if !force {
				due, err := o.ShouldSync(ctx, maxAge)
				if err != nil {
					log.Warnw("staleness check failed", "error", err)
				} else if !due {
					fmt.Println(subtleStyle.Render(
						fmt.Sprintf("last sync is fresher than %s, use --force to sync anyway", maxAge)))
					return nil
				}
			}

			fmt.Println(titleStyle.Render("Syncing claude.ai projects"))
			prog, err := o.SyncAll(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%s %d/%d projects, %d files\n",
				okStyle.Render("done:"), prog.ProjectsDone, prog.ProjectCount, prog.FilesDone)
			for _, e := range prog.Errors {
				fmt.Println(warnStyle.Render("  skipped " + e.String()))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&maxAge, "max-age", 24*time.Hour, "skip the run when the last sync is fresher than this")
	cmd.Flags().BoolVar(&force, "force", false, "sync even when the last run is fresh")
	cmd.Flags().StringArrayVar(&projects, "project", nil, "sync only the named project (repeatable)")
	return cmd
}

func printProgress(p syncer.Progress) {
	fmt.Printf("%s %d/%d projects, %d files\r",
		subtleStyle.Render("syncing"), p.ProjectsDone, p.ProjectCount, p.FilesDone)
}

// connect starts the browser session and attaches to a claude.ai tab,
// opening a new one when none exists.
func connect(ctx context.Context) (*browser.Manager, *browser.Connection, error) {
	mgr := browser.NewManager(cfg.Browser)
	if err := mgr.Start(ctx); err != nil {
		return nil, nil, err
	}

	page, err := mgr.FindPage(ctx, "claude.ai")
	if err != nil {
		log.Debugw("no existing claude.ai tab", "error", err)
		page, err = mgr.OpenPage(ctx, cfg.Sync.BaseURL)
		if err != nil {
			mgr.Shutdown()
			return nil, nil, err
		}
	}

	conn := browser.NewConnection(page, browser.ConnectionOptions{
		ReadyTimeout: cfg.Browser.ReadyTimeout(),
		SettleDelay:  cfg.Sync.SettleDelay(),
	})
	return mgr, conn, nil
}

// requireLogin fails fast when the claude.ai session is logged out instead
// of letting every extraction time out.
func requireLogin(ctx context.Context, conn *browser.Connection) error {
	loggedIn, err := conn.IsLoggedIn(ctx)
	if err != nil {
		log.Warnw("login probe failed", "error", err)
		return nil
	}
	if !loggedIn {
		return fmt.Errorf("claude.ai session is not logged in; sign in in the browser first")
	}
	return nil
}
