package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/chazu/xylem/pkg/app"
)

const debounce = 100 * time.Millisecond

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-evaluate a design script whenever it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := settings(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			a := app.New(cfg.AppOptions(log))
			path := args[0]
			run := func() {
				source, err := os.ReadFile(path)
				if err != nil {
					log.Warn("read failed", "path", path, "err", err)
					return
				}
				start := time.Now()
				res := a.Evaluate(ctx, string(source))
				fmt.Fprintf(cmd.OutOrStdout(), "-- %s (%s)\n", path, time.Since(start).Round(time.Millisecond))
				printResult(cmd.OutOrStdout(), res)
			}
			run()
			return watchFile(ctx, path, run)
		},
	}
}

// watchFile calls onChange after path is written, created or renamed into
// place, once writes have been quiet for the debounce interval. It watches
// the parent directory so that editors replacing the file are seen. It
// returns nil when ctx is done.
func watchFile(ctx context.Context, path string, onChange func()) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case now := <-ticker.C:
			if !pending.IsZero() && now.Sub(pending) >= debounce {
				pending = time.Time{}
				onChange()
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)
		}
	}
}
