package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/importer"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"
	"github.com/ComputerScienceHouse/packet/internal/roster"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// A file is imported once no event has touched it for settleDelay.
const settleDelay = 500 * time.Millisecond

var watchCmd = &cobra.Command{
	Use:   "watch <create-packets|sync-freshmen> <dir>",
	Short: "Import every roster file dropped into a directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	mode, err := parseImportArgs(args[0])
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(args[1]); err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[1], err)
	}

	imp := importer.NewImporter(packetapi.NewClient(cfg.PacketAPI), cfg.PacketAPI.Timeout)
	fmt.Fprintf(cmd.OutOrStdout(), "watching %s for %s rosters\n", args[1], mode)
	return watchDir(cmd.Context(), cmd.OutOrStdout(), watcher, imp, mode)
}

// watchDir imports settled roster files one at a time until ctx is done.
func watchDir(ctx context.Context, out io.Writer, watcher *fsnotify.Watcher, imp *importer.Importer, mode model.Mode) error {
	log := logger.Component("watch")
	ready := make(chan string)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(ready)
		return collectEvents(gctx, watcher, ready)
	})
	g.Go(func() error {
		for path := range ready {
			if _, err := importFile(gctx, out, imp, mode, path); err != nil {
				log.Error().Err(err).Str("file", path).Msg("Import failed")
			}
		}
		return nil
	})

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func collectEvents(ctx context.Context, watcher *fsnotify.Watcher, ready chan<- string) error {
	log := logger.Component("watch")
	pending := make(map[string]time.Time)

	ticker := time.NewTicker(settleDelay / 5)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !roster.ValidFileName(event.Name) {
				log.Debug().Str("file", event.Name).Msg("Ignoring non-roster file")
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("Watcher error")

		case now := <-ticker.C:
			var settled []string
			for path, last := range pending {
				if now.Sub(last) >= settleDelay {
					settled = append(settled, path)
				}
			}
			sort.Strings(settled)
			for _, path := range settled {
				delete(pending, path)
				select {
				case ready <- path:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
