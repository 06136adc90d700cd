/*
Copyright © 2026 Kiln Authors <dev@kilnware.dev>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package watch provides the watch command: rebuild on source changes.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kilnware/kiln/build"
	"github.com/kilnware/kiln/buildlog"
	kfs "github.com/kilnware/kiln/fs"
)

// Cmd is the watch cobra command.
var Cmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever the source tree changes",
	Long: `Watch the source tree and run a build after each change, debounced so a
burst of writes triggers one rebuild. Build failures are reported and
watching continues.`,
	RunE: run,
}

func init() {
	Cmd.Flags().Duration("debounce", 300*time.Millisecond, "Delay after the last change before rebuilding")
	_ = viper.BindPFlag("debounce", Cmd.Flags().Lookup("debounce"))
}

func run(cmd *cobra.Command, args []string) error {
	osfs := kfs.NewOSFileSystem()

	source, err := filepath.Abs(viper.GetString("source"))
	if err != nil {
		return fmt.Errorf("invalid source directory: %w", err)
	}
	dest, err := filepath.Abs(viper.GetString("dest"))
	if err != nil {
		return fmt.Errorf("invalid destination directory: %w", err)
	}
	env := viper.GetString("env")
	debounce := viper.GetDuration("debounce")

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	builder := build.New(osfs, buildlog.NewSlogSink(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, source, dest); err != nil {
		return err
	}

	rebuild := func() {
		if _, err := builder.Build(ctx, source, dest, env); err != nil {
			logger.Error("build failed", slog.Any("error", err))
			return
		}
		// New source directories may have appeared.
		if err := watchTree(watcher, source, dest); err != nil {
			logger.Error("re-watch failed", slog.Any("error", err))
		}
	}

	rebuild()
	logger.Info("watching for changes", slog.String("source", source))

	var timer *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			pending = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", slog.Any("error", err))
		case <-pending:
			pending = nil
			rebuild()
		}
	}
}

// watchTree adds watches for every directory under source, skipping the
// destination in case it nests inside the source tree. Adding an
// already-watched directory is a no-op.
func watchTree(watcher *fsnotify.Watcher, source, dest string) error {
	return filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path == dest || strings.HasPrefix(path, dest+string(filepath.Separator)) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
