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

// Package build provides the build command for kiln.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kilnware/kiln/build"
	"github.com/kilnware/kiln/buildlog"
	"github.com/kilnware/kiln/fs"
)

// Cmd is the build cobra command that runs one pipeline invocation.
var Cmd = &cobra.Command{
	Use:   "build",
	Short: "Publish assets and transpile the bundle once",
	Long: `Run one build: resolve configuration and aliases, publish unseen assets,
transpile modules and widgets, reconcile stale outputs, and generate the
deployment manifest.`,
	Example: `  # Build the current directory into ./dist for production
  kiln build

  # Build a specific tree for the staging environment
  kiln build --source ./app --dest ./out --env staging`,
	RunE: run,
}

func init() {
	Cmd.Flags().BoolP("quiet", "q", false, "Only log warnings and errors")
	_ = viper.BindPFlag("quiet", Cmd.Flags().Lookup("quiet"))
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	source, err := filepath.Abs(viper.GetString("source"))
	if err != nil {
		return fmt.Errorf("invalid source directory: %w", err)
	}
	dest, err := filepath.Abs(viper.GetString("dest"))
	if err != nil {
		return fmt.Errorf("invalid destination directory: %w", err)
	}

	level := slog.LevelInfo
	if viper.GetBool("quiet") {
		level = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	builder := build.New(osfs, buildlog.NewSlogSink(logger))
	result, err := builder.Build(ctx, source, dest, viper.GetString("env"))
	if err != nil {
		return err
	}

	warnings := 0
	for _, e := range result.Logs {
		if e.Severity == buildlog.SeverityWarning {
			warnings++
		}
	}
	if warnings > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "build succeeded with %d warning(s)\n", warnings)
	}
	return nil
}
