// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/wasm/manager"
)

func newRunCommand(logger log.Logger) *cobra.Command {
	var (
		dir         string
		gameVersion string
		apiVersion  string
		extension   string
		frames      int
		frameTime   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load every mod in a directory and drive it for a fixed number of frames",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			m, err := manager.New().
				WithModsDir(dir).
				WithGameVersion(gameVersion).
				WithAPIVersion(apiVersion).
				WithLogger(logger).
				WithComponentExtension(extension).
				Init()
			if err != nil {
				return fmt.Errorf("configure manager: %w", err)
			}

			if err := m.LoadAllMods(ctx); err != nil {
				return fmt.Errorf("load mods: %w", err)
			}
			logger.Infof("loaded %d mod(s) from %s", m.Count(), dir)

			m.CallInit(ctx)

			deltaTime := float32(frameTime.Seconds())
			for i := 0; i < frames; i++ {
				m.UpdateAllMods(ctx, deltaTime)
				m.CallDraw(ctx)

				textures := m.Storages().DrainTextures()
				logger.WithField("frame", i).Infof("%d texture(s) drawn", len(textures))
				m.Storages().Clear()
			}

			return m.UnloadAllMods(ctx)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./mods", "directory to discover components in")
	cmd.Flags().StringVar(&gameVersion, "game-version", "0.0.0", "game version passed to every mod's init")
	cmd.Flags().StringVar(&apiVersion, "api-version", "1.0.0", "host API version passed to every mod's init")
	cmd.Flags().StringVar(&extension, "extension", "", "override the component file extension (default .wasm)")
	cmd.Flags().IntVar(&frames, "frames", 60, "number of update/draw frames to simulate")
	cmd.Flags().DurationVar(&frameTime, "frame-time", 16*time.Millisecond, "simulated delta time per frame")

	return cmd
}
