// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wasm-modhost/modhost/internal/log"
	"github.com/wasm-modhost/modhost/internal/wasm/manager"
)

func newListCommand(logger log.Logger) *cobra.Command {
	var (
		dir       string
		extension string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Load every mod in a directory and print their reported identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			m, err := manager.New().
				WithModsDir(dir).
				WithLogger(logger).
				WithComponentExtension(extension).
				Init()
			if err != nil {
				return fmt.Errorf("configure manager: %w", err)
			}

			if err := m.LoadAllMods(ctx); err != nil {
				return fmt.Errorf("load mods: %w", err)
			}

			fmt.Printf("%-20s %-20s %-10s %-20s\n", "ID", "NAME", "VERSION", "AUTHOR")
			for _, mod := range m.ListMods() {
				fmt.Printf("%-20s %-20s %-10s %-20s\n", mod.ID, mod.Info.Name, mod.Info.Version, mod.Info.Author)
			}

			return m.UnloadAllMods(ctx)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./mods", "directory to discover components in")
	cmd.Flags().StringVar(&extension, "extension", "", "override the component file extension (default .wasm)")

	return cmd
}
