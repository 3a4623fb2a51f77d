// Copyright 2024 The Modhost Authors.  All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command modhost is a CLI front end for the mod manager: load a
// directory of components, drive a fixed number of frames with a simulated
// delta time, and list what a directory loads. Root-command assembly follows the
// same cobra wiring as the rest of this codebase's command-line tools, with
// a small set of subcommands sized for a mod host's debug tooling.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wasm-modhost/modhost/internal/log"
)

func main() {
	root := &cobra.Command{
		Use:   "modhost",
		Short: "modhost runs and inspects WebAssembly component mods",
		Long:  "A host for loading and running WebAssembly Component Model mods.",
	}

	logger := log.New()

	root.AddCommand(newRunCommand(logger))
	root.AddCommand(newListCommand(logger))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
