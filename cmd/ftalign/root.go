// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// options holds flag values shared by the subcommands.
type options struct {
	configPath string
	logLevel   string

	maxJoins int
	workers  int
	storage  string

	trace    bool
	json     bool
	cacheDir string
	noCache  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "ftalign",
		Short: "Align fragmentation trees",
		Long: `ftalign computes the optimal local alignment of two fragmentation trees
with the exact subset DP, including join operations that collapse a path of
vertices onto a single edge.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file (defaults are embedded)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(newAlignCmd(opts), newVersionCmd())
	return root
}
