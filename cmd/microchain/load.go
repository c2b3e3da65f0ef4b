// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/microchain/internal/config"
	"github.com/blinklabs-io/microchain/internal/node"
	"github.com/spf13/cobra"
)

var loadFlags = struct {
	irreversible uint32
}{}

func loadRun(ctx context.Context, args []string, cfg *config.Config) {
	var blockFile string
	if len(args) >= 1 {
		blockFile = args[0]
	}
	if !cfg.Persistence && blockFile == "" {
		slog.Error("nothing to load: persistence is disabled and no block file was given")
		os.Exit(1)
	}
	logger := commonRun(cfg)
	res, err := node.Load(ctx, cfg, logger, blockFile, loadFlags.irreversible)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	fmt.Printf(
		"archived: %d, imported: %d, duplicates: %d, faults: %d, head: %d, irreversible: %d\n",
		res.Archived,
		res.Imported,
		res.Duplicates,
		res.Faults,
		res.Head,
		res.Irreversible,
	)
}

func loadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load [block-file]",
		Short: "Replay the block archive and import source blocks from a JSON file",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			loadRun(cmd.Context(), args, configFromCommand(cmd))
		},
	}
	cmd.Flags().Uint32Var(
		&loadFlags.irreversible,
		"irreversible",
		0,
		"last source block number known to be irreversible",
	)
	return cmd
}
