// Copyright 2019 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Command nullguard generates the shims for guarded interfaces. It is
// usually run through go generate:
//   //go:generate go run github.com/cockroachdb/nullguard/cmd/nullguard .
package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/nullguard/pkg/gen"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(0)
}

func newRootCmd() *cobra.Command {
	exec, err := os.Executable()
	if err == nil {
		exec = filepath.Base(exec)
	} else {
		exec = "nullguard"
	}

	root := &cobra.Command{
		Use:          exec + " [packages]",
		Short:        "Generate shims for interfaces marked with nullguard:contract",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd.Flags(), args)
			if err != nil {
				return err
			}
			logger, err := newLogger(opts.Verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			return run(cmd.Context(), cmd.OutOrStdout(), opts.generator(cmd.OutOrStdout(), logger))
		},
	}
	flags := root.PersistentFlags()
	flags.StringSlice(keyBuildFlags, nil, "Additional build flags to pass to the compiler.")
	flags.StringP(keyDir, "d", ".", "The directory to operate in")
	flags.Bool(keyDryRun, false, "Report the files which would change without writing them")
	flags.StringP(keyOut, "o", gen.DefaultOutfile, "The name of the generated file in each package")
	flags.BoolP(keyVerbose, "v", false, "Log what the generator is doing")

	root.AddCommand(newWatchCmd())
	return root
}

// run executes the generator once and prints any problems it found.
func run(ctx context.Context, out io.Writer, g *gen.Generator) error {
	results, err := g.Execute(ctx)
	for _, r := range results {
		fmt.Fprintln(out, r.StringRelative(g.Dir))
	}
	return err
}

// newLogger writes human-readable logs to stderr. Only warnings are
// shown unless verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

// dryRun returns an Emit function which reports changes instead of
// making them.
func dryRun(out io.Writer, dir string) func(path string, src []byte) error {
	var mu sync.Mutex
	return func(path string, src []byte) error {
		display := path
		if rel, err := filepath.Rel(dir, path); err == nil {
			display = rel
		}
		mu.Lock()
		defer mu.Unlock()
		if src == nil {
			fmt.Fprintf(out, "would remove %s\n", display)
		} else if existing, err := os.ReadFile(path); err != nil || !bytes.Equal(existing, src) {
			fmt.Fprintf(out, "would write %s\n", display)
		}
		return nil
	}
}
