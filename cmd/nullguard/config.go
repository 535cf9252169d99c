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

package main

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/nullguard/pkg/gen"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Settings may come from flags, NULLGUARD_GEN_* environment variables,
// or a .nullguard.yaml file in the working directory, in that order of
// precedence:
//   packages: [./...]
//   build_flags: [-tags=integration]
//   out: nullguard_gen.go
//   debounce: 500ms
const (
	configFileName = ".nullguard"
	configFileType = "yaml"
	envPrefix      = "NULLGUARD_GEN"

	keyBuildFlags = "build_flags"
	keyDebounce   = "debounce"
	keyDir        = "dir"
	keyDryRun     = "dry_run"
	keyOut        = "out"
	keyPackages   = "packages"
	keyVerbose    = "verbose"
)

// options are the resolved settings of a single invocation.
type options struct {
	BuildFlags []string
	Debounce   time.Duration
	Dir        string
	DryRun     bool
	Outfile    string
	Packages   []string
	Verbose    bool
}

// loadOptions merges the flags with the environment and the optional
// config file. Positional arguments take the place of the configured
// package list.
func loadOptions(flags *pflag.FlagSet, args []string) (*options, error) {
	v := viper.New()
	v.SetDefault(keyDebounce, 250*time.Millisecond)
	v.SetDefault(keyDir, ".")
	v.SetDefault(keyOut, gen.DefaultOutfile)
	v.SetDefault(keyPackages, []string{"."})
	if err := v.BindPFlags(flags); err != nil {
		return nil, errors.Wrap(err, "could not bind flags")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	dir := v.GetString(keyDir)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "could not read config")
		}
	}

	ret := &options{
		BuildFlags: v.GetStringSlice(keyBuildFlags),
		Debounce:   v.GetDuration(keyDebounce),
		Dir:        dir,
		DryRun:     v.GetBool(keyDryRun),
		Outfile:    v.GetString(keyOut),
		Packages:   args,
		Verbose:    v.GetBool(keyVerbose),
	}
	if len(ret.Packages) == 0 {
		ret.Packages = v.GetStringSlice(keyPackages)
	}
	if ret.Debounce <= 0 {
		return nil, errors.Errorf("%s must be positive, got %s", keyDebounce, ret.Debounce)
	}
	if abs, err := filepath.Abs(ret.Dir); err == nil {
		ret.Dir = abs
	}
	return ret, nil
}

// generator creates a Generator configured by the options.
func (o *options) generator(out io.Writer, logger *zap.Logger) *gen.Generator {
	g := &gen.Generator{
		BuildFlags: o.BuildFlags,
		Dir:        o.Dir,
		Logger:     logger,
		Outfile:    o.Outfile,
		Packages:   o.Packages,
	}
	if o.DryRun {
		g.Emit = dryRun(out, o.Dir)
	}
	return g
}
