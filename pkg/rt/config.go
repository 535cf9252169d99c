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

package rt

import (
	"github.com/joeshaw/envdecode"
	"github.com/pkg/errors"
)

// Values for Config.Violations.
const (
	// ViolationsPanic panics with a *contract.ViolationError.
	ViolationsPanic = "panic"
	// ViolationsError returns the *contract.ViolationError from methods
	// whose last result is an error, and panics otherwise.
	ViolationsError = "error"
)

// Config controls the behavior of a Registry.
type Config struct {
	// If false, Guard still validates contracts but returns instances
	// without wrapping them. ENV: NULLGUARD_ENABLED
	Enabled bool `env:"NULLGUARD_ENABLED,default=true"`
	// How violations are raised. ENV: NULLGUARD_VIOLATIONS
	Violations string `env:"NULLGUARD_VIOLATIONS,default=panic"`
}

// DefaultConfig returns the configuration used when the environment
// says nothing.
func DefaultConfig() Config {
	return Config{Enabled: true, Violations: ViolationsPanic}
}

// ConfigFromEnv decodes a Config from the environment.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := envdecode.Decode(&cfg); err != nil && err != envdecode.ErrNoTargetFieldsAreSet {
		return DefaultConfig(), errors.Wrap(err, "nullguard: could not decode environment")
	}
	return cfg, cfg.Validate()
}

// Validate checks the Config for unknown values.
func (c Config) Validate() error {
	switch c.Violations {
	case ViolationsPanic, ViolationsError:
		return nil
	default:
		return errors.Errorf("nullguard: unknown violation mode %q", c.Violations)
	}
}
