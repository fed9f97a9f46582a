// Copyright 2026 The gVisor Authors.
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

// Package config provides basic infrastructure to set configuration settings
// for rvtrap. Each setting is a command line flag and may also come from a
// TOML configuration file.
package config

import (
	"fmt"

	"rvtrap.dev/rvtrap/pkg/log"
	"rvtrap.dev/rvtrap/pkg/ring0"
	"rvtrap.dev/rvtrap/pkg/scenario"
)

// Config holds configuration that is not part of a scenario.
type Config struct {
	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug"`

	// DebugLog is the path to log debug information to, if not empty.
	DebugLog string `flag:"debug-log"`

	// DebugLogFormat is the log format for debug: text or json.
	DebugLogFormat string `flag:"debug-log-format"`

	// AlsoLogToStderr allows to send log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr"`

	// BreakpointPolicy is the default breakpoint resume behavior.
	BreakpointPolicy ring0.BreakpointPolicy `flag:"breakpoint-policy"`

	// TimerInterval is the default supervisor timer period.
	TimerInterval uint64 `flag:"timer-interval"`

	// Harts is the default number of harts.
	Harts int `flag:"harts"`

	// Entry is the address the trap entry stub is placed at.
	Entry uint64 `flag:"entry"`

	// ConfigFile is the TOML file flags were read from, if any.
	ConfigFile string `flag:"config"`
}

func (c *Config) validate() error {
	switch c.DebugLogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid debug-log-format %q, must be 'text' or 'json'", c.DebugLogFormat)
	}
	if c.Harts < 1 || c.Harts > scenario.MaxHarts {
		return fmt.Errorf("harts must be between 1 and %d, got %d", scenario.MaxHarts, c.Harts)
	}
	if c.TimerInterval == 0 {
		return fmt.Errorf("timer-interval must be positive")
	}
	if c.Entry%4 != 0 {
		return fmt.Errorf("entry %#x is not 4 byte aligned", c.Entry)
	}
	return nil
}

// ScenarioDefaults returns the machine settings for scenarios that leave
// them unset.
func (c *Config) ScenarioDefaults() scenario.Defaults {
	return scenario.Defaults{
		Harts:            c.Harts,
		BreakpointPolicy: c.BreakpointPolicy,
		TimerInterval:    c.TimerInterval,
		Entry:            c.Entry,
	}
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	forEachFlagField(c, func(name, value string) {
		log.Infof("\t%s: %s", name, value)
	})
}
