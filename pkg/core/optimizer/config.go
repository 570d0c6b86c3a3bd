// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package optimizer

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TENSORTRACE_OPTIMIZER is the environment variable with the default optimizer configuration.
// See ParseConfig for its format.
const TENSORTRACE_OPTIMIZER = "TENSORTRACE_OPTIMIZER"

const (
	// DefaultMaxFusedOps is the default limit of elementwise operations merged in one fused node.
	DefaultMaxFusedOps = 16

	// DefaultMaxFoldedSize is the default limit of elements of a constant created by constant folding.
	DefaultMaxFoldedSize = 1 << 16
)

// Options select and configure the optimizer passes.
type Options struct {
	ConstantFolding     bool `yaml:"constant_folding"`
	CSE                 bool `yaml:"cse"`
	DeadCodeElimination bool `yaml:"dead_code_elimination"`
	Fusion              bool `yaml:"fusion"`

	// MaxFusedOps limits the number of operations in a fused node. It must be >= 2.
	MaxFusedOps int `yaml:"max_fused_ops"`

	// MaxFoldedSize limits the number of elements of folded constants. Larger results are left to be computed at run time.
	MaxFoldedSize int `yaml:"max_folded_size"`
}

// DefaultOptions enable all passes.
func DefaultOptions() Options {
	return Options{
		ConstantFolding:     true,
		CSE:                 true,
		DeadCodeElimination: true,
		Fusion:              true,
		MaxFusedOps:         DefaultMaxFusedOps,
		MaxFoldedSize:       DefaultMaxFoldedSize,
	}
}

// NoOptimizations disables all passes.
func NoOptimizations() Options {
	opts := DefaultOptions()
	opts.ConstantFolding, opts.CSE, opts.DeadCodeElimination, opts.Fusion = false, false, false, false
	return opts
}

// Validate the limits of the options.
func (o Options) Validate() error {
	if o.MaxFusedOps < 2 {
		return errors.Errorf("optimizer MaxFusedOps must be >= 2, got %d", o.MaxFusedOps)
	}
	if o.MaxFoldedSize < 0 {
		return errors.Errorf("optimizer MaxFoldedSize must be >= 0, got %d", o.MaxFoldedSize)
	}
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler: fields missing in the YAML document keep their default values.
func (o *Options) UnmarshalYAML(value *yaml.Node) error {
	type plain Options
	p := plain(DefaultOptions())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*o = Options(p)
	return o.Validate()
}

// LoadOptions reads Options from a YAML file. Example:
//
//	fusion: false
//	max_folded_size: 1024
func LoadOptions(filePath string) (Options, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return Options{}, errors.Wrapf(err, "reading optimizer options from %q", filePath)
	}
	opts := DefaultOptions()
	if err = yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.Wrapf(err, "parsing optimizer options from %q", filePath)
	}
	return opts, nil
}

// ParseConfig parses a comma-separated configuration string, applied over DefaultOptions.
//
// Each element can be the name of a pass ("folding", "cse", "dce", "fusion") to enable it,
// the name prefixed by "no" to disable it, "none" to disable all passes,
// or "maxfused=<n>" and "maxfolded=<n>" to set the limits. Example: "nofusion,maxfolded=1024".
func ParseConfig(config string) (Options, error) {
	opts := DefaultOptions()
	for _, part := range strings.Split(config, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		if key, value, found := strings.Cut(part, "="); found {
			n, err := strconv.Atoi(value)
			if err != nil {
				return Options{}, errors.Wrapf(err, "optimizer config %q: invalid value for %q", config, key)
			}
			switch key {
			case "maxfused":
				opts.MaxFusedOps = n
			case "maxfolded":
				opts.MaxFoldedSize = n
			default:
				return Options{}, errors.Errorf("optimizer config %q: unknown key %q", config, key)
			}
			continue
		}
		if part == "none" {
			opts.ConstantFolding, opts.CSE, opts.DeadCodeElimination, opts.Fusion = false, false, false, false
			continue
		}
		enable := true
		name := part
		if strings.HasPrefix(part, "no") {
			enable = false
			name = part[2:]
		}
		switch name {
		case "folding":
			opts.ConstantFolding = enable
		case "cse":
			opts.CSE = enable
		case "dce":
			opts.DeadCodeElimination = enable
		case "fusion":
			opts.Fusion = enable
		default:
			return Options{}, errors.Errorf("optimizer config %q: unknown pass %q", config, part)
		}
	}
	if err := opts.Validate(); err != nil {
		return Options{}, errors.WithMessagef(err, "optimizer config %q", config)
	}
	return opts, nil
}

// FromEnv returns the options configured by the TENSORTRACE_OPTIMIZER environment variable,
// or DefaultOptions if it is not set.
//
// The variable holds either a configuration string (see ParseConfig) or the path of a YAML file
// (see LoadOptions), if it ends with ".yaml" or ".yml".
func FromEnv() (Options, error) {
	config, found := os.LookupEnv(TENSORTRACE_OPTIMIZER)
	if !found {
		return DefaultOptions(), nil
	}
	if strings.HasSuffix(config, ".yaml") || strings.HasSuffix(config, ".yml") {
		return LoadOptions(config)
	}
	return ParseConfig(config)
}
