package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every error Validate returns.
var ErrInvalid = errors.New("config validation errors")

// Validate checks the config for:
//   - a buildable flatten transform (source key, at least one tag rewrite rule)
//   - sane engine limits
//   - a known output type with its connection settings
//   - NATS input subjects
//
// All problems are reported together.
func Validate(cfg *Config) error {
	if cfg.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalid)
	}
	var errs []string

	if _, err := cfg.Flatten.Transform(nil); err != nil {
		errs = append(errs, err.Error())
	}

	if cfg.Engine.Workers < 0 {
		errs = append(errs, fmt.Sprintf("engine.workers must not be negative, got %d", cfg.Engine.Workers))
	}
	if cfg.Engine.QueueDepth < 0 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must not be negative, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.Workers > 0 && cfg.Engine.QueueDepth > 0 && cfg.Engine.QueueDepth < cfg.Engine.Workers {
		errs = append(errs, fmt.Sprintf("engine.queue_depth (%d) must be at least engine.workers (%d)",
			cfg.Engine.QueueDepth, cfg.Engine.Workers))
	}
	if cfg.Engine.BatchTimeoutMs < 0 {
		errs = append(errs, fmt.Sprintf("engine.batch_timeout_ms must not be negative, got %d", cfg.Engine.BatchTimeoutMs))
	}

	switch cfg.Output.Type {
	case OutputStdout, "":
	case OutputNATS:
		if cfg.Output.NATSURL == "" {
			errs = append(errs, "output.nats_url is required when output.type is nats")
		}
	default:
		errs = append(errs, fmt.Sprintf("output.type %q is not one of stdout/nats", cfg.Output.Type))
	}

	if in := cfg.Input.NATS; in != nil {
		if in.URL == "" {
			errs = append(errs, "input.nats.url is required")
		}
		if len(in.Subjects) == 0 {
			errs = append(errs, "input.nats.subjects must not be empty")
		}
		for i, subj := range in.Subjects {
			if strings.TrimSpace(subj) == "" {
				errs = append(errs, fmt.Sprintf("input.nats.subjects[%d] is empty", i))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalid, strings.Join(errs, "\n  - "))
	}
	return nil
}
