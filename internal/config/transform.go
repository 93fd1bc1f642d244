package config

import (
	"log/slog"

	"github.com/gyaneshwarpardhi/flatten/internal/flatten"
	"github.com/gyaneshwarpardhi/flatten/internal/tagrewrite"
)

// TransformConfig maps the file section onto flatten.Config.
// An unset parse_json means true.
func (f FlattenConf) TransformConfig() flatten.Config {
	cfg := flatten.DefaultConfig(f.Key)
	if f.InnerKey != "" {
		cfg.InnerKey = f.InnerKey
	}
	if f.ParseJSON != nil {
		cfg.ParseJSON = *f.ParseJSON
	}
	cfg.ReplaceSpaceInTag = f.ReplaceSpaceInTag
	return cfg
}

// Transform builds the flatten transform described by f. Errors are
// *flatten.ConfigError.
func (f FlattenConf) Transform(logger *slog.Logger) (*flatten.Transform, error) {
	return flatten.New(f.TransformConfig(), tagrewrite.New(f.Rules), flatten.WithLogger(logger))
}
