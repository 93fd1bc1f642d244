package config

import "github.com/gyaneshwarpardhi/flatten/internal/tagrewrite"

// Output types.
const (
	OutputStdout = "stdout"
	OutputNATS   = "nats"
)

// Config is the top-level YAML structure.
type Config struct {
	Version string      `yaml:"version"`
	Flatten FlattenConf `yaml:"flatten"`
	Engine  EngineConf  `yaml:"engine"`
	Output  OutputConf  `yaml:"output"`
	Input   InputConf   `yaml:"input"`
}

// FlattenConf holds the transform options plus the tag rewrite rules.
type FlattenConf struct {
	Key               string  `yaml:"key" json:"key"`
	InnerKey          string  `yaml:"inner_key" json:"inner_key"`
	ParseJSON         *bool   `yaml:"parse_json" json:"parse_json"`
	ReplaceSpaceInTag *string `yaml:"replace_space_in_tag" json:"replace_space_in_tag,omitempty"`

	tagrewrite.Rules `yaml:",inline"`
}

// EngineConf holds tunable concurrency settings.
type EngineConf struct {
	Workers        int `yaml:"workers"`
	QueueDepth     int `yaml:"queue_depth"`
	BatchTimeoutMs int `yaml:"batch_timeout_ms"`
}

// OutputConf selects where flattened events go.
type OutputConf struct {
	Type          string `yaml:"type"` // stdout | nats
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// InputConf lists optional event sources besides the HTTP API.
type InputConf struct {
	NATS *NATSInputConf `yaml:"nats,omitempty"`
}

// NATSInputConf subscribes to subjects; the subject becomes the event tag.
type NATSInputConf struct {
	URL      string   `yaml:"url"`
	Subjects []string `yaml:"subjects"`
}
