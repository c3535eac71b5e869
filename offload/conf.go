package offload

import (
	"fmt"

	"github.com/goccy/go-yaml"
)

type Config struct {
	TargetInterfaces   []string `yaml:"targetInterfaces"`
	DiscoverInterfaces bool     `yaml:"discoverInterfaces"`

	// Where the loader pinned the translation programs.
	BpfFsPath      string `yaml:"bpfFsPath"`
	PinWaitSeconds int    `yaml:"pinWaitSeconds"`

	// ReplaceQdisc swaps out an existing root qdisc instead of tolerating
	// an already present clsact one.
	ReplaceQdisc bool `yaml:"replaceQdisc"`
	RemoveQdisc  bool `yaml:"removeQdisc"`

	StatsIntervalSeconds int `yaml:"statsIntervalSeconds"`

	// MetricsAddress enables the Prometheus exporter when non-empty.
	MetricsAddress string `yaml:"metricsAddress"`
}

var DefaultConfig = Config{
	TargetInterfaces:   []string{},
	DiscoverInterfaces: true,

	BpfFsPath:      "/sys/fs/bpf",
	PinWaitSeconds: 10,

	ReplaceQdisc: false,
	RemoveQdisc:  true,

	StatsIntervalSeconds: 30,

	MetricsAddress: "",
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := config(DefaultConfig)

	if err := yaml.Unmarshal(b, &def); err != nil {
		return err
	}

	if def.PinWaitSeconds < 0 {
		return fmt.Errorf("pinWaitSeconds can't be negative, got %d", def.PinWaitSeconds)
	}

	if def.StatsIntervalSeconds <= 0 {
		return fmt.Errorf("statsIntervalSeconds must be positive, got %d", def.StatsIntervalSeconds)
	}

	if !def.DiscoverInterfaces && len(def.TargetInterfaces) == 0 {
		return fmt.Errorf("interface discovery is off and no target interfaces were given")
	}

	*c = Config(def)

	return nil
}
