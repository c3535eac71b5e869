package offload

import (
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/google/go-cmp/cmp"
)

func TestConfigDefaults(t *testing.T) {
	conf := Config{}
	if err := yaml.Unmarshal([]byte("discoverInterfaces: true"), &conf); err != nil {
		t.Fatalf("error unmarshalling: %v", err)
	}

	want := DefaultConfig
	want.DiscoverInterfaces = true

	if diff := cmp.Diff(want, conf); diff != "" {
		t.Errorf("defaults not applied (-want +got):\n%s", diff)
	}
}

func TestConfigOverrides(t *testing.T) {
	raw := `
targetInterfaces:
  - eth0
  - v4-wlan0
discoverInterfaces: false
bpfFsPath: /run/bpf
replaceQdisc: true
metricsAddress: localhost:9101
`
	conf := Config{}
	if err := yaml.Unmarshal([]byte(raw), &conf); err != nil {
		t.Fatalf("error unmarshalling: %v", err)
	}

	want := DefaultConfig
	want.TargetInterfaces = []string{"eth0", "v4-wlan0"}
	want.DiscoverInterfaces = false
	want.BpfFsPath = "/run/bpf"
	want.ReplaceQdisc = true
	want.MetricsAddress = "localhost:9101"

	if diff := cmp.Diff(want, conf); diff != "" {
		t.Errorf("overrides not applied (-want +got):\n%s", diff)
	}
}

func TestConfigRejectsNothingToDo(t *testing.T) {
	conf := Config{}
	if err := yaml.Unmarshal([]byte("discoverInterfaces: false"), &conf); err == nil {
		t.Error("expected an error with discovery off and no interfaces")
	}
}
