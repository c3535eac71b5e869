//go:build !linux

package offload

import "fmt"

// CLAT offload needs TC, eBPF and rtnetlink: none of those exist off
// Linux, so this stub only keeps the CLI compiling elsewhere.

type Offloader struct {
	Config
}

func NewOffloader(c *Config) (*Offloader, error) {
	if c == nil {
		def := DefaultConfig
		c = &def
	}
	return &Offloader{Config: *c}, nil
}

func (o *Offloader) String() string {
	return "offload stub"
}

func (o *Offloader) Init() error {
	return fmt.Errorf("CLAT offload is only supported on linux")
}

func (o *Offloader) Run(done <-chan struct{}) {
}

func (o *Offloader) Cleanup() error {
	return nil
}
