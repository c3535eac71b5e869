//go:build linux

// Package offload drives the CLAT offload lifecycle: it figures out which
// interfaces to manage and what framing they use, picks up the pinned
// translation programs from the BPF filesystem and wires them to the
// interfaces' clsact hooks through the netlink package. Ingress filters
// translate inbound IPv6, egress filters the IPv4 the stack answers with.
package offload

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/cilium/ebpf"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"

	tcnl "github.com/clatgo/clatd/netlink"
)

// attachment tracks one interface we've set up, with the still-open
// program fds the kernel's filters reference.
type attachment struct {
	name     string
	index    int
	ethernet bool

	ingress *ebpf.Program
	egress  *ebpf.Program
}

type Offloader struct {
	Config

	pFS    procfs.FS
	m      *metrics
	server *http.Server

	attachments []*attachment
	lastTraffic map[string]procfs.NetDevLine
}

func NewOffloader(c *Config) (*Offloader, error) {
	if c == nil {
		def := DefaultConfig
		c = &def
	}
	return &Offloader{Config: *c, lastTraffic: map[string]procfs.NetDevLine{}}, nil
}

func (o *Offloader) String() string {
	return "offload"
}

func (o *Offloader) Init() error {
	slog.Debug("initialising the offloader")

	fs, err := procfs.NewFS("/proc")
	if err != nil {
		return fmt.Errorf("couldn't initialise the procfs filesystem: %w", err)
	}
	o.pFS = fs

	o.m = newMetrics()
	if o.MetricsAddress != "" {
		reg := prometheus.NewRegistry()
		if err := o.m.register(reg); err != nil {
			return fmt.Errorf("error registering the metrics: %w", err)
		}
		o.server = newMetricsServer(o.MetricsAddress, reg)
	}

	ifaces := o.TargetInterfaces
	if o.DiscoverInterfaces {
		if len(ifaces) != 0 {
			slog.Warn("specified target interfaces will be overridden", "originalTargetInterfaces", ifaces)
		}

		ifaces, err = discoverInterfaces()
		if err != nil {
			return fmt.Errorf("couldn't discover target interfaces: %w", err)
		}
	}

	for _, iface := range ifaces {
		att, err := o.setup(iface)
		if err != nil {
			o.Cleanup()
			return fmt.Errorf("error setting up interface %q: %w", iface, err)
		}
		o.attachments = append(o.attachments, att)
	}

	if len(o.attachments) == 0 {
		return fmt.Errorf("no interfaces left to offload")
	}

	return nil
}

// setup readies one interface end to end: framing detection, pinned
// program lookup, clsact qdisc and both filters.
func (o *Offloader) setup(iface string) (*attachment, error) {
	index, err := linkIndex(iface)
	if err != nil {
		return nil, err
	}

	hwType := HardwareAddressType(iface)
	if hwType < 0 {
		return nil, fmt.Errorf("couldn't get the hardware address type: %w", unix.Errno(-hwType))
	}

	ethernet, err := isEthernet(hwType)
	if err != nil {
		return nil, err
	}

	wait := time.Duration(o.PinWaitSeconds) * time.Second
	att := attachment{name: iface, index: index, ethernet: ethernet}

	att.ingress, err = openPinnedProgram(filepath.Join(o.BpfFsPath, tcnl.PinnedProgName(ethernet, true)), wait)
	if err != nil {
		return nil, err
	}

	att.egress, err = openPinnedProgram(filepath.Join(o.BpfFsPath, tcnl.PinnedProgName(ethernet, false)), wait)
	if err != nil {
		att.close()
		return nil, err
	}

	if err := o.setupQdisc(&att); err != nil {
		att.close()
		return nil, err
	}

	if err := o.attachFilters(&att); err != nil {
		att.close()
		return nil, err
	}

	slog.Info("offload enabled", "interface", iface, "index", index, "ethernet", ethernet)

	return &att, nil
}

func (o *Offloader) setupQdisc(att *attachment) error {
	op := tcnl.QdiscAdd
	if o.ReplaceQdisc {
		op = tcnl.QdiscReplace
	}

	ret := tcnl.DoClsactQdisc(att.index, op)
	o.m.observeOp("qdisc-"+op.String(), ret)

	// Somebody (maybe a previous run of ours) already installed clsact:
	// the hooks we need are there, so carry on.
	if ret == -int(unix.EEXIST) && !o.ReplaceQdisc {
		slog.Debug("clsact qdisc already present", "interface", att.name)
		return nil
	}

	if ret != 0 {
		return fmt.Errorf("couldn't create the clsact qdisc on %q: %w", att.name, tcnl.Error(ret))
	}

	return nil
}

func (o *Offloader) attachFilters(att *attachment) error {
	ret := tcnl.AddBpfFilter(att.index, att.ingress.FD(), att.ethernet, true, true)
	o.m.observeOp("filter-add-ingress", ret)
	if ret != 0 {
		return fmt.Errorf("couldn't attach the ingress filter on %q: %w", att.name, tcnl.Error(ret))
	}
	o.m.AttachedFilters.WithLabelValues(att.name, "ingress").Set(1)

	ret = tcnl.AddBpfFilter(att.index, att.egress.FD(), att.ethernet, false, false)
	o.m.observeOp("filter-add-egress", ret)
	if ret != 0 {
		return fmt.Errorf("couldn't attach the egress filter on %q: %w", att.name, tcnl.Error(ret))
	}
	o.m.AttachedFilters.WithLabelValues(att.name, "egress").Set(1)

	return nil
}

func (o *Offloader) Run(done <-chan struct{}) {
	slog.Debug("running the offloader")

	if o.server != nil {
		go func() {
			slog.Info("serving metrics", "addr", o.server.Addr)
			if err := o.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "err", err)
			}
		}()
	}

	ticker := time.NewTicker(time.Duration(o.StatsIntervalSeconds) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.logTraffic()
		case <-done:
			slog.Debug("cleanly exiting the offloader")
			return
		}
	}
}

func (o *Offloader) Cleanup() error {
	slog.Debug("cleaning up the offloader")

	for _, att := range o.attachments {
		o.detach(att)
		att.close()
	}
	o.attachments = nil

	if o.server != nil {
		if err := o.server.Close(); err != nil {
			slog.Warn("error closing the metrics server", "err", err)
		}
	}

	return nil
}

// detach undoes attachFilters and, if configured, setupQdisc. A filter
// that's already gone (say the interface bounced) is nothing to cry about.
func (o *Offloader) detach(att *attachment) {
	ret := tcnl.DeleteFilter(att.index, true, 1, unix.ETH_P_IPV6)
	o.m.observeOp("filter-del-ingress", ret)
	if ret != 0 && ret != -int(unix.ENOENT) {
		slog.Warn("error removing the ingress filter", "interface", att.name, "err", tcnl.Error(ret))
	}
	o.m.AttachedFilters.WithLabelValues(att.name, "ingress").Set(0)

	ret = tcnl.DeleteFilter(att.index, false, 1, unix.ETH_P_IP)
	o.m.observeOp("filter-del-egress", ret)
	if ret != 0 && ret != -int(unix.ENOENT) {
		slog.Warn("error removing the egress filter", "interface", att.name, "err", tcnl.Error(ret))
	}
	o.m.AttachedFilters.WithLabelValues(att.name, "egress").Set(0)

	if o.RemoveQdisc {
		ret = tcnl.DeleteClsactQdisc(att.index)
		o.m.observeOp("qdisc-delete", ret)
		if ret != 0 && ret != -int(unix.ENOENT) {
			slog.Warn("error removing the clsact qdisc", "interface", att.name, "err", tcnl.Error(ret))
		}
	}
}

func (a *attachment) close() {
	if a.ingress != nil {
		a.ingress.Close()
	}
	if a.egress != nil {
		a.egress.Close()
	}
}
