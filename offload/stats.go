//go:build linux

package offload

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// observeOp feeds a netlink integer result into the ops counter under a
// stable, low-cardinality label.
func (m *metrics) observeOp(op string, ret int) {
	m.NetlinkOps.WithLabelValues(op, resultLabel(ret)).Inc()
}

func resultLabel(ret int) string {
	if ret == 0 {
		return "ok"
	}
	if name := unix.ErrnoName(unix.Errno(-ret)); name != "" {
		return name
	}
	return "unknown"
}

// logTraffic refreshes the per-interface byte counters and logs the
// deltas since the previous tick, the poor man's sanity check that the
// translation programs are actually seeing traffic.
func (o *Offloader) logTraffic() {
	dev, err := o.pFS.NetDev()
	if err != nil {
		slog.Warn("couldn't read /proc/net/dev", "err", err)
		return
	}

	for _, att := range o.attachments {
		line, ok := dev[att.name]
		if !ok {
			slog.Warn("offloaded interface is gone from /proc/net/dev", "interface", att.name)
			continue
		}

		o.m.RxBytes.WithLabelValues(att.name).Set(float64(line.RxBytes))
		o.m.TxBytes.WithLabelValues(att.name).Set(float64(line.TxBytes))

		if prev, ok := o.lastTraffic[att.name]; ok {
			slog.Debug("interface traffic", "interface", att.name,
				"rxBytes", line.RxBytes-prev.RxBytes, "txBytes", line.TxBytes-prev.TxBytes)
		}
		o.lastTraffic[att.name] = line
	}
}
