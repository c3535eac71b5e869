//go:build linux

package subcmd

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/florianl/go-tc"
	"github.com/florianl/go-tc/core"
	"github.com/mdlayher/netlink"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func init() {
	TcStatus.PersistentFlags().StringVar(&statusInterface, "target-interface", "lo", "interface to inspect")
}

var (
	statusInterface string

	// TcStatus inspects an interface's qdisc and clsact filters through
	// the go-tc wrapper rather than our own request shapes: handy to
	// cross-check what the kernel thinks we installed.
	TcStatus = &cobra.Command{
		Use:   "tc-status",
		Short: "Show the qdiscs and clsact filters on an interface.",
		Run: func(cmd *cobra.Command, args []string) {
			devID, err := net.InterfaceByName(statusInterface)
			if err != nil {
				slog.Error("could not get interface id", "interface", statusInterface, "err", err)
				return
			}

			tcnl, err := tc.Open(&tc.Config{})
			if err != nil {
				slog.Error("could not open rtnetlink socket", "err", err)
				return
			}
			defer tcnl.Close()

			// For enhanced error messages from the kernel, it is recommended
			// to set option `NETLINK_EXT_ACK`, which is supported since 4.12
			// kernel. If not supported, `unix.ENOPROTOOPT` is returned.
			if err := tcnl.SetOption(netlink.ExtendedAcknowledge, true); err != nil {
				slog.Warn("could not set option ExtendedAcknowledge", "err", err)
			}

			qdiscs, err := tcnl.Qdisc().Get()
			if err != nil {
				slog.Error("could not list qdiscs", "err", err)
				return
			}
			for _, q := range qdiscs {
				if q.Ifindex != uint32(devID.Index) {
					continue
				}
				fmt.Printf("qdisc %s handle %#x parent %#x\n", q.Kind, q.Handle, q.Parent)
			}

			for _, hook := range []struct {
				name string
				min  uint32
			}{{"ingress", tc.HandleMinIngress}, {"egress", tc.HandleMinEgress}} {
				filters, err := tcnl.Filter().Get(&tc.Msg{
					Family:  unix.AF_UNSPEC,
					Ifindex: uint32(devID.Index),
					Parent:  core.BuildHandle(tc.HandleRoot, hook.min),
				})
				if err != nil {
					slog.Error("could not list filters", "hook", hook.name, "err", err)
					continue
				}

				for _, f := range filters {
					name := ""
					if f.Attribute.BPF != nil && f.Attribute.BPF.Name != nil {
						name = *f.Attribute.BPF.Name
					}
					fmt.Printf("filter %s %s prio %d proto %#x %s\n",
						hook.name, f.Kind, f.Info>>16, f.Info&0xFFFF, name)
				}
			}
		},
	}
)
