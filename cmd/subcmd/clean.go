//go:build linux

package subcmd

import (
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"

	tcnl "github.com/clatgo/clatd/netlink"
)

func init() {
	Detach.PersistentFlags().StringVar(&detachInterface, "target-interface", "lo", "interface to clean up")
	Detach.PersistentFlags().BoolVar(&detachRemoveQdisc, "remove-qdisc", true, "also delete the clsact qdisc")
}

var (
	detachInterface   string
	detachRemoveQdisc bool

	// Detach removes whatever a previous (possibly crashed) run left on
	// the interface. Missing filters and qdiscs are not an error.
	Detach = &cobra.Command{
		Use:   "detach",
		Short: "Remove the offload filters and optionally the clsact qdisc from an interface.",
		Run: func(cmd *cobra.Command, args []string) {
			devID, err := net.InterfaceByName(detachInterface)
			if err != nil {
				slog.Error("could not get interface id", "interface", detachInterface, "err", err)
				return
			}

			for _, hook := range []struct {
				name    string
				ingress bool
				proto   uint16
			}{
				{"ingress", true, unix.ETH_P_IPV6},
				{"egress", false, unix.ETH_P_IP},
			} {
				ret := tcnl.DeleteFilter(devID.Index, hook.ingress, 1, hook.proto)
				if ret < 0 && ret != -int(unix.ENOENT) {
					slog.Error("could not delete filter", "hook", hook.name, "err", tcnl.Error(ret))
					continue
				}
				slog.Debug("deleted filter", "hook", hook.name)
			}

			if !detachRemoveQdisc {
				return
			}
			if ret := tcnl.DeleteClsactQdisc(devID.Index); ret < 0 && ret != -int(unix.ENOENT) && ret != -int(unix.EINVAL) {
				slog.Error("could not delete clsact qdisc", "err", tcnl.Error(ret))
				return
			}
			slog.Debug("cleaned up interface", "interface", detachInterface)
		},
	}
)
