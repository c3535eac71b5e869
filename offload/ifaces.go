//go:build linux

package offload

import (
	"errors"
	"fmt"
	"log/slog"
	"net"

	vnl "github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

func negErrno(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(unix.EIO)
}

// HardwareAddressType returns the interface's ARPHRD_* link type as
// reported by the SIOCGIFHWADDR ioctl, or a negated errno. This is what
// tells apart interfaces with an ethernet header from raw IP ones, which
// need different translation programs.
//
// The kernel happily takes unterminated 16 byte junk for the name, so
// over-long names get trimmed to IFNAMSIZ-1 bytes rather than rejected;
// whether a truncated name matches anything is the kernel's business.
func HardwareAddressType(iface string) int {
	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		slog.Error("could not open an AF_INET6 datagram socket", "err", err)
		return -negErrno(err)
	}
	defer unix.Close(fd)

	if len(iface) >= unix.IFNAMSIZ {
		iface = iface[:unix.IFNAMSIZ-1]
	}

	ifr, err := unix.NewIfreq(iface)
	if err != nil {
		return -negErrno(err)
	}

	if err := unix.IoctlIfreq(fd, unix.SIOCGIFHWADDR, ifr); err != nil {
		return -negErrno(err)
	}

	// The first two bytes of the returned sockaddr are its family, i.e.
	// the ARPHRD_* type.
	return int(ifr.Uint16())
}

// isEthernet maps an ARPHRD_* type onto the framing selector the filter
// requests understand. Tun-style devices report ARPHRD_NONE and carry no
// L2 header at all, which is exactly what the rawip programs expect.
func isEthernet(hwType int) (bool, error) {
	switch hwType {
	case unix.ARPHRD_ETHER:
		return true, nil
	case unix.ARPHRD_RAWIP, unix.ARPHRD_NONE:
		return false, nil
	}
	return false, fmt.Errorf("unsupported hardware address type %d", hwType)
}

// linkIndex resolves an interface name into its index through rtnetlink.
func linkIndex(iface string) (int, error) {
	link, err := vnl.LinkByName(iface)
	if err != nil {
		return 0, fmt.Errorf("couldn't look up interface %q: %w", iface, err)
	}
	return link.Attrs().Index, nil
}

// discoverInterfaces picks the interfaces worth offloading: up, not
// loopback and of a link type our programs can deal with.
func discoverInterfaces() ([]string, error) {
	links, err := vnl.LinkList()
	if err != nil {
		return nil, fmt.Errorf("error listing the system's links: %w", err)
	}

	targetInterfaces := []string{}
	for _, link := range links {
		attrs := link.Attrs()

		if attrs.Flags&net.FlagLoopback != 0 || attrs.Flags&net.FlagUp == 0 {
			continue
		}

		hwType := HardwareAddressType(attrs.Name)
		if hwType < 0 {
			slog.Warn("couldn't get the hardware address type", "interface", attrs.Name, "err", unix.Errno(-hwType))
			continue
		}

		if _, err := isEthernet(hwType); err != nil {
			slog.Debug("skipping interface", "interface", attrs.Name, "hwType", hwType)
			continue
		}

		targetInterfaces = append(targetInterfaces, attrs.Name)
	}

	slog.Debug("discovered target interfaces", "targetInterfaces", targetInterfaces)

	return targetInterfaces, nil
}
