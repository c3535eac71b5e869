//go:build linux

package netlink

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"
)

// nlConn is the thin seam between the protocol logic and the raw socket,
// mostly so the ACK handling can be exercised against a scripted kernel
// in the tests.
type nlConn interface {
	Send(b []byte) (int, error)
	Receive(b []byte) (int, error)
	Close() error
}

// kernelSocket is a NETLINK_ROUTE socket bound and connected to the
// kernel. Connecting means the socket only ever delivers messages coming
// from the kernel itself, so no other netlink client's traffic can get
// mixed into our one-request-one-reply exchange.
type kernelSocket struct {
	fd int
}

func openKernelSocket() (*kernelSocket, int) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.NETLINK_ROUTE)
	if err != nil {
		slog.Error("could not open a NETLINK_ROUTE socket", "err", err)
		return nil, -errnoOf(err)
	}

	// Best effort: with NETLINK_CAP_ACK the kernel won't copy our request
	// back into the ACK, keeping replies small. Older kernels simply don't
	// support it.
	if err := unix.SetsockoptInt(fd, unix.SOL_NETLINK, unix.NETLINK_CAP_ACK, 1); err != nil {
		slog.Warn("could not enable NETLINK_CAP_ACK", "err", err)
	}

	// Binding allocates our local netlink port id; it also makes strace's
	// netlink parsing a lot saner.
	kernelAddr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	if err := unix.Bind(fd, kernelAddr); err != nil {
		slog.Error("could not bind the netlink socket", "err", err)
		unix.Close(fd)
		return nil, -errnoOf(err)
	}

	if err := unix.Connect(fd, kernelAddr); err != nil {
		slog.Error("could not connect the netlink socket to the kernel", "err", err)
		unix.Close(fd)
		return nil, -errnoOf(err)
	}

	return &kernelSocket{fd: fd}, 0
}

func (s *kernelSocket) Send(b []byte) (int, error) {
	return unix.Write(s.fd, b)
}

func (s *kernelSocket) Receive(b []byte) (int, error) {
	// MSG_TRUNC makes recvfrom report the reply's real length even when it
	// doesn't fit in b, letting processAck spot truncated replies.
	n, _, err := unix.Recvfrom(s.fd, b, unix.MSG_TRUNC)
	return n, err
}

func (s *kernelSocket) Close() error {
	return unix.Close(s.fd)
}

// errnoOf digs the errno out of a syscall error so it can be negated into
// our return convention.
func errnoOf(err error) int {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(unix.EIO)
}

// exchange performs the one-shot request/ACK protocol over an already
// established connection.
func exchange(conn nlConn, req []byte) int {
	n, err := conn.Send(req)
	if err != nil {
		slog.Error("could not send the netlink request", "err", err)
		return -errnoOf(err)
	}
	if n != len(req) {
		// No errno to report here, but a partial datagram is as good as lost.
		slog.Error("short write sending the netlink request", "sent", n, "len", len(req))
		return -int(unix.EMSGSIZE)
	}

	resp := make([]byte, ackBufLen)
	n, err = conn.Receive(resp)
	if err != nil {
		slog.Error("could not receive the netlink reply", "err", err)
		return -errnoOf(err)
	}

	return processAck(resp, n)
}

// sendAndProcessNetlinkResponse opens a fresh kernel-bound socket, sends
// the prebuilt request and synchronously validates the single ACK. The
// socket is closed on every path: nothing persists across calls.
func sendAndProcessNetlinkResponse(req []byte) int {
	conn, ret := openKernelSocket()
	if ret != 0 {
		return ret
	}
	defer conn.Close()

	return exchange(conn, req)
}

// DoClsactQdisc creates, replaces or deletes the clsact qdisc on the
// given interface. It returns 0 on success or a negated errno.
func DoClsactQdisc(ifIndex int, op QdiscOp) int {
	return sendAndProcessNetlinkResponse(newQdiscRequest(ifIndex, op).serialize())
}

// AddClsactQdisc installs a clsact qdisc, failing with -EEXIST if the
// interface already has one.
func AddClsactQdisc(ifIndex int) int {
	return DoClsactQdisc(ifIndex, QdiscAdd)
}

// ReplaceClsactQdisc installs a clsact qdisc, replacing whatever qdisc
// currently sits on the interface.
func ReplaceClsactQdisc(ifIndex int) int {
	return DoClsactQdisc(ifIndex, QdiscReplace)
}

// DeleteClsactQdisc removes the clsact qdisc and, with it, every filter
// attached to its hooks.
func DeleteClsactQdisc(ifIndex int) int {
	return DoClsactQdisc(ifIndex, QdiscDelete)
}

// AddBpfFilter attaches the translation program referenced by progFd to
// the interface's ingress or egress clsact hook, in direct action mode,
// at priority 1 and matching either IPv4 or IPv6 traffic.
func AddBpfFilter(ifIndex, progFd int, ethernet, ingress, ipv6 bool) int {
	return sendAndProcessNetlinkResponse(newFilterAddRequest(ifIndex, progFd, ethernet, ingress, ipv6).serialize())
}

// DeleteFilter removes the filter identified purely by hook direction,
// priority and EtherType. Whether such a filter actually exists is the
// kernel's call: a mismatch comes back as its error, not ours.
func DeleteFilter(ifIndex int, ingress bool, prio, proto uint16) int {
	return sendAndProcessNetlinkResponse(newFilterDelRequest(ifIndex, ingress, prio, proto).serialize())
}

// Error translates one of this package's integer results into a Go error
// carrying the corresponding errno, for callers that would rather wrap
// than branch on codes. A ret of 0 yields nil.
func Error(ret int) error {
	if ret == 0 {
		return nil
	}
	if ret > 0 {
		// Shouldn't happen, but don't mint a bogus errno out of it.
		return fmt.Errorf("unexpected positive netlink result %d", ret)
	}
	return fmt.Errorf("netlink request failed: %w", unix.Errno(-ret))
}
