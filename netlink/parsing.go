//go:build linux

package netlink

import (
	"log/slog"

	"golang.org/x/sys/unix"
)

// The kernel's ACK is an NLMSG_ERROR message: a netlink header followed by
// 'struct nlmsgerr', i.e. a 32 bit signed error code and a copy of the
// offending request's header. With NETLINK_CAP_ACK disabled (or on some
// rejections) the kernel may tack diagnostic text onto the end, so we leave
// room for a bit of trailer and ask recvfrom to tell us about truncation.
const (
	// NLMSG_SPACE(sizeof(struct nlmsgerr))
	minAckLen = unix.NLMSG_HDRLEN + unix.SizeofNlMsgerr

	ackTrailerLen = 256
	ackBufLen     = minAckLen + ackTrailerLen
)

// processAck validates a single kernel reply and extracts its embedded
// error code. n is the number of bytes the kernel actually sent, which
// with MSG_TRUNC may exceed len(resp).
//
// Anything other than a well formed NLMSG_ERROR message of exactly n bytes
// is a protocol violation: either we built a request the kernel can't
// parse, or we're talking to a kernel we don't understand. Those cases are
// reported as -EBADMSG (or -EMSGSIZE for sizing trouble) so callers can
// tell them apart from an honest kernel rejection.
func processAck(resp []byte, n int) int {
	if n < minAckLen {
		slog.Error("netlink reply is too short", "got", n, "want", minAckLen)
		return -int(unix.EMSGSIZE)
	}

	if n > len(resp) {
		// The reply didn't fit in our buffer: its tail is gone, so don't
		// pretend we validated it.
		slog.Error("netlink reply was truncated", "got", n, "capacity", len(resp))
		return -int(unix.EMSGSIZE)
	}

	declaredLen := hostEndian.Uint32(resp[0:4])
	if declaredLen != uint32(n) {
		slog.Error("netlink reply declares a bogus length", "declared", declaredLen, "received", n)
		return -int(unix.EBADMSG)
	}

	msgType := hostEndian.Uint16(resp[4:6])
	if msgType != unix.NLMSG_ERROR {
		slog.Error("netlink reply is not an ACK", "type", msgType)
		return -int(unix.EBADMSG)
	}

	// 0 on success, a negated errno otherwise. Hand it over verbatim.
	return int(int32(hostEndian.Uint32(resp[unix.NLMSG_HDRLEN : unix.NLMSG_HDRLEN+4])))
}
