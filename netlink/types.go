//go:build linux

package netlink

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// tcMsg is the Golang counterpart of 'struct tcmsg' from
// include/uapi/linux/rtnetlink.h. Note that netlink messages use host
// byte ordering, except for the EtherType packed into the lower half of
// Info which the kernel expects in network order.
type tcMsg struct {
	Family  uint8
	Pad     [3]byte
	Ifindex int32
	Handle  uint32
	Parent  uint32
	Info    uint32
}

// The request shapes below are declared as plain structs so that their
// layout (and therefore every embedded length field) is fixed at compile
// time. All of their fields are naturally aligned, meaning the compiler
// inserts no padding and unsafe.Sizeof is exactly the wire size. Each
// attribute starts at a 4 byte boundary and string payloads are padded to
// NLMSG_ALIGN through the fixed array widths, the same way the designated
// initialisers in libbpf's netlink helpers lay these messages out.

// qdiscRequest creates, replaces or deletes the clsact qdisc on one
// interface:
//
//	tc qdisc add dev .. clsact
type qdiscRequest struct {
	Hdr  unix.NlMsghdr
	Msg  tcMsg
	Kind struct {
		Attr unix.RtAttr
		Str  [8]byte // NLMSG_ALIGN(len("clsact") + 1)
	}
}

// filterAddRequest attaches the bpf classifier, in direct action mode and
// referencing an already loaded program by fd, to one of the two clsact
// hooks:
//
//	tc filter add dev .. ingress prio 1 protocol ipv6 bpf object-pinned .. direct-action
type filterAddRequest struct {
	Hdr  unix.NlMsghdr
	Msg  tcMsg
	Kind struct {
		Attr unix.RtAttr
		Str  [4]byte // NLMSG_ALIGN(len("bpf") + 1)
	}
	Options struct {
		Attr unix.RtAttr
		FD   struct {
			Attr  unix.RtAttr
			Value uint32
		}
		Name struct {
			Attr unix.RtAttr
			Str  [progNameFieldLen]byte
		}
		Flags struct {
			Attr  unix.RtAttr
			Value uint32
		}
	}
}

// filterDelRequest carries no attributes at all: the kernel locates the
// filter to drop through the parent handle plus the priority and protocol
// packed into Info.
//
//	tc filter del dev .. ingress prio .. protocol ..
type filterDelRequest struct {
	Hdr unix.NlMsghdr
	Msg tcMsg
}

// progNameFieldLen is the width of the TCA_BPF_NAME payload: enough room
// for the longest of the four classifier names, its terminating NUL and
// the alignment padding. TestClassifierNamesFit keeps us honest here.
const progNameFieldLen = 48

const (
	sizeofQdiscRequest     = int(unsafe.Sizeof(qdiscRequest{}))     // 48
	sizeofFilterAddRequest = int(unsafe.Sizeof(filterAddRequest{})) // 116
	sizeofFilterDelRequest = int(unsafe.Sizeof(filterDelRequest{})) // 36
)

func (r *qdiscRequest) serialize() []byte {
	return (*(*[sizeofQdiscRequest]byte)(unsafe.Pointer(r)))[:]
}

func (r *filterAddRequest) serialize() []byte {
	return (*(*[sizeofFilterAddRequest]byte)(unsafe.Pointer(r)))[:]
}

func (r *filterDelRequest) serialize() []byte {
	return (*(*[sizeofFilterDelRequest]byte)(unsafe.Pointer(r)))[:]
}

// QdiscOp selects the message type and flag bits of a clsact request.
type QdiscOp int

const (
	// QdiscAdd fails with -EEXIST if the interface already has a clsact qdisc.
	QdiscAdd QdiscOp = iota
	// QdiscReplace swaps out whatever root qdisc is installed.
	QdiscReplace
	// QdiscDelete drops the qdisc along with every attached filter.
	QdiscDelete
)

func (op QdiscOp) String() string {
	switch op {
	case QdiscAdd:
		return "add"
	case QdiscReplace:
		return "replace"
	case QdiscDelete:
		return "delete"
	}
	return "unknown"
}

func (op QdiscOp) msgTypeFlags() (uint16, uint16) {
	switch op {
	case QdiscReplace:
		return unix.RTM_NEWQDISC, unix.NLM_F_CREATE | unix.NLM_F_REPLACE
	case QdiscDelete:
		return unix.RTM_DELQDISC, 0
	default:
		return unix.RTM_NEWQDISC, unix.NLM_F_EXCL | unix.NLM_F_CREATE
	}
}

const clsactKind = "clsact"

func newQdiscRequest(ifIndex int, op QdiscOp) *qdiscRequest {
	msgType, flags := op.msgTypeFlags()

	req := qdiscRequest{
		Hdr: unix.NlMsghdr{
			Len:   uint32(sizeofQdiscRequest),
			Type:  msgType,
			Flags: requestFlags | flags,
		},
		Msg: tcMsg{
			Family:  unix.AF_UNSPEC,
			Ifindex: int32(ifIndex),
			// Not a real qdisc handle: both fields name the clsact hook.
			Handle: tcMakeHandle(TC_H_CLSACT, 0),
			Parent: TC_H_CLSACT,
		},
	}

	// The attribute length excludes the padding bytes sitting between the
	// string's terminating NUL and the next aligned offset.
	req.Kind.Attr.Len = unix.SizeofRtAttr + uint16(len(clsactKind)) + 1
	req.Kind.Attr.Type = TCA_KIND
	copy(req.Kind.Str[:], clsactKind)

	return &req
}

const bpfKind = "bpf"

// The priority doesn't matter until we start attaching multiple filters
// to the same hook of the same interface, which we don't.
const filterPrio uint16 = 1

func newFilterAddRequest(ifIndex, progFd int, ethernet, ingress, ipv6 bool) *filterAddRequest {
	hookMin := TC_H_MIN_EGRESS
	if ingress {
		hookMin = TC_H_MIN_INGRESS
	}

	proto := uint16(unix.ETH_P_IP)
	if ipv6 {
		proto = unix.ETH_P_IPV6
	}

	req := filterAddRequest{
		Hdr: unix.NlMsghdr{
			Len:   uint32(sizeofFilterAddRequest),
			Type:  unix.RTM_NEWTFILTER,
			Flags: requestFlags | unix.NLM_F_EXCL | unix.NLM_F_CREATE,
		},
		Msg: tcMsg{
			Family:  unix.AF_UNSPEC,
			Ifindex: int32(ifIndex),
			Handle:  TC_H_UNSPEC,
			Parent:  tcMakeHandle(TC_H_CLSACT, hookMin),
			Info:    packTcmInfo(filterPrio, proto),
		},
	}

	req.Kind.Attr.Len = unix.SizeofRtAttr + uint16(len(bpfKind)) + 1
	req.Kind.Attr.Type = TCA_KIND
	copy(req.Kind.Str[:], bpfKind)

	opts := &req.Options
	opts.Attr.Len = uint16(unsafe.Sizeof(req.Options))
	opts.Attr.Type = TCA_OPTIONS

	opts.FD.Attr.Len = uint16(unsafe.Sizeof(opts.FD))
	opts.FD.Attr.Type = TCA_BPF_FD
	opts.FD.Value = uint32(progFd)

	// Fixed width copy: we never read past the source string and the last
	// byte of the field stays NUL no matter which name gets picked.
	opts.Name.Attr.Len = uint16(unsafe.Sizeof(opts.Name))
	opts.Name.Attr.Type = TCA_BPF_NAME
	copy(opts.Name.Str[:], classifierProgName(ethernet, ingress))
	opts.Name.Str[len(opts.Name.Str)-1] = 0

	opts.Flags.Attr.Len = uint16(unsafe.Sizeof(opts.Flags))
	opts.Flags.Attr.Type = TCA_BPF_FLAGS
	opts.Flags.Value = TCA_BPF_FLAG_ACT_DIRECT

	return &req
}

func newFilterDelRequest(ifIndex int, ingress bool, prio, proto uint16) *filterDelRequest {
	hookMin := TC_H_MIN_EGRESS
	if ingress {
		hookMin = TC_H_MIN_INGRESS
	}

	return &filterDelRequest{
		Hdr: unix.NlMsghdr{
			Len:   uint32(sizeofFilterDelRequest),
			Type:  unix.RTM_DELTFILTER,
			Flags: requestFlags,
		},
		Msg: tcMsg{
			Family:  unix.AF_UNSPEC,
			Ifindex: int32(ifIndex),
			Handle:  TC_H_UNSPEC,
			Parent:  tcMakeHandle(TC_H_CLSACT, hookMin),
			Info:    packTcmInfo(prio, proto),
		},
	}
}

// packTcmInfo encodes a filter's priority and EtherType the way
// tcm_info expects them: priority in the upper half, the protocol
// selector in network byte order in the lower one.
func packTcmInfo(prio, proto uint16) uint32 {
	return uint32(prio)<<16 | uint32(Htons(proto))
}
