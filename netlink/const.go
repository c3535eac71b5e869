//go:build linux

package netlink

import "golang.org/x/sys/unix"

// Handle constants from include/uapi/linux/pkt_sched.h. The clsact qdisc
// shares TC_H_INGRESS's major number and qualifies the hook through the
// minor one. These aren't surfaced by golang.org/x/sys/unix, so we carry
// them ourselves just like we do with the pkt_cls.h ones below.
const (
	TC_H_UNSPEC   uint32 = 0x00000000
	TC_H_CLSACT   uint32 = 0xFFFFFFF1 // aka TC_H_INGRESS
	TC_H_MAJ_MASK uint32 = 0xFFFF0000
	TC_H_MIN_MASK uint32 = 0x0000FFFF

	TC_H_MIN_INGRESS uint32 = 0xFFF2
	TC_H_MIN_EGRESS  uint32 = 0xFFF3
)

// Attribute type codes from the TCA_* enum in include/uapi/linux/rtnetlink.h
// and the TCA_BPF_* enum in include/uapi/linux/pkt_cls.h.
const (
	TCA_KIND    uint16 = 1
	TCA_OPTIONS uint16 = 2

	TCA_BPF_FD    uint16 = 6
	TCA_BPF_NAME  uint16 = 7
	TCA_BPF_FLAGS uint16 = 8

	// Constant TCA_BPF_FLAG_ACT_DIRECT enables direct action mode
	// for eBPF classifiers. See tc-bpf(8) for information on the
	// direct-action mode.
	TCA_BPF_FLAG_ACT_DIRECT uint32 = 1 << 0
)

// tcMakeHandle mimics the TC_H_MAKE macro from include/uapi/linux/pkt_sched.h.
func tcMakeHandle(maj, min uint32) uint32 {
	return maj&TC_H_MAJ_MASK | min&TC_H_MIN_MASK
}

// Every request we issue asks for an explicit ACK so that the exchange is
// strictly one message out, one message back.
const requestFlags uint16 = unix.NLM_F_REQUEST | unix.NLM_F_ACK

// Names of the pinned translation programs, as loaded by the eBPF loader.
// The ':[*fsobj]' suffix replicates what the tc CLI appends when attaching
// a program by pinned object, so 'tc filter show' output stays familiar.
const (
	ingressProgRawIPName = "prog_clatd_schedcls_ingress_clat_rawip"
	ingressProgEtherName = "prog_clatd_schedcls_ingress_clat_ether"
	egressProgRawIPName  = "prog_clatd_schedcls_egress_clat_rawip"
	egressProgEtherName  = "prog_clatd_schedcls_egress_clat_ether"

	fsObjSuffix = ":[*fsobj]"
)

// progNames is indexed by [ethernet][ingress].
var progNames = [2][2]string{
	{egressProgRawIPName, ingressProgRawIPName},
	{egressProgEtherName, ingressProgEtherName},
}

func boolIdx(b bool) int {
	if b {
		return 1
	}
	return 0
}

// PinnedProgName returns the object name under which the translation
// program for the given framing and direction is pinned in the BPF
// filesystem.
func PinnedProgName(ethernet, ingress bool) string {
	return progNames[boolIdx(ethernet)][boolIdx(ingress)]
}

// classifierProgName is what ends up in the filter's TCA_BPF_NAME attribute.
func classifierProgName(ethernet, ingress bool) string {
	return PinnedProgName(ethernet, ingress) + fsObjSuffix
}
