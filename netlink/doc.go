// Package netlink configures the TC objects backing the CLAT offload: a
// clsact qdisc per interface and the BPF classifiers hanging off its
// ingress and egress hooks. Be sure to check netlink(7), rtnetlink(7)
// and tc-bpf(8) for background on the messages we exchange here.
//
// Unlike the higher level netlink libraries out there, this package builds
// the three rtnetlink requests it needs byte by byte: the kernel's TC
// subsystem is picky about lengths and alignment, and the request shapes
// are fixed, so we'd rather have the full layout spelled out in a struct
// than spread across attribute encoder calls. The structs mirror the ones
// libbpf (and the tc CLI) would put on the wire, and every length field is
// a compile time constant derived through unsafe.Sizeof.
//
// The transport side is deliberately primitive: one raw NETLINK_ROUTE
// socket per call, bound and connected to the kernel so nobody else can
// slip messages into our queue, a single send and a single receive. All
// operations return 0 on success or a negated errno, mimicking the kernel
// convention, so callers can branch on specific codes (e.g. tolerating
// -EEXIST when creating a qdisc that's already there). Retries, timeouts
// and the decision of when to attach anything at all belong to the caller.
package netlink
