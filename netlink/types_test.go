//go:build linux

package netlink

import (
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

// align4 mirrors NLMSG_ALIGN for the 4 byte alignment netlink mandates.
func align4(n int) int {
	return (n + 3) &^ 3
}

// walkAttrs iterates the attributes laid out in buf, checking each one
// starts on a 4 byte boundary and that the declared lengths exactly tile
// the region. It returns the (offset, length, type) triple per attribute.
func walkAttrs(t *testing.T, buf []byte) [][3]int {
	t.Helper()

	attrs := [][3]int{}
	for off := 0; off < len(buf); {
		if off%4 != 0 {
			t.Fatalf("attribute at offset %d is not 4 byte aligned", off)
		}
		if len(buf)-off < unix.SizeofRtAttr {
			t.Fatalf("dangling %d bytes after the last attribute", len(buf)-off)
		}
		aLen := int(hostEndian.Uint16(buf[off : off+2]))
		aType := int(hostEndian.Uint16(buf[off+2 : off+4]))
		if aLen < unix.SizeofRtAttr {
			t.Fatalf("attribute at offset %d declares length %d", off, aLen)
		}
		attrs = append(attrs, [3]int{off, aLen, aType})
		off += align4(aLen)
	}
	return attrs
}

func TestQdiscRequestLayout(t *testing.T) {
	tests := []struct {
		op        QdiscOp
		wantType  uint16
		wantFlags uint16
	}{
		{QdiscAdd, unix.RTM_NEWQDISC, requestFlags | unix.NLM_F_EXCL | unix.NLM_F_CREATE},
		{QdiscReplace, unix.RTM_NEWQDISC, requestFlags | unix.NLM_F_CREATE | unix.NLM_F_REPLACE},
		{QdiscDelete, unix.RTM_DELQDISC, requestFlags},
	}

	for _, test := range tests {
		buf := newQdiscRequest(5, test.op).serialize()

		if len(buf) != sizeofQdiscRequest {
			t.Fatalf("%v: serialized %d bytes, want %d", test.op, len(buf), sizeofQdiscRequest)
		}
		if got := hostEndian.Uint32(buf[0:4]); got != uint32(len(buf)) {
			t.Errorf("%v: declared length %d != actual %d", test.op, got, len(buf))
		}
		if got := hostEndian.Uint16(buf[4:6]); got != test.wantType {
			t.Errorf("%v: message type %#x, want %#x", test.op, got, test.wantType)
		}
		if got := hostEndian.Uint16(buf[6:8]); got != test.wantFlags {
			t.Errorf("%v: flags %#x, want %#x", test.op, got, test.wantFlags)
		}

		if got := int32(hostEndian.Uint32(buf[20:24])); got != 5 {
			t.Errorf("%v: ifindex %d, want 5", test.op, got)
		}
		if got := hostEndian.Uint32(buf[24:28]); got != tcMakeHandle(TC_H_CLSACT, 0) {
			t.Errorf("%v: handle %#x, want the clsact sentinel", test.op, got)
		}
		if got := hostEndian.Uint32(buf[28:32]); got != TC_H_CLSACT {
			t.Errorf("%v: parent %#x, want TC_H_CLSACT", test.op, got)
		}

		attrs := walkAttrs(t, buf[36:])
		if len(attrs) != 1 {
			t.Fatalf("%v: got %d attributes, want 1", test.op, len(attrs))
		}
		if attrs[0][1] != unix.SizeofRtAttr+len(clsactKind)+1 {
			t.Errorf("%v: kind attribute length %d, want %d", test.op, attrs[0][1], unix.SizeofRtAttr+len(clsactKind)+1)
		}
		if attrs[0][2] != int(TCA_KIND) {
			t.Errorf("%v: kind attribute type %d, want TCA_KIND", test.op, attrs[0][2])
		}
		if got := string(buf[40:47]); got != clsactKind+"\x00" {
			t.Errorf("%v: kind payload %q, want %q", test.op, got, clsactKind+"\x00")
		}
	}
}

func TestFilterAddRequestLayout(t *testing.T) {
	buf := newFilterAddRequest(5, 42, false, true, true).serialize()

	if len(buf) != sizeofFilterAddRequest {
		t.Fatalf("serialized %d bytes, want %d", len(buf), sizeofFilterAddRequest)
	}
	if got := hostEndian.Uint32(buf[0:4]); got != uint32(len(buf)) {
		t.Errorf("declared length %d != actual %d", got, len(buf))
	}
	if got := hostEndian.Uint16(buf[4:6]); got != unix.RTM_NEWTFILTER {
		t.Errorf("message type %#x, want RTM_NEWTFILTER", got)
	}

	if got := hostEndian.Uint32(buf[28:32]); got != tcMakeHandle(TC_H_CLSACT, TC_H_MIN_INGRESS) {
		t.Errorf("parent %#x, want the clsact ingress hook", got)
	}
	wantInfo := uint32(filterPrio)<<16 | uint32(Htons(unix.ETH_P_IPV6))
	if got := hostEndian.Uint32(buf[32:36]); got != wantInfo {
		t.Errorf("info %#x, want %#x", got, wantInfo)
	}

	attrs := walkAttrs(t, buf[36:])
	if len(attrs) != 2 {
		t.Fatalf("got %d top level attributes, want 2", len(attrs))
	}
	if attrs[0][2] != int(TCA_KIND) || attrs[1][2] != int(TCA_OPTIONS) {
		t.Fatalf("unexpected attribute types: %v", attrs)
	}
	if got := string(buf[40:44]); got != bpfKind+"\x00" {
		t.Errorf("kind payload %q, want %q", got, bpfKind+"\x00")
	}

	// The options nest is itself a sequence of attributes.
	optOff := 36 + attrs[1][0] + unix.SizeofRtAttr
	optEnd := 36 + attrs[1][0] + attrs[1][1]
	nested := walkAttrs(t, buf[optOff:optEnd])
	if len(nested) != 3 {
		t.Fatalf("got %d nested attributes, want 3", len(nested))
	}
	if nested[0][2] != int(TCA_BPF_FD) || nested[1][2] != int(TCA_BPF_NAME) || nested[2][2] != int(TCA_BPF_FLAGS) {
		t.Fatalf("unexpected nested attribute types: %v", nested)
	}

	if got := hostEndian.Uint32(buf[52:56]); got != 42 {
		t.Errorf("program fd %d, want 42", got)
	}
	if got := hostEndian.Uint32(buf[112:116]); got != TCA_BPF_FLAG_ACT_DIRECT {
		t.Errorf("flags %#x, want TCA_BPF_FLAG_ACT_DIRECT", got)
	}
}

func TestFilterAddProgramNames(t *testing.T) {
	tests := []struct {
		ethernet bool
		ingress  bool
		want     string
	}{
		{false, true, "prog_clatd_schedcls_ingress_clat_rawip:[*fsobj]"},
		{true, true, "prog_clatd_schedcls_ingress_clat_ether:[*fsobj]"},
		{false, false, "prog_clatd_schedcls_egress_clat_rawip:[*fsobj]"},
		{true, false, "prog_clatd_schedcls_egress_clat_ether:[*fsobj]"},
	}

	for _, test := range tests {
		req := newFilterAddRequest(5, 42, test.ethernet, test.ingress, true)

		raw := req.Options.Name.Str[:]
		if raw[len(raw)-1] != 0 {
			t.Errorf("ethernet=%v ingress=%v: name field is not NUL terminated", test.ethernet, test.ingress)
		}

		got, _, _ := strings.Cut(string(raw), "\x00")
		if got != test.want {
			t.Errorf("ethernet=%v ingress=%v: name %q, want %q", test.ethernet, test.ingress, got, test.want)
		}
	}
}

func TestClassifierNamesFit(t *testing.T) {
	for _, ethernet := range []bool{false, true} {
		for _, ingress := range []bool{false, true} {
			name := classifierProgName(ethernet, ingress)
			if len(name)+1 > progNameFieldLen {
				t.Errorf("%q plus its NUL does not fit in %d bytes", name, progNameFieldLen)
			}
		}
	}
}

func TestFilterDelRequestLayout(t *testing.T) {
	buf := newFilterDelRequest(7, true, 1, unix.ETH_P_IPV6).serialize()

	if len(buf) != sizeofFilterDelRequest {
		t.Fatalf("serialized %d bytes, want %d", len(buf), sizeofFilterDelRequest)
	}
	if got := hostEndian.Uint32(buf[0:4]); got != uint32(len(buf)) {
		t.Errorf("declared length %d != actual %d", got, len(buf))
	}
	if got := hostEndian.Uint16(buf[4:6]); got != unix.RTM_DELTFILTER {
		t.Errorf("message type %#x, want RTM_DELTFILTER", got)
	}
	if got := hostEndian.Uint16(buf[6:8]); got != requestFlags {
		t.Errorf("flags %#x, want just request+ack", got)
	}

	// (1 << 16) | byteswap(0x86DD)
	wantInfo := uint32(1)<<16 | uint32(Htons(0x86DD))
	if got := hostEndian.Uint32(buf[32:36]); got != wantInfo {
		t.Errorf("info %#x, want %#x", got, wantInfo)
	}
}

func TestTcmInfoPacking(t *testing.T) {
	for _, prio := range []uint16{0, 1, 7, 0x1234, 0xFFFF} {
		for _, proto := range []uint16{0, unix.ETH_P_IP, unix.ETH_P_IPV6, 0xFFFF} {
			info := packTcmInfo(prio, proto)
			if got := uint16(info >> 16); got != prio {
				t.Errorf("prio %#x round-tripped to %#x", prio, got)
			}
			if got := Htons(uint16(info & 0xFFFF)); got != proto {
				t.Errorf("proto %#x round-tripped to %#x", proto, got)
			}
		}
	}
}
