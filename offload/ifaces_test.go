//go:build linux

package offload

import (
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/sys/unix"
)

func init() {
	slog.SetDefault(slog.New(slog.DiscardHandler))
}

func TestHardwareAddressTypeLoopback(t *testing.T) {
	if got := HardwareAddressType("lo"); got != unix.ARPHRD_LOOPBACK {
		t.Errorf("got %d, want ARPHRD_LOOPBACK (%d)", got, unix.ARPHRD_LOOPBACK)
	}
}

func TestHardwareAddressTypeMissing(t *testing.T) {
	if got := HardwareAddressType("no-such-iface0"); got != -int(unix.ENODEV) {
		t.Errorf("got %d, want -ENODEV (%d)", got, -int(unix.ENODEV))
	}
}

func TestHardwareAddressTypeLongName(t *testing.T) {
	// Names past IFNAMSIZ-1 are trimmed, not rejected: the truncated name
	// simply doesn't resolve here.
	long := strings.Repeat("x", 2*unix.IFNAMSIZ)
	if got := HardwareAddressType(long); got != -int(unix.ENODEV) {
		t.Errorf("got %d, want -ENODEV (%d)", got, -int(unix.ENODEV))
	}
}

func TestIsEthernet(t *testing.T) {
	tests := []struct {
		hwType  int
		want    bool
		wantErr bool
	}{
		{unix.ARPHRD_ETHER, true, false},
		{unix.ARPHRD_RAWIP, false, false},
		{unix.ARPHRD_NONE, false, false},
		{unix.ARPHRD_LOOPBACK, false, true},
		{unix.ARPHRD_PPP, false, true},
	}

	for _, test := range tests {
		got, err := isEthernet(test.hwType)
		if (err != nil) != test.wantErr {
			t.Errorf("hwType %d: err = %v, wantErr %v", test.hwType, err, test.wantErr)
			continue
		}
		if err == nil && got != test.want {
			t.Errorf("hwType %d: got %v, want %v", test.hwType, got, test.want)
		}
	}
}

func TestResultLabel(t *testing.T) {
	tests := []struct {
		ret  int
		want string
	}{
		{0, "ok"},
		{-int(unix.EEXIST), "EEXIST"},
		{-int(unix.ENODEV), "ENODEV"},
		{-100000, "unknown"},
	}

	for _, test := range tests {
		if got := resultLabel(test.ret); got != test.want {
			t.Errorf("resultLabel(%d) = %q, want %q", test.ret, got, test.want)
		}
	}
}
