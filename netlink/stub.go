//go:build !linux

package netlink

import "fmt"

// TC and rtnetlink only exist on Linux: on other platforms every
// operation reports -EOPNOTSUPP so that the CLI still builds and fails
// loudly at runtime.

const eOpNotSupp = 95

type QdiscOp int

const (
	QdiscAdd QdiscOp = iota
	QdiscReplace
	QdiscDelete
)

func DoClsactQdisc(ifIndex int, op QdiscOp) int { return -eOpNotSupp }

func AddClsactQdisc(ifIndex int) int { return -eOpNotSupp }

func ReplaceClsactQdisc(ifIndex int) int { return -eOpNotSupp }

func DeleteClsactQdisc(ifIndex int) int { return -eOpNotSupp }

func AddBpfFilter(ifIndex, progFd int, ethernet, ingress, ipv6 bool) int { return -eOpNotSupp }

func DeleteFilter(ifIndex int, ingress bool, prio, proto uint16) int { return -eOpNotSupp }

func Htons(in uint16) uint16 { return in<<8 | in>>8 }

func PinnedProgName(ethernet, ingress bool) string { return "" }

func Error(ret int) error {
	if ret == 0 {
		return nil
	}
	return fmt.Errorf("netlink request failed with code %d", ret)
}
