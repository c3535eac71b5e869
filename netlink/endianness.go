//go:build linux

package netlink

import (
	ne "github.com/josharian/native"
)

// hostEndian lets us read the kernel's replies, which arrive in host
// byte order, without hardcoding little endian anywhere.
var hostEndian = ne.Endian

// Htons converts a 16 bit quantity to network byte order.
func Htons(in uint16) uint16 {
	if !ne.IsBigEndian {
		return uint16((in&0xFF)<<8) | uint16((in>>8)&0xFF)
	}
	return in
}
