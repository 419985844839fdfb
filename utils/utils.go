// utils.go — low-level helpers shared by the logging, config and boundary
// layers. Everything here avoids fmt; only Itoa and Utoa allocate, for
// the string they return.
package utils

import (
	"os"
	"unsafe"
)

///////////////////////////////////////////////////////////////////////////////
// Tiny fmt-free conversions
///////////////////////////////////////////////////////////////////////////////

// B2s converts a []byte to string without an allocation.
//
//go:nosplit
//go:inline
func B2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b)) // caller must keep b immutable
}

// Itoa renders a non-negative integer into a stack buffer and returns the
// string. Negative inputs get a leading '-'.
func Itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Utoa is Itoa for uint64 tags and frame ids.
func Utoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

///////////////////////////////////////////////////////////////////////////////
// Raw stderr writes
///////////////////////////////////////////////////////////////////////////////

// PrintWarning writes msg to stderr in one syscall, bypassing fmt.
//
//go:nosplit
func PrintWarning(msg string) {
	_, _ = os.Stderr.WriteString(msg)
}

///////////////////////////////////////////////////////////////////////////////
// Unaligned word loads (little-endian)
///////////////////////////////////////////////////////////////////////////////

//go:nosplit
//go:inline
func Load64(b []byte) uint64 { return *(*uint64)(unsafe.Pointer(&b[0])) }

// NextPow2 returns the smallest power of two ≥ n (n > 0).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
