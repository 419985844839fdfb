// packet.go — over-the-air packet codec.
//
// Wire layout, little-endian: 4-byte frame_id, 4-byte symbol_id, 4-byte
// cell_id, 4-byte ant_id, then samps_per_symbol × 2 × int16 of interleaved
// I/Q. A PacketView is a zero-copy window over a datagram; nothing here
// allocates.

package message

import "encoding/binary"

// PacketHeaderBytes is the fixed header size preceding the I/Q payload.
const PacketHeaderBytes = 16

// PacketBytes returns the full datagram size for a symbol.
//
//go:inline
func PacketBytes(sampsPerSymbol int) int {
	return PacketHeaderBytes + sampsPerSymbol*2*2
}

// PacketView is a zero-copy reference into a raw datagram. The view is
// only valid while the underlying buffer is; callers copying payloads out
// must do so before the socket buffer slot is reused.
type PacketView []byte

//go:inline
func (p PacketView) FrameID() uint32 { return binary.LittleEndian.Uint32(p[0:4]) }

//go:inline
func (p PacketView) SymbolID() uint32 { return binary.LittleEndian.Uint32(p[4:8]) }

//go:inline
func (p PacketView) CellID() uint32 { return binary.LittleEndian.Uint32(p[8:12]) }

//go:inline
func (p PacketView) AntID() uint32 { return binary.LittleEndian.Uint32(p[12:16]) }

// IQ returns the interleaved int16 payload region as raw bytes.
//
//go:inline
func (p PacketView) IQ() []byte { return p[PacketHeaderBytes:] }

// PutHeader writes the four header words.
func PutHeader(dst []byte, frame, symbol, cell, ant uint32) {
	binary.LittleEndian.PutUint32(dst[0:4], frame)
	binary.LittleEndian.PutUint32(dst[4:8], symbol)
	binary.LittleEndian.PutUint32(dst[8:12], cell)
	binary.LittleEndian.PutUint32(dst[12:16], ant)
}

// PutIQSample stores one interleaved I/Q pair at sample index i.
//
//go:inline
func PutIQSample(dst []byte, i int, iVal, qVal int16) {
	binary.LittleEndian.PutUint16(dst[PacketHeaderBytes+4*i:], uint16(iVal))
	binary.LittleEndian.PutUint16(dst[PacketHeaderBytes+4*i+2:], uint16(qVal))
}

// IQSample loads one interleaved I/Q pair at sample index i.
//
//go:inline
func IQSample(src []byte, i int) (int16, int16) {
	iv := int16(binary.LittleEndian.Uint16(src[PacketHeaderBytes+4*i:]))
	qv := int16(binary.LittleEndian.Uint16(src[PacketHeaderBytes+4*i+2:]))
	return iv, qv
}
