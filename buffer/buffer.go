// buffer.go — the startup-allocated buffer pool.
//
// Every multi-dimensional buffer the pipeline touches lives here, sized
// once from the configuration and handed out as index-based subslice
// views. There are no locks: each buffer region has exactly one writing
// stage, and the scheduler never releases a downstream stage until the
// writer's counter closed, so writers and readers are ordered by the
// dependency graph rather than by synchronization.
//
// Grids indexed by symbol use the raw frame-schedule symbol id (so guard
// and pilot rows of the socket grids sit unused); grids private to one
// direction use the direction-local ordinal.

package buffer

import (
	"sync/atomic"

	"main/config"
	"main/constants"
	"main/message"
)

// Pool owns every buffer.
type Pool struct {
	cfg *config.Config

	// RX socket: raw packet I/Q per (slot, symbol, antenna), int16 pairs.
	rxIQ []int16

	// Channel state: per (slot, ue), BsAnt × OfdmData estimates.
	csi []complex64

	// Beam matrices per (slot, subcarrier): BsAnt × UeAnt weights.
	ulBeam []complex64
	dlBeam []complex64

	// Uplink data grids per (slot, UL symbol ordinal).
	fft   []complex64 // BsAnt × OfdmData
	equal []complex64 // UeAnt × OfdmData
	demod []int8      // UeAnt × MaxModBits × OfdmData
	decod []byte      // UeAnt × blocks × CodeBlockBytesPadded

	// Downlink grids.
	dlBits       []byte   // per (ue, slot): MAC frame payload
	dlBitsStatus []uint32 // per (ue, slot): 1 = staged; atomic, MAC writes, master clears
	dlModBits    []int8 // per (slot, DL symbol ordinal): UeAnt × OfdmData
	dlIfft       []complex64
	dlSocket     []byte // per (slot, symbol, antenna): wire packet

	ulBlocks int
	dlBytes  int
}

// New allocates the pool. This is the only allocation site in the data
// plane; everything after startup is index arithmetic.
func New(cfg *config.Config) *Pool {
	w := constants.FrameWnd
	totalSyms := cfg.Frame.NumTotalSyms()
	ulSyms := cfg.Frame.NumULSyms()
	dlSyms := cfg.Frame.NumDLSyms()

	p := &Pool{
		cfg:      cfg,
		ulBlocks: cfg.BlocksInSymbol(false),
		dlBytes:  cfg.MacBytesPerFrame(true),
	}
	p.rxIQ = make([]int16, w*totalSyms*cfg.BsAntNum*cfg.SampsPerSymbol*2)
	p.csi = make([]complex64, w*cfg.UeAntNum*cfg.BsAntNum*cfg.OfdmDataNum)
	p.ulBeam = make([]complex64, w*cfg.OfdmDataNum*cfg.BsAntNum*cfg.UeAntNum)
	p.dlBeam = make([]complex64, w*cfg.OfdmDataNum*cfg.BsAntNum*cfg.UeAntNum)

	if ulSyms > 0 {
		p.fft = make([]complex64, w*ulSyms*cfg.BsAntNum*cfg.OfdmDataNum)
		p.equal = make([]complex64, w*ulSyms*cfg.UeAntNum*cfg.OfdmDataNum)
		p.demod = make([]int8, w*ulSyms*cfg.UeAntNum*constants.MaxModBits*cfg.OfdmDataNum)
		p.decod = make([]byte, w*ulSyms*cfg.UeAntNum*p.ulBlocks*constants.CodeBlockBytesPadded)
	}
	if dlSyms > 0 || cfg.Frame.NumDlControlSyms() > 0 {
		p.dlSocket = make([]byte, w*totalSyms*cfg.BsAntNum*cfg.PacketBytes)
	}
	if dlSyms > 0 {
		p.dlBits = make([]byte, cfg.UeAntNum*w*p.dlBytes)
		p.dlBitsStatus = make([]uint32, cfg.UeAntNum*w)
		p.dlModBits = make([]int8, w*dlSyms*cfg.UeAntNum*cfg.OfdmDataNum)
		p.dlIfft = make([]complex64, w*dlSyms*cfg.BsAntNum*cfg.FftSize)
	}
	return p
}

//go:inline
func slot(frame uint32) int { return int(frame % constants.FrameWnd) }

// ─────────────────────────────── RX socket ─────────────────────────────────

// RxIQ returns the interleaved I/Q samples for one received symbol on one
// antenna. Written by the streamer thread that received the packet; read
// by the FFT doer after the scheduler releases it.
func (p *Pool) RxIQ(frame, symbol, ant uint32) []int16 {
	n := p.cfg.SampsPerSymbol * 2
	base := ((slot(frame)*p.cfg.Frame.NumTotalSyms()+int(symbol))*p.cfg.BsAntNum + int(ant)) * n
	return p.rxIQ[base : base+n]
}

// ──────────────────────────────── Uplink ───────────────────────────────────

// Csi returns one UE's channel estimates (BsAnt × OfdmData). Written by
// pilot FFT, read by beam weights.
func (p *Pool) Csi(frame, ue uint32) []complex64 {
	n := p.cfg.BsAntNum * p.cfg.OfdmDataNum
	base := (slot(frame)*p.cfg.UeAntNum + int(ue)) * n
	return p.csi[base : base+n]
}

// UlBeam returns the uplink detector weights for one subcarrier
// (BsAnt × UeAnt). Written by beam weights, read by demul.
func (p *Pool) UlBeam(frame, sc uint32) []complex64 {
	n := p.cfg.BsAntNum * p.cfg.UeAntNum
	base := (slot(frame)*p.cfg.OfdmDataNum + int(sc)) * n
	return p.ulBeam[base : base+n]
}

// DlBeam is the downlink precoder twin of UlBeam.
func (p *Pool) DlBeam(frame, sc uint32) []complex64 {
	n := p.cfg.BsAntNum * p.cfg.UeAntNum
	base := (slot(frame)*p.cfg.OfdmDataNum + int(sc)) * n
	return p.dlBeam[base : base+n]
}

// Fft returns one antenna's frequency-domain row of an uplink data
// symbol. Written by FFT, read by demul.
func (p *Pool) Fft(frame uint32, ulIdx int, ant uint32) []complex64 {
	n := p.cfg.OfdmDataNum
	base := ((slot(frame)*p.cfg.Frame.NumULSyms()+ulIdx)*p.cfg.BsAntNum + int(ant)) * n
	return p.fft[base : base+n]
}

// Equal returns one UE's equalized row of an uplink symbol. Written by
// demul.
func (p *Pool) Equal(frame uint32, ulIdx int, ue uint32) []complex64 {
	n := p.cfg.OfdmDataNum
	base := ((slot(frame)*p.cfg.Frame.NumULSyms()+ulIdx)*p.cfg.UeAntNum + int(ue)) * n
	return p.equal[base : base+n]
}

// Demod returns one UE's LLR row of an uplink symbol. Written by demul,
// read by decode.
func (p *Pool) Demod(frame uint32, ulIdx int, ue uint32) []int8 {
	n := constants.MaxModBits * p.cfg.OfdmDataNum
	base := ((slot(frame)*p.cfg.Frame.NumULSyms()+ulIdx)*p.cfg.UeAntNum + int(ue)) * n
	return p.demod[base : base+n]
}

// Decoded returns one UE's decoded bytes of an uplink symbol. Written by
// decode, read by the MAC hand-off and the recorder.
func (p *Pool) Decoded(frame uint32, ulIdx int, ue uint32) []byte {
	n := p.ulBlocks * constants.CodeBlockBytesPadded
	base := ((slot(frame)*p.cfg.Frame.NumULSyms()+ulIdx)*p.cfg.UeAntNum + int(ue)) * n
	return p.decod[base : base+n]
}

// ─────────────────────────────── Downlink ──────────────────────────────────

// DlBits returns one UE's staged MAC payload for a frame. Written by the
// MAC response path (or the startup pattern when MAC is off), read by
// encode.
func (p *Pool) DlBits(frame, ue uint32) []byte {
	base := (int(ue)*constants.FrameWnd + slot(frame)) * p.dlBytes
	return p.dlBits[base : base+p.dlBytes]
}

// DlBitsReady reports whether a UE's payload is staged for a slot. The
// MAC thread sets it, the master clears it at retirement, so access is
// atomic.
func (p *Pool) DlBitsReady(frame, ue uint32) bool {
	return atomic.LoadUint32(&p.dlBitsStatus[int(ue)*constants.FrameWnd+slot(frame)]) != 0
}

// SetDlBitsReady marks a UE's payload staged.
func (p *Pool) SetDlBitsReady(frame, ue uint32) {
	atomic.StoreUint32(&p.dlBitsStatus[int(ue)*constants.FrameWnd+slot(frame)], 1)
}

// DlModBits returns the modulated symbol indices for one DL data symbol,
// one UE row. Written by encode, read by precode.
func (p *Pool) DlModBits(frame uint32, dlIdx int, ue uint32) []int8 {
	n := p.cfg.OfdmDataNum
	base := ((slot(frame)*p.cfg.Frame.NumDLSyms()+dlIdx)*p.cfg.UeAntNum + int(ue)) * n
	return p.dlModBits[base : base+n]
}

// DlIfft returns one antenna's frequency-domain row awaiting IFFT.
// Written by precode, read by IFFT.
func (p *Pool) DlIfft(frame uint32, dlIdx int, ant uint32) []complex64 {
	n := p.cfg.FftSize
	base := ((slot(frame)*p.cfg.Frame.NumDLSyms()+dlIdx)*p.cfg.BsAntNum + int(ant)) * n
	return p.dlIfft[base : base+n]
}

// DlSocket returns the wire packet for one (symbol, antenna) of a frame.
// Written by IFFT (data) or broadcast (control), read by the TX streamer
// and the recorder.
func (p *Pool) DlSocket(frame, symbol, ant uint32) []byte {
	base := ((slot(frame)*p.cfg.Frame.NumTotalSyms()+int(symbol))*p.cfg.BsAntNum + int(ant)) * p.cfg.PacketBytes
	return p.dlSocket[base : base+p.cfg.PacketBytes]
}

// ─────────────────────────────── Staging ───────────────────────────────────

// StageDlPattern fills every DL bits slot with a deterministic pattern.
// Used when MAC is disabled: downlink payloads come "from configuration".
func (p *Pool) StageDlPattern() {
	if p.dlBits == nil {
		return
	}
	for ue := 0; ue < p.cfg.UeAntNum; ue++ {
		for s := 0; s < constants.FrameWnd; s++ {
			b := p.DlBits(uint32(s), uint32(ue))
			for i := range b {
				b[i] = byte(ue + i)
			}
			p.SetDlBitsReady(uint32(s), uint32(ue))
		}
	}
}

// ClearDlBitsStatus releases a frame's staging slots at retirement.
func (p *Pool) ClearDlBitsStatus(frame uint32) {
	if p.dlBitsStatus == nil {
		return
	}
	for ue := 0; ue < p.cfg.UeAntNum; ue++ {
		atomic.StoreUint32(&p.dlBitsStatus[ue*constants.FrameWnd+slot(frame)], 0)
	}
}

// WritePacketHeader stamps the wire header into a DL socket packet.
func (p *Pool) WritePacketHeader(frame, symbol, ant uint32) {
	message.PutHeader(p.DlSocket(frame, symbol, ant), frame, symbol, 0, ant)
}
