// downlink.go — precode, IFFT, and downlink-control generation.
//
// Precode mixes every UE's modulated stream through the downlink beam
// matrix into per-antenna frequency rows; IFFT turns one antenna row into
// a wire packet in the DL socket buffer; Broadcast synthesizes the
// control symbols directly into the socket buffer.

package phy

import (
	"main/buffer"
	"main/config"
	"main/message"
)

type Precode struct {
	cfg  *config.Config
	pool *buffer.Pool
	tid  int
}

func NewPrecode(cfg *config.Config, pool *buffer.Pool, tid int) *Precode {
	return &Precode{cfg: cfg, pool: pool, tid: tid}
}

func (d *Precode) Launch(tag message.Tag) {
	frame, symbol, base := tag.Frame(), tag.Symbol(), tag.Sc()
	dlIdx := d.cfg.Frame.GetDLSymbolIdx(symbol)
	end := int(base) + d.cfg.DemulBlockSize
	if end > d.cfg.OfdmDataNum {
		end = d.cfg.OfdmDataNum
	}

	for sc := int(base); sc < end; sc++ {
		dlBeam := d.pool.DlBeam(frame, uint32(sc))
		for ant := 0; ant < d.cfg.BsAntNum; ant++ {
			var acc complex64
			for ue := 0; ue < d.cfg.UeAntNum; ue++ {
				pt := modPoint(d.pool.DlModBits(frame, dlIdx, uint32(ue))[sc])
				acc += pt * dlBeam[ant*d.cfg.UeAntNum+ue]
			}
			d.pool.DlIfft(frame, dlIdx, uint32(ant))[sc] = acc
		}
	}
}

type IFFT struct {
	cfg  *config.Config
	pool *buffer.Pool
	tid  int
}

func NewIFFT(cfg *config.Config, pool *buffer.Pool, tid int) *IFFT {
	return &IFFT{cfg: cfg, pool: pool, tid: tid}
}

func (d *IFFT) Launch(tag message.Tag) {
	frame, symbol, ant := tag.Frame(), tag.Symbol(), tag.Ant()
	dlIdx := d.cfg.Frame.GetDLSymbolIdx(symbol)
	freq := d.pool.DlIfft(frame, dlIdx, ant)
	pkt := d.pool.DlSocket(frame, symbol, ant)

	d.pool.WritePacketHeader(frame, symbol, ant)
	// Cyclic prefix region repeats the tail samples; data region maps one
	// subcarrier per sample pair.
	for i := 0; i < d.cfg.SampsPerSymbol; i++ {
		var v complex64
		idx := i - d.cfg.CpSize
		if idx < 0 {
			idx += d.cfg.SampsPerSymbol - d.cfg.CpSize
		}
		if idx < d.cfg.OfdmDataNum {
			v = freq[idx]
		}
		message.PutIQSample(pkt, i, toSample(real(v)), toSample(imag(v)))
	}
}

type Broadcast struct {
	cfg  *config.Config
	pool *buffer.Pool
	tid  int
}

func NewBroadcast(cfg *config.Config, pool *buffer.Pool, tid int) *Broadcast {
	return &Broadcast{cfg: cfg, pool: pool, tid: tid}
}

// Launch generates every control symbol of the frame in one task.
func (d *Broadcast) Launch(tag message.Tag) {
	frame := tag.Frame()
	for i := 0; i < d.cfg.Frame.NumDlControlSyms(); i++ {
		symbol := d.cfg.Frame.GetDLControlSymbol(i)
		for ant := 0; ant < d.cfg.BsAntNum; ant++ {
			pkt := d.pool.DlSocket(frame, symbol, uint32(ant))
			d.pool.WritePacketHeader(frame, symbol, uint32(ant))
			for s := 0; s < d.cfg.SampsPerSymbol; s++ {
				// Frame-keyed marker tone so receivers can self-check.
				message.PutIQSample(pkt, s, int16(frame%251), int16(ant))
			}
		}
	}
}

//go:inline
func toSample(v float32) int16 {
	v *= 32767.0 / 16.0
	switch {
	case v > 32767:
		return 32767
	case v < -32768:
		return -32768
	default:
		return int16(v)
	}
}
