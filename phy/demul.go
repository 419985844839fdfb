// demul.go — equalize + demodulate one subcarrier block of an uplink
// data symbol.
//
// Reads the FFT grid and the uplink beam matrix, writes the equalized
// grid and the LLR grid. LLR layout per UE row: subcarrier-major,
// MaxModBits entries each, so decode can walk blocks linearly.

package phy

import (
	"main/buffer"
	"main/config"
	"main/constants"
	"main/message"
)

type Demul struct {
	cfg  *config.Config
	pool *buffer.Pool
	tid  int

	gather []complex64 // per-worker scratch: one antenna column
}

func NewDemul(cfg *config.Config, pool *buffer.Pool, tid int) *Demul {
	return &Demul{cfg: cfg, pool: pool, tid: tid, gather: make([]complex64, cfg.BsAntNum)}
}

func (d *Demul) Launch(tag message.Tag) {
	frame, symbol, base := tag.Frame(), tag.Symbol(), tag.Sc()
	ulIdx := d.cfg.Frame.GetULSymbolIdx(symbol)
	end := int(base) + d.cfg.DemulBlockSize
	if end > d.cfg.OfdmDataNum {
		end = d.cfg.OfdmDataNum
	}
	modBits := d.cfg.UlMcs.ModOrderBits

	for sc := int(base); sc < end; sc++ {
		for ant := 0; ant < d.cfg.BsAntNum; ant++ {
			d.gather[ant] = d.pool.Fft(frame, ulIdx, uint32(ant))[sc]
		}
		ulBeam := d.pool.UlBeam(frame, uint32(sc))
		for ue := 0; ue < d.cfg.UeAntNum; ue++ {
			var acc complex64
			for ant := 0; ant < d.cfg.BsAntNum; ant++ {
				acc += d.gather[ant] * ulBeam[ant*d.cfg.UeAntNum+ue]
			}
			d.pool.Equal(frame, ulIdx, uint32(ue))[sc] = acc

			llr := d.pool.Demod(frame, ulIdx, uint32(ue))
			off := sc * constants.MaxModBits
			for b := 0; b < modBits; b++ {
				llr[off+b] = softBit(acc, b)
			}
			for b := modBits; b < constants.MaxModBits; b++ {
				llr[off+b] = 0
			}
		}
	}
}

// softBit derives a deterministic log-likelihood stand-in from the
// equalized point: alternating bits keyed off the I and Q signs and
// magnitudes.
//
//go:inline
func softBit(v complex64, b int) int8 {
	m := real(v)
	if b&1 == 1 {
		m = imag(v)
	}
	m *= float32(int32(1) << uint(b/2))
	switch {
	case m > 1:
		return 127
	case m < -1:
		return -127
	default:
		return int8(m * 127)
	}
}
