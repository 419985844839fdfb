// fft.go — RX time-domain → frequency-domain stage.
//
// One launch handles one (frame, symbol, antenna). Pilot symbols land in
// the CSI grid (the pilot's ordinal is the transmitting UE), uplink data
// symbols land in the FFT grid, calibration symbols only feed counters.

package phy

import (
	"main/buffer"
	"main/config"
	"main/message"
)

type FFT struct {
	cfg  *config.Config
	pool *buffer.Pool
	tid  int
}

func NewFFT(cfg *config.Config, pool *buffer.Pool, tid int) *FFT {
	return &FFT{cfg: cfg, pool: pool, tid: tid}
}

func (d *FFT) Launch(tag message.Tag) {
	frame, symbol, ant := tag.Frame(), tag.Symbol(), tag.Ant()
	iq := d.pool.RxIQ(frame, symbol, ant)
	// Skip the cyclic prefix; one subcarrier per remaining sample pair.
	cp := d.cfg.CpSize * 2

	switch d.cfg.Frame.Type(symbol) {
	case config.SymbolPilot:
		// Pilot ordinal doubles as the transmitting UE, capped to the
		// spatial stream count when the schedule carries extra pilots.
		ue := uint32(d.cfg.Frame.GetPilotSymbolIdx(symbol) % d.cfg.UeAntNum)
		csi := d.pool.Csi(frame, ue)
		row := int(ant) * d.cfg.OfdmDataNum
		for sc := 0; sc < d.cfg.OfdmDataNum; sc++ {
			csi[row+sc] = complex(float32(iq[cp+2*sc])*qamScale, float32(iq[cp+2*sc+1])*qamScale)
		}
	case config.SymbolUL:
		ulIdx := d.cfg.Frame.GetULSymbolIdx(symbol)
		out := d.pool.Fft(frame, ulIdx, ant)
		for sc := 0; sc < d.cfg.OfdmDataNum; sc++ {
			out[sc] = complex(float32(iq[cp+2*sc])*qamScale, float32(iq[cp+2*sc+1])*qamScale)
		}
	case config.SymbolCalUL:
		// Calibration feeds the reciprocity counters only.
	}
}
