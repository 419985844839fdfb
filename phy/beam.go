// beam.go — beam-weight computation over one subcarrier group.
//
// Reads the CSI grid for every UE, writes the uplink detector and
// downlink precoder matrices for each subcarrier in the block. The
// matched-filter form here stands in for the zero-forcing inversion; the
// buffer contract (CSI in, both beam grids out) is the real one.

package phy

import (
	"main/buffer"
	"main/config"
	"main/message"
)

type BeamWeights struct {
	cfg  *config.Config
	pool *buffer.Pool
	tid  int
}

func NewBeamWeights(cfg *config.Config, pool *buffer.Pool, tid int) *BeamWeights {
	return &BeamWeights{cfg: cfg, pool: pool, tid: tid}
}

func (d *BeamWeights) Launch(tag message.Tag) {
	frame, base := tag.Frame(), tag.Sc()
	end := int(base) + d.cfg.BeamBlockSize
	if end > d.cfg.OfdmDataNum {
		end = d.cfg.OfdmDataNum
	}
	norm := float32(1) / float32(d.cfg.BsAntNum)

	for sc := int(base); sc < end; sc++ {
		ul := d.pool.UlBeam(frame, uint32(sc))
		dl := d.pool.DlBeam(frame, uint32(sc))
		for ue := 0; ue < d.cfg.UeAntNum; ue++ {
			csi := d.pool.Csi(frame, uint32(ue))
			for ant := 0; ant < d.cfg.BsAntNum; ant++ {
				h := csi[ant*d.cfg.OfdmDataNum+sc]
				w := complex(real(h)*norm, -imag(h)*norm) // conjugate match
				ul[ant*d.cfg.UeAntNum+ue] = w
				dl[ant*d.cfg.UeAntNum+ue] = w
			}
		}
	}
}
