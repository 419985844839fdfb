// codec.go — code-block decode (uplink) and encode (downlink).
//
// Decode hardens LLRs into bytes for one code block of one UE's symbol;
// encode maps staged MAC bytes into per-subcarrier constellation indices.
// Code-block tags pack ue*blocksPerSymbol+block into the inner id.

package phy

import (
	"main/buffer"
	"main/config"
	"main/constants"
	"main/message"
)

type Decode struct {
	cfg    *config.Config
	pool   *buffer.Pool
	tid    int
	blocks int
}

func NewDecode(cfg *config.Config, pool *buffer.Pool, tid int) *Decode {
	return &Decode{cfg: cfg, pool: pool, tid: tid, blocks: cfg.BlocksInSymbol(false)}
}

func (d *Decode) Launch(tag message.Tag) {
	frame, symbol, cb := tag.Frame(), tag.Symbol(), tag.Cb()
	ue := cb / uint32(d.blocks)
	blk := int(cb) % d.blocks
	ulIdx := d.cfg.Frame.GetULSymbolIdx(symbol)

	llr := d.pool.Demod(frame, ulIdx, ue)
	out := d.pool.Decoded(frame, ulIdx, ue)[blk*constants.CodeBlockBytesPadded:]

	// Hard decision: pack LLR signs, eight per byte, cycling the LLR row
	// when a block spans more bits than one symbol row carries.
	modBits := d.cfg.UlMcs.ModOrderBits
	rowBits := d.cfg.OfdmDataNum * modBits
	bitBase := blk * constants.CodeBlockBytes * 8
	for i := 0; i < constants.CodeBlockBytes; i++ {
		var b byte
		for j := 0; j < 8; j++ {
			bit := (bitBase + i*8 + j) % rowBits
			sc := bit / modBits
			if llr[sc*constants.MaxModBits+bit%modBits] >= 0 {
				b |= 1 << uint(j)
			}
		}
		out[i] = b
	}
}

type Encode struct {
	cfg    *config.Config
	pool   *buffer.Pool
	tid    int
	blocks int
}

func NewEncode(cfg *config.Config, pool *buffer.Pool, tid int) *Encode {
	return &Encode{cfg: cfg, pool: pool, tid: tid, blocks: cfg.BlocksInSymbol(true)}
}

func (d *Encode) Launch(tag message.Tag) {
	frame, symbol, cb := tag.Frame(), tag.Symbol(), tag.Cb()
	ue := cb / uint32(d.blocks)
	blk := int(cb) % d.blocks
	dlIdx := d.cfg.Frame.GetDLSymbolIdx(symbol)

	payload := d.pool.DlBits(frame, ue)
	symBase := dlIdx * d.blocks * constants.CodeBlockBytes
	block := payload[symBase+blk*constants.CodeBlockBytes : symBase+(blk+1)*constants.CodeBlockBytes]

	// Each code block owns a contiguous span of this symbol's subcarriers.
	mod := d.pool.DlModBits(frame, dlIdx, ue)
	span := (d.cfg.OfdmDataNum + d.blocks - 1) / d.blocks
	start := blk * span
	end := start + span
	if end > d.cfg.OfdmDataNum {
		end = d.cfg.OfdmDataNum
	}
	for sc := start; sc < end; sc++ {
		mod[sc] = int8(block[(sc-start)%len(block)])
	}
}
