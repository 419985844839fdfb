// recorder.go — raw dumps of the last frame's transmitted I/Q and decoded
// uplink bits.
//
// Formats are contiguous binary, symbols outer, antennas/UEs inner, no
// header — byte-compatible with offline analysis tooling. Each dump gets
// a BLAKE2b-256 digest whose first 8 bytes are logged in hex for
// integrity, and an optional
// brotli-compressed sibling when the configuration asks for it. Runs only
// on the shutdown path.

package recorder

import (
	"encoding/hex"
	"os"
	"path/filepath"

	"github.com/andybalholm/brotli"
	"golang.org/x/crypto/blake2b"

	"main/buffer"
	"main/config"
	"main/constants"
	"main/debug"
)

const (
	txDataFile     = "tx_data.bin"
	decodeDataFile = "decode_data.bin"
)

// SaveTxData dumps the DL socket payloads of lastFrame: DL symbols outer,
// antennas inner, samps_per_symbol × 2 × int16 each.
func SaveTxData(cfg *config.Config, pool *buffer.Pool, lastFrame uint32) error {
	if cfg.Frame.NumDLSyms() == 0 {
		return nil
	}
	data := make([]byte, 0, cfg.Frame.NumDLSyms()*cfg.BsAntNum*(cfg.PacketBytes-16))
	for i := 0; i < cfg.Frame.NumDLSyms(); i++ {
		symbol := cfg.Frame.GetDLSymbol(i)
		for ant := 0; ant < cfg.BsAntNum; ant++ {
			pkt := pool.DlSocket(lastFrame, symbol, uint32(ant))
			data = append(data, pkt[16:]...) // payload only, header stripped
		}
	}
	return writeDump(cfg, txDataFile, data)
}

// SaveDecodeData dumps the decoded uplink bytes of lastFrame: UL symbols
// outer, UEs inner, code blocks contiguous.
func SaveDecodeData(cfg *config.Config, pool *buffer.Pool, lastFrame uint32) error {
	if cfg.Frame.NumULSyms() == 0 {
		return nil
	}
	blockBytes := cfg.BlocksInSymbol(false) * constants.CodeBlockBytes
	data := make([]byte, 0, cfg.Frame.NumULSyms()*cfg.UeAntNum*blockBytes)
	for i := 0; i < cfg.Frame.NumULSyms(); i++ {
		for ue := 0; ue < cfg.UeAntNum; ue++ {
			dec := pool.Decoded(lastFrame, i, uint32(ue))
			for blk := 0; blk < cfg.BlocksInSymbol(false); blk++ {
				start := blk * constants.CodeBlockBytesPadded
				data = append(data, dec[start:start+constants.CodeBlockBytes]...)
			}
		}
	}
	return writeDump(cfg, decodeDataFile, data)
}

func writeDump(cfg *config.Config, name string, data []byte) error {
	dir := cfg.RecordsDir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	sum := blake2b.Sum256(data)
	debug.DropMessage("RECORD", path+" blake2b="+hex.EncodeToString(sum[:8]))

	if cfg.CompressRecords {
		f, err := os.Create(path + ".br")
		if err != nil {
			return err
		}
		w := brotli.NewWriterLevel(f, brotli.DefaultCompression)
		if _, err = w.Write(data); err != nil {
			_ = w.Close()
			_ = f.Close()
			return err
		}
		if err = w.Close(); err != nil {
			_ = f.Close()
			return err
		}
		if err = f.Close(); err != nil {
			return err
		}
	}
	return nil
}
