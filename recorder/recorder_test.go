package recorder

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/andybalholm/brotli"

	"main/buffer"
	"main/config"
	"main/constants"
	"main/message"
)

func recorderFixture(t *testing.T) (*config.Config, *buffer.Pool) {
	t.Helper()
	cfg := config.Default()
	cfg.BsAntNum = 2
	cfg.BsRadioNum = 2
	cfg.UeAntNum = 2
	cfg.UeRadioNum = 2
	cfg.FrameScheduleStr = "PUDD"
	cfg.RecordsDir = t.TempDir()
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}
	return cfg, buffer.New(cfg)
}

// TestSaveTxDataLayout: symbols outer, antennas inner, payload only, no
// header.
func TestSaveTxDataLayout(t *testing.T) {
	cfg, pool := recorderFixture(t)

	// Stamp a distinct first sample into every (symbol, antenna) packet.
	for i := 0; i < cfg.Frame.NumDLSyms(); i++ {
		sym := cfg.Frame.GetDLSymbol(i)
		for ant := 0; ant < cfg.BsAntNum; ant++ {
			pkt := pool.DlSocket(1, sym, uint32(ant))
			message.PutHeader(pkt, 1, sym, 0, uint32(ant))
			message.PutIQSample(pkt, 0, int16(100*i+ant), 0)
		}
	}
	if err := SaveTxData(cfg, pool, 1); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.RecordsDir, "tx_data.bin"))
	if err != nil {
		t.Fatal(err)
	}
	symBytes := cfg.SampsPerSymbol * 4
	if len(data) != cfg.Frame.NumDLSyms()*cfg.BsAntNum*symBytes {
		t.Fatalf("dump size %d", len(data))
	}
	// Second symbol, second antenna starts at offset (1*2+1)*symBytes and
	// must carry sample value 101.
	off := (1*cfg.BsAntNum + 1) * symBytes
	if data[off] != 101 {
		t.Fatalf("layout wrong: byte %d = %d", off, data[off])
	}
}

// TestSaveDecodeDataStripsPadding: dumps carry CodeBlockBytes per block,
// not the padded stride.
func TestSaveDecodeDataStripsPadding(t *testing.T) {
	cfg, pool := recorderFixture(t)

	for ue := 0; ue < cfg.UeAntNum; ue++ {
		dec := pool.Decoded(2, 0, uint32(ue))
		for i := range dec {
			dec[i] = byte(ue + 1)
		}
	}
	if err := SaveDecodeData(cfg, pool, 2); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.RecordsDir, "decode_data.bin"))
	if err != nil {
		t.Fatal(err)
	}
	blocks := cfg.BlocksInSymbol(false)
	want := cfg.Frame.NumULSyms() * cfg.UeAntNum * blocks * constants.CodeBlockBytes
	if len(data) != want {
		t.Fatalf("dump size %d, want %d", len(data), want)
	}
	if data[0] != 1 || data[len(data)-1] != 2 {
		t.Fatal("UE ordering wrong in dump")
	}
}

// TestCompressedSibling: with compression on, the .br file decompresses
// to the raw dump.
func TestCompressedSibling(t *testing.T) {
	cfg, pool := recorderFixture(t)
	cfg.CompressRecords = true

	dec := pool.Decoded(0, 0, 0)
	for i := range dec {
		dec[i] = byte(i)
	}
	if err := SaveDecodeData(cfg, pool, 0); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(filepath.Join(cfg.RecordsDir, "decode_data.bin"))
	if err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(filepath.Join(cfg.RecordsDir, "decode_data.bin.br"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	unpacked, err := io.ReadAll(brotli.NewReader(f))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(raw, unpacked) {
		t.Fatal("compressed sibling does not round-trip")
	}
}
