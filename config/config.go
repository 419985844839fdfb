// config.go — runtime configuration.
//
// One JSON document, read once at startup, immutable afterwards. The
// Config value is passed by pointer into every component; nothing in the
// repo holds process-wide mutable configuration. Decoding goes through
// sonnet, the same codec the ingest side of the house uses, so config
// parsing stays off the standard json reflection path.

package config

import (
	"errors"
	"os"

	"github.com/sugawarayuuta/sonnet"

	"main/constants"
	"main/message"
	"main/utils"
)

// MCS is the modulation-and-coding point for one direction.
type MCS struct {
	ModOrderBits int     `json:"mod_order_bits"` // bits per QAM symbol: 2,4,6,8
	CodeRate     float64 `json:"code_rate"`      // 0 < r ≤ 1
}

// Config is the full runtime configuration plus derived sizing. JSON
// fields use the deployment document names; derived fields are computed by Finalize.
type Config struct {
	BsRadioNum int `json:"bs_radio_num"`
	UeRadioNum int `json:"ue_radio_num"`
	BsAntNum   int `json:"bs_ant_num"`
	UeAntNum   int `json:"ue_ant_num"`

	FftSize     int     `json:"fft_size"`
	OfdmDataNum int     `json:"ofdm_data_num"`
	CpSize      int     `json:"cp_size"`
	SampleRate  float64 `json:"sample_rate"`

	FrameScheduleStr string `json:"frame_schedule"`

	UlMcs MCS `json:"ul_mcs"`
	DlMcs MCS `json:"dl_mcs"`

	WorkerThreadNum int `json:"worker_thread_num"`
	SocketThreadNum int `json:"socket_thread_num"`
	CoreOffset      int `json:"core_offset"`

	BeamBlockSize   int `json:"beam_block_size"`
	DemulBlockSize  int `json:"demul_block_size"`
	FftBlockSize    int `json:"fft_block_size"`
	EncodeBlockSize int `json:"encode_block_size"`

	FramesToTest int `json:"frames_to_test"`

	EnableMac    bool `json:"enable_mac"`
	HardDemod    bool `json:"hard_demod"`
	SingleThread bool `json:"single_thread"`

	RecordsDir      string `json:"records_dir"`
	CompressRecords bool   `json:"compress_records"`
	StatsDB         string `json:"stats_db"`

	// UDP boundary (unused by the in-process simulator)
	RxAddr string `json:"rx_addr"`
	TxAddr string `json:"tx_addr"`

	// Derived — populated by Finalize, never by JSON.
	Frame          FrameSchedule `json:"-"`
	SampsPerSymbol int           `json:"-"`
	PacketBytes    int           `json:"-"`
}

// Load reads and finalizes a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a JSON document and finalizes it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := sonnet.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with workable values for every field a
// document may omit. Callers mutating it must re-run Finalize.
func Default() *Config {
	return &Config{
		BsRadioNum:       8,
		UeRadioNum:       4,
		BsAntNum:         8,
		UeAntNum:         4,
		FftSize:          64,
		OfdmDataNum:      48,
		CpSize:           16,
		SampleRate:       5e6,
		FrameScheduleStr: "PUUUU",
		UlMcs:            MCS{ModOrderBits: 4, CodeRate: 0.5},
		DlMcs:            MCS{ModOrderBits: 4, CodeRate: 0.5},
		WorkerThreadNum:  2,
		SocketThreadNum:  1,
		CoreOffset:       0,
		BeamBlockSize:    16,
		DemulBlockSize:   16,
		FftBlockSize:     2,
		EncodeBlockSize:  2,
		FramesToTest:     10,
	}
}

// Finalize parses the schedule, computes derived sizing, and validates.
func (c *Config) Finalize() error {
	frame, err := ParseFrameSchedule(c.FrameScheduleStr)
	if err != nil {
		return err
	}
	c.Frame = frame
	c.SampsPerSymbol = c.FftSize + c.CpSize
	c.PacketBytes = message.PacketBytes(c.SampsPerSymbol)
	return c.validate()
}

func (c *Config) validate() error {
	switch {
	case c.BsAntNum <= 0 || c.UeAntNum <= 0:
		return errors.New("antenna counts must be positive")
	case c.BsAntNum >= 1<<20 || c.UeAntNum >= 1<<20:
		return errors.New("antenna counts exceed the tag inner-id space")
	case c.UeAntNum > c.BsAntNum:
		return errors.New("ue_ant_num must not exceed bs_ant_num")
	case c.FftSize <= 0 || c.OfdmDataNum <= 0 || c.OfdmDataNum > c.FftSize:
		return errors.New("need 0 < ofdm_data_num <= fft_size")
	case c.CpSize < 0:
		return errors.New("cp_size must be non-negative")
	case c.WorkerThreadNum <= 0:
		return errors.New("worker_thread_num must be positive")
	case c.SingleThread && c.WorkerThreadNum != 1:
		return errors.New("single_thread mode allows exactly 1 worker thread")
	case c.SocketThreadNum <= 0:
		return errors.New("socket_thread_num must be positive")
	case c.FramesToTest <= 0:
		return errors.New("frames_to_test must be positive")
	case c.BeamBlockSize <= 0 || c.DemulBlockSize <= 0:
		return errors.New("beam/demul block sizes must be positive")
	case c.FftBlockSize <= 0 || c.FftBlockSize > message.MaxEventTags:
		return errors.New("fft_block_size must be in [1, " + utils.Itoa(message.MaxEventTags) + "]")
	case c.EncodeBlockSize <= 0 || c.EncodeBlockSize > message.MaxEventTags:
		return errors.New("encode_block_size must be in [1, " + utils.Itoa(message.MaxEventTags) + "]")
	}
	if err := c.UlMcs.check("ul_mcs"); err != nil {
		return err
	}
	if err := c.DlMcs.check("dl_mcs"); err != nil {
		return err
	}
	return nil
}

func (m MCS) check(name string) error {
	switch m.ModOrderBits {
	case 2, 4, 6, 8:
	default:
		return errors.New(name + ": mod_order_bits must be 2, 4, 6 or 8")
	}
	if m.CodeRate <= 0 || m.CodeRate > 1 {
		return errors.New(name + ": code_rate must be in (0, 1]")
	}
	return nil
}

// ─────────────────────────── Derived task sizing ───────────────────────────

//go:inline
func ceilDiv(a, b int) int { return (a + b - 1) / b }

// DemulEventsPerSymbol is the number of demul/precode task events per data
// symbol (subcarriers partitioned into demul_block_size chunks).
func (c *Config) DemulEventsPerSymbol() int { return ceilDiv(c.OfdmDataNum, c.DemulBlockSize) }

// BeamEventsPerSymbol is the number of beam-weight task events per frame.
func (c *Config) BeamEventsPerSymbol() int { return ceilDiv(c.OfdmDataNum, c.BeamBlockSize) }

// BlocksInSymbol is the code-block count per spatial stream per symbol for
// one direction.
func (c *Config) BlocksInSymbol(dl bool) int {
	m := c.UlMcs
	if dl {
		m = c.DlMcs
	}
	infoBits := float64(c.OfdmDataNum*m.ModOrderBits) * m.CodeRate
	blocks := ceilDiv(int(infoBits)/8, constants.CodeBlockBytes)
	if blocks < 1 {
		blocks = 1
	}
	return blocks
}

// CodeBlockTasks is the total encode/decode task count per symbol:
// spatial streams × blocks per stream.
func (c *Config) CodeBlockTasks(dl bool) int { return c.UeAntNum * c.BlocksInSymbol(dl) }

// MacBytesPerFrame is the per-UE payload exchanged with MAC per frame for
// one direction.
func (c *Config) MacBytesPerFrame(dl bool) int {
	syms := c.Frame.NumULSyms()
	if dl {
		syms = c.Frame.NumDLSyms()
	}
	return syms * c.BlocksInSymbol(dl) * constants.CodeBlockBytes
}

// RxPacketsPerFrame is the RX packet count the admission counters expect:
// pilots and uplink data over all base-station antennas, plus calibration
// symbols.
func (c *Config) RxPacketsPerFrame() int {
	return c.BsAntNum * (c.Frame.NumPilotSyms() + c.Frame.NumULSyms() + c.Frame.NumCalSyms())
}

// PilotPacketsPerFrame is the pilot share of RxPacketsPerFrame.
func (c *Config) PilotPacketsPerFrame() int { return c.BsAntNum * c.Frame.NumPilotSyms() }

// CalPacketsPerFrame is the calibration share of RxPacketsPerFrame.
func (c *Config) CalPacketsPerFrame() int { return c.BsAntNum * c.Frame.NumCalSyms() }
