package config

import "testing"

// TestParseFrameSchedule checks classification and per-direction indexing
// for a schedule exercising every symbol character.
func TestParseFrameSchedule(t *testing.T) {
	f, err := ParseFrameSchedule("PGUULDDC")
	if err != nil {
		t.Fatal(err)
	}
	if f.NumTotalSyms() != 8 || f.NumPilotSyms() != 1 || f.NumULSyms() != 2 ||
		f.NumDLSyms() != 2 || f.NumDlControlSyms() != 1 || f.NumCalSyms() != 1 {
		t.Fatalf("counts wrong: %+v", f)
	}
	if f.GetULSymbol(0) != 2 || f.GetULSymbol(1) != 3 {
		t.Fatal("uplink symbol ids wrong")
	}
	if f.GetDLSymbolIdx(5) != 0 || f.GetDLSymbolIdx(6) != 1 || f.GetDLSymbolIdx(2) != -1 {
		t.Fatal("downlink index table wrong")
	}
	if !f.IsPilot(0) || !f.IsCalUL(4) || f.Type(1) != SymbolGuard {
		t.Fatal("classification wrong")
	}
}

// TestParseFrameScheduleRejects covers the malformed inputs.
func TestParseFrameScheduleRejects(t *testing.T) {
	for _, s := range []string{"", "PUX"} {
		if _, err := ParseFrameSchedule(s); err == nil {
			t.Fatalf("schedule %q should be rejected", s)
		}
	}
}

// TestParseDocument decodes a complete JSON document and checks a few
// derived values.
func TestParseDocument(t *testing.T) {
	doc := []byte(`{
		"bs_ant_num": 4, "ue_ant_num": 4, "bs_radio_num": 4, "ue_radio_num": 4,
		"fft_size": 64, "ofdm_data_num": 48, "cp_size": 16, "sample_rate": 5e6,
		"frame_schedule": "PUU",
		"ul_mcs": {"mod_order_bits": 4, "code_rate": 0.5},
		"dl_mcs": {"mod_order_bits": 4, "code_rate": 0.5},
		"worker_thread_num": 1, "socket_thread_num": 1, "core_offset": 0,
		"beam_block_size": 16, "demul_block_size": 16,
		"fft_block_size": 2, "encode_block_size": 2,
		"frames_to_test": 3
	}`)
	cfg, err := Parse(doc)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SampsPerSymbol != 80 {
		t.Fatalf("SampsPerSymbol = %d", cfg.SampsPerSymbol)
	}
	if cfg.RxPacketsPerFrame() != 4*3 {
		t.Fatalf("RxPacketsPerFrame = %d", cfg.RxPacketsPerFrame())
	}
	if cfg.DemulEventsPerSymbol() != 3 {
		t.Fatalf("DemulEventsPerSymbol = %d", cfg.DemulEventsPerSymbol())
	}
	if cfg.BlocksInSymbol(false) != 1 {
		t.Fatalf("BlocksInSymbol = %d", cfg.BlocksInSymbol(false))
	}
}

// TestValidateRejects drives the validation switch through its arms.
func TestValidateRejects(t *testing.T) {
	mutations := []func(*Config){
		func(c *Config) { c.BsAntNum = 0 },
		func(c *Config) { c.UeAntNum = c.BsAntNum + 1 },
		func(c *Config) { c.OfdmDataNum = c.FftSize + 1 },
		func(c *Config) { c.WorkerThreadNum = 0 },
		func(c *Config) { c.SingleThread = true; c.WorkerThreadNum = 2 },
		func(c *Config) { c.FramesToTest = 0 },
		func(c *Config) { c.FftBlockSize = 100 },
		func(c *Config) { c.EncodeBlockSize = 0 },
		func(c *Config) { c.UlMcs.ModOrderBits = 3 },
		func(c *Config) { c.DlMcs.CodeRate = 1.5 },
	}
	for i, mut := range mutations {
		cfg := Default()
		mut(cfg)
		if err := cfg.Finalize(); err == nil {
			t.Fatalf("mutation %d should fail validation", i)
		}
	}
}
