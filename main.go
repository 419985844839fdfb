// main.go — system orchestration.
//
// Phased bring-up: configuration → buffers and fabric → MAC and streamer
// threads → master event loop on the pinned core. Shutdown is always
// clean: stop flag, queues drained by the exiting loops, threads joined,
// stats flushed, dumps written. Exit code 0 after frames_to_test frames;
// nonzero on fatal stall, radio failure, or configuration error.

package main

import (
	"flag"
	"os"

	"main/affinity"
	"main/buffer"
	"main/config"
	"main/control"
	"main/debug"
	"main/fabric"
	"main/mac"
	"main/recorder"
	"main/sched"
	"main/stats"
	"main/streamer"
	"main/utils"
)

func main() {
	configPath := flag.String("config", "", "path to the JSON configuration (empty: built-in defaults)")
	flag.Parse()

	// PHASE 0: configuration.
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg = config.Default()
		err = cfg.Finalize()
	}
	if err != nil {
		debug.DropError("CONFIG", err)
		os.Exit(control.ExitConfigError)
	}
	debug.DropMessage("INIT", "frame schedule "+cfg.Frame.String()+
		", "+utils.Itoa(cfg.BsAntNum)+" bs antennas, "+
		utils.Itoa(cfg.UeAntNum)+" spatial streams, "+
		utils.Itoa(cfg.FramesToTest)+" frames")

	control.Reset()
	control.InstallSignalHandler()

	// PHASE 1: shared state.
	pool := buffer.New(cfg)
	fab := fabric.New(cfg)
	st := stats.New()

	var macThread *mac.Thread
	var macQ *mac.Queues
	if cfg.EnableMac {
		macThread = mac.New(cfg, pool)
		macQ = macThread.Q()
	} else if cfg.Frame.NumDLSyms() > 0 {
		pool.StageDlPattern()
	}

	s := sched.New(cfg, pool, fab, st, macQ)

	var txrx streamer.TxRx
	if cfg.RxAddr != "" {
		txrx = streamer.NewUDP(cfg, pool, fab)
	} else {
		txrx = streamer.NewSim(cfg, pool, fab, s.Tracker())
	}

	// PHASE 2: thread bring-up.
	if macThread != nil {
		macThread.Start()
	}
	if !txrx.StartTxRx() {
		control.Fatal(control.ExitRadioError, "radio start failed")
		if macThread != nil {
			macThread.Join()
		}
		os.Exit(control.ExitCode())
	}
	debug.DropMessage("READY", "pipeline running")

	// PHASE 3: master loop on its pinned core.
	affinity.PinThread(affinity.RoleMaster, cfg.CoreOffset,
		cfg.SocketThreadNum, cfg.WorkerThreadNum, 0)
	s.Run()

	// PHASE 4: shutdown.
	control.Shutdown()
	txrx.Stop()
	txrx.Join()
	s.Workers().Join()
	if macThread != nil {
		macThread.Join()
	}

	st.PrintSummary()
	if cfg.StatsDB != "" {
		if _, err := st.SaveToDB(cfg.StatsDB); err != nil {
			debug.DropError("STATS", err)
		}
	}
	if cfg.RecordsDir != "" && s.Finished() {
		if err := recorder.SaveDecodeData(cfg, pool, st.LastFrame()); err != nil {
			debug.DropError("RECORD", err)
		}
		if err := recorder.SaveTxData(cfg, pool, st.LastFrame()); err != nil {
			debug.DropError("RECORD", err)
		}
	}
	if n := s.Guard().Suspected(); n > 0 {
		debug.DropMessage("RX", utils.Utoa(n)+" suspected duplicate packets")
	}
	if n := fab.Fallbacks(); n > 0 {
		debug.DropMessage("QUEUE", utils.Utoa(n)+" fallback enqueues")
	}

	os.Exit(control.ExitCode())
}
