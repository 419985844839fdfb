package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/buffer"
	"main/config"
	"main/control"
	"main/fabric"
	"main/stats"
	"main/streamer"
)

// TestEndToEndSimulated runs the whole pipeline the way the binary does:
// simulator streamer threads, the master loop, and the worker inline in
// single-thread mode. The run must complete its configured frame count
// and exit cleanly.
func TestEndToEndSimulated(t *testing.T) {
	control.Reset()

	cfg := config.Default()
	cfg.BsAntNum = 4
	cfg.BsRadioNum = 4
	cfg.UeAntNum = 2
	cfg.UeRadioNum = 2
	cfg.FrameScheduleStr = "PPUUDD"
	cfg.WorkerThreadNum = 1
	cfg.SocketThreadNum = 2
	cfg.SingleThread = true
	cfg.FramesToTest = 5
	require.NoError(t, cfg.Finalize())

	pool := buffer.New(cfg)
	pool.StageDlPattern()
	fab := fabric.New(cfg)
	st := stats.New()
	s := New(cfg, pool, fab, st, nil)

	sim := streamer.NewSim(cfg, pool, fab, s.Tracker())
	require.True(t, sim.StartTxRx())

	// Watchdog: a wedged pipeline must not hang the suite.
	timer := time.AfterFunc(30*time.Second, control.Shutdown)
	s.Run()
	timer.Stop()

	control.Shutdown()
	sim.Stop()
	sim.Join()
	s.Workers().Join()

	require.True(t, s.Finished(), "run should complete all frames")
	assert.Equal(t, uint32(5), s.Tracker().CurProc())
	assert.Len(t, st.Retained(), 5)
	// Every DL symbol of every frame transmits on every antenna.
	assert.Equal(t, uint64(5*2*4), sim.TxPackets())
	assert.Equal(t, control.ExitOK, control.ExitCode())
}

// TestEndToEndMultiWorker is the same pipeline with real worker threads.
func TestEndToEndMultiWorker(t *testing.T) {
	control.Reset()

	cfg := config.Default()
	cfg.BsAntNum = 4
	cfg.BsRadioNum = 4
	cfg.UeAntNum = 2
	cfg.UeRadioNum = 2
	cfg.FrameScheduleStr = "PPUU"
	cfg.WorkerThreadNum = 2
	cfg.SocketThreadNum = 1
	cfg.FramesToTest = 8
	require.NoError(t, cfg.Finalize())

	pool := buffer.New(cfg)
	fab := fabric.New(cfg)
	st := stats.New()
	s := New(cfg, pool, fab, st, nil)

	sim := streamer.NewSim(cfg, pool, fab, s.Tracker())
	require.True(t, sim.StartTxRx())

	timer := time.AfterFunc(30*time.Second, control.Shutdown)
	s.Run()
	timer.Stop()

	control.Shutdown()
	sim.Stop()
	sim.Join()
	s.Workers().Join()

	require.True(t, s.Finished())
	assert.Equal(t, uint32(8), s.Tracker().CurProc())
}
