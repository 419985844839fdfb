// control.go — Global run/stop flags and shutdown coordination.
//
// Lightweight signaling shared by the master loop, pinned workers and
// streamer threads. One atomic `running` flag is re-read per loop
// iteration; a fatal code distinguishes clean completion from a pipeline
// stall. Only the startup/shutdown paths touch anything heavier than an
// atomic load.

package control

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"main/debug"
)

// Exit codes surfaced by main. Zero is normal completion after
// frames_to_test.
const (
	ExitOK          = 0
	ExitFatalStall  = 1
	ExitConfigError = 2
	ExitRadioError  = 3
)

var (
	running  atomic.Bool
	exitCode atomic.Int32
	hot      atomic.Bool // streamer activity hint for worker spin loops
)

// Reset re-arms the flags. Called once at startup (and by tests).
func Reset() {
	running.Store(true)
	exitCode.Store(ExitOK)
	hot.Store(false)
}

// Running reports whether the pipeline should keep going. Every loop —
// master, worker, streamer, MAC — re-reads this per iteration.
//
//go:inline
func Running() bool { return running.Load() }

// Shutdown initiates a clean stop. Idempotent.
func Shutdown() { running.Store(false) }

// Fatal records a nonzero exit code and stops the pipeline. The first
// recorded code wins.
func Fatal(code int, reason string) {
	if running.CompareAndSwap(true, false) {
		exitCode.Store(int32(code))
		debug.DropMessage("FATAL", reason)
	}
}

// ExitCode returns the code main should exit with.
func ExitCode() int { return int(exitCode.Load()) }

// SignalActivity marks the ingress as hot; workers may use it to stay in
// tight spin during bursts.
//
//go:inline
func SignalActivity() { hot.Store(true) }

// Idle clears the activity hint.
func Idle() { hot.Store(false) }

// Hot reports the activity hint.
//
//go:inline
func Hot() bool { return hot.Load() }

// InstallSignalHandler bridges SIGINT/SIGTERM to Shutdown. The handler
// goroutine exits after the first signal; a second signal kills the
// process the usual way.
func InstallSignalHandler() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ch
		debug.DropMessage("SIGNAL", "exit requested")
		Shutdown()
		signal.Stop(ch)
	}()
}
