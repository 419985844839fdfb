// streamer.go — the boundary between radio I/O and the core.
//
// A TxRx arms the hardware (or its stand-in), runs pinned I/O threads
// that push PacketRX events onto their own producer lanes, and drains the
// TX queue, pushing PacketTX completions back the same way. RX packets
// for one (frame, symbol) may arrive on any thread in any order across
// antennas; the per-thread lane is the producer token that keeps the
// hand-off contention-free.

package streamer

// TxRx is the boundary contract the core drives.
type TxRx interface {
	// StartTxRx arms I/O and starts the internal threads. False means the
	// radio could not start; the core terminates cleanly.
	StartTxRx() bool
	// Stop asks the threads to wind down (idempotent).
	Stop()
	// Join blocks until every I/O thread exited.
	Join()
}
