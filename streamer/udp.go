// udp.go — datagram transceiver speaking the wire format.
//
// One bound socket; every configured socket thread reads from it and
// publishes PacketRX events on its own lane. Thread 0 additionally drains
// the TX queue and sends the DL socket packets to the transmit address.
// Malformed or out-of-schedule datagrams are dropped with a counter, not
// an error: the air interface is allowed to be noisy.

package streamer

import (
	"net"
	"sync"
	"sync/atomic"

	"main/affinity"
	"main/buffer"
	"main/config"
	"main/control"
	"main/debug"
	"main/fabric"
	"main/message"
	"main/utils"
)

// UDP is the socket-backed TxRx.
type UDP struct {
	cfg  *config.Config
	pool *buffer.Pool
	fab  *fabric.Fabric

	conn    *net.UDPConn
	txAddr  *net.UDPAddr
	dropped atomic.Uint64
	stopped atomic.Bool
	wg      sync.WaitGroup
}

func NewUDP(cfg *config.Config, pool *buffer.Pool, fab *fabric.Fabric) *UDP {
	return &UDP{cfg: cfg, pool: pool, fab: fab}
}

// StartTxRx binds the RX socket and resolves the TX peer. False on any
// failure; the core treats that as a radio startup error.
func (u *UDP) StartTxRx() bool {
	rxAddr, err := net.ResolveUDPAddr("udp", u.cfg.RxAddr)
	if err != nil {
		debug.DropError("UDP: resolve rx_addr", err)
		return false
	}
	u.conn, err = net.ListenUDP("udp", rxAddr)
	if err != nil {
		debug.DropError("UDP: bind", err)
		return false
	}
	if u.cfg.TxAddr != "" {
		u.txAddr, err = net.ResolveUDPAddr("udp", u.cfg.TxAddr)
		if err != nil {
			debug.DropError("UDP: resolve tx_addr", err)
			_ = u.conn.Close()
			return false
		}
	}

	for tid := 0; tid < u.cfg.SocketThreadNum; tid++ {
		u.wg.Add(1)
		go func(tid int) {
			defer u.wg.Done()
			affinity.PinThread(affinity.RoleStreamer, u.cfg.CoreOffset,
				u.cfg.SocketThreadNum, u.cfg.WorkerThreadNum, tid)
			u.runThread(tid)
		}(tid)
	}
	return true
}

func (u *UDP) Stop() {
	if u.stopped.CompareAndSwap(false, true) && u.conn != nil {
		_ = u.conn.Close() // unblocks readers
	}
}

func (u *UDP) Join() { u.wg.Wait() }

// Dropped reports datagrams rejected at the boundary.
func (u *UDP) Dropped() uint64 { return u.dropped.Load() }

func (u *UDP) runThread(tid int) {
	buf := make([]byte, u.cfg.PacketBytes)
	for control.Running() && !u.stopped.Load() {
		if tid == 0 {
			u.drainTx()
		}
		n, _, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			if u.stopped.Load() || !control.Running() {
				return
			}
			debug.DropError("UDP: read", err)
			continue
		}
		u.ingest(tid, buf[:n])
	}
}

func (u *UDP) ingest(tid int, datagram []byte) {
	if len(datagram) != u.cfg.PacketBytes {
		u.drop("short datagram")
		return
	}
	pkt := message.PacketView(datagram)
	frame, symbol, ant := pkt.FrameID(), pkt.SymbolID(), pkt.AntID()
	if int(symbol) >= u.cfg.Frame.NumTotalSyms() || int(ant) >= u.cfg.BsAntNum {
		u.drop("header out of range")
		return
	}
	switch u.cfg.Frame.Type(symbol) {
	case config.SymbolPilot, config.SymbolUL, config.SymbolCalUL:
	default:
		u.drop("symbol not receivable")
		return
	}

	iq := u.pool.RxIQ(frame, symbol, ant)
	for i := 0; i < u.cfg.SampsPerSymbol; i++ {
		iq[2*i], iq[2*i+1] = message.IQSample(datagram, i)
	}
	ev := message.NewEvent(message.KindPacketRX, message.TagFrmSymAnt(frame, symbol, ant))
	u.fab.EnqueueRx(tid, &ev)
	control.SignalActivity()
}

func (u *UDP) drainTx() {
	if u.txAddr == nil {
		return
	}
	var ev message.Event
	for u.fab.DequeueTx(&ev) {
		tag := ev.Tags[0]
		pkt := u.pool.DlSocket(tag.Frame(), tag.Symbol(), tag.Ant())
		if _, err := u.conn.WriteToUDP(pkt, u.txAddr); err != nil {
			debug.DropError("UDP: send", err)
		}
		done := message.NewEvent(message.KindPacketTX, tag)
		u.fab.EnqueueRx(0, &done)
	}
}

func (u *UDP) drop(why string) {
	n := u.dropped.Add(1)
	if n <= 4 || n&1023 == 0 {
		debug.DropMessage("UDP", "dropped datagram ("+why+"), total "+utils.Utoa(n))
	}
}
