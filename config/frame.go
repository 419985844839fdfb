// frame.go — the fixed per-frame symbol schedule.
//
// The schedule is one character per symbol: P pilot, U uplink data,
// D downlink data, C downlink control, L calibration uplink, G guard.
// It is parsed once at configuration time; every accessor afterwards is a
// slice lookup.

package config

import "errors"

// SymbolType classifies one OFDM symbol slot.
type SymbolType uint8

const (
	SymbolGuard SymbolType = iota
	SymbolPilot
	SymbolUL
	SymbolDL
	SymbolDLControl
	SymbolCalUL
)

// FrameSchedule is the parsed schedule plus per-direction index tables.
type FrameSchedule struct {
	sched string
	types []SymbolType

	pilots []uint32
	uls    []uint32
	dls    []uint32
	dlCtrl []uint32
	cals   []uint32

	// symbol id → index within its direction, -1 elsewhere
	ulIdx    []int
	dlIdx    []int
	pilotIdx []int
}

var errEmptySchedule = errors.New("frame_schedule must not be empty")

// ParseFrameSchedule validates and indexes a schedule string.
func ParseFrameSchedule(s string) (FrameSchedule, error) {
	if len(s) == 0 {
		return FrameSchedule{}, errEmptySchedule
	}
	if len(s) > 1<<12 {
		return FrameSchedule{}, errors.New("frame_schedule longer than the symbol id space")
	}
	f := FrameSchedule{
		sched:    s,
		types:    make([]SymbolType, len(s)),
		ulIdx:    make([]int, len(s)),
		dlIdx:    make([]int, len(s)),
		pilotIdx: make([]int, len(s)),
	}
	for i := range f.ulIdx {
		f.ulIdx[i] = -1
		f.dlIdx[i] = -1
		f.pilotIdx[i] = -1
	}
	for i := 0; i < len(s); i++ {
		id := uint32(i)
		switch s[i] {
		case 'P':
			f.types[i] = SymbolPilot
			f.pilotIdx[i] = len(f.pilots)
			f.pilots = append(f.pilots, id)
		case 'U':
			f.types[i] = SymbolUL
			f.ulIdx[i] = len(f.uls)
			f.uls = append(f.uls, id)
		case 'D':
			f.types[i] = SymbolDL
			f.dlIdx[i] = len(f.dls)
			f.dls = append(f.dls, id)
		case 'C':
			f.types[i] = SymbolDLControl
			f.dlCtrl = append(f.dlCtrl, id)
		case 'L':
			f.types[i] = SymbolCalUL
			f.cals = append(f.cals, id)
		case 'G':
			f.types[i] = SymbolGuard
		default:
			return FrameSchedule{}, errors.New("frame_schedule: unknown symbol character " + string(s[i]))
		}
	}
	return f, nil
}

func (f *FrameSchedule) String() string { return f.sched }

func (f *FrameSchedule) NumTotalSyms() int     { return len(f.types) }
func (f *FrameSchedule) NumPilotSyms() int     { return len(f.pilots) }
func (f *FrameSchedule) NumULSyms() int        { return len(f.uls) }
func (f *FrameSchedule) NumDLSyms() int        { return len(f.dls) }
func (f *FrameSchedule) NumDlControlSyms() int { return len(f.dlCtrl) }
func (f *FrameSchedule) NumCalSyms() int       { return len(f.cals) }

// NumDataSyms sizes the fabric queues: everything that generates tasks.
func (f *FrameSchedule) NumDataSyms() int {
	n := len(f.uls) + len(f.dls) + len(f.dlCtrl)
	if n == 0 {
		n = 1
	}
	return n
}

func (f *FrameSchedule) GetPilotSymbol(i int) uint32     { return f.pilots[i] }
func (f *FrameSchedule) GetULSymbol(i int) uint32        { return f.uls[i] }
func (f *FrameSchedule) GetDLSymbol(i int) uint32        { return f.dls[i] }
func (f *FrameSchedule) GetDLControlSymbol(i int) uint32 { return f.dlCtrl[i] }
func (f *FrameSchedule) GetCalSymbol(i int) uint32       { return f.cals[i] }

// GetULSymbolIdx maps a symbol id back to its uplink ordinal, -1 if the
// symbol is not uplink. GetDLSymbolIdx is the downlink twin.
func (f *FrameSchedule) GetULSymbolIdx(symbol uint32) int { return f.ulIdx[symbol] }
func (f *FrameSchedule) GetDLSymbolIdx(symbol uint32) int { return f.dlIdx[symbol] }

// GetPilotSymbolIdx maps a pilot symbol id to its pilot ordinal (which is
// also the transmitting UE's index), -1 for non-pilot symbols.
func (f *FrameSchedule) GetPilotSymbolIdx(symbol uint32) int { return f.pilotIdx[symbol] }

// Type returns the classification of a symbol id.
func (f *FrameSchedule) Type(symbol uint32) SymbolType { return f.types[symbol] }

func (f *FrameSchedule) IsPilot(symbol uint32) bool { return f.types[symbol] == SymbolPilot }
func (f *FrameSchedule) IsUL(symbol uint32) bool    { return f.types[symbol] == SymbolUL }
func (f *FrameSchedule) IsCalUL(symbol uint32) bool { return f.types[symbol] == SymbolCalUL }
