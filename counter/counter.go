// counter.go — stage-closure tallies.
//
// FrameCounters is a (frame-slot × symbol) grid the master uses to detect
// when a stage finishes a symbol and when it finishes the frame. Single
// writer (the master thread), so there is no synchronization anywhere in
// this package; what it does enforce, with panics, is the event-flow
// discipline: no completions for a closed symbol, no completions for a
// retired frame.

package counter

import (
	"main/constants"
	"main/utils"
)

const noFrame = int64(-1)

// FrameCounters tracks one pipeline stage.
type FrameCounters struct {
	name string

	numSymbols  uint32
	taskLimit   uint32
	symbolLimit uint32

	taskCount   [constants.FrameWnd][]uint32
	symbolCount [constants.FrameWnd]uint32

	// retired holds the last frame id Reset saw for a slot; an event for
	// that frame afterwards is a pipeline bug.
	retired [constants.FrameWnd]int64
}

// Init sizes the grid. taskLimit is the completions that close one
// symbol; numSymbols is the symbols that close the frame.
func (c *FrameCounters) Init(name string, numSymbols, taskLimit int) {
	c.name = name
	c.numSymbols = uint32(numSymbols)
	c.taskLimit = uint32(taskLimit)
	c.symbolLimit = uint32(numSymbols)
	for slot := range c.taskCount {
		c.taskCount[slot] = make([]uint32, numSymbols)
		c.retired[slot] = noFrame
	}
}

// InitSingle sizes a one-symbol stage (beam weights, MAC hand-off).
func (c *FrameCounters) InitSingle(name string, taskLimit int) { c.Init(name, 1, taskLimit) }

// CompleteTask counts one completion for (frame, symbolIdx) and reports
// whether that closed the symbol. symbolIdx is the stage-local ordinal,
// not the frame-schedule symbol id.
func (c *FrameCounters) CompleteTask(frame uint32, symbolIdx int) bool {
	slot := frame % constants.FrameWnd
	if c.retired[slot] == int64(frame) {
		panic("counter " + c.name + ": event for retired frame " + utils.Utoa(uint64(frame)))
	}
	cnt := c.taskCount[slot][symbolIdx] + 1
	if cnt > c.taskLimit {
		panic("counter " + c.name + ": task completion past closed symbol " +
			utils.Itoa(symbolIdx) + " of frame " + utils.Utoa(uint64(frame)))
	}
	c.taskCount[slot][symbolIdx] = cnt
	return cnt == c.taskLimit
}

// CompleteSymbol counts one closed symbol for frame and reports whether
// that closed the whole frame. Call exactly once per CompleteTask that
// returned true.
func (c *FrameCounters) CompleteSymbol(frame uint32) bool {
	slot := frame % constants.FrameWnd
	cnt := c.symbolCount[slot] + 1
	if cnt > c.symbolLimit {
		panic("counter " + c.name + ": symbol completion past closed frame " + utils.Utoa(uint64(frame)))
	}
	c.symbolCount[slot] = cnt
	return cnt == c.symbolLimit
}

// IsLastSymbol reports whether the frame's terminal symbol count has been
// reached. Used by the retirement predicate; for an already-retired slot
// it reads false, because Reset zeroes the count.
func (c *FrameCounters) IsLastSymbol(frame uint32) bool {
	return c.symbolCount[frame%constants.FrameWnd] == c.symbolLimit
}

// TaskCount returns the open tally for (frame, symbolIdx).
func (c *FrameCounters) TaskCount(frame uint32, symbolIdx int) uint32 {
	return c.taskCount[frame%constants.FrameWnd][symbolIdx]
}

// SymbolCount returns the closed-symbol tally for frame.
func (c *FrameCounters) SymbolCount(frame uint32) uint32 {
	return c.symbolCount[frame%constants.FrameWnd]
}

// Reset clears the frame's column on the retirement path. Exactly once
// per frame; afterwards any completion for that frame panics.
func (c *FrameCounters) Reset(frame uint32) {
	slot := frame % constants.FrameWnd
	for i := range c.taskCount[slot] {
		c.taskCount[slot][i] = 0
	}
	c.symbolCount[slot] = 0
	c.retired[slot] = int64(frame)
}
