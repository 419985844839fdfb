//go:build linux

// affinity_linux.go — CPU pinning via sched_setaffinity.
//
// Each pinned loop locks its goroutine to an OS thread and binds that
// thread to one core from the contiguous range starting at core_offset.
// Errors are logged, not fatal: an over-subscribed dev box still runs,
// just without the isolation.

package affinity

import (
	"golang.org/x/sys/unix"

	"main/debug"
	"main/utils"
)

func setAffinity(core int) {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		debug.DropError("AFFINITY: core "+utils.Itoa(core), err)
	}
}
