// affinity.go — thread-role core assignment.
//
// Core layout, from core_offset: master, then the streamer threads, then
// the workers, then MAC. No thread migrates after PinThread returns.

package affinity

import (
	"runtime"

	"main/debug"
	"main/utils"
)

// Role names a pinned thread's job for core assignment and logging.
type Role uint8

const (
	RoleMaster Role = iota
	RoleStreamer
	RoleWorker
	RoleMac
)

var roleNames = [...]string{"master", "streamer", "worker", "mac"}

// PinThread locks the calling goroutine to an OS thread and binds it to
// the role's core. The caller must keep running on this goroutine; the
// thread stays locked for its lifetime.
func PinThread(role Role, coreOffset, socketThreads, workerThreads, id int) {
	runtime.LockOSThread()
	var core int
	switch role {
	case RoleMaster:
		core = coreOffset
	case RoleStreamer:
		core = coreOffset + 1 + id
	case RoleWorker:
		core = coreOffset + 1 + socketThreads + id
	case RoleMac:
		core = coreOffset + 1 + socketThreads + workerThreads
	}
	setAffinity(core)
	debug.DropMessage("PIN", roleNames[role]+" "+utils.Itoa(id)+" on core "+utils.Itoa(core))
}
