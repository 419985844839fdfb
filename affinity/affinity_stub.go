//go:build !linux

// affinity_stub.go — no-op pinning for platforms without
// sched_setaffinity. Threads still lock to an OS thread; the kernel
// places them.

package affinity

func setAffinity(core int) {}
