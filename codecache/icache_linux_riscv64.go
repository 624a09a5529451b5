//go:build linux && riscv64

package codecache

import "golang.org/x/sys/unix"

// flushICache makes stores to code visible to instruction fetch on every
// hart. RISC-V does not keep the instruction cache coherent with stores.
func flushICache(start, end uint64) error {
	// flags 0: all harts, not only the calling thread's
	if _, _, errno := unix.Syscall(unix.SYS_RISCV_FLUSH_ICACHE, uintptr(start), uintptr(end), 0); errno != 0 {
		return errno
	}
	return nil
}
