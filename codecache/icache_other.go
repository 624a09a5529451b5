//go:build unix && !(linux && riscv64)

package codecache

// flushICache is a no-op on hosts whose instruction caches snoop stores.
// Executable regions on RISC-V hosts other than Linux are not supported.
func flushICache(start, end uint64) error { return nil }
