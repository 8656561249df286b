package engine

// ArgIndex identifies a syscall argument register, 1-based to match the
// conventional arg1..arg6 naming used throughout spec.md.
type ArgIndex int

// MemoryParam is one registered in/out buffer for an in-flight syscall.
// See spec.md §3.
type MemoryParam struct {
	Dest    TraceeAddr
	Scratch TraceeAddr
	Size    ParamSize
	Mode    ArgMode

	// Exactly one of PtrInReg/PtrInMemory is set when scratch is usable
	// (Mode != InOutNoScratch); neither is set when scratch is bypassed.
	PtrInReg    *ArgIndex
	PtrInMemory *TraceeAddr

	// WriteBackIfResultNonzero, when set, suppresses the normal
	// writesAtExit() write-back/record unless the syscall returned a
	// nonzero result (spec.md §4.5's nanosleep rem: the kernel only
	// touches rem when interrupted, i.e. when it returns -EINTR, so
	// writing it back on a zero (full-sleep) result would record
	// whatever garbage was left in scratch).
	WriteBackIfResultNonzero bool

	// recordPageBelowStackPtr, when set on the owning SyscallState (not
	// per-param), causes the finalizer to additionally record the page
	// below SP; tracked on SyscallState directly, see state.go.
}

// contains reports whether addr lies within this parameter's original
// (tracee-side) buffer, used by the pointer-relocation rule in
// done_preparing (spec.md §4.3).
func (p *MemoryParam) contains(addr TraceeAddr) bool {
	return addr >= p.Dest && uint64(addr) < uint64(p.Dest)+p.Size.MaxSize
}
