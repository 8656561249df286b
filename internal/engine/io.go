package engine

import "os"

// prepareReadFamily handles read/pread64: a single buffer sized by the
// syscall's own return value, capped at the requested count. Always
// switchable (spec.md §4.5).
func prepareReadFamily(t Task, s *SyscallState, regs Registers) Switchable {
	count := regs.Arg1Based(3)
	s.RegParameter(regs, 2, FromSyscallResult(8, count), Out)
	return AllowSwitch
}

// prepareReadvFamily handles readv/preadv: the iovec array is read (IN,
// so we can discover each element's base/len), then each element's buffer
// is registered as an OUT param same-sourced on the syscall result so the
// finalizer distributes the total bytes read across them in order
// (spec.md §4.1, §4.5).
func prepareReadvFamily(t Task, s *SyscallState, regs Registers) Switchable {
	iovBase := TraceeAddr(regs.Arg1Based(2))
	iovcnt := int(regs.Arg1Based(3))
	if iovBase == 0 || iovcnt <= 0 {
		return AllowSwitch
	}
	layout := t.Descriptor().Layouts()
	wordSize := t.Descriptor().WordSize()

	for i := 0; i < iovcnt; i++ {
		elemAddr := TraceeAddr(uint64(iovBase) + uint64(i*layout.Iovec))
		base, err := t.ReadWord(elemAddr, wordSize)
		if err != nil {
			break
		}
		length, err := t.ReadWord(TraceeAddr(uint64(elemAddr)+uint64(wordSize)), wordSize)
		if err != nil {
			break
		}
		if base == 0 {
			continue
		}
		p := &MemoryParam{
			Dest: TraceeAddr(base),
			Size: FromSyscallResult(8, length),
			Mode: Out,
		}
		p.Scratch = s.allocScratch(length)
		// The pointer lives inside the iovec array itself, not inside
		// another registered parameter's buffer: relocate it directly
		// rather than through PtrInMemory's "owning buffer" lookup.
		if err := t.WriteWord(elemAddr, wordSize, uint64(p.Scratch)); err == nil {
			if err := t.RemoteMemcpy(p.Scratch, p.Dest, int(length)); err != nil {
				log.WithError(err).Warn("readv: scratch copy-in failed")
			}
		}
		s.Params = append(s.Params, p)
	}
	return AllowSwitch
}

// prepareWriteFamily handles write/writev: no registered params (the
// kernel only reads), switchable unless the fd refers to the same open
// file as the tracer's own stdout/stderr, decided by isStdioFD's
// file-identity comparison (spec.md §4.7; see DESIGN.md's Open Question 2
// decision record).
func prepareWriteFamily(t Task, s *SyscallState, regs Registers) Switchable {
	fd := int(regs.Arg1Based(1))
	if isStdioFD(os.Getpid(), t.Tid(), fd) {
		return PreventSwitch
	}
	return AllowSwitch
}

// prepareGetxattrFamily handles getxattr/lgetxattr/fgetxattr: the value
// buffer is sized by the syscall's own return value, capped at the
// caller-supplied size argument. Grounded on original_source's shared
// handling of the three (SPEC_FULL.md §10); not switchable.
func prepareGetxattrFamily(t Task, s *SyscallState, regs Registers) Switchable {
	size := regs.Arg1Based(4)
	s.RegParameter(regs, 3, FromSyscallResult(8, size), Out)
	return PreventSwitch
}

// prepareEpollWait handles epoll_wait: events sized sizeof(epoll_event) *
// maxevents, bounded by the actual return value, switchable
// (SPEC_FULL.md §10).
func prepareEpollWait(t Task, s *SyscallState, regs Registers) Switchable {
	maxEvents := regs.Arg1Based(3)
	layout := t.Descriptor().Layouts()
	max := maxEvents * uint64(layout.EpollEvent)
	s.RegParameter(regs, 2, FromSyscallResult(8, max), Out)
	return AllowSwitch
}
