package engine

// prepareWait4 registers the status pointer and, if supplied, the
// rusage out-param; a blocking wait is exactly the scratch/switch
// scenario the engine exists for (SPEC_FULL.md §10).
func prepareWait4(t Task, s *SyscallState, regs Registers) Switchable {
	s.RegParameter(regs, 2, Fixed(4), Out)
	layout := t.Descriptor().Layouts()
	if regs.Arg1Based(4) != 0 {
		s.RegParameter(regs, 4, Fixed(uint64(layout.Rusage)), Out)
	}
	return AllowSwitch
}

// prepareWaitid registers the siginfo_t out-param (SPEC_FULL.md §10).
func prepareWaitid(t Task, s *SyscallState, regs Registers) Switchable {
	layout := t.Descriptor().Layouts()
	s.RegParameter(regs, 3, Fixed(uint64(layout.SiginfoT)), Out)
	return AllowSwitch
}

// prepareNanosleep registers rem IN_OUT, gated so the finalizer only
// writes it back (and records it) if the syscall actually returned
// non-zero, i.e. nanosleep was interrupted; on a clean zero return the
// kernel never touched rem (spec.md §4.5).
func prepareNanosleep(t Task, s *SyscallState, regs Registers) Switchable {
	remAddr := TraceeAddr(regs.Arg1Based(2))
	if remAddr != 0 {
		layout := t.Descriptor().Layouts()
		dest := s.RegParameter(regs, 2, Fixed(uint64(layout.Timespec)), InOut)
		if dest != 0 {
			s.Params[len(s.Params)-1].WriteBackIfResultNonzero = true
		}
	}
	return AllowSwitch
}
