package engine

// fcntl commands relevant to scratch/switchability, from <asm-generic/fcntl.h>.
const (
	fGetlk  = 5
	fSetlk  = 6
	fSetlkw = 7
)

// prepareFcntl handles fcntl: GETLK registers a struct flock IN_OUT, not
// switchable (the kernel fills it synchronously); SETLKW registers
// nothing but is switchable (it may block waiting for the lock); every
// other command registers nothing and is not switchable, matching the
// reference's narrow fcntl allow-list (spec.md §4.5).
func prepareFcntl(t Task, s *SyscallState, regs Registers) Switchable {
	cmd := int(regs.Arg1Based(2))
	layout := t.Descriptor().Layouts()

	switch cmd {
	case fGetlk:
		s.RegParameter(regs, 3, Fixed(uint64(layout.Flock)), InOut)
		return PreventSwitch
	case fSetlk:
		return PreventSwitch
	case fSetlkw:
		return AllowSwitch
	default:
		return PreventSwitch
	}
}
