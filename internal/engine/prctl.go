package engine

import "golang.org/x/sys/unix"

// prctl options this engine understands, from <linux/prctl.h>.
const (
	prGetPdeathsig  = 2
	prGetDumpable   = 3
	prGetKeepcaps   = 7
	prSetName       = 15
	prGetName       = 16
	prGetTimerslack = 30
	prGetSeccomp    = 21
	prSetSeccomp    = 22
)

// prGetInt is the set of PR_GET_* sub-commands this engine treats
// uniformly: each writes a single 4-byte int to the address in arg2.
var prGetInt = map[int]bool{
	prGetPdeathsig: true, prGetDumpable: true, prGetKeepcaps: true,
	prGetTimerslack: true, prGetSeccomp: true,
}

// preparePrctl dispatches prctl's first argument: the PR_GET_* family
// registers a 4-byte OUT int, PR_GET_NAME registers a 16-byte OUT buffer,
// PR_SET_NAME updates the task-local process-name mirror instead of
// registering a parameter, PR_SET_SECCOMP passes through untouched, any
// other sub-command is unsupported. None of these are switchable
// (SPEC_FULL.md §10, grounded on rr's Arch::prctl case).
func preparePrctl(t Task, s *SyscallState, regs Registers) Switchable {
	option := int(regs.Arg1Based(1))

	switch {
	case option == prSetName:
		if name, err := t.ReadCString(TraceeAddr(regs.Arg1Based(2))); err == nil {
			t.UpdatePrName(name)
		}
	case option == prGetName:
		s.RegParameter(regs, 2, Fixed(16), Out)
	case option == prSetSeccomp:
		// Passes through untouched.
	case prGetInt[option]:
		s.RegParameter(regs, 2, Fixed(4), Out)
	default:
		einval := int(unix.EINVAL)
		s.ExpectErrno = &einval
	}
	return PreventSwitch
}
