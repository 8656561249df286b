package engine

import (
	"strings"
	"sync"

	"golang.org/x/sys/unix"
)

// prepareRtSigpending registers the sigset OUT buffer sized by arg2, not
// switchable (SPEC_FULL.md §10).
func prepareRtSigpending(t Task, s *SyscallState, regs Registers) Switchable {
	size := regs.Arg1Based(2)
	s.RegParameter(regs, 1, Fixed(size), Out)
	return PreventSwitch
}

// prepareRtSigtimedwait registers a siginfo_t OUT struct, switchable
// (SPEC_FULL.md §10).
func prepareRtSigtimedwait(t Task, s *SyscallState, regs Registers) Switchable {
	layout := t.Descriptor().Layouts()
	s.RegParameter(regs, 2, Fixed(uint64(layout.SiginfoT)), Out)
	return AllowSwitch
}

// openPathBlacklist is a small, table-driven list of proc-pseudo-file
// prefixes whose open() is rewritten to fail at entry, rather than a
// single hardcoded path (SPEC_FULL.md §10, preserving spec.md §4.11's
// behavior in an extendable form).
var openPathBlacklist = []string{
	"/proc/sys/kernel/yama/",
	"/sys/devices/system/cpu/",
}

func isBlacklistedOpenPath(path string) bool {
	for _, prefix := range openPathBlacklist {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// prepareOpen rewrites the path argument to point at its own NUL
// terminator when the path is blacklisted, so the kernel's open() fails
// with ENOENT instead of actually running (spec.md §4.11).
func prepareOpen(t Task, s *SyscallState, regs Registers) Switchable {
	pathArg := ArgIndex(1)
	if t.SyscallName(int(regs.SyscallNo)) == "openat" {
		pathArg = 2
	}
	addr := TraceeAddr(regs.Arg1Based(int(pathArg)))
	path, err := t.ReadCString(addr)
	if err != nil {
		return PreventSwitch
	}
	if isBlacklistedOpenPath(path) {
		nulAddr := TraceeAddr(uint64(addr) + uint64(len(path)))
		newRegs := regs
		newRegs.SetArg1Based(int(pathArg), uint64(nulAddr))
		t.SetRegs(newRegs)
	}
	return PreventSwitch
}

// prepareSetpriority updates scheduler priority even on failure, so
// there is nothing to register here; the actual priority change is a
// side effect of the real syscall running, observed post-hoc by the
// scheduler collaborator, not this engine (spec.md §4.11).
func prepareSetpriority(t Task, s *SyscallState, regs Registers) Switchable {
	return PreventSwitch
}

// taskMirrors holds the small per-task bookkeeping mirrors: the
// set_robust_list head and length and the set_tid_address pointer. The
// results of rt_sigaction, rt_sigprocmask and set_thread_area are
// registered as output parameters by their preparers and are not
// mirrored here. These are
// recording-session metadata, not syscall parameters, so they live in
// their own side table rather than on SyscallState.
type taskMirrors struct {
	RobustListHead TraceeAddr
	RobustListLen  uint64
	TidAddress     TraceeAddr
}

var (
	mirrorsMu sync.Mutex
	mirrors   = map[int]*taskMirrors{}
)

func mirrorsFor(tid int) *taskMirrors {
	mirrorsMu.Lock()
	defer mirrorsMu.Unlock()
	m, ok := mirrors[tid]
	if !ok {
		m = &taskMirrors{}
		mirrors[tid] = m
	}
	return m
}

// DiscardMirrors drops a task's bookkeeping mirrors once it has exited.
func DiscardMirrors(tid int) {
	mirrorsMu.Lock()
	defer mirrorsMu.Unlock()
	delete(mirrors, tid)
}

func prepareSetRobustList(t Task, s *SyscallState, regs Registers) Switchable {
	m := mirrorsFor(t.Tid())
	m.RobustListHead = TraceeAddr(regs.Arg1Based(1))
	m.RobustListLen = regs.Arg1Based(2)
	return PreventSwitch
}

func prepareSetTidAddress(t Task, s *SyscallState, regs Registers) Switchable {
	mirrorsFor(t.Tid()).TidAddress = TraceeAddr(regs.Arg1Based(1))
	return PreventSwitch
}

// prepareSetThreadArea is x86-only (arm64 has no equivalent syscall); it
// registers the user_desc struct IN_OUT so updates the kernel makes to
// the free-entry-number field are recorded.
func prepareSetThreadArea(t Task, s *SyscallState, regs Registers) Switchable {
	const userDescSize = 16
	s.RegParameter(regs, 1, Fixed(userDescSize), InOut)
	return PreventSwitch
}

func prepareRtSigaction(t Task, s *SyscallState, regs Registers) Switchable {
	const sigactionSize = 32
	if regs.Arg1Based(3) != 0 {
		s.RegParameter(regs, 3, Fixed(sigactionSize), Out)
	}
	return PreventSwitch
}

func prepareRtSigprocmask(t Task, s *SyscallState, regs Registers) Switchable {
	layout := t.Descriptor().Layouts()
	if regs.Arg1Based(3) != 0 {
		s.RegParameter(regs, 3, Fixed(uint64(layout.Sigset)), Out)
	}
	return PreventSwitch
}

// prepareSchedSetaffinity neuters the call: at entry, replace arg1 (the
// target pid) with -1 so the kernel rejects it (EPERM/EINVAL depending on
// kernel version), then at exit restore the original registers and force
// a success return, so the tracee's CPU affinity is never actually
// changed during recording but observes the call as having succeeded
// (spec.md §4.11).
func prepareSchedSetaffinity(t Task, s *SyscallState, regs Registers) Switchable {
	saved := regs
	s.EntryRegisters = &saved
	s.RestoreRegistersOnExit = true
	newRegs := regs
	newRegs.SetArg1Based(1, ^uint64(0)) // -1
	t.SetRegs(newRegs)
	return PreventSwitch
}

// isStdioFD compares the kernel file-identity of the tracer's own
// stdout/stderr with fd in the tracee via kcmp; falls back to simple fd
// equality on ENOSYS, and treats EBADF (the tracee passed a bogus fd) as
// "not stdio". Used to force PREVENT_SWITCH on writes targeting the
// tracer's own stdio so replay echo stays ordered (spec.md §4.7); its
// caller is prepareWriteFamily (io.go).
func isStdioFD(tracerPid, traceePid, fd int) bool {
	const rrKcmpFile = 0
	check := func(tracerFd int) (bool, bool) {
		r, _, errno := unix.Syscall6(unix.SYS_KCMP, uintptr(tracerPid), uintptr(traceePid), rrKcmpFile, uintptr(tracerFd), uintptr(fd), 0)
		switch errno {
		case 0:
			return r == 0, true
		case unix.ENOSYS:
			return fd == tracerFd, true
		case unix.EBADF:
			return false, true
		default:
			return false, false
		}
	}
	const stdoutFd, stderrFd = 1, 2
	if match, ok := check(stdoutFd); ok && match {
		return true
	}
	if match, ok := check(stderrFd); ok {
		return match
	}
	return false
}
