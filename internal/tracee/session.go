package tracee

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/stealthrocket/synctrace/internal/abi"
	"github.com/stealthrocket/synctrace/internal/engine"
)

// Session drives one traced process tree end to end: it owns the
// per-thread Thread table, the shared engine.StateTable, and the ptrace
// wait loop. It is the "scheduler" + "VM bookkeeping" external
// collaborator spec.md §1's Non-goals name — the engine package itself
// never loops over tids or calls Wait4.
type Session struct {
	arch    abi.Arch
	trace   engine.TraceWriter
	table   *engine.StateTable
	options engine.Options

	threads map[int]*Thread

	// enteringSyscall tracks, per tid, whether the next syscall-stop is
	// an entry or an exit: PTRACE_SYSCALL stops alternate between the
	// two and there is no flag in the wait status distinguishing them.
	enteringSyscall map[int]bool
}

// NewSession creates a Session around an already-ptrace-stopped leader
// thread (as returned by Launch) and installs its scratch region with a
// forged mmap, sized per options (spec.md §6, SPEC_FULL.md §2's Config
// section: options.ScratchPages is the CLI's --scratch-pages flag /
// SYNCTRACE_SCRATCH_PAGES override).
func NewSession(leaderPid int, arch abi.Arch, trace engine.TraceWriter, options engine.Options) (*Session, error) {
	s := &Session{
		arch:            arch,
		trace:           trace,
		table:           engine.NewStateTable(),
		options:         options,
		threads:         map[int]*Thread{},
		enteringSyscall: map[int]bool{},
	}
	leader := NewThread(leaderPid, arch, trace, 0, 0)
	if err := leader.installScratch(options.ScratchPages); err != nil {
		return nil, err
	}
	s.threads[leaderPid] = leader
	s.enteringSyscall[leaderPid] = true
	trace.RecordTaskCreated(leaderPid, 0)
	return s, nil
}

// Run drives the wait loop until every traced thread has exited. Each
// syscall-stop dispatches to engine.EnterSyscall/ExitSyscall; clone,
// execve, and mmap get their family-specific Finish* hooks in addition,
// since those mutate the task table itself (spec.md §4.8, §4.9, §4.10).
func (s *Session) Run() error {
	for len(s.threads) > 0 {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, 0, nil)
		if err != nil {
			if err == unix.ECHILD {
				return nil
			}
			return err
		}

		switch {
		case ws.Exited(), ws.Signaled():
			delete(s.threads, pid)
			delete(s.enteringSyscall, pid)
			continue

		case ws.Stopped() && ws.StopSignal() == syscall.SIGTRAP|0x80:
			s.handleSyscallStop(pid)

		case ws.Stopped() && isCloneEvent(ws):
			s.handleCloneEvent(pid)

		case ws.Stopped():
			// Non-syscall stop (a genuine signal headed for the tracee):
			// forward it unmodified and keep going.
			sig := ws.StopSignal()
			if t, ok := s.threads[pid]; ok {
				_ = t.Cont(sig)
				continue
			}
		}

		if t, ok := s.threads[pid]; ok {
			if err := t.Cont(0); err != nil {
				delete(s.threads, pid)
			}
		}
	}
	return nil
}

func isCloneEvent(ws unix.WaitStatus) bool {
	return ws.TrapCause() == unix.PTRACE_EVENT_CLONE || ws.TrapCause() == unix.PTRACE_EVENT_FORK || ws.TrapCause() == unix.PTRACE_EVENT_VFORK
}

func (s *Session) handleSyscallStop(pid int) {
	t, ok := s.threads[pid]
	if !ok {
		return
	}

	if s.enteringSyscall[pid] {
		s.enteringSyscall[pid] = false
		sw, err := engine.EnterSyscall(t, s.table)
		if err != nil {
			log.WithError(err).WithField("tid", pid).Error("aborting session: fatal error in EnterSyscall")
			delete(s.threads, pid)
			return
		}
		_ = sw // a fuller scheduler would use this to decide who to run next
	} else {
		s.enteringSyscall[pid] = true
		regs := t.Regs()
		name := t.SyscallName(int(regs.SyscallNo))

		if err := engine.ExitSyscall(t, s.table, engine.DoWriteBack); err != nil {
			log.WithError(err).WithField("tid", pid).Error("aborting session: fatal error in ExitSyscall")
			delete(s.threads, pid)
			return
		}

		switch name {
		case "execve":
			engine.FinishExecve(t, s.table, regs.Result >= 0)
			if regs.Result >= 0 {
				if err := t.installScratch(s.options.ScratchPages); err != nil {
					log.WithError(err).WithField("tid", pid).Warn("post-execve scratch re-install failed")
				}
			}
		case "mmap":
			engine.FinishMmap(t, s.table, engine.TraceeAddr(regs.Result), regs.Result >= 0 && regs.Result > -4096)
		}
	}
}

func (s *Session) handleCloneEvent(pid int) {
	t, ok := s.threads[pid]
	if !ok {
		return
	}
	childPid, err := unix.PtraceGetEventMsg(pid)
	if err != nil {
		log.WithError(err).WithField("tid", pid).Error("PTRACE_GETEVENTMSG after clone stop failed")
		return
	}
	info := engine.FinishClone(t, s.table, int(childPid))
	child := NewThread(int(childPid), s.arch, s.trace, t.ScratchBase(), t.ScratchCap())
	s.threads[int(childPid)] = child
	s.enteringSyscall[int(childPid)] = true
	_ = info
}
