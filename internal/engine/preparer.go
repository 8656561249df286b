package engine

import (
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("pkg", "engine")

// prepareFunc is a per-syscall-family preparer: given the task and its
// freshly-created SyscallState, register parameters and return a
// switchability hint. Implementations live in io.go, socketcall.go,
// futex.go, fcntl.go, ioctl.go, ipc.go, quotactl.go, prctl.go, wait.go,
// execve.go, clone.go, mmap.go, sideeffects.go.
type prepareFunc func(t Task, s *SyscallState, regs Registers) Switchable

// dispatch is the per-syscall schema table of spec.md §4.5, keyed by
// syscall name so it is arch-independent (numbers differ per abi.Arch,
// names don't).
var dispatch = map[string]prepareFunc{
	"read": prepareReadFamily, "pread64": prepareReadFamily,
	"readv": prepareReadvFamily, "preadv": prepareReadvFamily,
	"write": prepareWriteFamily, "writev": prepareWriteFamily,
	"getxattr": prepareGetxattrFamily, "lgetxattr": prepareGetxattrFamily,
	"fgetxattr": prepareGetxattrFamily,
	"epoll_wait": prepareEpollWait,

	"recvfrom": prepareRecvfrom, "recvmsg": prepareRecvmsg,
	"recvmmsg": prepareRecvmmsg, "sendmmsg": prepareSendmmsg,
	"accept": prepareAccept, "accept4": prepareAccept,
	"select": prepareSelect, "_newselect": prepareSelect,
	"pselect6": prepareSelect,
	"poll": preparePoll, "ppoll": preparePoll,

	"futex": prepareFutex,

	"fcntl": prepareFcntl,

	"ioctl": prepareIoctl,

	"msgctl": prepareMsgctl, "msgrcv": prepareMsgrcv, "msgsnd": prepareMsgsnd,

	"quotactl": prepareQuotactl,

	"prctl": preparePrctl,

	"wait4": prepareWait4, "waitid": prepareWaitid, "waitpid": prepareWait4,

	"rt_sigpending": prepareRtSigpending, "rt_sigtimedwait": prepareRtSigtimedwait,

	"nanosleep": prepareNanosleep,

	"execve": prepareExecve,

	"clone": prepareClone,

	"mmap": prepareMmap,

	"open": prepareOpen, "openat": prepareOpen,

	"setpriority": prepareSetpriority,
	"set_robust_list": prepareSetRobustList,
	"set_thread_area": prepareSetThreadArea,
	"set_tid_address": prepareSetTidAddress,
	"rt_sigaction": prepareRtSigaction, "rt_sigprocmask": prepareRtSigprocmask,
	"sched_setaffinity": prepareSchedSetaffinity,
}

// Prepare is the engine's syscall-enter entry point: look up (or create)
// the in-flight state for t, dispatch to the per-syscall preparer, then
// call done_preparing on its behalf. Calling Prepare twice for the same
// in-flight syscall (a restart) is idempotent: once PreparationDone is
// set, the per-syscall preparer is not run again and the cached decision
// is returned (spec.md §3, §4.3).
func Prepare(t Task, table *StateTable) Switchable {
	regs := t.Regs()
	s, ok := table.Lookup(t.Tid())
	if !ok {
		s = table.Enter(t, regs)
	}
	if s.PreparationDone {
		return s.Switchable
	}

	name := t.SyscallName(int(regs.SyscallNo))
	prepare, ok := dispatch[name]
	hint := PreventSwitch
	if ok {
		hint = prepare(t, s, regs)
	}
	return doneePreparing(t, s, regs, hint)
}

// doneePreparing implements spec.md §4.3's done_preparing(hint).
func doneePreparing(t Task, s *SyscallState, regs Registers, hint Switchable) Switchable {
	if s.PreparationDone {
		return s.Switchable
	}
	s.PreparationDone = true

	requested := s.scratchBytesRequested()
	decision := hint
	if decision == AllowSwitch && int(requested) > s.scratchCap {
		log.WithFields(logrus.Fields{
			"tid": t.Tid(), "requested": requested, "capacity": s.scratchCap,
		}).Warn("scratch exhausted, degrading to PREVENT_SWITCH: deadlock may follow")
		decision = PreventSwitch
	}
	s.Switchable = decision

	if decision == PreventSwitch || len(s.Params) == 0 {
		return decision
	}

	s.ScratchEnabled = true

	// Copy phase: stage IN/IN_OUT buffers into scratch.
	for _, p := range s.Params {
		relocated := p.PtrInReg != nil || p.PtrInMemory != nil
		if p.Mode.readsAtEntry() && relocated {
			if err := t.RemoteMemcpy(p.Scratch, p.Dest, int(p.Size.MaxSize)); err != nil {
				log.WithError(err).WithField("tid", t.Tid()).Error("scratch copy-in failed")
			}
		}
	}

	// Relocate phase: rewrite registers/memory to point at scratch,
	// using the entry register snapshot so indirections resolve against
	// the pre-relocation addresses.
	newRegs := regs
	for _, p := range s.Params {
		if p.Mode == InOutNoScratch {
			continue
		}
		switch {
		case p.PtrInReg != nil:
			newRegs.SetArg1Based(int(*p.PtrInReg), uint64(p.Scratch))
		case p.PtrInMemory != nil:
			owner, err := s.findContaining(*p.PtrInMemory)
			if err != nil {
				abortf("engine: %s", err)
			}
			scratchSideAddr := TraceeAddr(uint64(owner.Scratch) + (uint64(*p.PtrInMemory) - uint64(owner.Dest)))
			if err := t.WriteWord(scratchSideAddr, t.Descriptor().WordSize(), uint64(p.Scratch)); err != nil {
				log.WithError(err).WithField("tid", t.Tid()).Error("pointer indirection relocation failed")
			}
		}
		if p.Size.MemPtr != nil {
			if owner, err := s.findContaining(*p.Size.MemPtr); err == nil {
				scratchSideAddr := TraceeAddr(uint64(owner.Scratch) + (uint64(*p.Size.MemPtr) - uint64(owner.Dest)))
				p.Size.MemPtr = &scratchSideAddr
			}
		}
	}
	s.EntryRegisters = &regs
	t.SetRegs(newRegs)

	return decision
}
