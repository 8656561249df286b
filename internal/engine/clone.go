package engine

const cloneUntraced = 0x00800000

// prepareClone saves the entry registers and, if CLONE_UNTRACED is set,
// clears it in the argument register so the tracer observes the child;
// the original bit is restored on exit so userspace sees the flag word
// it actually passed (spec.md §4.9). Never switchable.
func prepareClone(t Task, s *SyscallState, regs Registers) Switchable {
	saved := regs
	s.EntryRegisters = &saved

	flags := regs.Arg1Based(1)
	if flags&cloneUntraced != 0 {
		newRegs := regs
		newRegs.SetArg1Based(1, flags&^cloneUntraced)
		t.SetRegs(newRegs)
	}
	return PreventSwitch
}

// ChildTaskInfo is what FinishClone extracts for the caller to act on
// (spawning/attaching the new tracee is the ptrace driver's job, not this
// package's — it is the "scheduler"/"VM bookkeeping" collaborator spec.md
// §1 calls out as external).
type ChildTaskInfo struct {
	ChildTid        int
	ParentTidPtr    TraceeAddr
	ChildTidPtr     TraceeAddr
	TLS             TraceeAddr
	ParentSwitchable Switchable
}

// FinishClone is the clone-specific exit handler: restores the original
// flags word, returns the parent/child tid and TLS pointers (null or not)
// in ChildTaskInfo without writing them to the trace, records the
// task-creation event for the child, and reports the new child's tid so
// the caller can install child scratch (spec.md §4.9).
func FinishClone(t Task, table *StateTable, childTid int) ChildTaskInfo {
	s, ok := table.Lookup(t.Tid())
	if !ok {
		return ChildTaskInfo{ChildTid: childTid}
	}
	defer table.Discard(t.Tid())

	regs := *s.EntryRegisters
	newRegs := t.Regs()
	newRegs.SetArg1Based(1, regs.Arg1Based(1))
	t.SetRegs(newRegs)

	info := ChildTaskInfo{
		ChildTid:         childTid,
		ParentTidPtr:     TraceeAddr(regs.Arg1Based(3)),
		ChildTidPtr:      TraceeAddr(regs.Arg1Based(4)),
		TLS:              TraceeAddr(regs.Arg1Based(5)),
		ParentSwitchable: AllowSwitch,
	}
	t.Trace().RecordTaskCreated(childTid, t.Tid())
	return info
}
