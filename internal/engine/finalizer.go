package engine

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// WriteBack controls whether the finalizer copies kernel-produced bytes
// back to their original tracee addresses, or only restores clobbered
// registers/indirections. See spec.md §4.4.
type WriteBack int

const (
	NoWriteBack WriteBack = iota
	DoWriteBack
)

// ProcessSyscallResults implements spec.md §4.4: the post-exit handler
// that writes scratch data back, records memory, and restores anything
// the preparer clobbered. Precondition: s.PreparationDone.
func ProcessSyscallResults(t Task, table *StateTable, writeBack WriteBack) {
	s, ok := table.Lookup(t.Tid())
	if !ok {
		return
	}
	defer table.Discard(t.Tid())

	if !s.PreparationDone {
		log.WithField("tid", t.Tid()).Error("process_syscall_results called before done_preparing")
		return
	}

	regs := t.Regs()

	if s.ExpectErrno != nil && regs.Result != -int64(*s.ExpectErrno) {
		abortf("engine: %v", &ExpectedErrnoViolation{Want: unix.Errno(*s.ExpectErrno), Got: unix.Errno(-regs.Result)})
	}

	if s.RestoreRegistersOnExit {
		restored := *s.EntryRegisters
		restored.Result = 0
		t.SetRegs(restored)
		return
	}

	if !s.ScratchEnabled {
		finalizeWithoutScratch(t, s, regs, writeBack)
	} else {
		finalizeWithScratch(t, s, regs, writeBack)
	}

	if s.RecordPageBelowStackPtr {
		const pageSize = 4096
		below := TraceeAddr(regs.SP - pageSize)
		if data, err := t.ReadBytes(below, pageSize); err == nil {
			t.Trace().RecordMemory(t.Tid(), below, data)
		}
	}
}

func finalizeWithoutScratch(t Task, s *SyscallState, regs Registers, writeBack WriteBack) {
	consumed := map[*MemoryParam]uint64{}
	for _, p := range s.Params {
		already := alreadyConsumedFor(p, s.Params, consumed)
		size, err := p.Size.eval(t, regs, already)
		if err != nil {
			log.WithError(err).WithField("tid", t.Tid()).Error("paramsize eval failed")
			continue
		}
		consumed[p] = already + size
		if writeBack == DoWriteBack && (!p.WriteBackIfResultNonzero || regs.Result != 0) {
			recordParam(t, p, p.Dest, size)
		}
	}
}

func finalizeWithScratch(t Task, s *SyscallState, regs Registers, writeBack WriteBack) {
	length := uint64(s.scratchCursor) - uint64(s.scratchBase)
	snapshot, err := t.ReadBytes(s.scratchBase, int(length))
	if err != nil {
		log.WithError(err).WithField("tid", t.Tid()).Error("scratch snapshot read failed")
		snapshot = nil
	}

	newRegs := regs
	memoryFixedUp := false

	consumed := map[*MemoryParam]uint64{}
	for _, p := range s.Params {
		already := alreadyConsumedFor(p, s.Params, consumed)
		size, err := p.Size.eval(t, regs, already)
		if err != nil {
			log.WithError(err).WithField("tid", t.Tid()).Error("paramsize eval failed")
			continue
		}
		consumed[p] = already + size

		off := uint64(p.Scratch) - uint64(s.scratchBase)
		var scratchBytes []byte
		if snapshot != nil && off+size <= uint64(len(snapshot)) {
			scratchBytes = snapshot[off : off+size]
		}

		suppressed := p.WriteBackIfResultNonzero && regs.Result == 0

		if writeBack == DoWriteBack && p.Mode.writesAtExit() && p.Mode != InOutNoScratch && !suppressed {
			if err := t.WriteBytes(p.Dest, scratchBytes); err != nil {
				log.WithError(err).WithField("tid", t.Tid()).Error("scratch write-back failed")
			}
		}

		// Restore clobbered indirections.
		if p.PtrInReg != nil {
			newRegs.SetArg1Based(int(*p.PtrInReg), uint64(p.Dest))
		}
		if p.PtrInMemory != nil {
			if err := t.WriteWord(*p.PtrInMemory, t.Descriptor().WordSize(), uint64(p.Dest)); err != nil {
				log.WithError(err).WithField("tid", t.Tid()).Error("pointer indirection restore failed")
			}
			memoryFixedUp = true
		}

		if suppressed {
			continue
		}

		switch p.Mode {
		case InOutNoScratch:
			if data, err := t.ReadBytes(p.Dest, int(size)); err == nil {
				t.Trace().RecordMemory(t.Tid(), p.Dest, data)
			}
		case Out, InOut:
			if memoryFixedUp {
				if data, err := t.ReadBytes(p.Dest, int(size)); err == nil {
					t.Trace().RecordMemory(t.Tid(), p.Dest, data)
				}
			} else if scratchBytes != nil {
				t.Trace().RecordMemory(t.Tid(), p.Dest, scratchBytes)
			}
		}
	}

	t.SetRegs(newRegs)
}

// alreadyConsumedFor sums the sizes already attributed to params sharing
// current's size source, in registration order (spec.md §4.1's
// distribution rule). consumed is keyed by each param's own identity
// rather than its ParamSize value: two same-source params can carry an
// identical ParamSize (e.g. two equal-length iovecs), and keying by
// value would let one param's contribution be double-counted under the
// other's lookup.
func alreadyConsumedFor(current *MemoryParam, all []*MemoryParam, consumed map[*MemoryParam]uint64) uint64 {
	var total uint64
	for _, p := range all {
		if p == current {
			continue
		}
		if p.Size.sameSource(current.Size) {
			total += consumed[p]
		}
	}
	return total
}

func recordParam(t Task, p *MemoryParam, addr TraceeAddr, size uint64) {
	data, err := t.ReadBytes(addr, int(size))
	if err != nil {
		log.WithFields(logrus.Fields{"tid": t.Tid(), "addr": addr}).WithError(err).Warn("record read failed")
		return
	}
	t.Trace().RecordMemory(t.Tid(), addr, data)
}
