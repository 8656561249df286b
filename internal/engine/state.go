package engine

import (
	"github.com/pkg/errors"
)

// Switchable is the tracer's decision on whether another tracee may run
// while this syscall is in flight (spec.md §3, §5).
type Switchable int

const (
	PreventSwitch Switchable = iota
	AllowSwitch
)

// TaskEvent is the pending record captured at execve entry (filename +
// argv) and written to the trace only if the exec succeeds (spec.md
// §4.8).
type TaskEvent struct {
	Filename string
	Argv     []string
	Envp     []string
}

// SyscallState is the per-(task, in-flight-syscall) record the preparer
// builds and the finalizer consumes. See spec.md §3.
type SyscallState struct {
	task Task

	SyscallNo int64
	Params    []*MemoryParam

	scratchBase   TraceeAddr
	scratchCursor TraceeAddr
	scratchCap    int

	EntryRegisters *Registers
	ExecSavedEvent *TaskEvent
	ExpectErrno    *int // unix.Errno value, nil if unset

	Switchable             Switchable
	PreparationDone        bool
	ScratchEnabled         bool
	RecordPageBelowStackPtr bool

	// RestoreRegistersOnExit marks a syscall whose entry-time registers
	// were clobbered to neuter it (spec.md §4.11's sched_setaffinity
	// case): at exit, the finalizer restores EntryRegisters verbatim and
	// forces a success result instead of running the normal param
	// write-back, since no memory was ever registered for such a call.
	RestoreRegistersOnExit bool
}

// newSyscallState creates an empty state at syscall-enter, snapshotting
// the task's scratch region boundaries.
func newSyscallState(t Task, regs Registers) *SyscallState {
	return &SyscallState{
		task:          t,
		SyscallNo:     regs.SyscallNo,
		scratchBase:   t.ScratchBase(),
		scratchCursor: t.ScratchBase(),
		scratchCap:    t.ScratchCap(),
	}
}

// allocScratch bumps the scratch cursor by n bytes, 8-byte aligned, and
// returns the address of the allocation. See spec.md §4.2.
func (s *SyscallState) allocScratch(n uint64) TraceeAddr {
	addr := s.scratchCursor
	n = align8(n)
	s.scratchCursor = TraceeAddr(uint64(s.scratchCursor) + n)
	return addr
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// scratchBytesRequested is the total scratch this state has allocated so
// far, used by done_preparing's capacity check (spec.md §4.3 step 1).
func (s *SyscallState) scratchBytesRequested() uint64 {
	return uint64(s.scratchCursor) - uint64(s.scratchBase)
}

// RegParameter implements spec.md §4.2's reg_parameter: reads argument
// register argIndex; if the preparer already ran (PreparationDone), this
// is a no-op that returns zero so restart paths stay idempotent.
func (s *SyscallState) RegParameter(regs Registers, argIndex ArgIndex, size ParamSize, mode ArgMode) TraceeAddr {
	if s.PreparationDone {
		return 0
	}
	dest := TraceeAddr(regs.Arg1Based(int(argIndex)))
	if dest == 0 {
		return 0
	}
	p := &MemoryParam{Dest: dest, Size: size, Mode: mode}
	if mode != InOutNoScratch {
		p.Scratch = s.allocScratch(size.MaxSize)
		idx := argIndex
		p.PtrInReg = &idx
	}
	s.Params = append(s.Params, p)
	return dest
}

// MemPtrParameter implements spec.md §4.2's mem_ptr_parameter: reads a
// pointer from tracee memory at addrOfPtr (which must itself lie inside a
// previously registered parameter's buffer, so done_preparing can patch
// the indirection when it relocates to scratch).
func (s *SyscallState) MemPtrParameter(addrOfPtr TraceeAddr, size ParamSize, mode ArgMode) (TraceeAddr, error) {
	if s.PreparationDone {
		return 0, nil
	}
	wordSize := s.task.Descriptor().WordSize()
	raw, err := s.task.ReadWord(addrOfPtr, wordSize)
	if err != nil {
		return 0, errors.Wrap(err, "mem_ptr_parameter: reading pointer")
	}
	dest := TraceeAddr(raw)
	if dest == 0 {
		return 0, nil
	}
	p := &MemoryParam{Dest: dest, Size: size, Mode: mode}
	if mode != InOutNoScratch {
		p.Scratch = s.allocScratch(size.MaxSize)
		addr := addrOfPtr
		p.PtrInMemory = &addr
	}
	s.Params = append(s.Params, p)
	return dest, nil
}

// findContaining returns the unique parameter whose original buffer
// contains addr, per the pointer-relocation rule in spec.md §4.3. Zero
// matches is an internal error; two or more (overlapping registered
// buffers) is also an internal error — both are forbidden.
func (s *SyscallState) findContaining(addr TraceeAddr) (*MemoryParam, error) {
	var found *MemoryParam
	for _, p := range s.Params {
		if p.contains(addr) {
			if found != nil {
				return nil, Fatalf("engine: scratch relocation target %#x matches overlapping registered buffers", addr)
			}
			found = p
		}
	}
	if found == nil {
		return nil, Fatalf("engine: scratch relocation target %#x matches no registered buffer", addr)
	}
	return found, nil
}
