package engine

import "github.com/pkg/errors"

// ParamSize describes how many bytes a registered parameter occupies: a
// static upper bound, optionally narrowed by a dynamic size read from
// tracee memory or from the syscall return register after the call
// completes. See spec.md §3 and §4.1.
type ParamSize struct {
	MaxSize uint64

	// MemPtr, when non-nil, is a tracee address holding the dynamic size
	// (e.g. &msg.msg_controllen). ReadSize is the width, in bytes, of
	// that integer (4 or 8).
	MemPtr   *TraceeAddr
	ReadSize int

	// FromSyscallResult, when true, takes the dynamic size from the low
	// ReadSize bytes of the syscall's return register (e.g. a read()'s
	// return value is the number of bytes written to buf).
	FromSyscallResult bool
}

// Fixed builds a ParamSize with only a static upper bound.
func Fixed(n uint64) ParamSize { return ParamSize{MaxSize: n} }

// FromMem builds a ParamSize whose dynamic bound is read from tracee
// memory at addr, an unsigned integer of readSize bytes, clamped to max.
func FromMem(addr TraceeAddr, readSize int, max uint64) ParamSize {
	checkReadSize(readSize)
	a := addr
	return ParamSize{MaxSize: max, MemPtr: &a, ReadSize: readSize}
}

// FromSyscallResult builds a ParamSize whose dynamic bound is the
// syscall's own return value, clamped to max.
func FromSyscallResult(readSize int, max uint64) ParamSize {
	checkReadSize(readSize)
	return ParamSize{MaxSize: max, FromSyscallResult: true, ReadSize: readSize}
}

// checkReadSize enforces spec.md §3's invariant that read_size is 4 or 8
// whenever a dynamic source is set; anything else is an internal bug, not
// a runtime condition worth tolerating (spec.md §7c).
func checkReadSize(readSize int) {
	if readSize != 4 && readSize != 8 {
		abortf("engine: misaligned ParamSize read size %d (must be 4 or 8)", readSize)
	}
}

// sameSource reports whether p and q draw their dynamic size from the same
// origin, per spec.md §3's same-source definition: equal MemPtr (by
// value), or both FromSyscallResult, with equal ReadSize in either case.
func (p ParamSize) sameSource(q ParamSize) bool {
	if p.ReadSize != q.ReadSize {
		return false
	}
	if p.FromSyscallResult && q.FromSyscallResult {
		return true
	}
	if p.MemPtr != nil && q.MemPtr != nil {
		return *p.MemPtr == *q.MemPtr
	}
	return false
}

// eval computes the number of bytes this parameter actually occupies,
// given the number of bytes already attributed to earlier same-source
// parameters. See spec.md §4.1.
func (p ParamSize) eval(t Task, regs Registers, alreadyConsumed uint64) (uint64, error) {
	size := p.MaxSize

	if p.MemPtr != nil {
		raw, err := t.ReadWord(*p.MemPtr, p.ReadSize)
		if err != nil {
			return 0, errors.Wrap(err, "paramsize: reading dynamic size from tracee memory")
		}
		if alreadyConsumed > raw {
			return 0, errors.Errorf("paramsize: already_consumed %d exceeds mem_ptr source %d", alreadyConsumed, raw)
		}
		remaining := raw - alreadyConsumed
		if remaining < size {
			size = remaining
		}
	}

	if p.FromSyscallResult {
		if regs.Result < 0 {
			// A failed syscall produced no bytes; §7a notes partial
			// scratch contents may still be recorded for EFAULT, this
			// is the one place that is handled — see DESIGN.md Open
			// Question 1 for why it is not gated further.
			return 0, nil
		}
		raw := uint64(regs.Result)
		if alreadyConsumed > raw {
			return 0, errors.Errorf("paramsize: already_consumed %d exceeds syscall result %d", alreadyConsumed, raw)
		}
		remaining := raw - alreadyConsumed
		if remaining < size {
			size = remaining
		}
	}

	return size, nil
}
