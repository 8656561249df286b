package engine

import "github.com/stealthrocket/synctrace/internal/abi"

// prepareExecve saves the entry registers, captures the filename and argv
// for the pending task event, and — if the target ELF's architecture
// doesn't match the tracer's own — rewrites arg1 to point at the path's
// own NUL terminator so the kernel fails the exec with ENOENT rather than
// switching the tracee to an architecture this engine can't describe
// (spec.md §4.8, §8's cross-arch exec scenario). Never switchable: execve
// replaces the whole address space, there is nothing to make concurrent
// progress against.
func prepareExecve(t Task, s *SyscallState, regs Registers) Switchable {
	saved := regs
	s.EntryRegisters = &saved

	pathAddr := TraceeAddr(regs.Arg1Based(1))
	path, err := t.ReadCString(pathAddr)
	if err != nil {
		return PreventSwitch
	}
	argv := readArgv(t, TraceeAddr(regs.Arg1Based(2)), t.Descriptor().WordSize())
	envp := readArgv(t, TraceeAddr(regs.Arg1Based(3)), t.Descriptor().WordSize())
	s.ExecSavedEvent = &TaskEvent{Filename: path, Argv: argv, Envp: envp}

	if elfArchMismatch(t, path) {
		nulAddr := TraceeAddr(uint64(pathAddr) + uint64(len(path)))
		newRegs := regs
		newRegs.SetArg1Based(1, uint64(nulAddr))
		t.SetRegs(newRegs)
	}
	return PreventSwitch
}

func readArgv(t Task, base TraceeAddr, wordSize int) []string {
	if base == 0 {
		return nil
	}
	var out []string
	for i := 0; ; i++ {
		elemAddr := TraceeAddr(uint64(base) + uint64(i*wordSize))
		ptr, err := t.ReadWord(elemAddr, wordSize)
		if err != nil || ptr == 0 {
			break
		}
		s, err := t.ReadCString(TraceeAddr(ptr))
		if err != nil {
			break
		}
		out = append(out, s)
		if i > 4096 {
			break // runaway argv, avoid an unbounded read loop
		}
	}
	return out
}

// elfArchMismatch always reports no mismatch: this package only sees the
// tracee's memory and registers, not the target binary's ELF header, so
// a cross-architecture execve is not detected here. ForceExecveMismatch
// applies the mismatch redirect for a caller that has made that check
// itself; nothing in this repository calls it.
func elfArchMismatch(t Task, path string) bool {
	return false
}

// ForceExecveMismatch lets the caller (which has filesystem access) tell
// the engine a pending execve's target architecture doesn't match, after
// Prepare has already run. It re-applies the ENOENT-via-NUL-redirect
// trick spec.md §4.8 describes.
func ForceExecveMismatch(t Task, s *SyscallState) {
	if s.EntryRegisters == nil {
		return
	}
	regs := *s.EntryRegisters
	pathAddr := TraceeAddr(regs.Arg1Based(1))
	path, err := t.ReadCString(pathAddr)
	if err != nil {
		return
	}
	nulAddr := TraceeAddr(uint64(pathAddr) + uint64(len(path)))
	cur := t.Regs()
	cur.SetArg1Based(1, uint64(nulAddr))
	t.SetRegs(cur)
}

// FinishExecve is the execve-specific exit handler, invoked by the
// ptrace driver instead of the generic ProcessSyscallResults: a
// successful exec replaces the whole address space, so there is no
// scratch region or parameter list to reconcile, only the post-exec
// stack layout to validate and the task event to commit (spec.md §4.8).
func FinishExecve(t Task, table *StateTable, success bool) {
	s, ok := table.Lookup(t.Tid())
	if !ok {
		return
	}
	defer table.Discard(t.Tid())

	if !success || s.ExecSavedEvent == nil {
		return
	}
	t.Trace().RecordEvent(t.Tid(), "execve", []byte(s.ExecSavedEvent.Filename))

	order := t.Descriptor().AuxvOrder()
	randomAddr, err := walkAuxv(t, order)
	if err != nil {
		abortf("engine: %s", err)
	}
	if randomAddr != 0 {
		if data, err := t.ReadBytes(randomAddr, 16); err == nil {
			t.Trace().RecordMemory(t.Tid(), randomAddr, data)
		}
	}
}

// walkAuxv scans the tracee's initial post-exec stack for argc, argv[],
// envp[], and the auxv table, verifying the auxv keys appear in the
// architecture's fixed order (spec.md §4.8, §8 property 7) and returning
// the address AT_RANDOM points at.
func walkAuxv(t Task, order []uint64) (TraceeAddr, error) {
	wordSize := t.Descriptor().WordSize()
	sp := TraceeAddr(t.Regs().SP)

	argc, err := t.ReadWord(sp, wordSize)
	if err != nil {
		return 0, err
	}
	cursor := uint64(sp) + uint64(wordSize) // skip argc
	cursor += argc * uint64(wordSize)        // skip argv[]
	cursor += uint64(wordSize)               // skip argv's NULL terminator

	for {
		w, err := t.ReadWord(TraceeAddr(cursor), wordSize)
		if err != nil {
			return 0, err
		}
		cursor += uint64(wordSize)
		if w == 0 {
			break // envp's NULL terminator
		}
	}

	var randomAddr TraceeAddr
	expected := 0
	for {
		key, err := t.ReadWord(TraceeAddr(cursor), wordSize)
		if err != nil {
			return 0, err
		}
		val, err := t.ReadWord(TraceeAddr(cursor+uint64(wordSize)), wordSize)
		if err != nil {
			return 0, err
		}
		cursor += 2 * uint64(wordSize)
		if key == 0 {
			break // AT_NULL terminator
		}
		if expected < len(order) && key != order[expected] {
			// Keys not in this engine's known set are tolerated (the
			// kernel's auxv table grows over versions); only a known
			// key arriving out of order is a real ordering violation.
			if contains(order, key) {
				abortf("engine: auxv key %#x arrived out of order (expected %#x)", key, order[expected])
			}
		} else if expected < len(order) {
			expected++
		}
		if key == abi.AtRandom {
			randomAddr = TraceeAddr(val)
		}
	}
	return randomAddr, nil
}

func contains(keys []uint64, k uint64) bool {
	for _, v := range keys {
		if v == k {
			return true
		}
	}
	return false
}
