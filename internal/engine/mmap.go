package engine

const (
	mapShared    = 0x01
	mapAnonymous = 0x20
	protWrite    = 0x2
)

// prepareMmap registers nothing at entry: mmap/mmap2 are handled entirely
// at exit (spec.md §4.10). Never switchable — there is no blocking
// behavior to allow concurrency around.
func prepareMmap(t Task, s *SyscallState, regs Registers) Switchable {
	saved := regs
	s.EntryRegisters = &saved
	return PreventSwitch
}

// FinishMmap is the mmap-specific exit handler. A failed mmap does
// nothing. An anonymous mapping has no content to record and nothing is
// written to the trace for it; this package keeps no VM map of its own.
// A file mapping is fstat'd, a MappedRegion is built
// and handed to the trace writer's RECORD/DONT_RECORD decision; if
// RECORD, min(file_size-offset, size) bytes are recorded from addr.
// SHARED|WRITABLE file mappings are accepted with a warning (spec.md
// §4.10).
func FinishMmap(t Task, table *StateTable, resultAddr TraceeAddr, success bool) {
	s, ok := table.Lookup(t.Tid())
	if !ok {
		return
	}
	defer table.Discard(t.Tid())
	if !success {
		return
	}

	regs := *s.EntryRegisters
	length := regs.Arg1Based(2)
	flags := int(regs.Arg1Based(4))
	fd := int(regs.Arg1Based(5))
	offset := int64(regs.Arg1Based(6))

	if flags&mapAnonymous != 0 {
		return // Anonymous: no content to record.
	}

	fileSize, err := t.Fstat(fd)
	if err != nil {
		log.WithError(err).WithField("tid", t.Tid()).Warn("mmap: fstat failed, cannot classify mapping")
		return
	}

	if flags&mapShared != 0 && int(regs.Arg1Based(3))&protWrite != 0 {
		log.WithField("tid", t.Tid()).Warn("mmap: accepting SHARED|WRITABLE file mapping")
	}

	region := MappedRegion{
		FileSize:   fileSize,
		Start:      resultAddr,
		End:        TraceeAddr(uint64(resultAddr) + length),
		PageOffset: offset / 4096,
		Shared:     flags&mapShared != 0,
		Writable:   int(regs.Arg1Based(3))&protWrite != 0,
	}

	if t.Trace().RecordMappedRegion(region) != RecordInTrace {
		return
	}

	remaining := fileSize - offset
	if remaining < 0 {
		remaining = 0
	}
	n := length
	if uint64(remaining) < n {
		n = uint64(remaining)
	}
	if n == 0 {
		return
	}
	if data, err := t.ReadBytes(resultAddr, int(n)); err == nil {
		t.Trace().RecordMemory(t.Tid(), resultAddr, data)
	}
}
