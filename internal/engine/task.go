// Package engine implements the per-syscall preparation/finalization core
// of a record-and-replay tracer: parameter modeling, scratch-buffer
// relocation, dynamic size arithmetic, the switchability decision, the
// per-syscall argument schemas, and finalization.
//
// The engine never touches ptrace itself; it is driven by a concrete
// Task (internal/tracee.Thread in this repository) and writes through a
// TraceWriter (internal/tracelog.Writer). This mirrors the decorator-style
// "System" boundary the reference WASI call recorder uses to keep its
// core logic free of the underlying transport.
package engine

import "github.com/stealthrocket/synctrace/internal/abi"

// TraceeAddr is a pointer value in the tracee's address space. It has no
// meaning in the tracer's own memory.
type TraceeAddr uint64

// Registers is the tracer's view of a tracee's general-purpose register
// file at a syscall boundary. Only the fields the engine needs are named
// here; a concrete Task implementation is responsible for the real
// architecture-specific register struct underneath.
type Registers struct {
	SyscallNo  int64
	Arg        [6]uint64 // arg[0] is the first syscall argument, etc.
	ReturnAddr uint64
	Result     int64 // valid only at syscall-exit
	IP, SP     uint64
}

// Arg1Based returns the i'th syscall argument (1-based, matching spec.md's
// arg_index convention) as a raw uint64.
func (r *Registers) Arg1Based(i int) uint64 {
	return r.Arg[i-1]
}

// SetArg1Based overwrites the i'th syscall argument (1-based).
func (r *Registers) SetArg1Based(i int, v uint64) {
	r.Arg[i-1] = v
}

// MappedRegion describes an mmap'd file region for the trace writer's
// record/don't-record decision (spec.md §4.10).
type MappedRegion struct {
	File       string
	FileSize   int64
	Start, End TraceeAddr
	PageOffset int64
	Shared     bool
	Writable   bool
}

// RecordDecision is the trace writer's answer to "should the bytes backing
// this mapping be captured in the trace".
type RecordDecision int

const (
	DontRecordInTrace RecordDecision = iota
	RecordInTrace
)

// TraceWriter is the external collaborator responsible for trace storage
// (spec.md §6, "Trace writer"). The engine only ever calls through this
// interface; internal/tracelog.Writer is the concrete implementation.
type TraceWriter interface {
	RecordTaskCreated(tid int, parentTid int)
	RecordMappedRegion(region MappedRegion) RecordDecision
	RecordMemory(tid int, addr TraceeAddr, data []byte)
	RecordEvent(tid int, name string, payload []byte)
}

// Task is the external tracee-control primitive the engine depends on
// (spec.md §6). internal/tracee.Thread is the ptrace-backed implementation;
// tests use an in-memory fake.
type Task interface {
	Tid() int
	Arch() abi.Arch
	Descriptor() abi.Descriptor

	Regs() Registers
	SetRegs(Registers)

	ReadBytes(addr TraceeAddr, n int) ([]byte, error)
	WriteBytes(addr TraceeAddr, data []byte) error
	RemoteMemcpy(dst, src TraceeAddr, n int) error
	ReadCString(addr TraceeAddr) (string, error)
	ReadWord(addr TraceeAddr, size int) (uint64, error)
	WriteWord(addr TraceeAddr, size int, v uint64) error

	SyscallName(nr int) string
	Fstat(fd int) (size int64, err error)
	UpdatePrName(name string)

	// ScratchBase and ScratchCap describe the per-task scratch region
	// installed at task birth / post-execve (spec.md §6 scratch init).
	ScratchBase() TraceeAddr
	ScratchCap() int

	Trace() TraceWriter
}
