package engine

import "sync"

// StateTable is the typed side-table mapping a task id to its in-flight
// SyscallState, replacing the raw-pointer-graph association the reference
// implementation gets for free from storing state directly on its Task
// object. Entries live from the enter-hook to the exit-hook for that tid
// (spec.md §9's "property-bag attached to Task" design note).
//
// The recording session drives exactly one tracee through a syscall trap
// at a time (spec.md §5), so the mutex here is a defensive measure for
// callers that poll multiple tracees from more than one goroutine; it is
// never contended on the hot path.
type StateTable struct {
	mu    sync.Mutex
	state map[int]*SyscallState
}

// NewStateTable creates an empty side table.
func NewStateTable() *StateTable {
	return &StateTable{state: make(map[int]*SyscallState)}
}

// Enter creates a fresh SyscallState for tid, overwriting any previous
// entry (a previous entry at this point would mean the exit hook never
// ran, which is a caller bug — restart_syscall and signal-interrupted
// syscalls are handled by Discard, not by silently leaking the old one).
func (st *StateTable) Enter(t Task, regs Registers) *SyscallState {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := newSyscallState(t, regs)
	st.state[t.Tid()] = s
	return s
}

// Lookup returns the in-flight state for tid, if any. Used by the exit
// hook, and by done_preparing re-entry to keep registration idempotent.
func (st *StateTable) Lookup(tid int) (*SyscallState, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.state[tid]
	return s, ok
}

// Discard removes tid's in-flight state, e.g. after finalization or on a
// syscall restart that should not resume with stale params.
func (st *StateTable) Discard(tid int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.state, tid)
}
