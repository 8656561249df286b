package engine

import (
	"encoding/binary"
	"testing"

	"github.com/stealthrocket/synctrace/internal/abi"
)

// fakeTask is an in-memory Task double: tracee "memory" is a flat byte
// slice indexed directly by TraceeAddr, which is enough to exercise the
// engine's logic without a real ptrace-attached process.
type fakeTask struct {
	tid    int
	desc   abi.Descriptor
	regs   Registers
	mem    []byte
	prname string
	trace  *fakeTrace

	scratchBase TraceeAddr
	scratchCap  int

	fstatSize map[int]int64
}

func newFakeTask(tid int) *fakeTask {
	return &fakeTask{
		tid:         tid,
		desc:        abi.For(abi.AMD64),
		mem:         make([]byte, 1<<21),
		trace:       newFakeTrace(),
		scratchBase: 0x100000,
		scratchCap:  0x10000,
		fstatSize:   map[int]int64{},
	}
}

func (f *fakeTask) Tid() int                  { return f.tid }
func (f *fakeTask) Arch() abi.Arch            { return f.desc.Arch() }
func (f *fakeTask) Descriptor() abi.Descriptor { return f.desc }
func (f *fakeTask) Regs() Registers           { return f.regs }
func (f *fakeTask) SetRegs(r Registers)       { f.regs = r }

func (f *fakeTask) ReadBytes(addr TraceeAddr, n int) ([]byte, error) {
	out := make([]byte, n)
	copy(out, f.mem[addr:])
	return out, nil
}

func (f *fakeTask) WriteBytes(addr TraceeAddr, data []byte) error {
	copy(f.mem[addr:], data)
	return nil
}

func (f *fakeTask) RemoteMemcpy(dst, src TraceeAddr, n int) error {
	copy(f.mem[dst:], f.mem[src:src+TraceeAddr(n)])
	return nil
}

func (f *fakeTask) ReadCString(addr TraceeAddr) (string, error) {
	end := addr
	for f.mem[end] != 0 {
		end++
	}
	return string(f.mem[addr:end]), nil
}

func (f *fakeTask) ReadWord(addr TraceeAddr, size int) (uint64, error) {
	switch size {
	case 4:
		return uint64(binary.LittleEndian.Uint32(f.mem[addr:])), nil
	case 8:
		return binary.LittleEndian.Uint64(f.mem[addr:]), nil
	}
	return 0, nil
}

func (f *fakeTask) WriteWord(addr TraceeAddr, size int, v uint64) error {
	switch size {
	case 4:
		binary.LittleEndian.PutUint32(f.mem[addr:], uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(f.mem[addr:], v)
	}
	return nil
}

func (f *fakeTask) SyscallName(nr int) string { return f.desc.SyscallName(nr) }

func (f *fakeTask) Fstat(fd int) (int64, error) { return f.fstatSize[fd], nil }

func (f *fakeTask) UpdatePrName(name string) { f.prname = name }

func (f *fakeTask) ScratchBase() TraceeAddr { return f.scratchBase }
func (f *fakeTask) ScratchCap() int         { return f.scratchCap }

func (f *fakeTask) Trace() TraceWriter { return f.trace }

func (f *fakeTask) writeWordAt(addr TraceeAddr, size int, v uint64) {
	_ = f.WriteWord(addr, size, v)
}

type recordedMemory struct {
	tid  int
	addr TraceeAddr
	data []byte
}

type fakeTrace struct {
	memory  []recordedMemory
	tasks   []int
	regions []MappedRegion
	decide  RecordDecision
}

func newFakeTrace() *fakeTrace {
	return &fakeTrace{decide: RecordInTrace}
}

func (f *fakeTrace) RecordTaskCreated(tid int, parentTid int) { f.tasks = append(f.tasks, tid) }
func (f *fakeTrace) RecordMappedRegion(r MappedRegion) RecordDecision {
	f.regions = append(f.regions, r)
	return f.decide
}
func (f *fakeTrace) RecordMemory(tid int, addr TraceeAddr, data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	f.memory = append(f.memory, recordedMemory{tid, addr, cp})
}
func (f *fakeTrace) RecordEvent(tid int, name string, payload []byte) {}

func (f *fakeTrace) find(addr TraceeAddr) (recordedMemory, bool) {
	for _, m := range f.memory {
		if m.addr == addr {
			return m, true
		}
	}
	return recordedMemory{}, false
}

// --- scenarios from spec.md §8 ---

func TestReadScenario(t *testing.T) {
	task := newFakeTask(1)
	table := NewStateTable()

	const bufAddr = TraceeAddr(0xB000)
	const count = 4096
	regs := Registers{SyscallNo: int64(mustNr(task, "read")), Arg: [6]uint64{7, uint64(bufAddr), count}}
	task.SetRegs(regs)

	sw, err := EnterSyscall(task, table)
	if err != nil {
		t.Fatalf("EnterSyscall: %v", err)
	}
	if sw != AllowSwitch {
		t.Fatalf("expected AllowSwitch, got %v", sw)
	}

	s, ok := table.Lookup(1)
	if !ok || len(s.Params) != 1 {
		t.Fatalf("expected one registered param, got %+v", s)
	}
	scratchAddr := s.Params[0].Scratch

	// Simulate the kernel writing 100 bytes to scratch and returning 100.
	for i := 0; i < 100; i++ {
		task.mem[int(scratchAddr)+i] = byte(i)
	}
	exitRegs := task.Regs()
	exitRegs.Result = 100
	task.SetRegs(exitRegs)

	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatalf("ExitSyscall: %v", err)
	}

	got, err := task.ReadBytes(bufAddr, 100)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 100; i++ {
		if got[i] != byte(i) {
			t.Fatalf("byte %d: got %d want %d", i, got[i], byte(i))
		}
	}
	rec, ok := task.trace.find(bufAddr)
	if !ok || len(rec.data) != 100 {
		t.Fatalf("expected 100 recorded bytes at buf, got %+v ok=%v", rec, ok)
	}
}

func TestFutexWaitScenario(t *testing.T) {
	task := newFakeTask(2)
	table := NewStateTable()

	const uaddr = TraceeAddr(0x1000)
	task.writeWordAt(uaddr, 4, 7)

	regs := Registers{SyscallNo: int64(mustNr(task, "futex")), Arg: [6]uint64{uint64(uaddr), futexWait, 7}}
	task.SetRegs(regs)

	sw, err := EnterSyscall(task, table)
	if err != nil {
		t.Fatal(err)
	}
	if sw != AllowSwitch {
		t.Fatalf("expected AllowSwitch for FUTEX_WAIT, got %v", sw)
	}
	s, _ := table.Lookup(2)
	if len(s.Params) != 1 || s.Params[0].Mode != InOutNoScratch {
		t.Fatalf("expected one IN_OUT_NO_SCRATCH param, got %+v", s.Params)
	}
	if s.Params[0].PtrInReg != nil {
		t.Fatalf("IN_OUT_NO_SCRATCH param must not be relocated: address identity matters for futex words")
	}

	exitRegs := task.Regs()
	exitRegs.Result = 0
	task.SetRegs(exitRegs)
	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatal(err)
	}
	if _, ok := task.trace.find(uaddr); !ok {
		t.Fatalf("expected futex word recorded at original address")
	}
}

func TestAcceptScenario(t *testing.T) {
	task := newFakeTask(3)
	table := NewStateTable()

	const addrAddr = TraceeAddr(0x3000)
	const addrlenAddr = TraceeAddr(0x2000)
	task.writeWordAt(addrlenAddr, 4, 16)

	regs := Registers{SyscallNo: int64(mustNr(task, "accept")), Arg: [6]uint64{5, uint64(addrAddr), uint64(addrlenAddr)}}
	task.SetRegs(regs)

	sw, err := EnterSyscall(task, table)
	if err != nil {
		t.Fatalf("EnterSyscall: %v", err)
	}
	if sw != AllowSwitch {
		t.Fatalf("expected AllowSwitch for accept, got %v", sw)
	}

	s, ok := table.Lookup(3)
	if !ok || len(s.Params) != 2 {
		t.Fatalf("expected addr + addrlen params, got %+v", s)
	}
	addrParam := s.Params[0]
	if addrParam.PtrInReg == nil || *addrParam.PtrInReg != 2 {
		t.Fatalf("expected addr (arg2) relocated to scratch via PtrInReg, got %+v", addrParam)
	}
	// done_preparing must have rewritten arg2 to point at scratch, not
	// left it aimed at the original addr buffer.
	regsAfterPrepare := task.Regs()
	if got := regsAfterPrepare.Arg1Based(2); got != uint64(addrParam.Scratch) {
		t.Fatalf("expected arg2 relocated to scratch %#x, got %#x", addrParam.Scratch, got)
	}

	// Simulate the kernel writing an 8-byte sockaddr to scratch and
	// shrinking *addrlen from 16 to 8.
	sockaddr := []byte{2, 0, 0x1f, 0x90, 127, 0, 0, 1}
	copy(task.mem[addrParam.Scratch:], sockaddr)
	task.writeWordAt(s.Params[1].Scratch, 4, 8)

	exitRegs := task.Regs()
	exitRegs.Result = 9 // new fd
	task.SetRegs(exitRegs)

	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatalf("ExitSyscall: %v", err)
	}

	got, err := task.ReadBytes(addrAddr, len(sockaddr))
	if err != nil {
		t.Fatal(err)
	}
	for i := range sockaddr {
		if got[i] != sockaddr[i] {
			t.Fatalf("addr byte %d: got %d want %d", i, got[i], sockaddr[i])
		}
	}
	rec, ok := task.trace.find(addrAddr)
	if !ok || len(rec.data) != 8 {
		t.Fatalf("expected 8 bytes recorded at addr, got %+v ok=%v", rec, ok)
	}
	if _, ok := task.trace.find(addrlenAddr); !ok {
		t.Fatalf("expected addrlen recorded back at its original address")
	}
}

func TestRecvfromScenario(t *testing.T) {
	task := newFakeTask(5)
	table := NewStateTable()

	const bufAddr = TraceeAddr(0x5000)
	const fromAddr = TraceeAddr(0x6000)
	const addrlenAddr = TraceeAddr(0x7000)
	task.writeWordAt(addrlenAddr, 4, 16)

	regs := Registers{
		SyscallNo: int64(mustNr(task, "recvfrom")),
		Arg:       [6]uint64{4, uint64(bufAddr), 512, 0, uint64(fromAddr), uint64(addrlenAddr)},
	}
	task.SetRegs(regs)

	sw, err := EnterSyscall(task, table)
	if err != nil {
		t.Fatalf("EnterSyscall: %v", err)
	}
	if sw != AllowSwitch {
		t.Fatalf("expected AllowSwitch for recvfrom, got %v", sw)
	}

	s, ok := table.Lookup(5)
	if !ok || len(s.Params) != 3 {
		t.Fatalf("expected buf + addrlen + src_addr params, got %+v", s)
	}
	fromParam := s.Params[2]
	if fromParam.PtrInReg == nil || *fromParam.PtrInReg != 5 {
		t.Fatalf("expected src_addr (arg5) relocated via PtrInReg, got %+v", fromParam)
	}

	sockaddr := []byte{2, 0, 0x1f, 0x90, 10, 0, 0, 1}
	copy(task.mem[fromParam.Scratch:], sockaddr)
	task.writeWordAt(addrlenAddr, 4, 8)

	bufBytes := []byte("hello")
	bufParam := s.Params[0]
	copy(task.mem[bufParam.Scratch:], bufBytes)

	exitRegs := task.Regs()
	exitRegs.Result = int64(len(bufBytes))
	task.SetRegs(exitRegs)

	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatalf("ExitSyscall: %v", err)
	}

	got, err := task.ReadBytes(fromAddr, len(sockaddr))
	if err != nil {
		t.Fatal(err)
	}
	for i := range sockaddr {
		if got[i] != sockaddr[i] {
			t.Fatalf("src_addr byte %d: got %d want %d", i, got[i], sockaddr[i])
		}
	}
	if _, ok := task.trace.find(fromAddr); !ok {
		t.Fatalf("expected src_addr recorded at its original address")
	}
}

// recvmsg small: iov = [{0xA,10},{0xB,20}], kernel returns 15 bytes.
// Expect 10 bytes recorded to iov[0], 5 to iov[1] (spec.md §8).
func TestRecvmsgSmallScenario(t *testing.T) {
	task := newFakeTask(6)
	table := NewStateTable()

	const msgAddr = TraceeAddr(0x8000)
	const iovAddr = TraceeAddr(0x8100)
	const iov0Base = TraceeAddr(0xA000)
	const iov1Base = TraceeAddr(0xB000)

	// struct msghdr on amd64: name, namelen(+pad), iov, iovlen, control, controllen, flags.
	task.writeWordAt(msgAddr+msghdrNameOff, 8, 0)
	task.writeWordAt(msgAddr+msghdrNamelenOff, 4, 0)
	task.writeWordAt(msgAddr+msghdrIovOff, 8, uint64(iovAddr))
	task.writeWordAt(msgAddr+msghdrIovlenOff, 8, 2)
	task.writeWordAt(msgAddr+msghdrControlOff, 8, 0)
	task.writeWordAt(msgAddr+msghdrControllenOff, 8, 0)

	layout := task.desc.Layouts()
	iov0 := iovAddr
	iov1 := TraceeAddr(uint64(iovAddr) + uint64(layout.Iovec))
	task.writeWordAt(iov0, 8, uint64(iov0Base))
	task.writeWordAt(iov0+8, 8, 10)
	task.writeWordAt(iov1, 8, uint64(iov1Base))
	task.writeWordAt(iov1+8, 8, 20)

	regs := Registers{SyscallNo: int64(mustNr(task, "recvmsg")), Arg: [6]uint64{4, uint64(msgAddr), 0}}
	task.SetRegs(regs)

	sw, err := EnterSyscall(task, table)
	if err != nil {
		t.Fatalf("EnterSyscall: %v", err)
	}
	if sw != AllowSwitch {
		t.Fatalf("expected AllowSwitch for recvmsg, got %v", sw)
	}

	s, ok := table.Lookup(6)
	if !ok || len(s.Params) != 2 {
		t.Fatalf("expected two iovec params, got %+v", s)
	}

	// Fill scratch for both iovec elements; only the first 15 bytes
	// total should ever get attributed across the two.
	for i := 0; i < 10; i++ {
		task.mem[int(s.Params[0].Scratch)+i] = byte('A')
	}
	for i := 0; i < 20; i++ {
		task.mem[int(s.Params[1].Scratch)+i] = byte('B')
	}

	exitRegs := task.Regs()
	exitRegs.Result = 15
	task.SetRegs(exitRegs)

	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatalf("ExitSyscall: %v", err)
	}

	rec0, ok := task.trace.find(iov0Base)
	if !ok || len(rec0.data) != 10 {
		t.Fatalf("expected 10 bytes recorded to iov[0], got %+v ok=%v", rec0, ok)
	}
	rec1, ok := task.trace.find(iov1Base)
	if !ok || len(rec1.data) != 5 {
		t.Fatalf("expected 5 bytes recorded to iov[1], got %+v ok=%v", rec1, ok)
	}
}

// nanosleep's rem is only meaningful (and only touched by the kernel)
// when the call is interrupted, i.e. returns non-zero (spec.md §4.5).
func TestNanosleepRemSuppressedOnZeroResult(t *testing.T) {
	task := newFakeTask(7)
	table := NewStateTable()

	const remAddr = TraceeAddr(0x9000)
	regs := Registers{SyscallNo: int64(mustNr(task, "nanosleep")), Arg: [6]uint64{0, uint64(remAddr)}}
	task.SetRegs(regs)

	if _, err := EnterSyscall(task, table); err != nil {
		t.Fatalf("EnterSyscall: %v", err)
	}
	s, _ := table.Lookup(7)
	if len(s.Params) != 1 || !s.Params[0].WriteBackIfResultNonzero {
		t.Fatalf("expected rem param gated on nonzero result, got %+v", s.Params)
	}

	// Leave stray bytes in scratch to prove they are never written back
	// or recorded on a clean (fully slept) return.
	for i := 0; i < 16; i++ {
		task.mem[int(s.Params[0].Scratch)+i] = 0xFF
	}

	exitRegs := task.Regs()
	exitRegs.Result = 0
	task.SetRegs(exitRegs)
	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatalf("ExitSyscall: %v", err)
	}

	if _, ok := task.trace.find(remAddr); ok {
		t.Fatalf("rem must not be recorded when nanosleep returns 0")
	}
	got, err := task.ReadBytes(remAddr, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("rem byte %d: expected untouched zero, got %#x", i, b)
		}
	}
}

func TestNanosleepRemWrittenBackOnInterrupt(t *testing.T) {
	task := newFakeTask(8)
	table := NewStateTable()

	const remAddr = TraceeAddr(0x9100)
	regs := Registers{SyscallNo: int64(mustNr(task, "nanosleep")), Arg: [6]uint64{0, uint64(remAddr)}}
	task.SetRegs(regs)

	if _, err := EnterSyscall(task, table); err != nil {
		t.Fatalf("EnterSyscall: %v", err)
	}
	s, _ := table.Lookup(8)

	remBytes := make([]byte, 16)
	for i := range remBytes {
		remBytes[i] = byte(i + 1)
	}
	copy(task.mem[s.Params[0].Scratch:], remBytes)

	exitRegs := task.Regs()
	exitRegs.Result = -4 // -EINTR
	task.SetRegs(exitRegs)
	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatalf("ExitSyscall: %v", err)
	}

	got, err := task.ReadBytes(remAddr, 16)
	if err != nil {
		t.Fatal(err)
	}
	for i := range remBytes {
		if got[i] != remBytes[i] {
			t.Fatalf("rem byte %d: got %#x want %#x", i, got[i], remBytes[i])
		}
	}
	if _, ok := task.trace.find(remAddr); !ok {
		t.Fatalf("expected rem recorded when nanosleep is interrupted")
	}
}

func TestSchedSetaffinityNeutered(t *testing.T) {
	task := newFakeTask(4)
	table := NewStateTable()

	const targetPid = 1234
	regs := Registers{SyscallNo: int64(mustNr(task, "sched_setaffinity")), Arg: [6]uint64{targetPid, 8, 0x4000}}
	task.SetRegs(regs)

	if _, err := EnterSyscall(task, table); err != nil {
		t.Fatalf("EnterSyscall: %v", err)
	}

	// The preparer must have replaced arg1 (pid) with -1 so the kernel
	// rejects the call instead of actually changing affinity.
	regsAfterEnter := task.Regs()
	if got := regsAfterEnter.Arg1Based(1); got != ^uint64(0) {
		t.Fatalf("expected arg1 neutered to -1, got %#x", got)
	}

	// Simulate the kernel returning EINVAL for the neutered pid.
	exitRegs := task.Regs()
	exitRegs.Result = -22
	task.SetRegs(exitRegs)

	if err := ExitSyscall(task, table, DoWriteBack); err != nil {
		t.Fatalf("ExitSyscall: %v", err)
	}

	final := task.Regs()
	if final.Arg1Based(1) != targetPid {
		t.Fatalf("expected original pid restored, got %#x", final.Arg1Based(1))
	}
	if final.Result != 0 {
		t.Fatalf("expected forced success result, got %d", final.Result)
	}
}

func mustNr(task *fakeTask, name string) int {
	nr, ok := task.desc.SyscallNumber(name)
	if !ok {
		panic("no such syscall: " + name)
	}
	return nr
}
