// Package tracee is the concrete, Linux-only implementation of
// engine.Task: it drives a traced process through golang.org/x/sys/unix's
// ptrace syscalls and satisfies the engine's "external collaborator"
// boundary so the preparation/finalization core can be exercised against
// a real process instead of a fake.
//
// Register access is architecture-specific (ptrace's register struct
// layout differs between amd64 and arm64); that part lives in
// regs_amd64.go / regs_arm64.go, selected by build tag.
package tracee

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/stealthrocket/synctrace/internal/abi"
	"github.com/stealthrocket/synctrace/internal/engine"
)

var log = logrus.WithField("pkg", "tracee")

// scratchPageSize matches the host page size on every architecture this
// package supports.
const scratchPageSize = 4096

// Thread is a traced thread of execution: one OS thread inside the
// tracee, identified by its Linux tid. The initial thread of a process
// has tid == pid.
type Thread struct {
	tid   int
	arch  abi.Arch
	desc  abi.Descriptor
	trace engine.TraceWriter

	scratchBase engine.TraceeAddr
	scratchCap  int

	prname string
}

// NewThread wraps an already-ptrace-stopped tid. The scratch region must
// already be mapped in the tracee (Session installs it at birth and after
// every successful execve).
func NewThread(tid int, arch abi.Arch, trace engine.TraceWriter, scratchBase engine.TraceeAddr, scratchCap int) *Thread {
	return &Thread{
		tid:         tid,
		arch:        arch,
		desc:        abi.For(arch),
		trace:       trace,
		scratchBase: scratchBase,
		scratchCap:  scratchCap,
	}
}

func (t *Thread) Tid() int                  { return t.tid }
func (t *Thread) Arch() abi.Arch            { return t.arch }
func (t *Thread) Descriptor() abi.Descriptor { return t.desc }

func (t *Thread) Regs() engine.Registers {
	regs, err := t.getRegs()
	if err != nil {
		log.WithError(err).WithField("tid", t.tid).Error("PTRACE_GETREGS failed")
		return engine.Registers{}
	}
	return regs
}

func (t *Thread) SetRegs(r engine.Registers) {
	if err := t.setRegs(r); err != nil {
		log.WithError(err).WithField("tid", t.tid).Error("PTRACE_SETREGS failed")
	}
}

// ReadBytes copies n bytes out of the tracee's address space via
// PTRACE_PEEKDATA, word at a time (PEEKTEXT/PEEKDATA are equivalent on
// Linux and both only transfer one machine word per call).
func (t *Thread) ReadBytes(addr engine.TraceeAddr, n int) ([]byte, error) {
	out := make([]byte, n)
	got, err := unix.PtracePeekData(t.tid, uintptr(addr), out)
	if err != nil {
		return nil, errors.Wrapf(err, "tracee %d: PEEKDATA at %#x", t.tid, addr)
	}
	return out[:got], nil
}

func (t *Thread) WriteBytes(addr engine.TraceeAddr, data []byte) error {
	if _, err := unix.PtracePokeData(t.tid, uintptr(addr), data); err != nil {
		return errors.Wrapf(err, "tracee %d: POKEDATA at %#x", t.tid, addr)
	}
	return nil
}

// RemoteMemcpy copies n bytes within the tracee's own address space: the
// copy-in phase of scratch relocation (spec.md §4.2) stages a tracee
// buffer into the tracee's own scratch region, so both src and dst are
// tracee addresses.
func (t *Thread) RemoteMemcpy(dst, src engine.TraceeAddr, n int) error {
	buf, err := t.ReadBytes(src, n)
	if err != nil {
		return err
	}
	return t.WriteBytes(dst, buf)
}

func (t *Thread) ReadCString(addr engine.TraceeAddr) (string, error) {
	var out []byte
	var chunk [8]byte
	for {
		n, err := unix.PtracePeekData(t.tid, uintptr(addr), chunk[:])
		if err != nil {
			return "", errors.Wrapf(err, "tracee %d: PEEKDATA (cstring) at %#x", t.tid, addr)
		}
		for i := 0; i < n; i++ {
			if chunk[i] == 0 {
				return string(out), nil
			}
			out = append(out, chunk[i])
		}
		addr += engine.TraceeAddr(n)
		if len(out) > 1<<20 {
			return "", fmt.Errorf("tracee %d: runaway C string at %#x", t.tid, addr)
		}
	}
}

func (t *Thread) ReadWord(addr engine.TraceeAddr, size int) (uint64, error) {
	buf, err := t.ReadBytes(addr, size)
	if err != nil {
		return 0, err
	}
	return decodeWord(buf, size), nil
}

func (t *Thread) WriteWord(addr engine.TraceeAddr, size int, v uint64) error {
	buf := make([]byte, size)
	encodeWord(buf, size, v)
	return t.WriteBytes(addr, buf)
}

func decodeWord(buf []byte, size int) uint64 {
	var v uint64
	for i := size - 1; i >= 0; i-- {
		v = v<<8 | uint64(buf[i])
	}
	return v
}

func encodeWord(buf []byte, size int, v uint64) {
	for i := 0; i < size; i++ {
		buf[i] = byte(v)
		v >>= 8
	}
}

func (t *Thread) SyscallName(nr int) string {
	return t.desc.SyscallName(nr)
}

func (t *Thread) Fstat(fd int) (int64, error) {
	// /proc/<tid>/fd/<n> resolves against the tracee's own descriptor
	// table without needing to enter it (no setns required for a plain
	// size lookup).
	var st unix.Stat_t
	if err := unix.Fstatat(unix.AT_FDCWD, fmt.Sprintf("/proc/%d/fd/%d", t.tid, fd), &st, 0); err != nil {
		return 0, errors.Wrapf(err, "tracee %d: stat fd %d", t.tid, fd)
	}
	return st.Size, nil
}

func (t *Thread) UpdatePrName(name string) {
	t.prname = name
}

func (t *Thread) ScratchBase() engine.TraceeAddr { return t.scratchBase }
func (t *Thread) ScratchCap() int                { return t.scratchCap }

func (t *Thread) Trace() engine.TraceWriter { return t.trace }

// Cont resumes the tracee until its next syscall-stop (PTRACE_SYSCALL),
// optionally delivering sig.
func (t *Thread) Cont(sig syscall.Signal) error {
	return unix.PtraceSyscall(t.tid, int(sig))
}

// installScratch maps a private, anonymous scratch region in the tracee
// via a forged mmap syscall executed in the tracee itself — the standard
// ptrace trick for injecting a syscall (rr and most of the corpus's
// sandboxes do the same thing for mapping setup): save the registers,
// overwrite them to describe the mmap, single-step past the syscall
// instruction, read back the result, then restore.
//
// A concrete implementation needs the tracee parked exactly at a
// syscall-entry stop with a syscall instruction under the program
// counter; Session.Launch arranges that by trapping the first execve.
func (t *Thread) installScratch(pages int) error {
	size := uint64(pages) * scratchPageSize
	saved := t.Regs()

	req := saved
	req.SyscallNo = int64(mustSyscallNumber(t.desc, "mmap"))
	req.Arg = [6]uint64{0, size, unix.PROT_READ | unix.PROT_WRITE, unix.MAP_PRIVATE | unix.MAP_ANONYMOUS, ^uint64(0), 0}
	t.SetRegs(req)

	if err := t.singleStepSyscall(); err != nil {
		t.SetRegs(saved)
		return errors.Wrap(err, "tracee: forging scratch mmap")
	}

	result := t.Regs()
	addr := result.Result
	t.SetRegs(saved)

	if int64(addr) < 0 && int64(addr) > -4096 {
		return fmt.Errorf("tracee %d: scratch mmap failed: errno %d", t.tid, -int64(addr))
	}
	t.scratchBase = engine.TraceeAddr(addr)
	t.scratchCap = int(size)
	return nil
}

// singleStepSyscall resumes the tracee once through entry and once
// through exit of the syscall currently loaded in its registers,
// collecting the result without running any of the engine's
// prepare/finalize logic (it is only ever used for scratch setup, which
// is plumbing the engine never sees).
func (t *Thread) singleStepSyscall() error {
	for i := 0; i < 2; i++ {
		if err := unix.PtraceSyscall(t.tid, 0); err != nil {
			return err
		}
		var ws unix.WaitStatus
		if _, err := unix.Wait4(t.tid, &ws, 0, nil); err != nil {
			return err
		}
		if !ws.Stopped() {
			return fmt.Errorf("tracee %d: exited while forging syscall", t.tid)
		}
	}
	return nil
}

func mustSyscallNumber(d abi.Descriptor, name string) int {
	nr, ok := d.SyscallNumber(name)
	if !ok {
		panic("tracee: descriptor has no " + name + " syscall")
	}
	return nr
}

// Launch starts path under ptrace, using the same PTRACE_TRACEME +
// exec.Cmd wiring the retrieval pack's simpler tracers use (grounded on
// orivej-fptrace's trace()): the child calls PTRACE_TRACEME before
// exec'ing, which raises SIGTRAP to the parent on the exec itself.
func Launch(path string, args []string, env []string) (*exec.Cmd, error) {
	cmd := exec.Command(path, args...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "tracee: launching tracee")
	}
	var ws unix.WaitStatus
	if _, err := unix.Wait4(cmd.Process.Pid, &ws, 0, nil); err != nil {
		return nil, errors.Wrap(err, "tracee: waiting for initial exec-stop")
	}
	if err := unix.PtraceSetOptions(cmd.Process.Pid, unix.PTRACE_O_TRACESYSGOOD|unix.PTRACE_O_TRACECLONE|unix.PTRACE_O_TRACEEXEC); err != nil {
		return nil, errors.Wrap(err, "tracee: PTRACE_SETOPTIONS")
	}
	return cmd, nil
}
