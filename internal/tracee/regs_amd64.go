//go:build linux && amd64

package tracee

import (
	"golang.org/x/sys/unix"

	"github.com/stealthrocket/synctrace/internal/engine"
)

// getRegs/setRegs translate between unix.PtraceRegs (the kernel's
// user_regs_struct for x86_64) and the engine's architecture-neutral
// Registers, following the field mapping used throughout the retrieval
// pack's amd64 ptrace tracers (System V AMD64 syscall ABI: rdi, rsi, rdx,
// r10, r8, r9; orig_rax carries the syscall number since rax is
// clobbered with the return value at exit).
func (t *Thread) getRegs() (engine.Registers, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.tid, &regs); err != nil {
		return engine.Registers{}, err
	}
	return engine.Registers{
		SyscallNo: int64(regs.Orig_rax),
		Arg:       [6]uint64{regs.Rdi, regs.Rsi, regs.Rdx, regs.R10, regs.R8, regs.R9},
		Result:    int64(regs.Rax),
		IP:        regs.Rip,
		SP:        regs.Rsp,
	}, nil
}

func (t *Thread) setRegs(r engine.Registers) error {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.tid, &regs); err != nil {
		return err
	}
	regs.Orig_rax = uint64(r.SyscallNo)
	regs.Rdi, regs.Rsi, regs.Rdx, regs.R10, regs.R8, regs.R9 = r.Arg[0], r.Arg[1], r.Arg[2], r.Arg[3], r.Arg[4], r.Arg[5]
	regs.Rax = uint64(r.Result)
	regs.Rip = r.IP
	regs.Rsp = r.SP
	return unix.PtraceSetRegs(t.tid, &regs)
}
