//go:build linux && arm64

package tracee

import (
	"golang.org/x/sys/unix"

	"github.com/stealthrocket/synctrace/internal/engine"
)

// getRegs/setRegs translate unix.PtraceRegs (user_pt_regs on arm64) to
// the engine's Registers. AArch64's syscall ABI passes the number in x8
// and arguments in x0..x5; unlike amd64 there is no orig_x0 shadow
// register, so the kernel simply leaves x0 holding the first argument at
// syscall-enter and overwrites it with the result at syscall-exit (spec.md
// §6 note on architectures lacking an orig_rax equivalent — grounded on
// the same Regs[8]/Regs[0..5] layout used by the retrieval pack's arm64
// ptrace tracers).
func (t *Thread) getRegs() (engine.Registers, error) {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.tid, &regs); err != nil {
		return engine.Registers{}, err
	}
	return engine.Registers{
		SyscallNo: int64(regs.Regs[8]),
		Arg:       [6]uint64{regs.Regs[0], regs.Regs[1], regs.Regs[2], regs.Regs[3], regs.Regs[4], regs.Regs[5]},
		Result:    int64(regs.Regs[0]),
		IP:        regs.Pc,
		SP:        regs.Sp,
	}, nil
}

func (t *Thread) setRegs(r engine.Registers) error {
	var regs unix.PtraceRegs
	if err := unix.PtraceGetRegs(t.tid, &regs); err != nil {
		return err
	}
	regs.Regs[8] = uint64(r.SyscallNo)
	for i := 0; i < 6; i++ {
		regs.Regs[i] = r.Arg[i]
	}
	regs.Regs[0] = uint64(r.Result)
	regs.Pc = r.IP
	regs.Sp = r.SP
	return unix.PtraceSetRegs(t.tid, &regs)
}
