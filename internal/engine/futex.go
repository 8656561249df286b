package engine

// futex operation codes (low bits of arg2, after masking out
// FUTEX_PRIVATE_FLAG/FUTEX_CLOCK_REALTIME), from <linux/futex.h>.
const (
	futexWait        = 0
	futexWake        = 1
	futexFd          = 2
	futexRequeue     = 3
	futexCmpRequeue  = 4
	futexWakeOp      = 5
	futexLockPi      = 6
	futexUnlockPi    = 7
	futexTrylockPi   = 8
	futexWaitBitset  = 9
	futexWakeBitset  = 10
	futexPrivateFlag = 128
)

// prepareFutex handles futex: the word at arg1 is always registered
// IN_OUT_NO_SCRATCH because address identity matters (other threads race
// on the same address). WAIT/WAIT_BITSET are the only switchable ops;
// CMP_REQUEUE/WAKE_OP additionally register arg5's word, also
// IN_OUT_NO_SCRATCH (spec.md §4.5).
func prepareFutex(t Task, s *SyscallState, regs Registers) Switchable {
	op := int(regs.Arg1Based(2)) &^ futexPrivateFlag

	s.RegParameter(regs, 1, Fixed(4), InOutNoScratch)

	switchable := PreventSwitch
	switch op {
	case futexWait, futexWaitBitset:
		switchable = AllowSwitch
	case futexCmpRequeue, futexWakeOp:
		s.RegParameter(regs, 5, Fixed(4), InOutNoScratch)
	}
	return switchable
}
