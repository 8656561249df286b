package engine

import "golang.org/x/sys/unix"

// quotactl sub-commands, from <linux/quota.h>. The kernel packs these
// into the high byte of the cmd argument via QCMD(subcmd, type); masking
// off the low byte (the quota type) recovers the sub-command.
const (
	qQuotaon  = 0x0100
	qQuotaoff = 0x0200
	qGetquota = 0x0300
	qSetquota = 0x0400
	qGetinfo  = 0x0500
	qSetinfo  = 0x0600
	qGetfmt   = 0x0700
	qSync     = 0x0800

	qSubcmdMask = 0xff00
)

// prepareQuotactl dispatches on the sub-command: Q_GETQUOTA registers a
// dqblk OUT struct, Q_GETINFO a dqinfo OUT struct, Q_GETFMT a 4-byte OUT
// int; Q_QUOTAON/Q_QUOTAOFF/Q_SETINFO/Q_SYNC register nothing.
// Q_SETQUOTA is refused outright — mutating disk quotas during a
// recording session is not something this engine will do on the
// tracee's behalf. Anything else is unsupported (SPEC_FULL.md §10,
// grounded on rr's Arch::quotactl case).
func prepareQuotactl(t Task, s *SyscallState, regs Registers) Switchable {
	cmd := int(regs.Arg1Based(1)) & qSubcmdMask
	layout := t.Descriptor().Layouts()

	switch cmd {
	case qGetquota:
		s.RegParameter(regs, 4, Fixed(uint64(layout.Dqblk)), Out)
	case qGetinfo:
		s.RegParameter(regs, 4, Fixed(uint64(layout.Dqinfo)), Out)
	case qGetfmt:
		s.RegParameter(regs, 4, Fixed(4), Out)
	case qQuotaon, qQuotaoff, qSetinfo, qSync:
		// Nothing to register.
	case qSetquota:
		abortf("engine: refusing Q_SETQUOTA during recording")
	default:
		einval := int(unix.EINVAL)
		s.ExpectErrno = &einval
	}
	return PreventSwitch
}
