package engine

// System V IPC control commands, from <linux/ipc.h>/<linux/msg.h>.
const (
	ipcStat = 2
	ipcInfo = 3
	msgStat = 11
	msgInfo = 12

	ipcNowait = 04000
)

// prepareMsgctl: IPC_STAT/MSG_STAT register a msqid64_ds OUT struct,
// IPC_INFO/MSG_INFO register a msginfo OUT struct, any other command
// registers nothing (SPEC_FULL.md §10, grounded on rr's prepare_msgctl).
func prepareMsgctl(t Task, s *SyscallState, regs Registers) Switchable {
	cmd := int(regs.Arg1Based(2))
	layout := t.Descriptor().Layouts()

	switch cmd {
	case ipcStat, msgStat:
		s.RegParameter(regs, 3, Fixed(uint64(layout.Msqid64Ds)), Out)
	case ipcInfo, msgInfo:
		s.RegParameter(regs, 3, Fixed(uint64(layout.Msginfo)), Out)
	}
	return PreventSwitch
}

// prepareMsgrcv registers the message buffer, sized sizeof(long) +
// msgsz (the caller-supplied maximum), as OUT; switchable because a
// receive with no matching message blocks (spec.md §4.5's "ipc MSGRCV"
// row).
func prepareMsgrcv(t Task, s *SyscallState, regs Registers) Switchable {
	msgsz := regs.Arg1Based(3)
	s.RegParameter(regs, 2, Fixed(8+msgsz), Out)
	return AllowSwitch
}

// prepareMsgsnd registers nothing (the kernel only reads msgp);
// switchable unless IPC_NOWAIT is set, in which case the call cannot
// block.
func prepareMsgsnd(t Task, s *SyscallState, regs Registers) Switchable {
	if int(regs.Arg1Based(4))&ipcNowait != 0 {
		return PreventSwitch
	}
	return AllowSwitch
}
