package engine

// Field byte offsets within struct msghdr on a 64-bit Linux target:
// void *msg_name; socklen_t msg_namelen (+4 pad); struct iovec *msg_iov;
// size_t msg_iovlen; void *msg_control; size_t msg_controllen; int
// msg_flags. See abi.Layouts.Msghdr.
const (
	msghdrNameOff       = 0
	msghdrNamelenOff    = 8
	msghdrIovOff        = 16
	msghdrIovlenOff     = 24
	msghdrControlOff    = 32
	msghdrControllenOff = 40
)

const msgDontwait = 0x40

// registerMsghdr is shared by recvmsg and each element of recvmmsg: it
// distributes the syscall's total byte count (or, for recvmmsg elements,
// the per-message msg_len) across msg_name/msg_iov[]/msg_control per
// spec.md §4.5's recvmsg row. sizeFor builds the dynamic-size source
// shared by every iovec of this one msghdr (the whole syscall's result
// for recvmsg, or one recvmmsg element's own msg_len); each element's
// MaxSize is still capped at its own iov_len, matching
// record_syscall.cc's io_size.limit_size(iovecs[i].iov_len) and
// prepareReadvFamily's same per-element capping (io.go), so
// alreadyConsumedFor distributes bytes across same-source iovecs in
// registration order without ever over-crediting any one of them.
func registerMsghdr(t Task, s *SyscallState, msgAddr TraceeAddr, sizeFor func(maxLen uint64) ParamSize) {
	wordSize := t.Descriptor().WordSize()

	nameLen, err := t.ReadWord(TraceeAddr(uint64(msgAddr)+msghdrNamelenOff), 4)
	if err == nil && nameLen > 0 {
		s.MemPtrParameter(TraceeAddr(uint64(msgAddr)+msghdrNameOff), Fixed(nameLen), Out)
	}

	iovlen, err := t.ReadWord(TraceeAddr(uint64(msgAddr)+msghdrIovlenOff), wordSize)
	if err == nil && iovlen > 0 {
		iovBase, err := t.ReadWord(TraceeAddr(uint64(msgAddr)+msghdrIovOff), wordSize)
		if err == nil {
			layout := t.Descriptor().Layouts()
			for i := uint64(0); i < iovlen; i++ {
				elemAddr := TraceeAddr(iovBase + i*uint64(layout.Iovec))
				base, err := t.ReadWord(elemAddr, wordSize)
				if err != nil || base == 0 {
					continue
				}
				length, err := t.ReadWord(TraceeAddr(uint64(elemAddr)+uint64(wordSize)), wordSize)
				if err != nil {
					continue
				}
				p := &MemoryParam{Dest: TraceeAddr(base), Size: sizeFor(length), Mode: Out}
				p.Scratch = s.allocScratch(length)
				if err := t.WriteWord(elemAddr, wordSize, uint64(p.Scratch)); err == nil {
					s.Params = append(s.Params, p)
				}
			}
		}
	}

	controlLen, err := t.ReadWord(TraceeAddr(uint64(msgAddr)+msghdrControllenOff), wordSize)
	if err == nil && controlLen > 0 {
		s.MemPtrParameter(TraceeAddr(uint64(msgAddr)+msghdrControlOff), Fixed(controlLen), Out)
	}
}

// prepareRecvfrom: buf sized from the syscall result; addrlen IN_OUT;
// src_addr (arg5) registered directly, sized from (the now-updated)
// addrlen (spec.md §4.5, original_source/src/record_syscall.cc:1233-1241
// `reg_parameter(5, from_initialized_mem(t, addrlen_ptr))`) — addrlen_ptr
// holds the addrlen integer itself, never a pointer, so it is only ever
// the dynamic-size source of arg5, not a MemPtrParameter target.
func prepareRecvfrom(t Task, s *SyscallState, regs Registers) Switchable {
	count := regs.Arg1Based(3)
	s.RegParameter(regs, 2, FromSyscallResult(8, count), Out)

	addrlenAddr := TraceeAddr(regs.Arg1Based(6))
	if addrlenAddr != 0 {
		s.RegParameter(regs, 6, Fixed(4), InOut)
		s.RegParameter(regs, 5, FromMem(addrlenAddr, 4, 128), Out)
	}
	return AllowSwitch
}

// prepareRecvmsg distributes the whole msghdr, switchable unless
// MSG_DONTWAIT is set (spec.md §4.5).
func prepareRecvmsg(t Task, s *SyscallState, regs Registers) Switchable {
	msgAddr := TraceeAddr(regs.Arg1Based(2))
	if msgAddr != 0 {
		registerMsghdr(t, s, msgAddr, func(maxLen uint64) ParamSize {
			return FromSyscallResult(8, maxLen)
		})
	}
	if int(regs.Arg1Based(3))&msgDontwait != 0 {
		return PreventSwitch
	}
	return AllowSwitch
}

// prepareRecvmmsg applies the recvmsg rules to each element of msgvec;
// each element's inner iovs share a size sourced from that element's own
// msg_len field, not the overall syscall result (SPEC_FULL.md §10).
func prepareRecvmmsg(t Task, s *SyscallState, regs Registers) Switchable {
	msgvec := TraceeAddr(regs.Arg1Based(2))
	vlen := regs.Arg1Based(3)
	layout := t.Descriptor().Layouts()
	s.RegParameter(regs, 2, Fixed(vlen*uint64(layout.Mmsghdr)), InOut)

	for i := uint64(0); i < vlen; i++ {
		elemAddr := TraceeAddr(uint64(msgvec) + i*uint64(layout.Mmsghdr))
		msgLenAddr := TraceeAddr(uint64(elemAddr) + uint64(layout.Msghdr))
		registerMsghdr(t, s, elemAddr, func(maxLen uint64) ParamSize {
			return FromMem(msgLenAddr, 4, maxLen)
		})
	}
	if int(regs.Arg1Based(4))&msgDontwait != 0 {
		return PreventSwitch
	}
	return AllowSwitch
}

// prepareSendmmsg registers the whole msgvec array IN_OUT (the kernel
// updates each element's msg_len on return), switchable unless
// MSG_DONTWAIT (SPEC_FULL.md §10, grounded on rr's SYS_SENDMMSG handling).
func prepareSendmmsg(t Task, s *SyscallState, regs Registers) Switchable {
	vlen := regs.Arg1Based(3)
	layout := t.Descriptor().Layouts()
	s.RegParameter(regs, 2, Fixed(vlen*uint64(layout.Mmsghdr)), InOut)
	if int(regs.Arg1Based(4))&msgDontwait != 0 {
		return PreventSwitch
	}
	return AllowSwitch
}

// prepareAccept handles accept/accept4: addr (arg2) registered directly,
// sized from addrlen; addrlen (arg3) IN_OUT (spec.md §4.5,
// original_source/src/record_syscall.cc:1308-1316
// `reg_parameter(2, from_initialized_mem(t, addrlen_ptr))`).
func prepareAccept(t Task, s *SyscallState, regs Registers) Switchable {
	addrlenAddr := TraceeAddr(regs.Arg1Based(3))
	if addrlenAddr != 0 {
		s.RegParameter(regs, 2, FromMem(addrlenAddr, 4, 128), Out)
		s.RegParameter(regs, 3, Fixed(4), InOut)
	}
	return AllowSwitch
}

const fdSetBytes = 128 // 1024 bits, matches glibc's FD_SETSIZE on Linux.

// prepareSelect handles select/_newselect/pselect6: three fd_set
// pointers (read/write/except) and the timeout are IN_OUT (spec.md §4.5).
func prepareSelect(t Task, s *SyscallState, regs Registers) Switchable {
	layout := t.Descriptor().Layouts()
	for _, argIdx := range []ArgIndex{2, 3, 4} {
		s.RegParameter(regs, argIdx, Fixed(fdSetBytes), InOut)
	}
	s.RegParameter(regs, 5, Fixed(uint64(layout.Timeval)), InOut)
	return AllowSwitch
}

// preparePoll handles poll/ppoll: the pollfd array is IN_OUT, sized
// sizeof(pollfd) * nfds (spec.md §4.5).
func preparePoll(t Task, s *SyscallState, regs Registers) Switchable {
	nfds := regs.Arg1Based(2)
	layout := t.Descriptor().Layouts()
	s.RegParameter(regs, 1, Fixed(nfds*uint64(layout.Pollfd)), InOut)
	return AllowSwitch
}
