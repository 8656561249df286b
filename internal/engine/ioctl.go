package engine

// ioctl request encoding, from <asm-generic/ioctl.h>.
const (
	iocNrbits   = 8
	iocTypebits = 8
	iocSizebits = 14

	iocNrshift   = 0
	iocTypeshift = iocNrshift + iocNrbits
	iocSizeshift = iocTypeshift + iocTypebits
	iocDirshift  = iocSizeshift + iocSizebits

	iocRead = 2
)

func iocType(req int) int { return (req >> iocTypeshift) & ((1 << iocTypebits) - 1) }
func iocNr(req int) int   { return (req >> iocNrshift) & ((1 << iocNrbits) - 1) }
func iocDir(req int) int  { return (req >> iocDirshift) & 3 }
func iocSize(req int) int { return (req >> iocSizeshift) & ((1 << iocSizebits) - 1) }

// Irregular ioctl requests special-cased because they don't follow the
// regular _IOC() size-from-request-encoding convention (spec.md §4.6).
const (
	siocEthtool  = 0x8946
	siocGifconf  = 0x8912
	siocGifaddr  = 0x8915
	siocGifflags = 0x8913
	siocGifindex = 0x8933
	siocGifmtu   = 0x8921
	siocGifname  = 0x8910
	siocGiwrate  = 0x8b21
	tcgets       = 0x5401
	tiocinq      = 0x541b
	tiocgwinsz   = 0x5413

	// ifru_data's byte offset within struct ifreq on 64-bit Linux: a
	// 16-byte ifr_name followed by the ifr_ifru union, whose first
	// (pointer) member starts immediately after.
	ifreqDataOffset = 16
)

// prepareIoctl handles ioctl. Known irregular requests are special-cased;
// everything else is decomposed via the standard _IOC_* macros: if the
// read-direction bit is clear the call is assumed deterministic and
// nothing is registered, otherwise the argument buffer is registered OUT
// sized by the request's encoded size. Never switchable (spec.md §4.6).
func prepareIoctl(t Task, s *SyscallState, regs Registers) Switchable {
	request := int(int32(regs.Arg1Based(2)))
	layout := t.Descriptor().Layouts()

	switch request {
	case siocEthtool:
		ifrAddr := s.RegParameter(regs, 3, Fixed(uint64(layout.Ifreq)), In)
		if ifrAddr != 0 {
			s.MemPtrParameter(TraceeAddr(uint64(ifrAddr)+ifreqDataOffset), Fixed(uint64(layout.EthtoolCmd)), Out)
		}
		s.RecordPageBelowStackPtr = true
		return PreventSwitch

	case siocGifconf:
		ifconfAddr := s.RegParameter(regs, 3, Fixed(uint64(layout.Ifconf)), In)
		if ifconfAddr != 0 {
			ifcLen, err := t.ReadWord(ifconfAddr, 4)
			if err == nil {
				// ifc_buf sits right after the (padded) ifc_len field.
				s.MemPtrParameter(TraceeAddr(uint64(ifconfAddr)+8), Fixed(ifcLen), Out)
			}
		}
		s.RecordPageBelowStackPtr = true
		return PreventSwitch

	case siocGifaddr, siocGifflags, siocGifindex, siocGifmtu, siocGifname:
		s.RegParameter(regs, 3, Fixed(uint64(layout.Ifreq)), InOut)
		s.RecordPageBelowStackPtr = true
		return PreventSwitch

	case siocGiwrate:
		s.RegParameter(regs, 3, Fixed(uint64(layout.Iwreq)), Out)
		s.RecordPageBelowStackPtr = true
		return PreventSwitch

	case tcgets:
		s.RegParameter(regs, 3, Fixed(uint64(layout.Termios)), Out)
		return PreventSwitch

	case tiocinq:
		s.RegParameter(regs, 3, Fixed(4), Out)
		return PreventSwitch

	case tiocgwinsz:
		s.RegParameter(regs, 3, Fixed(uint64(layout.Winsize)), Out)
		return PreventSwitch
	}

	dir := iocDir(request)
	if dir&iocRead == 0 {
		// Nothing to do: we hope the observable result is deterministic.
		return PreventSwitch
	}

	// A regular ioctl whose processing is known to only write the bytes
	// in the structure passed to the kernel: record size bytes.
	size := iocSize(request)
	if size > 0 {
		s.RegParameter(regs, 3, Fixed(uint64(size)), Out)
	} else {
		// Unknown read-direction ioctl with no encoded size: the
		// reference implementation treats this as a bug, not a runtime
		// condition (spec.md §4.6, §7c).
		abortf("engine: unknown ioctl %#x (type=%#x nr=%#x dir=%d size=%d)",
			request, iocType(request), iocNr(request), dir, size)
	}
	return PreventSwitch
}
