package abi

// amd64Descriptor implements Descriptor for x86_64 tracees.
type amd64Descriptor struct{}

func (amd64Descriptor) Arch() Arch     { return AMD64 }
func (amd64Descriptor) WordSize() int  { return 8 }
func (amd64Descriptor) MmapSemantics() MmapSemantics { return MmapRegisterArgs }
func (amd64Descriptor) CloneTLSType() CloneTLSType   { return CloneTLSPthreadStruct }

// AuxvOrder: x86_64 deposits AT_SYSINFO_EHDR (the vDSO mapping) before the
// rest of the standard auxv keys; x86-32 deposits AT_SYSINFO (the vsyscall
// entry point) instead. See spec.md §4.8 and §8 property 7.
func (amd64Descriptor) AuxvOrder() []uint64 {
	return []uint64{
		atSysinfoEhdr, atHwcap, atPagesz, atClktck, atPhdr, atPhent, atPhnum,
		atBase, atFlags, atEntry, atUID, atEUID, atGID, atEGID, atSecure,
		atRandom, atHwcap2, atExecfn, atPlatform,
	}
}

func (amd64Descriptor) Layouts() Layouts {
	return Layouts{
		Iovec: 16, Msghdr: 56, Mmsghdr: 64, Ifreq: 40, Ifconf: 16,
		EthtoolCmd: 128, Termios: 60, Winsize: 8, Iwreq: 32,
		Flock: 32, Flock64: 32, FOwnerEx: 8, SiginfoT: 128,
		EpollEvent: 12, Pollfd: 8, Timespec: 16, Timeval: 16,
		Rusage: 144, Dqblk: 72, Dqinfo: 24, Msqid64Ds: 104,
		Msginfo: 28, IpcKludgeArgs: 16, SysctlArgs: 48, Sigset: 8,
	}
}

var amd64Syscalls = map[string]int{
	"read": 0, "write": 1, "open": 2, "close": 3, "stat": 4, "fstat": 5,
	"lstat": 6, "poll": 7, "lseek": 8, "mmap": 9, "mprotect": 10, "munmap": 11,
	"brk": 12, "rt_sigaction": 13, "rt_sigprocmask": 14, "ioctl": 16,
	"pread64": 17, "pwrite64": 18, "readv": 19, "writev": 20, "access": 21,
	"select": 23, "_newselect": 23, "sched_yield": 24, "mremap": 25,
	"msync": 26, "madvise": 28, "shmget": 29, "shmat": 30, "shmctl": 31,
	"dup": 32, "dup2": 33, "pause": 34, "nanosleep": 35, "getitimer": 36,
	"setitimer": 38, "getpid": 39, "sendfile": 40, "socket": 41,
	"connect": 42, "accept": 43, "sendto": 44, "recvfrom": 45,
	"sendmsg": 46, "recvmsg": 47, "shutdown": 48, "bind": 49, "listen": 50,
	"getsockname": 51, "getpeername": 52, "socketpair": 53, "setsockopt": 54,
	"getsockopt": 55, "clone": 56, "fork": 57, "vfork": 58, "execve": 59,
	"exit": 60, "wait4": 61, "kill": 62, "uname": 63, "semget": 64,
	"semop": 65, "semctl": 66, "shmdt": 67, "msgget": 68, "msgsnd": 69,
	"msgrcv": 70, "msgctl": 71, "fcntl": 72, "flock": 73, "fsync": 74,
	"getdents": 78, "getcwd": 79, "chdir": 80, "rename": 82, "mkdir": 83,
	"creat": 85, "unlink": 87, "readlink": 89, "chmod": 90, "fchmod": 91,
	"umask": 95, "gettimeofday": 96, "getrlimit": 97, "getrusage": 98,
	"sysinfo": 99, "times": 100, "ptrace": 101, "getuid": 102,
	"rt_sigpending": 127, "rt_sigtimedwait": 128, "rt_sigqueueinfo": 129,
	"rt_sigsuspend": 130, "sigaltstack": 131, "personality": 135,
	"statfs": 137, "fstatfs": 138, "getpriority": 140, "setpriority": 141,
	"sched_setparam": 142, "sched_setscheduler": 144, "mlock": 149,
	"munlock": 150, "prctl": 157, "arch_prctl": 158, "adjtimex": 159,
	"setrlimit": 160, "quotactl": 179, "gettid": 186, "readahead": 187,
	"setxattr": 188, "lsetxattr": 189, "fsetxattr": 190, "getxattr": 191,
	"lgetxattr": 192, "fgetxattr": 193, "tkill": 200, "time": 201,
	"futex": 202, "sched_setaffinity": 203, "sched_getaffinity": 204,
	"set_thread_area": 205, "epoll_create": 213, "getdents64": 217,
	"set_tid_address": 218, "restart_syscall": 219, "semtimedop": 220,
	"fadvise64": 221, "clock_settime": 227, "clock_gettime": 228,
	"clock_getres": 229, "clock_nanosleep": 230, "exit_group": 231,
	"epoll_wait": 232, "epoll_ctl": 233, "tgkill": 234, "utimes": 235,
	"mbind": 237, "set_mempolicy": 238, "get_mempolicy": 239,
	"waitid": 247, "ioprio_set": 251, "ioprio_get": 252,
	"inotify_init": 253, "inotify_add_watch": 254, "inotify_rm_watch": 255,
	"openat": 257, "mkdirat": 258, "mknodat": 259, "fchownat": 260,
	"newfstatat": 262, "unlinkat": 263, "renameat": 264, "linkat": 265,
	"symlinkat": 266, "readlinkat": 267, "fchmodat": 268, "faccessat": 269,
	"pselect6": 270, "ppoll": 271, "unshare": 272, "set_robust_list": 273,
	"get_robust_list": 274, "splice": 275, "tee": 276,
	"sync_file_range": 277, "vmsplice": 278, "move_pages": 279,
	"utimensat": 280, "epoll_pwait": 281, "signalfd": 282,
	"timerfd_create": 283, "eventfd": 284, "fallocate": 285,
	"timerfd_settime": 286, "timerfd_gettime": 287, "accept4": 288,
	"signalfd4": 289, "eventfd2": 290, "epoll_create1": 291, "dup3": 292,
	"pipe2": 293, "inotify_init1": 294, "preadv": 295, "pwritev": 296,
	"rt_tgsigqueueinfo": 297, "perf_event_open": 298, "recvmmsg": 299,
	"fanotify_init": 300, "fanotify_mark": 301, "prlimit64": 302,
	"name_to_handle_at": 303, "open_by_handle_at": 304,
	"clock_adjtime": 305, "syncfs": 306, "sendmmsg": 307, "setns": 308,
	"getcpu": 309, "process_vm_readv": 310, "process_vm_writev": 311,
	"kcmp": 312, "finit_module": 313,
}

var amd64SyscallNames = reverse(amd64Syscalls)

func (amd64Descriptor) SyscallNumber(name string) (int, bool) {
	nr, ok := amd64Syscalls[name]
	return nr, ok
}

func (amd64Descriptor) SyscallName(nr int) string {
	if name, ok := amd64SyscallNames[nr]; ok {
		return name
	}
	return "sys_unknown"
}

func reverse(m map[string]int) map[int]string {
	r := make(map[int]string, len(m))
	for name, nr := range m {
		// Aliases (e.g. "select"/"_newselect") share a number; keep the
		// lexically smallest name so the mapping is deterministic.
		if existing, ok := r[nr]; !ok || name < existing {
			r[nr] = name
		}
	}
	return r
}

// Standard auxv keys, shared across architectures; values match the
// kernel's <uapi/linux/auxvec.h>.
const (
	atNull      = 0
	atIgnore    = 1
	atExecfd    = 2
	atPhdr      = 3
	atPhent     = 4
	atPhnum     = 5
	atPagesz    = 6
	atBase      = 7
	atFlags     = 8
	atEntry     = 9
	atNotelf    = 10
	atUID       = 11
	atEUID      = 12
	atGID       = 13
	atEGID      = 14
	atPlatform  = 15
	atHwcap     = 16
	atClktck    = 17
	atSecure    = 23
	atBaseplat  = 24
	atRandom    = 25
	atHwcap2    = 26
	atExecfn    = 31
	atSysinfo   = 32
	atSysinfoEhdr = 33
)
