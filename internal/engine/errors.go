package engine

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// KernelError wraps an errno the kernel returned to the tracee. It is
// tracee-visible and transparently preserved: a failed syscall still
// undergoes finalization (spec.md §7a).
type KernelError struct {
	Errno unix.Errno
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("kernel returned %s", e.Errno)
}

// ExpectedErrnoViolation is the cause ProcessSyscallResults aborts with
// when a preparer's expect_errno was set but the kernel did not return it
// (spec.md §3, §7b, §8 property 6).
type ExpectedErrnoViolation struct {
	Want, Got unix.Errno
}

func (e *ExpectedErrnoViolation) Error() string {
	return fmt.Sprintf("expected kernel to return %s, got %s", e.Want, e.Got)
}

// FatalError is an internal-error path with no sensible recovery: an
// unknown ioctl with the read bit set, overlapping scratch buffers, a
// misaligned ParamSize read size, a scratch pointer outside any registered
// parameter. These abort the recording session; the finalizer never
// attempts to continue past one (spec.md §7c, §9).
type FatalError struct {
	cause error
}

func (e *FatalError) Error() string { return e.cause.Error() }
func (e *FatalError) Unwrap() error { return e.cause }

// Fatalf builds a FatalError carrying a stack trace from the call site, so
// the top-level recovery logs a diagnostic useful enough to debug from.
func Fatalf(format string, args ...any) error {
	return &FatalError{cause: errors.Errorf(format, args...)}
}

// WrapFatal annotates err as fatal, wrapping it with msg and a stack trace
// from the call site.
func WrapFatal(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &FatalError{cause: errors.Wrap(err, msg)}
}

// IsFatal reports whether err (or something it wraps) is a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// abortf panics with a FatalError, mirroring the reference implementation's
// assert()/FATAL() paths: these are bugs, not runtime conditions, so the
// preparer/finalizer unwind immediately rather than trying to limp on with
// a corrupted SyscallState. EnterSyscall and ExitSyscall (run.go) recover
// it at the syscall-enter/exit boundary and return it as a session-ending
// error.
func abortf(format string, args ...any) {
	panic(&FatalError{cause: errors.Errorf(format, args...)})
}
