package engine

// Syscalls with no entry in dispatch (preparer.go) fall through to the
// default behavior baked into Prepare: PREVENT_SWITCH, no registered
// parameters. This is deliberate — the reference implementation's
// default case is the same "don't guess" stance taken for unknown
// ioctls, just without the fatal escalation, since most unhandled
// syscalls are genuinely fire-and-forget from the recorder's point of
// view (spec.md §4.5: "any syscall not listed gets PREVENT_SWITCH and no
// registered params").
