package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/stealthrocket/synctrace/internal/abi"
	"github.com/stealthrocket/synctrace/internal/engine"
	"github.com/stealthrocket/synctrace/internal/print/human"
	"github.com/stealthrocket/synctrace/internal/tracee"
	"github.com/stealthrocket/synctrace/internal/tracelog"
)

var (
	recordOutput       = "trace.log"
	recordScratchPages = engine.DefaultOptions().ScratchPages
	recordCompression  = "zstd"
)

var recordCmd = &cobra.Command{
	Use:   "record -- <program> [args...]",
	Short: "Record a deterministic trace of a program's execution",
	Args:  cobra.MinimumNArgs(1),
	Run:   cmdFunc(record),
}

func init() {
	recordCmd.Flags().StringVar(&recordOutput, "output", recordOutput, "trace output path")
	recordCmd.Flags().IntVar(&recordScratchPages, "scratch-pages", recordScratchPages, "per-task scratch region size, in pages")
	recordCmd.Flags().StringVar(&recordCompression, "compression", recordCompression, "trace compression: none, snappy, or zstd")
	applyEnvOverrides()
	rootCmd.AddCommand(recordCmd)
}

// applyEnvOverrides implements SPEC_FULL.md §2's environment variable
// config layer (SYNCTRACE_SCRATCH_PAGES, SYNCTRACE_LOG_COMPRESSION).
// SYNCTRACE_SCRATCH_PAGES is parsed with the teacher's human.ParseCount,
// so it accepts human-readable numbers (e.g. "2K") and is ignored if it
// does not parse; the --scratch-pages flag takes a plain integer.
func applyEnvOverrides() {
	if v, ok := os.LookupEnv("SYNCTRACE_SCRATCH_PAGES"); ok {
		if pages, err := human.ParseCount(v); err == nil {
			recordScratchPages = int(pages)
		}
	}
	if v, ok := os.LookupEnv("SYNCTRACE_LOG_COMPRESSION"); ok {
		recordCompression = v
	}
}

func compressionFromFlag(s string) (tracelog.Compression, error) {
	switch s {
	case "none":
		return tracelog.Uncompressed, nil
	case "snappy":
		return tracelog.Snappy, nil
	case "zstd":
		return tracelog.Zstd, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %q (not one of none, snappy, zstd)", s)
	}
}

func record(ctx context.Context, args []string) error {
	compression, err := compressionFromFlag(recordCompression)
	if err != nil {
		return err
	}

	var outputPath human.Path
	if err := outputPath.Set(recordOutput); err != nil {
		return err
	}
	f, err := os.Create(string(outputPath))
	if err != nil {
		return fmt.Errorf("creating trace output: %w", err)
	}
	defer f.Close()

	writer, err := tracelog.NewWriter(f, compression)
	if err != nil {
		return err
	}
	defer writer.Flush()

	proc, err := tracee.Launch(args[0], args[1:], os.Environ())
	if err != nil {
		return err
	}

	session, err := tracee.NewSession(proc.Process.Pid, hostArch(), writer, engine.Options{ScratchPages: recordScratchPages})
	if err != nil {
		return err
	}

	if err := session.Run(); err != nil {
		return err
	}
	return writer.Flush()
}

// hostArch reports the abi.Arch matching the architecture this binary was
// built for; the session decodes the tracee with this architecture's ABI
// throughout. The engine does not detect a cross-arch execve (see
// engine's elfArchMismatch).
func hostArch() abi.Arch {
	switch runtime.GOARCH {
	case "arm64":
		return abi.ARM64
	default:
		return abi.AMD64
	}
}
