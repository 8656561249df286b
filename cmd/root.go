// Package cmd implements the synctrace command line: a small cobra tree
// following the teacher's cmd/root.go wiring (a package-level rootCmd,
// one file per subcommand, cmdFunc adapting a (context, args) error
// function to cobra's Run signature).
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "synctrace",
	Short: "A deterministic syscall recorder for Linux processes",
	Long:  ``,
}

// Execute runs the root command; each subcommand adds itself to rootCmd in
// its own file's init function. It is called once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func cmdFunc(fn func(context.Context, []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		err := fn(ctx, args)
		cobra.CheckErr(err)
	}
}
