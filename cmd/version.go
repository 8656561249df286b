package cmd

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the synctrace version",
	Args:  cobra.NoArgs,
	Run:   cmdFunc(version),
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func version(ctx context.Context, args []string) error {
	fmt.Printf("synctrace %s\n", currentVersion())
	return nil
}

func currentVersion() string {
	version := "devel"
	if info, ok := debug.ReadBuildInfo(); ok {
		switch info.Main.Version {
		case "", "(devel)":
		default:
			version = info.Main.Version
		}
	}
	return version
}
