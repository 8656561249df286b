package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/stealthrocket/synctrace/internal/print/human"
	"github.com/stealthrocket/synctrace/internal/print/jsonprint"
	"github.com/stealthrocket/synctrace/internal/print/textprint"
	"github.com/stealthrocket/synctrace/internal/print/yamlprint"
	"github.com/stealthrocket/synctrace/internal/stream"
	"github.com/stealthrocket/synctrace/internal/tracelog"
)

var inspectFormat = "text"

var inspectCmd = &cobra.Command{
	Use:   "inspect <trace>",
	Short: "Print the contents of a recorded trace",
	Args:  cobra.ExactArgs(1),
	Run:   cmdFunc(inspect),
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", inspectFormat, "output format: text, json, or yaml")
	rootCmd.AddCommand(inspectCmd)
}

// inspectRow is the flattened, printable view of a tracelog.Record,
// shaped for the teacher's generic table/json/yaml writers (compare
// internal/cmd/get.go's row structs in the teacher).
type inspectRow struct {
	Kind      string      `json:"kind"      yaml:"kind"      text:"KIND"`
	Tid       int         `json:"tid"       yaml:"tid"       text:"TID"`
	ParentTid int         `json:"parentTid,omitempty" yaml:"parentTid,omitempty" text:"PARENT"`
	Addr      uint64      `json:"addr,omitempty"      yaml:"addr,omitempty"      text:"ADDR"`
	Size      human.Bytes `json:"size,omitempty"      yaml:"size,omitempty"      text:"SIZE"`
	Name      string      `json:"name,omitempty"      yaml:"name,omitempty"      text:"NAME"`
}

func kindName(k byte) string {
	switch k {
	case 1:
		return "task-created"
	case 2:
		return "mapped-region"
	case 3:
		return "memory"
	case 4:
		return "event"
	default:
		return "unknown"
	}
}

func toRow(r tracelog.Record) inspectRow {
	row := inspectRow{Kind: kindName(r.Kind), Tid: r.Tid}
	switch r.Kind {
	case 1:
		row.ParentTid = r.ParentTid
	case 2:
		row.Addr = uint64(r.Region.Start)
		row.Size = human.Bytes(uint64(r.Region.End) - uint64(r.Region.Start))
		row.Name = r.Region.File
	case 3:
		row.Addr = uint64(r.Addr)
		row.Size = human.Bytes(len(r.Data))
	case 4:
		row.Name = r.Name
		row.Size = human.Bytes(len(r.Payload))
	}
	return row
}

func inspect(ctx context.Context, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	reader, err := tracelog.NewReader(f)
	if err != nil {
		return err
	}

	var out stream.WriteCloser[inspectRow]
	switch inspectFormat {
	case "json":
		out = jsonprint.NewWriter[inspectRow](os.Stdout)
	case "yaml":
		out = yamlprint.NewWriter[inspectRow](os.Stdout)
	case "text":
		out = textprint.NewTableWriter[inspectRow](os.Stdout)
	default:
		return fmt.Errorf("unsupported output format: %q (not one of text, json, yaml)", inspectFormat)
	}
	defer out.Close()

	for {
		rec, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if _, err := out.Write([]inspectRow{toRow(rec)}); err != nil {
			return err
		}
	}
	return nil
}
