package version

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/flarebyte/json2seq/internal/buildinfo"
)

// NewCmd returns the `json2seq version` command.
func NewCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the json2seq version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !asJSON {
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "json2seq %s\n", buildinfo.Summary())
				return err
			}
			return encodeJSON(cmd, buildinfo.Current())
		},
	}
	cmd.Flags().Bool("short", false, "Print only the version line (default)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print detailed JSON version info")
	return cmd
}

type report struct {
	buildinfo.Info
	Timestamp string `json:"timestamp"`
}

func encodeJSON(cmd *cobra.Command, info buildinfo.Info) error {
	b, err := json.MarshalIndent(report{Info: info, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}, "", "  ")
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(b, '\n'))
	return err
}
