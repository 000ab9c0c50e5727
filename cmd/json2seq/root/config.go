package root

import (
	"github.com/spf13/cobra"

	"github.com/flarebyte/json2seq/cmd/json2seq/convert"
	"github.com/flarebyte/json2seq/internal/config"
)

// newConfigCmd prints the effective options as canonical YAML, so a command
// line can be turned into a reusable config file.
func newConfigCmd() *cobra.Command {
	flags := &convert.Flags{}
	cmd := &cobra.Command{
		Use:           "config",
		Short:         "Print the effective configuration as YAML",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.Resolve(cmd)
			if err != nil {
				return err
			}
			b, err := config.Dump(opts)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
	flags.Register(cmd)
	return cmd
}
