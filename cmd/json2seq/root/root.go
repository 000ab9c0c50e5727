package root

import (
	"github.com/spf13/cobra"

	"github.com/flarebyte/json2seq/cmd/json2seq/convert"
	"github.com/flarebyte/json2seq/cmd/json2seq/version"
)

// NewRootCmd creates the json2seq command. Without a subcommand it converts
// its input.
func NewRootCmd() *cobra.Command {
	flags := &convert.Flags{}
	cmd := &cobra.Command{
		Use:   "json2seq [input]",
		Short: "Convert a large JSON document into a JSON Text Sequence",
		Long: `json2seq streams the values selected from a JSON document and writes one
JSON value per line (RFC 7464 with --rs_delimiter). Records can be filtered,
updated, windowed and reduced with short scripts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return convert.Execute(cmd, flags, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.Register(cmd)

	// Subcommands
	cmd.AddCommand(version.NewCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}
