package convert

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/flarebyte/json2seq/internal/logger"
)

// Execute runs the conversion described by the flags and the optional
// positional input path. The returned error carries the exit code.
func Execute(cmd *cobra.Command, f *Flags, args []string) error {
	opts, err := f.Resolve(cmd)
	if err != nil {
		return err
	}
	lopts, err := f.LoggerOptions()
	if err != nil {
		return err
	}
	lopts.Writer = cmd.ErrOrStderr()
	log := logger.New(lopts)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input := ""
	if len(args) > 0 {
		input = args[0]
	}
	log.Debug("conversion starting", "input", input, "select", opts.Select, "engine", opts.Engine)
	_, err = Run(ctx, Request{
		Input:    input,
		Options:  opts,
		Stdin:    cmd.InOrStdin(),
		Stdout:   cmd.OutOrStdout(),
		Stderr:   cmd.ErrOrStderr(),
		Progress: f.Progress,
		Log:      log,
	})
	return evaluateRunExit(err)
}
