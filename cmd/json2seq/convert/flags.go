package convert

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/flarebyte/json2seq/internal/config"
	"github.com/flarebyte/json2seq/internal/logger"
)

// Flags holds the command-line surface shared by the converter and the
// `config` subcommand.
type Flags struct {
	Config        string
	Output        string
	Select        string
	Filters       []string
	Updates       []string
	Reduce        string
	Skip          int
	First         int
	RSDelimiter   bool
	EnsureASCII   bool
	FilterError   string
	UpdateError   string
	ReduceError   string
	Engine        string
	ScriptTimeout time.Duration
	Progress      bool
	LogLevel      string
	LogFormat     string
}

// Register binds the flags on cmd.
func (f *Flags) Register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.Config, "config", "c", "", "Path to a config file (.cue, .yaml or .yml)")
	fs.StringVarP(&f.Output, "output", "O", "", "Output file (default: stdout)")
	fs.StringVar(&f.Select, "select", "item", "Path selector of the records to extract")
	fs.StringArrayVar(&f.Filters, "filter", nil, "Filter expression; repeat to chain, all must pass")
	fs.StringArrayVar(&f.Updates, "update", nil, "Update script; repeat to run several in order")
	fs.StringVar(&f.Reduce, "reduce", "", "Reduce expression over a (accumulator) and b (next record)")
	fs.IntVar(&f.Skip, "skip", 0, "Number of records to skip after filtering and updating")
	fs.IntVar(&f.First, "first", 0, "Maximum number of records to keep after skipping")
	fs.BoolVar(&f.RSDelimiter, "rs_delimiter", false, "Prefix every record with the RFC 7464 record separator")
	fs.BoolVar(&f.EnsureASCII, "ensure_ascii", false, "Escape every non-ASCII character")
	fs.StringVar(&f.FilterError, "filter_error", "strict", "Filter error policy: strict, skip or keep")
	fs.StringVar(&f.UpdateError, "update_error", "strict", "Update error policy: strict, skip or keep")
	fs.StringVar(&f.ReduceError, "reduce_error", "strict", "Reduce error policy: strict, skip or keep")
	fs.StringVar(&f.Engine, "engine", "lua", "Script engine: lua or expr")
	fs.DurationVar(&f.ScriptTimeout, "script_timeout", 0, "Per-evaluation script timeout (0 disables)")
	fs.BoolVar(&f.Progress, "progress", false, "Report progress on stderr")
	fs.StringVar(&f.LogLevel, "log_level", "warn", "Log level: debug, info, warn or error")
	fs.StringVar(&f.LogFormat, "log_format", "auto", "Log format: auto, human or json")
}

// Resolve builds the effective options: defaults, then the config file, then
// the flags the user actually set.
func (f *Flags) Resolve(cmd *cobra.Command) (config.Options, error) {
	opts := config.Defaults()
	if f.Config != "" {
		if err := config.LoadInto(f.Config, &opts); err != nil {
			return config.Options{}, err
		}
	}
	changed := cmd.Flags().Changed
	if changed("output") {
		opts.Output.Path = f.Output
	}
	if changed("select") {
		opts.Select = f.Select
	}
	if changed("filter") {
		opts.Filter.Scripts = f.Filters
	}
	if changed("update") {
		opts.Update.Scripts = f.Updates
	}
	if changed("reduce") {
		opts.Reduce.Script = f.Reduce
	}
	if changed("skip") {
		opts.Window.Skip = f.Skip
	}
	if changed("first") {
		first := f.First
		opts.Window.First = &first
	}
	if changed("rs_delimiter") {
		opts.Output.RSDelimiter = f.RSDelimiter
	}
	if changed("ensure_ascii") {
		opts.Output.EnsureASCII = f.EnsureASCII
	}
	if changed("filter_error") {
		opts.Filter.OnError = f.FilterError
	}
	if changed("update_error") {
		opts.Update.OnError = f.UpdateError
	}
	if changed("reduce_error") {
		opts.Reduce.OnError = f.ReduceError
	}
	if changed("engine") {
		opts.Engine = f.Engine
	}
	if changed("script_timeout") {
		if f.ScriptTimeout < 0 {
			return config.Options{}, fmt.Errorf("invalid --script_timeout: %s", f.ScriptTimeout)
		}
		// Sub-millisecond timeouts round up so they never mean "disabled".
		opts.Lua.TimeoutMs = int((f.ScriptTimeout + time.Millisecond - 1) / time.Millisecond)
	}
	if err := config.Validate(&opts); err != nil {
		return config.Options{}, err
	}
	return opts, nil
}

// LoggerOptions parses the logging flags.
func (f *Flags) LoggerOptions() (logger.Options, error) {
	level, err := logger.ParseLevel(f.LogLevel)
	if err != nil {
		return logger.Options{}, err
	}
	format, err := logger.ParseFormat(f.LogFormat)
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{Level: level, Format: format}, nil
}
