// Package logger builds the diagnostic logger. Diagnostics always go to
// stderr so they never mix with the record stream.
//
// Two output formats are supported:
//   - json: one structured object per line, for machines
//   - human: short colored lines for terminals
//
// The auto format picks human when stderr is a terminal and json otherwise.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Format selects the log line encoding.
type Format string

const (
	FormatAuto  Format = "auto"
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatAuto, FormatHuman, FormatJSON}

// ParseFormat validates a format name; empty means auto.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatAuto, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("invalid log format: %q (supported: auto, human, json)", s)
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelWarn, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level: %q (supported: debug, info, warn, error)", s)
	}
	return l, nil
}

// Options configures New.
type Options struct {
	Level  slog.Level
	Format Format
	// Writer defaults to stderr.
	Writer io.Writer
	// RunID tags every line; a random one is generated when empty.
	RunID string
}

// New returns a logger tagged with the run id.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	format := opts.Format
	if format == "" || format == FormatAuto {
		format = FormatJSON
		if isTerminal(w) {
			format = FormatHuman
		}
	}
	var h slog.Handler
	switch format {
	case FormatHuman:
		useColors := isTerminal(w)
		if f, ok := w.(*os.File); ok && useColors {
			w = colorable.NewColorable(f)
		}
		h = NewHumanHandler(w, &HumanHandlerOptions{Level: opts.Level, UseColors: useColors})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return slog.New(h).With(slog.String("run_id", runID))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// HumanHandlerOptions configures the human-readable handler.
type HumanHandlerOptions struct {
	Level     slog.Leveler
	UseColors bool
}

// HumanHandler writes "15:04:05 WARN message key=value" lines.
type HumanHandler struct {
	opts   HumanHandlerOptions
	mu     *sync.Mutex
	writer io.Writer
	attrs  []slog.Attr
	groups []string
}

func NewHumanHandler(w io.Writer, opts *HumanHandlerOptions) *HumanHandler {
	if opts == nil {
		opts = &HumanHandlerOptions{}
	}
	if opts.Level == nil {
		opts.Level = slog.LevelInfo
	}
	return &HumanHandler{opts: *opts, mu: &sync.Mutex{}, writer: w}
}

func (h *HumanHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *HumanHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	if !r.Time.IsZero() {
		sb.WriteString(r.Time.Format(time.TimeOnly))
		sb.WriteByte(' ')
	}
	sb.WriteString(h.levelTag(r.Level))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)
	prefix := ""
	if len(h.groups) > 0 {
		prefix = strings.Join(h.groups, ".") + "."
	}
	for _, a := range h.attrs {
		if a.Key == "run_id" {
			continue
		}
		writeAttr(&sb, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&sb, prefix, a)
		return true
	})
	sb.WriteByte('\n')
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

func (h *HumanHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &nh
}

func (h *HumanHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	nh.groups = append(append([]string(nil), h.groups...), name)
	return &nh
}

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func (h *HumanHandler) levelTag(level slog.Level) string {
	var color string
	switch {
	case level >= slog.LevelError:
		color = colorRed
	case level >= slog.LevelWarn:
		color = colorYellow
	case level >= slog.LevelInfo:
		color = colorCyan
	default:
		color = colorGray
	}
	tag := level.String()
	if h.opts.UseColors {
		return color + tag + colorReset
	}
	return tag
}

func writeAttr(sb *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			writeAttr(sb, p, ga)
		}
		return
	}
	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(a.Key)
	sb.WriteByte('=')
	v := a.Value.String()
	if v == "" || strings.ContainsAny(v, " \t\n\"=") {
		v = fmt.Sprintf("%q", v)
	}
	sb.WriteString(v)
}
