// Package convert glues the item source, the stage pipeline and the
// sequence encoder into one conversion run.
package convert

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/flarebyte/json2seq/internal/config"
	"github.com/flarebyte/json2seq/internal/logger"
	"github.com/flarebyte/json2seq/internal/seqenc"
	"github.com/flarebyte/json2seq/internal/source"
	"github.com/flarebyte/json2seq/internal/stage"
)

// Request describes one conversion.
type Request struct {
	// Input is a file path; empty or "-" reads Stdin.
	Input   string
	Options config.Options
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	// Progress enables throttled progress lines on Stderr.
	Progress bool
	Log      *slog.Logger
}

// Run converts the input and returns what happened to the records. Records
// encoded before a fatal error are flushed to the output.
func Run(ctx context.Context, req Request) (*stage.Stats, error) {
	log := req.Log
	if log == nil {
		log = logger.Discard()
	}
	sel, err := source.ParseSelector(req.Options.Select)
	if err != nil {
		return nil, err
	}
	p, err := stage.New(req.Options.Pipeline(), log)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	in, closeIn, err := openInput(req.Input, req.Stdin)
	if err != nil {
		return p.Stats, err
	}
	defer closeIn()
	out, closeOut, err := openOutput(req.Options.Output.Path, req.Stdout)
	if err != nil {
		return p.Stats, err
	}

	enc := seqenc.NewEncoder(out, req.Options.Encoder())
	progress := newProgressReporter(req.Progress, req.Stderr, p.Stats, enc)
	records := p.Apply(progress.track(source.Items(ctx, in, sel)))
	n, runErr := enc.EncodeAll(records, func(re *seqenc.RecordError) {
		p.Stats.EncodeErrors++
		log.Warn("record not encoded", "index", re.Index, "type", re.Type, "error", re.Err)
	})
	p.Stats.Emitted = n
	flushErr := enc.Flush()
	closeErr := closeOut()
	progress.finish()
	log.Info("conversion finished", "stats", p.Stats)

	switch {
	case runErr != nil:
		return p.Stats, runErr
	case flushErr != nil:
		return p.Stats, fmt.Errorf("write output: %w", flushErr)
	case closeErr != nil:
		return p.Stats, fmt.Errorf("close output: %w", closeErr)
	}
	return p.Stats, nil
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		if stdin == nil {
			stdin = os.Stdin
		}
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		if stdout == nil {
			stdout = os.Stdout
		}
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
