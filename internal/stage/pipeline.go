package stage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/flarebyte/json2seq/internal/script"
)

// Config describes the stage stack applied to the item stream.
type Config struct {
	Filters      []string
	FilterPolicy ErrorPolicy
	Updates      []string
	UpdatePolicy ErrorPolicy
	// Reduce is optional; empty means the windowed stream passes through.
	Reduce       string
	ReducePolicy ErrorPolicy
	Skip         int
	// First is nil when the window is open ended.
	First        *int

	Engine string
	// Script overrides the sandbox defaults; Stage is set per stage.
	Script *script.Options
}

// Pipeline is Filter, Update, Window and Reduce wired in that order. Each
// scripted stage owns its own evaluator, so contextual scopes never leak
// between stages.
type Pipeline struct {
	cfg    Config
	filter *Filter
	update *Update
	reduce *Reduce
	evs    []script.Evaluator
	Stats  *Stats
}

// New compiles every script up front. Compile failures are returned as
// *ConvertingError regardless of the configured policies.
func New(cfg Config, log *slog.Logger) (*Pipeline, error) {
	if cfg.Skip < 0 {
		return nil, fmt.Errorf("skip must be >= 0, got %d", cfg.Skip)
	}
	if cfg.First != nil && *cfg.First < 0 {
		return nil, fmt.Errorf("first must be >= 0, got %d", *cfg.First)
	}
	if cfg.Engine == "" {
		cfg.Engine = script.EngineLua
	}
	log = orDiscard(log)
	p := &Pipeline{cfg: cfg, Stats: &Stats{}}
	fail := func(err error) (*Pipeline, error) {
		p.Close()
		return nil, err
	}
	if len(cfg.Filters) > 0 {
		ev, err := p.evaluator(filterStage)
		if err != nil {
			return fail(err)
		}
		if p.filter, err = NewFilter(ev, cfg.Filters, cfg.FilterPolicy, log, p.Stats); err != nil {
			return fail(err)
		}
	}
	if len(cfg.Updates) > 0 {
		ev, err := p.evaluator(updateStage)
		if err != nil {
			return fail(err)
		}
		if p.update, err = NewUpdate(ev, cfg.Updates, cfg.UpdatePolicy, log, p.Stats); err != nil {
			return fail(err)
		}
	}
	if cfg.Reduce != "" {
		ev, err := p.evaluator(reduceStage)
		if err != nil {
			return fail(err)
		}
		if p.reduce, err = NewReduce(ev, cfg.Reduce, cfg.ReducePolicy, log, p.Stats); err != nil {
			return fail(err)
		}
	}
	return p, nil
}

func (p *Pipeline) evaluator(stage string) (script.Evaluator, error) {
	opts := script.DefaultOptions(stage)
	if p.cfg.Script != nil {
		opts = *p.cfg.Script
		opts.Stage = stage
	}
	ev, err := script.New(p.cfg.Engine, opts)
	if err != nil {
		return nil, err
	}
	p.evs = append(p.evs, ev)
	return ev, nil
}

// Apply layers the stages over in. Nothing runs until the result is ranged
// over, and breaking out of the range stops every upstream stage.
func (p *Pipeline) Apply(in Stream) Stream {
	out := p.count(in)
	if p.filter != nil {
		out = p.filter.Apply(out)
	}
	if p.update != nil {
		out = p.update.Apply(out)
	}
	out = Window(out, p.cfg.Skip, p.cfg.First)
	if p.reduce != nil {
		out = p.reduce.Apply(out)
	}
	return out
}

func (p *Pipeline) count(in Stream) Stream {
	return func(yield func(any, error) bool) {
		for rec, err := range in {
			if err == nil {
				p.Stats.Read++
			}
			if !yield(rec, err) {
				return
			}
		}
	}
}

// Close releases the stage evaluators.
func (p *Pipeline) Close() {
	for _, ev := range p.evs {
		ev.Close()
	}
	p.evs = nil
}

// IsConverting reports whether err is a fatal stage error.
func IsConverting(err error) bool {
	var ce *ConvertingError
	return errors.As(err, &ce)
}
