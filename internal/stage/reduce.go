package stage

import (
	"log/slog"

	"github.com/flarebyte/json2seq/internal/script"
)

const reduceStage = "reduce"

// Reduce folds the stream with a binary expression over a (accumulator) and
// b (next record). The first record seeds the accumulator, so n records take
// n-1 evaluations.
type Reduce struct {
	ev     script.Evaluator
	prog   script.Program
	policy ErrorPolicy
	log    *slog.Logger
	stats  *Stats
}

// NewReduce compiles the combinator expression.
func NewReduce(ev script.Evaluator, src string, policy ErrorPolicy, log *slog.Logger, stats *Stats) (*Reduce, error) {
	p, err := ev.Compile(src, script.Expression)
	if err != nil {
		return nil, compileError(KindReducing, src, err)
	}
	return &Reduce{ev: ev, prog: p, policy: policy, log: orDiscard(log), stats: orStats(stats)}, nil
}

// Combine evaluates the expression once. Under Skip or Keep a failure leaves
// the accumulator unchanged; any other policy is strict.
func (r *Reduce) Combine(acc, next any) (any, error) {
	v, err := r.ev.Eval(r.prog, script.Env{Locals: map[string]any{"a": acc, "b": next}})
	if err == nil {
		return v, nil
	}
	switch r.policy {
	case Skip, Keep:
		r.stats.ReduceErrors++
		r.log.Debug("reduce error, record ignored", "stage", reduceStage, "policy", r.policy.String(), "script", r.prog.Source(), "error", err, "record", renderRecord(next))
		return acc, nil
	default:
		return nil, newReducingError(r.prog.Source(), acc, next, err)
	}
}

// Apply drains in and yields the single folded value. An empty stream yields
// nothing.
func (r *Reduce) Apply(in Stream) Stream {
	return func(yield func(any, error) bool) {
		var acc any
		seeded := false
		for rec, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			if !seeded {
				acc, seeded = rec, true
				continue
			}
			acc, err = r.Combine(acc, rec)
			if err != nil {
				yield(nil, err)
				return
			}
		}
		if seeded {
			yield(acc, nil)
		}
	}
}
