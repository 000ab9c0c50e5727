package stage

import (
	"log/slog"

	"github.com/flarebyte/json2seq/internal/script"
)

const filterStage = "filter"

// Filter keeps records for which every expression is truthy.
type Filter struct {
	ev     script.Evaluator
	progs  []script.Program
	policy ErrorPolicy
	log    *slog.Logger
	stats  *Stats
}

// NewFilter compiles the expressions. A compile failure is fatal whatever
// the policy.
func NewFilter(ev script.Evaluator, exprs []string, policy ErrorPolicy, log *slog.Logger, stats *Stats) (*Filter, error) {
	f := &Filter{ev: ev, policy: policy, log: orDiscard(log), stats: orStats(stats)}
	for _, src := range exprs {
		p, err := ev.Compile(src, script.Expression)
		if err != nil {
			return nil, compileError(KindFiltering, src, err)
		}
		f.progs = append(f.progs, p)
	}
	return f, nil
}

// Test evaluates the expressions in order and stops at the first falsy one.
// Under Keep a failing expression counts as passing and evaluation moves on
// to the next expression.
func (f *Filter) Test(rec any) (bool, error) {
	env := script.Env{Locals: fieldsOf(rec), Record: rec}
	for _, p := range f.progs {
		v, err := f.ev.Eval(p, env)
		if err != nil {
			switch f.policy {
			case Skip:
				f.stats.FilterErrors++
				f.log.Debug("filter error, record skipped", "stage", filterStage, "script", p.Source(), "error", err, "record", renderRecord(rec))
				return false, nil
			case Keep:
				f.stats.FilterErrors++
				f.log.Debug("filter error, record kept", "stage", filterStage, "script", p.Source(), "error", err, "record", renderRecord(rec))
				continue
			default:
				return false, newFilteringError(p.Source(), rec, err)
			}
		}
		if !Truthy(v) {
			return false, nil
		}
	}
	return true, nil
}

// Apply filters in lazily.
func (f *Filter) Apply(in Stream) Stream {
	return func(yield func(any, error) bool) {
		for rec, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			ok, err := f.Test(rec)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				f.stats.Filtered++
				continue
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}
