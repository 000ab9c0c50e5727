package stage

import (
	"log/slog"

	"github.com/flarebyte/json2seq/internal/script"
)

const updateStage = "update"

// Update runs mutation blocks over each record in order.
type Update struct {
	ev     script.Evaluator
	progs  []script.Program
	policy ErrorPolicy
	log    *slog.Logger
	stats  *Stats
}

// NewUpdate compiles the blocks. A compile failure is fatal whatever the
// policy.
func NewUpdate(ev script.Evaluator, blocks []string, policy ErrorPolicy, log *slog.Logger, stats *Stats) (*Update, error) {
	u := &Update{ev: ev, policy: policy, log: orDiscard(log), stats: orStats(stats)}
	for _, src := range blocks {
		p, err := ev.Compile(src, script.Block)
		if err != nil {
			return nil, compileError(KindUpdating, src, err)
		}
		u.progs = append(u.progs, p)
	}
	return u, nil
}

// Transform runs every block against rec. Each block sees the scope left by
// the previous successful block. It reports false when the record is
// dropped, either by skip() or by a failure under the Skip policy. Under
// Keep a failing block's edits are discarded and the next block runs.
func (u *Update) Transform(rec any) (any, bool, error) {
	_, isObject := rec.(map[string]any)
	fields := fieldsOf(rec)
	current := rec
	for _, p := range u.progs {
		step := u.ev.Exec(p, script.Env{Locals: fields, Record: current})
		switch step.Outcome {
		case script.Continue:
			fields = step.Locals
			if isObject {
				current = fields
			}
		case script.Drop:
			return nil, false, nil
		default:
			switch u.policy {
			case Skip:
				u.stats.UpdateErrors++
				u.log.Debug("update error, record skipped", "stage", updateStage, "script", p.Source(), "error", step.Err, "record", renderRecord(current))
				return nil, false, nil
			case Keep:
				u.stats.UpdateErrors++
				u.log.Debug("update error, block ignored", "stage", updateStage, "script", p.Source(), "error", step.Err, "record", renderRecord(current))
				continue
			default:
				return nil, false, newUpdatingError(p.Source(), current, step.Err)
			}
		}
	}
	return rebuild(rec, fields), true, nil
}

// Apply updates in lazily; dropped records never reach downstream stages.
func (u *Update) Apply(in Stream) Stream {
	return func(yield func(any, error) bool) {
		for rec, err := range in {
			if err != nil {
				yield(nil, err)
				return
			}
			out, ok, err := u.Transform(rec)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				u.stats.Dropped++
				continue
			}
			if !yield(out, nil) {
				return
			}
		}
	}
}
