package stage

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/flarebyte/json2seq/internal/script"
)

// records decodes a JSON array the way the item source does.
func records(t *testing.T, doc string) []any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(doc))
	dec.UseNumber()
	var out []any
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", doc, err)
	}
	return out
}

func streamOf(recs ...any) Stream {
	return func(yield func(any, error) bool) {
		for _, r := range recs {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// countingStream reports how many records were pulled from it.
func countingStream(n int, pulled *int) Stream {
	return func(yield func(any, error) bool) {
		for i := 0; i < n; i++ {
			*pulled++
			if !yield(int64(i), nil) {
				return
			}
		}
	}
}

func collect(t *testing.T, s Stream) ([]any, error) {
	t.Helper()
	var out []any
	for rec, err := range s {
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// render encodes records compactly, one per line, for comparison.
func render(t *testing.T, recs []any) string {
	t.Helper()
	var b bytes.Buffer
	for _, r := range recs {
		raw, err := json.Marshal(r)
		if err != nil {
			t.Fatalf("marshal %#v: %v", r, err)
		}
		b.Write(raw)
		b.WriteByte('\n')
	}
	return b.String()
}

func newLua(t *testing.T, stage string) script.Evaluator {
	t.Helper()
	ev, err := script.New(script.EngineLua, script.DefaultOptions(stage))
	if err != nil {
		t.Fatalf("lua evaluator: %v", err)
	}
	t.Cleanup(ev.Close)
	return ev
}

func intPtr(n int) *int { return &n }

type fakeProgram string

func (p fakeProgram) Source() string { return string(p) }

// fakeEvaluator dispatches on the program source and records every call.
type fakeEvaluator struct {
	eval  func(src string, env script.Env) (any, error)
	exec  func(src string, env script.Env) script.Step
	calls []string
}

func (f *fakeEvaluator) Compile(src string, mode script.Mode) (script.Program, error) {
	return fakeProgram(src), nil
}

func (f *fakeEvaluator) Eval(p script.Program, env script.Env) (any, error) {
	f.calls = append(f.calls, p.Source())
	return f.eval(p.Source(), env)
}

func (f *fakeEvaluator) Exec(p script.Program, env script.Env) script.Step {
	f.calls = append(f.calls, p.Source())
	return f.exec(p.Source(), env)
}

func (f *fakeEvaluator) Close() {}
