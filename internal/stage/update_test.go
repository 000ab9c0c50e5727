package stage

import (
	"errors"
	"strings"
	"testing"

	"github.com/flarebyte/json2seq/internal/script"
)

func runUpdate(t *testing.T, blocks []string, policy ErrorPolicy, doc string) ([]any, *Stats, error) {
	t.Helper()
	stats := &Stats{}
	u, err := NewUpdate(newLua(t, "update"), blocks, policy, nil, stats)
	if err != nil {
		t.Fatalf("new update: %v", err)
	}
	out, err := collect(t, u.Apply(streamOf(records(t, doc)...)))
	return out, stats, err
}

func TestUpdate_SkipSignalDropsRecord(t *testing.T) {
	for _, policy := range Policies {
		out, stats, err := runUpdate(t, []string{"if a == 1 then skip() end"}, policy, `[{"a":1},{"a":2}]`)
		if err != nil {
			t.Fatalf("%s: unexpected fatal: %v", policy, err)
		}
		if got := render(t, out); got != "{\"a\":2}\n" {
			t.Fatalf("%s: unexpected output %q", policy, got)
		}
		if stats.Dropped != 1 || stats.UpdateErrors != 0 {
			t.Fatalf("%s: unexpected stats %+v", policy, *stats)
		}
	}
}

func TestUpdate_SkipStopsLaterBlocks(t *testing.T) {
	ev := &fakeEvaluator{exec: func(src string, env script.Env) script.Step {
		if src == "drop" {
			return script.Step{Outcome: script.Drop}
		}
		return script.Step{Outcome: script.Continue, Locals: env.Locals}
	}}
	u, err := NewUpdate(ev, []string{"first", "drop", "last"}, Keep, nil, nil)
	if err != nil {
		t.Fatalf("new update: %v", err)
	}
	_, ok, err := u.Transform(map[string]any{"a": int64(1)})
	if err != nil || ok {
		t.Fatalf("expected drop, got ok=%v err=%v", ok, err)
	}
	if got := strings.Join(ev.calls, ","); got != "first,drop" {
		t.Fatalf("unexpected executed blocks %s", got)
	}
}

func TestUpdate_BlocksSeeEarlierMutations(t *testing.T) {
	out, _, err := runUpdate(t, []string{"b = a * 10", "c = b + 1"}, Strict, `[{"a":1},{"a":2}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	want := "{\"a\":1,\"b\":10,\"c\":11}\n{\"a\":2,\"b\":20,\"c\":21}\n"
	if got := render(t, out); got != want {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestUpdate_KeepCommitsPerBlock(t *testing.T) {
	blocks := []string{"x = 1", "y = 2\nerror('boom')", "z = 3"}
	out, stats, err := runUpdate(t, blocks, Keep, `[{"a":0}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"a\":0,\"x\":1,\"z\":3}\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if stats.UpdateErrors != 1 {
		t.Fatalf("expected one update error, got %+v", *stats)
	}
}

func TestUpdate_SkipPolicyDropsFailingRecord(t *testing.T) {
	out, stats, err := runUpdate(t, []string{"b = a.x.y"}, Skip, `[{"a":{"x":{"y":1}}},{"a":1}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"a\":{\"x\":{\"y\":1}},\"b\":1}\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if stats.Dropped != 1 || stats.UpdateErrors != 1 {
		t.Fatalf("unexpected stats %+v", *stats)
	}
}

func TestUpdate_StrictRaisesUpdatingError(t *testing.T) {
	_, _, err := runUpdate(t, []string{"error('boom')"}, Strict, `[{"a":1}]`)
	if !errors.Is(err, ErrUpdating) {
		t.Fatalf("expected updating error, got %v", err)
	}
	if !strings.Contains(err.Error(), "boom") || !strings.Contains(err.Error(), `{"a":1}`) {
		t.Fatalf("error lacks cause or record: %v", err)
	}
}

func TestUpdate_RebindsWholeRecord(t *testing.T) {
	out, _, err := runUpdate(t, []string{"_rec_ = _rec_ * 2"}, Strict, `[1,2]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "2\n4\n" {
		t.Fatalf("unexpected output %q", got)
	}

	out, _, err = runUpdate(t, []string{"_rec_ = { n = a }"}, Strict, `[{"a":5}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"n\":5}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestUpdate_NonObjectPassesThroughUnchanged(t *testing.T) {
	out, _, err := runUpdate(t, []string{"seen = true"}, Strict, `["s",[1,2]]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "\"s\"\n[1,2]\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestUpdate_NullSurvives(t *testing.T) {
	out, _, err := runUpdate(t, []string{"b = a == null"}, Strict, `[{"a":null}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"a\":null,\"b\":true}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestUpdate_UntouchedNumbersKeepTheirText(t *testing.T) {
	doc := `[{"id":9007199254740993,"f":1.50,"a":1,"huge":1e400,"nested":{"id":9007199254740995,"xs":[12345678901234567891,2.0]}}]`
	out, _, err := runUpdate(t, []string{"b = 2", "a = a + 1"}, Strict, doc)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	want := `{"a":2,"b":2,"f":1.50,"huge":1e400,"id":9007199254740993,"nested":{"id":9007199254740995,"xs":[12345678901234567891,2.0]}}` + "\n"
	if got := render(t, out); got != want {
		t.Fatalf("unexpected output\n got: %s\nwant: %s", got, want)
	}
}
