package stage

import (
	"errors"
	"testing"

	"github.com/flarebyte/json2seq/internal/script"
)

func runPipeline(t *testing.T, cfg Config, doc string) ([]any, *Pipeline, error) {
	t.Helper()
	p, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	t.Cleanup(p.Close)
	out, err := collect(t, p.Apply(streamOf(records(t, doc)...)))
	return out, p, err
}

func TestPipeline_PassThrough(t *testing.T) {
	out, p, err := runPipeline(t, Config{}, `[1,"two",{"three":3},[4],null]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "1\n\"two\"\n{\"three\":3}\n[4]\nnull\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if p.Stats.Read != 5 {
		t.Fatalf("unexpected stats %+v", *p.Stats)
	}
}

func TestPipeline_StageOrder(t *testing.T) {
	cfg := Config{
		Filters: []string{"n % 2 == 0"},
		Updates: []string{"n = n * 10"},
		Skip:    1,
		First:   intPtr(2),
	}
	out, _, err := runPipeline(t, cfg, `[{"n":1},{"n":2},{"n":3},{"n":4},{"n":5},{"n":6},{"n":8}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"n\":40}\n{\"n\":60}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPipeline_WindowCountsOnlySurvivors(t *testing.T) {
	cfg := Config{
		Updates: []string{"if a == 1 then skip() end"},
		First:   intPtr(1),
	}
	out, _, err := runPipeline(t, cfg, `[{"a":1},{"a":2},{"a":3}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"a\":2}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPipeline_ReduceAfterWindow(t *testing.T) {
	cfg := Config{Reduce: "a + b", Skip: 1, First: intPtr(2)}
	out, _, err := runPipeline(t, cfg, `[1,2,3,4]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "5\n" {
		t.Fatalf("unexpected output %q", got)
	}

	out, _, err = runPipeline(t, Config{Reduce: "a + b", Skip: 10}, `[1,2]`)
	if err != nil || len(out) != 0 {
		t.Fatalf("expected empty output, got %v (%v)", out, err)
	}
}

func TestPipeline_ExprEngine(t *testing.T) {
	cfg := Config{
		Engine:  script.EngineExpr,
		Filters: []string{"a > 1"},
		Updates: []string{`{"b": a * 2}`},
		Reduce:  `{"total": a.b + b.b}`,
	}
	out, _, err := runPipeline(t, cfg, `[{"a":1},{"a":2},{"a":3}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"total\":10}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPipeline_StagesHaveSeparateContexts(t *testing.T) {
	cfg := Config{
		Filters: []string{"true"},
		Updates: []string{"seen = _rec_.n"},
	}
	out, _, err := runPipeline(t, cfg, `[{"n":1},{"n":2}]`)
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	if got := render(t, out); got != "{\"n\":1,\"seen\":1}\n{\"n\":2,\"seen\":2}\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestPipeline_RejectsBadConfig(t *testing.T) {
	if _, err := New(Config{Skip: -1}, nil); err == nil {
		t.Fatalf("expected negative skip to fail")
	}
	if _, err := New(Config{First: intPtr(-1)}, nil); err == nil {
		t.Fatalf("expected negative first to fail")
	}
	var unknown script.ErrUnknownEngine
	if _, err := New(Config{Engine: "cobol", Filters: []string{"x"}}, nil); !errors.As(err, &unknown) {
		t.Fatalf("expected unknown engine, got %v", err)
	}
	_, err := New(Config{Updates: []string{"x = "}}, nil)
	if !IsConverting(err) || !errors.Is(err, ErrUpdating) {
		t.Fatalf("expected updating compile error, got %v", err)
	}
}
