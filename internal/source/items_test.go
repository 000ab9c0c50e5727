package source

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func collect(t *testing.T, doc, selector string) ([]string, error) {
	t.Helper()
	var out []string
	for v, err := range Items(context.Background(), strings.NewReader(doc), MustParseSelector(selector)) {
		if err != nil {
			return out, err
		}
		raw, merr := json.Marshal(v)
		if merr != nil {
			t.Fatalf("marshal: %v", merr)
		}
		out = append(out, string(raw))
	}
	return out, nil
}

func TestItems_Selectors(t *testing.T) {
	cases := []struct {
		doc, selector, want string
	}{
		{`[1,2,3]`, "item", "1|2|3"},
		{`[]`, "item", ""},
		{`{"a":1}`, "", `{"a":1}`},
		{`{"a":1}`, "item", ""},
		{`42`, "item", ""},
		{`{"data":{"rows":[{"id":1},{"id":2}]},"other":[9]}`, "data.rows.item", `{"id":1}|{"id":2}`},
		{`{"skip":{"rows":[1]},"data":{"rows":[[1,[2]],3]}}`, "data.rows.item", `[1,[2]]|3`},
		{`[{"n":"a"},{"x":1},{"n":"b"}]`, "item.n", `"a"|"b"`},
		{`[[1,2],[3]]`, "item.item", "1|2|3"},
		{`[1] [2,3]`, "item", "1|2|3"},
		{`[1.5, 12345678901234567890, -0]`, "item", "1.5|12345678901234567890|-0"},
		{`["é", "\u00e9"]`, "item", `"é"|"é"`},
		{`{"a":null,"b":[true,false]}`, "b.item", "true|false"},
	}
	for _, tc := range cases {
		got, err := collect(t, tc.doc, tc.selector)
		if err != nil {
			t.Fatalf("%s @ %q: %v", tc.doc, tc.selector, err)
		}
		if joined := strings.Join(got, "|"); joined != tc.want {
			t.Fatalf("%s @ %q: got %s, want %s", tc.doc, tc.selector, joined, tc.want)
		}
	}
}

func TestItems_Malformed(t *testing.T) {
	for _, doc := range []string{`[1,2`, `[1,}`, `{"a":[1]`, `]`, `{"a" 1, 2]`} {
		_, err := collect(t, doc, "a.item")
		if !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected malformed error, got %v", doc, err)
		}
	}
	for _, doc := range []string{`[1,2`, `[1,[1,2],`, `{"a":`, `[{"a":1},`} {
		_, err := collect(t, doc, "item")
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("%s: expected unexpected EOF, got %v", doc, err)
		}
	}
}

// endlessReader serves a prefix followed by an unbounded run of garbage.
type endlessReader struct {
	prefix string
	served int
}

func (e *endlessReader) Read(p []byte) (int, error) {
	n := copy(p, e.prefix[min(e.served, len(e.prefix)):])
	for i := n; i < len(p); i++ {
		p[i] = 'x'
	}
	e.served += len(p)
	return len(p), nil
}

// brokenReader fails after serving its prefix.
type brokenReader struct {
	r io.Reader
}

var errBroken = errors.New("disk on fire")

func (b *brokenReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		return n, errBroken
	}
	return n, err
}

func TestItems_EarlyTermination(t *testing.T) {
	doc := `[{"a":1},{"a":2},{"a":3}, this is not json`
	taken := 0
	for _, err := range Items(context.Background(), strings.NewReader(doc), MustParseSelector("item")) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		taken++
		if taken == 2 {
			break
		}
	}
	if taken != 2 {
		t.Fatalf("took %d records", taken)
	}
}

func TestItems_StopsWithoutDrainingReader(t *testing.T) {
	r := &endlessReader{prefix: `[1,2,3,`}
	for v, err := range Items(context.Background(), r, MustParseSelector("item")) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != json.Number("1") {
			t.Fatalf("unexpected first value %#v", v)
		}
		break
	}
	if r.served > 64*1024 {
		t.Fatalf("read %d bytes after the consumer stopped", r.served)
	}
}

func TestItems_ReadErrorSurfaces(t *testing.T) {
	r := &brokenReader{r: strings.NewReader(`[1,2`)}
	var err error
	for _, err = range Items(context.Background(), r, MustParseSelector("item")) {
		if err != nil {
			break
		}
	}
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected the read error, got %v", err)
	}
}

func TestItems_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, err := range Items(ctx, strings.NewReader(`[1]`), MustParseSelector("item")) {
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
		return
	}
	t.Fatalf("expected a cancellation error")
}
