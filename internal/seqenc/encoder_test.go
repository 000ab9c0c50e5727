package seqenc

import (
	"bytes"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func seq(vals ...any) func(func(any, error) bool) {
	return func(yield func(any, error) bool) {
		for _, v := range vals {
			if !yield(v, nil) {
				return
			}
		}
	}
}

func TestEncoder_RSDelimiter(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Options{RS: true})
	n, err := enc.EncodeAll(seq(json.Number("1"), json.Number("2"), json.Number("3")), nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if n != 3 || buf.String() != "\x1e1\n\x1e2\n\x1e3\n" {
		t.Fatalf("unexpected output %q (%d records)", buf.String(), n)
	}
}

func TestEncoder_PlainRecords(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Options{})
	if _, err := enc.EncodeAll(seq(map[string]any{"b": 1, "a": "<x>"}, []any{nil, true}, "s"), nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = enc.Flush()
	want := "{\"a\":\"<x>\",\"b\":1}\n[null,true]\n\"s\"\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestMarshal_EnsureASCII(t *testing.T) {
	out, err := Marshal(map[string]any{"name": "café 😀"}, Options{EnsureASCII: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"caf\u00e9 \ud83d\ude00"}` + "\n"
	if string(out) != want {
		t.Fatalf("got %q, want %q", out, want)
	}

	out, err = Marshal("café", Options{})
	if err != nil || string(out) != "\"café\"\n" {
		t.Fatalf("unexpected raw output %q (%v)", out, err)
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	values := []any{
		map[string]any{"a": []any{1.5, "x", nil, map[string]any{"é": false}}},
		[]any{},
		"line\nbreak \"quoted\"  ",
		42.0,
	}
	for _, opts := range []Options{{}, {RS: true}, {RS: true, EnsureASCII: true}} {
		for _, v := range values {
			unit, err := Marshal(v, opts)
			if err != nil {
				t.Fatalf("marshal %#v: %v", v, err)
			}
			payload := bytes.TrimPrefix(unit, []byte{RecordSeparator})
			payload = bytes.TrimSuffix(payload, []byte("\n"))
			if bytes.ContainsAny(payload, "\n\x1e") {
				t.Fatalf("payload contains framing bytes: %q", payload)
			}
			var back any
			if err := json.Unmarshal(payload, &back); err != nil {
				t.Fatalf("unmarshal %q: %v", payload, err)
			}
			if !reflect.DeepEqual(back, v) {
				t.Fatalf("round trip of %#v gave %#v", v, back)
			}
		}
	}
}

func TestEncoder_FailingRecordIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Options{RS: true})
	var failed []*RecordError
	n, err := enc.EncodeAll(seq(json.Number("1"), math.NaN(), json.Number("3")), func(re *RecordError) {
		failed = append(failed, re)
	})
	if err != nil {
		t.Fatalf("unexpected fatal: %v", err)
	}
	_ = enc.Flush()
	if n != 2 || buf.String() != "\x1e1\n\x1e3\n" {
		t.Fatalf("unexpected output %q (%d records)", buf.String(), n)
	}
	if len(failed) != 1 || failed[0].Index != 1 || !strings.Contains(failed[0].Error(), "record 1 (float64)") {
		t.Fatalf("unexpected record errors %v", failed)
	}
}

type brokenWriter struct{}

var errFull = errors.New("device full")

func (brokenWriter) Write(p []byte) (int, error) { return 0, errFull }

func TestEncoder_WriteErrorIsFatal(t *testing.T) {
	enc := NewEncoder(brokenWriter{}, Options{})
	if _, err := enc.EncodeAll(seq("a"), nil); err != nil {
		t.Fatalf("buffered write failed early: %v", err)
	}
	if err := enc.Flush(); !errors.Is(err, errFull) {
		t.Fatalf("expected write error, got %v", err)
	}
}

func TestEncoder_StreamErrorStops(t *testing.T) {
	boom := errors.New("boom")
	var buf bytes.Buffer
	enc := NewEncoder(&buf, Options{})
	stream := func(yield func(any, error) bool) {
		if !yield("a", nil) {
			return
		}
		yield(nil, boom)
	}
	n, err := enc.EncodeAll(stream, nil)
	if !errors.Is(err, boom) || n != 1 {
		t.Fatalf("expected stream error after 1 record, got %d, %v", n, err)
	}
}
