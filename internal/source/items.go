// Package source extracts the record stream from a JSON document without
// loading the document into memory.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/goccy/go-json"
)

// maxNesting bounds how deep the walker descends towards the selector.
const maxNesting = 10000

// Items returns the values of r located by sel, in document order. Numbers
// decode as json.Number. The input may hold several top-level documents;
// the selector applies to each of them.
//
// Only the selected values are decoded; everything else is scanned token by
// token and discarded. Breaking out of the range stops reading r at once, so
// trailing input is never parsed.
func Items(ctx context.Context, r io.Reader, sel Selector) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		src := &errReader{r: r}
		dec := json.NewDecoder(src)
		dec.UseNumber()
		w := &walker{ctx: ctx, dec: dec, src: src, sel: sel.segments, yield: yield}
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !dec.More() {
				tok, err := dec.Token()
				if errors.Is(err, io.EOF) {
					if src.err != nil {
						yield(nil, w.wrap(err))
					}
					return
				}
				if err == nil {
					err = fmt.Errorf("%w: unexpected %v at offset %d", ErrMalformed, tok, dec.InputOffset())
				}
				yield(nil, err)
				return
			}
			more, err := w.value(0, true)
			if err != nil {
				yield(nil, err)
				return
			}
			if !more {
				return
			}
		}
	}
}

type walker struct {
	ctx   context.Context
	dec   *json.Decoder
	src   *errReader
	sel   []string
	yield func(any, error) bool
}

// value consumes the value at the decoder's position, at the given depth.
// onPath is true when the keys leading here match the selector so far. It
// reports false once the consumer has stopped.
func (w *walker) value(depth int, onPath bool) (bool, error) {
	if onPath && depth == len(w.sel) {
		return w.emit()
	}
	if depth > maxNesting {
		return false, fmt.Errorf("%w: nesting exceeds %d levels", ErrMalformed, maxNesting)
	}
	tok, err := w.token()
	if err != nil {
		return false, err
	}
	d, isDelim := tok.(json.Delim)
	if !isDelim {
		return true, nil
	}
	switch {
	case d == '{' && onPath:
		return w.object(depth)
	case d == '[' && onPath:
		return w.array(depth)
	case d == '{' || d == '[':
		return true, w.skip()
	}
	return false, fmt.Errorf("%w: unexpected %q at offset %d", ErrMalformed, rune(d), w.dec.InputOffset())
}

func (w *walker) emit() (bool, error) {
	var v any
	if err := w.dec.Decode(&v); err != nil {
		return false, w.wrap(err)
	}
	if err := w.ctx.Err(); err != nil {
		return false, err
	}
	return w.yield(v, nil), nil
}

func (w *walker) object(depth int) (bool, error) {
	want := w.sel[depth]
	for w.dec.More() {
		tok, err := w.token()
		if err != nil {
			return false, err
		}
		key, ok := tok.(string)
		if !ok {
			return false, fmt.Errorf("%w: expected object key at offset %d, got %v", ErrMalformed, w.dec.InputOffset(), tok)
		}
		more, err := w.value(depth+1, key == want)
		if err != nil || !more {
			return more, err
		}
	}
	return true, w.close('}')
}

func (w *walker) array(depth int) (bool, error) {
	onPath := w.sel[depth] == ItemSegment
	for w.dec.More() {
		more, err := w.value(depth+1, onPath)
		if err != nil || !more {
			return more, err
		}
	}
	return true, w.close(']')
}

// skip discards the rest of a container whose opening delimiter was read.
func (w *walker) skip() error {
	open := 1
	for open > 0 {
		tok, err := w.token()
		if err != nil {
			return err
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			open++
		case json.Delim('}'), json.Delim(']'):
			open--
		}
	}
	return nil
}

func (w *walker) close(want json.Delim) error {
	tok, err := w.token()
	if err != nil {
		return err
	}
	if tok != want {
		return fmt.Errorf("%w: expected %q at offset %d, got %v", ErrMalformed, rune(want), w.dec.InputOffset(), tok)
	}
	return nil
}

// token reads the next token inside a value, where running out of input is
// always premature.
func (w *walker) token() (json.Token, error) {
	tok, err := w.dec.Token()
	if err != nil {
		return nil, w.wrap(err)
	}
	return tok, nil
}

func (w *walker) wrap(err error) error {
	if w.src.err != nil {
		return fmt.Errorf("read input: %w", w.src.err)
	}
	if errors.Is(err, io.EOF) || w.atEnd(err) {
		return fmt.Errorf("%w: %w", ErrMalformed, io.ErrUnexpectedEOF)
	}
	return fmt.Errorf("%w: %w", ErrMalformed, err)
}

// atEnd reports whether err is a syntax error raised on the end of input,
// which the decoder describes as an invalid character.
func (w *walker) atEnd(err error) bool {
	var se *json.SyntaxError
	return w.src.eof && errors.As(err, &se) && se.Offset >= w.src.n
}

// errReader keeps the first read failure. The decoder reports any failed
// read as end of input, which would hide I/O errors behind a truncation.
type errReader struct {
	r   io.Reader
	err error
	n   int64
	eof bool
}

func (e *errReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	e.n += int64(n)
	if err == io.EOF {
		e.eof = true
	}
	if err != nil && err != io.EOF && e.err == nil {
		e.err = err
	}
	return n, err
}
