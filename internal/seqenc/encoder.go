// Package seqenc writes JSON Text Sequences (RFC 7464).
package seqenc

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// RecordSeparator is the RFC 7464 record separator byte.
const RecordSeparator = 0x1E

// Options controls the framing and escaping of each record.
type Options struct {
	// RS prefixes every record with RecordSeparator.
	RS bool `json:"rsDelimiter" yaml:"rsDelimiter"`
	// EnsureASCII escapes every non-ASCII code point as \uXXXX.
	EnsureASCII bool `json:"ensureASCII" yaml:"ensureASCII"`
}

// RecordError reports a value that could not be serialized. Nothing of the
// record was written and the encoder remains usable.
type RecordError struct {
	Index int
	Type  string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *RecordError) Unwrap() error { return e.Err }

// Encoder writes one sequence record per Encode call.
type Encoder struct {
	w       *bufio.Writer
	opts    Options
	index   int
	written int
}

func NewEncoder(w io.Writer, opts Options) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), opts: opts}
}

// Marshal returns the complete sequence record for v: optional separator,
// compact JSON text and the terminating newline.
func Marshal(v any, opts Options) ([]byte, error) {
	text, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(text)+2)
	if opts.RS {
		out = append(out, RecordSeparator)
	}
	if opts.EnsureASCII {
		out = appendASCII(out, text)
	} else {
		out = append(out, text...)
	}
	return append(out, '\n'), nil
}

// Encode serializes v before writing anything, so a value that cannot be
// encoded leaves no partial record behind and yields a *RecordError. Any
// other error comes from the underlying writer and is fatal.
func (e *Encoder) Encode(v any) error {
	idx := e.index
	e.index++
	unit, err := Marshal(v, e.opts)
	if err != nil {
		return &RecordError{Index: idx, Type: fmt.Sprintf("%T", v), Err: err}
	}
	if _, err := e.w.Write(unit); err != nil {
		return fmt.Errorf("write record %d: %w", idx, err)
	}
	e.written++
	return nil
}

// Written returns the number of records handed to the writer so far.
func (e *Encoder) Written() int { return e.written }

// Flush writes buffered records to the underlying writer.
func (e *Encoder) Flush() error {
	return e.w.Flush()
}

// EncodeAll drains seq into the encoder. Records that cannot be serialized
// are reported to onRecordError and skipped. It stops at the first stream or
// write error and returns the number of records written.
func (e *Encoder) EncodeAll(seq iter.Seq2[any, error], onRecordError func(*RecordError)) (int, error) {
	written := 0
	for v, err := range seq {
		if err != nil {
			return written, err
		}
		if err := e.Encode(v); err != nil {
			re, ok := err.(*RecordError)
			if !ok {
				return written, err
			}
			if onRecordError != nil {
				onRecordError(re)
			}
			continue
		}
		written++
	}
	return written, nil
}

const hexDigits = "0123456789abcdef"

// appendASCII copies JSON text, escaping code points above 0x7F. Such code
// points only occur inside string literals, where \u escapes are valid.
func appendASCII(dst, text []byte) []byte {
	for len(text) > 0 {
		c := text[0]
		if c < utf8.RuneSelf {
			dst = append(dst, c)
			text = text[1:]
			continue
		}
		r, size := utf8.DecodeRune(text)
		text = text[size:]
		if r >= 0x10000 {
			hi, lo := utf16.EncodeRune(r)
			dst = appendEscape(appendEscape(dst, hi), lo)
			continue
		}
		dst = appendEscape(dst, r)
	}
	return dst
}

func appendEscape(dst []byte, r rune) []byte {
	return append(dst, '\\', 'u',
		hexDigits[r>>12&0xF], hexDigits[r>>8&0xF], hexDigits[r>>4&0xF], hexDigits[r&0xF])
}
