package stage

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Kind identifies the stage a ConvertingError comes from.
type Kind string

const (
	KindFiltering Kind = "filtering"
	KindUpdating  Kind = "updating"
	KindReducing  Kind = "reducing"
)

// Sentinels matched by errors.Is against a *ConvertingError of that kind.
var (
	ErrFiltering = errors.New("filtering error")
	ErrUpdating  = errors.New("updating error")
	ErrReducing  = errors.New("reducing error")
)

// ConvertingError is the fatal error raised by a strict stage.
type ConvertingError struct {
	Kind   Kind
	Script string
	// Record is a rendering of the offending record; empty for compile errors.
	Record string
	// Operands holds the accumulator and the next record for reduce errors.
	Operands []string
	Cause    error
}

func (e *ConvertingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error: script %q: %v", e.Kind, e.Script, e.Cause)
	switch {
	case len(e.Operands) == 2:
		fmt.Fprintf(&b, " (a: %s, b: %s)", e.Operands[0], e.Operands[1])
	case e.Record != "":
		fmt.Fprintf(&b, " (record: %s)", e.Record)
	}
	return sanitizeErrorMessage(b.String())
}

func (e *ConvertingError) Unwrap() error { return e.Cause }

// Is matches the sentinel of the error's kind.
func (e *ConvertingError) Is(target error) bool {
	switch target {
	case ErrFiltering:
		return e.Kind == KindFiltering
	case ErrUpdating:
		return e.Kind == KindUpdating
	case ErrReducing:
		return e.Kind == KindReducing
	}
	return false
}

// ExitCode reports the process exit status for fatal conversion errors.
func (e *ConvertingError) ExitCode() int { return 2 }

func newFilteringError(src string, rec any, cause error) *ConvertingError {
	return &ConvertingError{Kind: KindFiltering, Script: src, Record: renderRecord(rec), Cause: cause}
}

func newUpdatingError(src string, rec any, cause error) *ConvertingError {
	return &ConvertingError{Kind: KindUpdating, Script: src, Record: renderRecord(rec), Cause: cause}
}

func newReducingError(src string, acc, next any, cause error) *ConvertingError {
	return &ConvertingError{
		Kind:     KindReducing,
		Script:   src,
		Operands: []string{renderRecord(acc), renderRecord(next)},
		Cause:    cause,
	}
}

func compileError(kind Kind, src string, cause error) *ConvertingError {
	return &ConvertingError{Kind: kind, Script: src, Cause: fmt.Errorf("compile: %w", cause)}
}

// maxRenderedRecord caps record renderings in diagnostics.
const maxRenderedRecord = 512

// renderRecord renders rec for diagnostics. It never fails: values that
// cannot be encoded fall back to their Go representation.
func renderRecord(rec any) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = fmt.Sprintf("<unrenderable record: %v>", r)
		}
	}()
	b, err := json.MarshalWithOption(rec, json.DisableHTMLEscape())
	if err != nil {
		s = fmt.Sprintf("%#v", rec)
	} else {
		s = string(b)
	}
	if len(s) > maxRenderedRecord {
		cut := maxRenderedRecord
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

func sanitizeErrorMessage(msg string) string {
	s := strings.Join(strings.Fields(msg), " ")
	if s == "" {
		return "error"
	}
	return s
}
