package source

import (
	"errors"
	"fmt"
	"strings"
)

// ItemSegment matches every element of an array.
const ItemSegment = "item"

var (
	// ErrSelectorSyntax reports a malformed selector.
	ErrSelectorSyntax = errors.New("selector: syntax error")
	// ErrSelectorNotSupported reports a JSONPath feature that cannot be
	// streamed as a fixed prefix.
	ErrSelectorNotSupported = errors.New("selector: not supported")
	// ErrMalformed reports input that is not a valid JSON document.
	ErrMalformed = errors.New("malformed JSON")
)

// Selector is a fixed path from the document root to the values that form
// the record stream. Each segment is an object key, or ItemSegment for the
// elements of an array. The empty selector selects the root value.
type Selector struct {
	segments []string
}

// ParseSelector accepts either a dotted prefix ("item", "data.rows.item",
// "" for the root) or a JSONPath made of child names and [*] wildcards
// ("$", "$[*]", "$.data.rows[*]", "$['odd key'][*]").
func ParseSelector(s string) (Selector, error) {
	if strings.HasPrefix(s, "$") {
		return parseJSONPath(s)
	}
	if s == "" {
		return Selector{}, nil
	}
	segs := strings.Split(s, ".")
	for _, seg := range segs {
		if seg == "" {
			return Selector{}, fmt.Errorf("%w: empty segment in %q", ErrSelectorSyntax, s)
		}
	}
	return Selector{segments: segs}, nil
}

// MustParseSelector is ParseSelector for literals known to be valid.
func MustParseSelector(s string) Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// Segments returns a copy of the path segments.
func (s Selector) Segments() []string {
	return append([]string(nil), s.segments...)
}

// String renders the selector in dotted prefix form.
func (s Selector) String() string {
	return strings.Join(s.segments, ".")
}

func parseJSONPath(expr string) (Selector, error) {
	var segs []string
	i := 1
	for i < len(expr) {
		switch expr[i] {
		case '.':
			if i+1 < len(expr) && expr[i+1] == '.' {
				return Selector{}, fmt.Errorf("%w: recursive descent '..'", ErrSelectorNotSupported)
			}
			i++
			start := i
			for i < len(expr) && isNameByte(expr[i]) {
				i++
			}
			if i < len(expr) && expr[i] == '*' && start == i {
				return Selector{}, fmt.Errorf("%w: member wildcard '.*'", ErrSelectorNotSupported)
			}
			if start == i {
				return Selector{}, fmt.Errorf("%w: empty name at position %d", ErrSelectorSyntax, start)
			}
			segs = append(segs, expr[start:i])
		case '[':
			seg, next, err := parseBracket(expr, i)
			if err != nil {
				return Selector{}, err
			}
			segs = append(segs, seg)
			i = next
		default:
			return Selector{}, fmt.Errorf("%w: unexpected %q at position %d, expected '.' or '['", ErrSelectorSyntax, expr[i], i)
		}
	}
	return Selector{segments: segs}, nil
}

// parseBracket parses the bracket selector starting at expr[i] == '['.
func parseBracket(expr string, i int) (string, int, error) {
	end := strings.IndexByte(expr[i:], ']')
	if end < 0 {
		return "", i, fmt.Errorf("%w: unterminated bracket at position %d", ErrSelectorSyntax, i)
	}
	body := strings.TrimSpace(expr[i+1 : i+end])
	next := i + end + 1
	switch {
	case body == "*":
		return ItemSegment, next, nil
	case len(body) >= 2 && (body[0] == '\'' || body[0] == '"') && body[len(body)-1] == body[0]:
		name := body[1 : len(body)-1]
		if strings.ContainsAny(name, "'\"") {
			return "", i, fmt.Errorf("%w: quotes inside bracket name %s", ErrSelectorSyntax, body)
		}
		return name, next, nil
	case strings.HasPrefix(body, "?"):
		return "", i, fmt.Errorf("%w: filter expression [%s]", ErrSelectorNotSupported, body)
	case body == "":
		return "", i, fmt.Errorf("%w: empty bracket at position %d", ErrSelectorSyntax, i)
	}
	return "", i, fmt.Errorf("%w: index, slice or union [%s]", ErrSelectorNotSupported, body)
}

func isNameByte(c byte) bool {
	return c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}
