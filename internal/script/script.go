// Package script evaluates user supplied scripts against JSON records.
//
// A stage owns one Evaluator. The evaluator holds the stage's contextual
// scope (the whole-record binding, helpers, engine libraries) for its whole
// lifetime, while each evaluation gets a fresh local scope seeded from the
// record's fields.
package script

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RecordBinding is the contextual name bound to the whole record.
const RecordBinding = "_rec_"

// Mode selects how a script source is compiled.
type Mode int

const (
	// Expression scripts produce a value (filter predicates, reduce combinators).
	Expression Mode = iota
	// Block scripts mutate the local scope (update blocks).
	Block
)

// Env is the binding set for one evaluation.
type Env struct {
	// Locals seeds the local scope. Evaluators never mutate it.
	Locals map[string]any
	// Record is bound as RecordBinding in the contextual scope.
	Record any
}

// Outcome tags the result of executing a block.
type Outcome int

const (
	Continue Outcome = iota
	Drop
	Fail
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "continue"
	case Drop:
		return "drop"
	case Fail:
		return "fail"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Step is the result of executing one block.
type Step struct {
	Outcome Outcome
	// Locals is the committed local scope when Outcome is Continue.
	Locals map[string]any
	// Err is the script failure when Outcome is Fail.
	Err error
}

// Program is a compiled script.
type Program interface {
	Source() string
}

// Evaluator runs compiled programs inside one stage's contextual scope.
type Evaluator interface {
	Compile(src string, mode Mode) (Program, error)
	Eval(p Program, env Env) (any, error)
	Exec(p Program, env Env) Step
	Close()
}

// Libs selects the Lua standard libraries opened in the sandbox.
type Libs struct {
	Base   bool `json:"base" yaml:"base"`
	Table  bool `json:"table" yaml:"table"`
	String bool `json:"string" yaml:"string"`
	Math   bool `json:"math" yaml:"math"`
}

// Options configures an evaluator.
type Options struct {
	// Stage names the owning stage; it seeds deterministic randomness.
	Stage string
	// Timeout bounds a single evaluation. Zero means unbounded.
	Timeout             time.Duration
	Libs                Libs
	DeterministicRandom bool
}

// DefaultOptions returns the sandbox defaults for a stage.
func DefaultOptions(stage string) Options {
	return Options{
		Stage:               stage,
		Libs:                Libs{Base: true, Table: true, String: true, Math: true},
		DeterministicRandom: true,
	}
}

const (
	EngineLua  = "lua"
	EngineExpr = "expr"
)

type factory func(Options) (Evaluator, error)

var engines = map[string]factory{
	EngineLua:  newLuaEvaluator,
	EngineExpr: newExprEvaluator,
}

// Engines lists the registered engine names.
func Engines() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates an evaluator for the named engine.
func New(engine string, opts Options) (Evaluator, error) {
	if err := CheckEngine(engine); err != nil {
		return nil, err
	}
	return engines[engine](opts)
}

// CheckEngine reports an ErrUnknownEngine when engine is not registered.
func CheckEngine(engine string) error {
	if _, ok := engines[engine]; !ok {
		return ErrUnknownEngine{name: engine}
	}
	return nil
}

// ErrUnknownEngine is returned when an engine name is not registered.
type ErrUnknownEngine struct{ name string }

func (e ErrUnknownEngine) Error() string {
	return fmt.Sprintf("unknown script engine: %q (supported: %s)", e.name, strings.Join(Engines(), ", "))
}

// ErrSkipOutsideUpdate is reported when skip() is raised by an expression.
var ErrSkipOutsideUpdate = errors.New("skip() is only allowed in update scripts")

// containsReturn reports whether the code string contains the token "return".
func containsReturn(s string) bool {
	for i := 0; i+6 <= len(s); i++ {
		if s[i:i+6] != "return" {
			continue
		}
		if i > 0 && isIdentByte(s[i-1]) {
			continue
		}
		if i+6 < len(s) && isIdentByte(s[i+6]) {
			continue
		}
		return true
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// firstLine trims engine stack traces from an error message.
func firstLine(msg string) string {
	if i := strings.IndexByte(msg, '\n'); i >= 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}
