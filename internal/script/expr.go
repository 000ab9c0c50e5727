package script

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type exprProgram struct {
	src  string
	mode Mode
	prog *vm.Program
}

func (p *exprProgram) Source() string { return p.src }

var errExprSkip = errors.New("skip")

// exprEvaluator evaluates expr-lang expressions. Update blocks are single
// expressions whose object result is merged into the local scope.
type exprEvaluator struct {
	opts    Options
	skipped bool
}

func newExprEvaluator(opts Options) (Evaluator, error) {
	return &exprEvaluator{opts: opts}, nil
}

func (e *exprEvaluator) Close() {}

func (e *exprEvaluator) Compile(src string, mode Mode) (Program, error) {
	program, err := expr.Compile(src,
		expr.AllowUndefinedVariables(),
		expr.Function("skip", func(params ...any) (any, error) {
			e.skipped = true
			return nil, errExprSkip
		}),
		expr.Function("counter", func(params ...any) (any, error) {
			return Count(params...), nil
		}),
	)
	if err != nil {
		return nil, errors.New(firstLine(err.Error()))
	}
	return &exprProgram{src: src, mode: mode, prog: program}, nil
}

func (e *exprEvaluator) Eval(p Program, env Env) (any, error) {
	out, err := e.run(p, env)
	if e.skipped {
		return nil, ErrSkipOutsideUpdate
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *exprEvaluator) Exec(p Program, env Env) Step {
	out, err := e.run(p, env)
	if e.skipped {
		return Step{Outcome: Drop}
	}
	if err != nil {
		return Step{Outcome: Fail, Err: err}
	}
	locals := make(map[string]any, len(env.Locals))
	for k, v := range env.Locals {
		locals[k] = v
	}
	switch x := out.(type) {
	case nil:
	case map[string]any:
		for k, v := range x {
			locals[k] = v
		}
	default:
		return Step{Outcome: Fail, Err: fmt.Errorf("update expression must return an object or nil, got %T", out)}
	}
	return Step{Outcome: Continue, Locals: locals}
}

func (e *exprEvaluator) run(p Program, env Env) (any, error) {
	ep, ok := p.(*exprProgram)
	if !ok {
		return nil, fmt.Errorf("expr: foreign program %T", p)
	}
	e.skipped = false
	rec, err := plain(env.Record, 0)
	if err != nil {
		return nil, err
	}
	scope := map[string]any{
		RecordBinding: rec,
		"null":        nil,
	}
	for k, v := range env.Locals {
		pv, err := plain(v, 0)
		if err != nil {
			return nil, err
		}
		scope[k] = pv
	}
	out, err := expr.Run(ep.prog, scope)
	if err != nil {
		return nil, errors.New(firstLine(err.Error()))
	}
	return out, nil
}
