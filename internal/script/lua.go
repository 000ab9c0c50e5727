package script

import (
	"context"
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

type luaProgram struct {
	src string
	fn  *lua.LFunction
}

func (p *luaProgram) Source() string { return p.src }

// luaEvaluator runs every program of one stage inside a single LState. The
// contextual table and the helper values live as long as the evaluator.
type luaEvaluator struct {
	L    *lua.LState
	opts Options

	context   *lua.LTable
	objectMT  *lua.LTable
	counterMT *lua.LTable
	null      *lua.LUserData
	skip      *lua.LUserData
}

func newLuaEvaluator(opts Options) (Evaluator, error) {
	L := newSandboxLuaState(opts)
	e := &luaEvaluator{L: L, opts: opts}

	e.null = L.NewUserData()
	e.skip = L.NewUserData()
	e.objectMT = L.NewTable()
	e.counterMT = L.NewTable()
	e.counterMT.RawSetString("__add", L.NewFunction(e.counterAdd))

	// Contextual scope: helpers first, engine globals behind them.
	e.context = L.NewTable()
	ctxMT := L.NewTable()
	ctxMT.RawSetString("__index", L.Get(lua.GlobalsIndex))
	e.context.Metatable = ctxMT
	e.context.RawSetString("null", e.null)
	e.context.RawSetString("counter", L.NewFunction(e.counter))
	e.context.RawSetString("skip", L.NewFunction(func(L *lua.LState) int {
		L.Error(e.skip, 0)
		return 0
	}))
	return e, nil
}

func (e *luaEvaluator) Close() { e.L.Close() }

// Compile loads src once. Expressions without an explicit return are
// wrapped so their value is returned.
func (e *luaEvaluator) Compile(src string, mode Mode) (Program, error) {
	code := src
	if mode == Expression && !containsReturn(src) {
		code = "return (" + src + ")"
	}
	fn, err := e.L.LoadString(code)
	if err != nil {
		return nil, errors.New(firstLine(err.Error()))
	}
	return &luaProgram{src: src, fn: fn}, nil
}

func (e *luaEvaluator) Eval(p Program, env Env) (any, error) {
	ret, _, err := e.call(p, env)
	if err != nil {
		if e.isSkip(err) {
			return nil, ErrSkipOutsideUpdate
		}
		return nil, e.scriptError(err)
	}
	out, err := e.fromLValue(ret, nil, 0)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *luaEvaluator) Exec(p Program, env Env) Step {
	_, locals, err := e.call(p, env)
	if err != nil {
		if e.isSkip(err) {
			return Step{Outcome: Drop}
		}
		return Step{Outcome: Fail, Err: e.scriptError(err)}
	}
	out, err := e.tableToMap(locals, env.Locals, 0)
	if err != nil {
		return Step{Outcome: Fail, Err: err}
	}
	return Step{Outcome: Continue, Locals: out}
}

// call runs p with a scope whose reads go to the local table first and then
// to the contextual table, and whose writes always land in the local table.
func (e *luaEvaluator) call(p Program, env Env) (lua.LValue, *lua.LTable, error) {
	lp, ok := p.(*luaProgram)
	if !ok {
		return nil, nil, fmt.Errorf("lua: foreign program %T", p)
	}
	L := e.L
	locals, err := e.objectTable(env.Locals, 0)
	if err != nil {
		return nil, nil, err
	}
	if _, isObject := env.Record.(map[string]any); isObject {
		e.context.RawSetString(RecordBinding, locals)
	} else {
		rec, err := e.toLValue(env.Record, 0)
		if err != nil {
			return nil, nil, err
		}
		e.context.RawSetString(RecordBinding, rec)
	}

	scope := L.NewTable()
	scopeMT := L.NewTable()
	scopeMT.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		key := L.Get(2)
		if v := locals.RawGet(key); v != lua.LNil {
			L.Push(v)
			return 1
		}
		L.Push(L.GetTable(e.context, key))
		return 1
	}))
	scopeMT.RawSetString("__newindex", locals)
	scope.Metatable = scopeMT
	lp.fn.Env = scope

	if e.opts.Timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), e.opts.Timeout)
		defer cancel()
		L.SetContext(ctx)
		defer L.RemoveContext()
	}

	L.Push(lp.fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return nil, nil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, locals, nil
}

func (e *luaEvaluator) isSkip(err error) bool {
	var apiErr *lua.ApiError
	return errors.As(err, &apiErr) && apiErr.Object == e.skip
}

func (e *luaEvaluator) scriptError(err error) error {
	if isTimeoutError(err) {
		return fmt.Errorf("script timeout after %s", e.opts.Timeout)
	}
	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) && apiErr.Object != nil {
		return errors.New(firstLine(apiErr.Object.String()))
	}
	return errors.New(firstLine(err.Error()))
}

// counter implements counter(...) for Lua scripts.
func (e *luaEvaluator) counter(L *lua.LState) int {
	out := L.NewTable()
	out.Metatable = e.counterMT
	for i := 1; i <= L.GetTop(); i++ {
		e.countInto(out, L.Get(i))
	}
	L.Push(out)
	return 1
}

func (e *luaEvaluator) counterAdd(L *lua.LState) int {
	a := L.CheckTable(1)
	b := L.CheckTable(2)
	out := L.NewTable()
	out.Metatable = e.counterMT
	e.countInto(out, a)
	e.countInto(out, b)
	L.Push(out)
	return 1
}

func (e *luaEvaluator) countInto(out *lua.LTable, v lua.LValue) {
	add := func(key string, n lua.LNumber) {
		cur, _ := out.RawGetString(key).(lua.LNumber)
		out.RawSetString(key, cur+n)
	}
	switch x := v.(type) {
	case *lua.LTable:
		if x.Metatable == e.counterMT || x.Metatable == e.objectMT {
			x.ForEach(func(k, n lua.LValue) {
				if num, ok := n.(lua.LNumber); ok {
					add(k.String(), num)
				} else {
					add(k.String(), 1)
				}
			})
			return
		}
		for i := 1; i <= x.Len(); i++ {
			add(e.keyOf(x.RawGetInt(i)), 1)
		}
	case *lua.LNilType:
	default:
		add(e.keyOf(v), 1)
	}
}

func (e *luaEvaluator) keyOf(v lua.LValue) string {
	if v == e.null || v == lua.LNil {
		return "null"
	}
	return v.String()
}
