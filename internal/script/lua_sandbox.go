package script

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

func newSandboxLuaState(opts Options) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openLib := func(name string, f lua.LGFunction) {
		L.Push(L.NewFunction(f))
		L.Push(lua.LString(name))
		L.Call(1, 0)
	}
	if opts.Libs.Base {
		openLib("base", lua.OpenBase)
	}
	if opts.Libs.String {
		openLib("string", lua.OpenString)
	}
	if opts.Libs.Table {
		openLib("table", lua.OpenTable)
	}
	if opts.Libs.Math {
		openLib("math", lua.OpenMath)
	}
	if opts.Libs.Math && opts.DeterministicRandom {
		installDeterministicRandom(L, deterministicSeed(opts.Stage))
	}
	return L
}

func deterministicSeed(stage string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("json2seq"))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(stage))
	return int64(h.Sum64() & 0x7fffffffffffffff)
}

func installDeterministicRandom(L *lua.LState, seed int64) {
	mathTbl, ok := L.GetGlobal("math").(*lua.LTable)
	if !ok || mathTbl == nil {
		return
	}
	rng := rand.New(rand.NewSource(seed))
	mathTbl.RawSetString("random", L.NewFunction(func(L *lua.LState) int {
		switch L.GetTop() {
		case 0:
			L.Push(lua.LNumber(rng.Float64()))
			return 1
		case 1:
			max := L.CheckInt(1)
			if max < 1 {
				L.ArgError(1, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max) + 1))
			return 1
		default:
			min := L.CheckInt(1)
			max := L.CheckInt(2)
			if max < min {
				L.ArgError(2, "interval is empty")
				return 0
			}
			L.Push(lua.LNumber(rng.Intn(max-min+1) + min))
			return 1
		}
	}))
	mathTbl.RawSetString("randomseed", L.NewFunction(func(L *lua.LState) int {
		return 0
	}))
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if err == context.DeadlineExceeded {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadline") || strings.Contains(msg, "context canceled")
}
