package script

import (
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	lua "github.com/yuin/gopher-lua"
)

// objectTable converts a field map to a Lua table marked as a JSON object.
func (e *luaEvaluator) objectTable(m map[string]any, depth int) (*lua.LTable, error) {
	tbl := e.L.NewTable()
	tbl.Metatable = e.objectMT
	for k, v := range m {
		lv, err := e.toLValue(v, depth+1)
		if err != nil {
			return nil, err
		}
		tbl.RawSetString(k, lv)
	}
	return tbl, nil
}

// toLValue converts a JSON value to a Lua value. JSON null becomes the
// null sentinel so keys holding null survive a round trip.
func (e *luaEvaluator) toLValue(v any, depth int) (lua.LValue, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("value nesting exceeds %d levels", maxDepth)
	}
	switch x := v.(type) {
	case nil:
		return e.null, nil
	case string:
		return lua.LString(x), nil
	case bool:
		if x {
			return lua.LTrue, nil
		}
		return lua.LFalse, nil
	case map[string]any:
		return e.objectTable(x, depth)
	case []any:
		tbl := e.L.NewTable()
		for i, v2 := range x {
			lv, err := e.toLValue(v2, depth+1)
			if err != nil {
				return nil, err
			}
			tbl.RawSetInt(i+1, lv)
		}
		return tbl, nil
	}
	if f, ok := numberFloat(v); ok {
		return lua.LNumber(f), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

// fromLValue converts a Lua value back to a JSON value. Tables marked as
// objects stay objects; other tables become arrays when their keys are 1..n.
// orig is the JSON value the Lua value was made from, if any: numbers the
// script left equal to their original come back as the original literal, so
// untouched fields keep their exact text.
func (e *luaEvaluator) fromLValue(v lua.LValue, orig any, depth int) (any, error) {
	if depth > maxDepth {
		return nil, fmt.Errorf("table nesting exceeds %d levels", maxDepth)
	}
	switch x := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(x), nil
	case lua.LNumber:
		if n, ok := orig.(json.Number); ok {
			if f, ok := parseNumber(string(n)); ok && lua.LNumber(f) == x {
				return n, nil
			}
		}
		return numberValue(float64(x)), nil
	case lua.LString:
		return string(x), nil
	case *lua.LUserData:
		if x == e.null {
			return nil, nil
		}
	case *lua.LTable:
		origMap, _ := orig.(map[string]any)
		if x.Metatable == e.objectMT || x.Metatable == e.counterMT {
			return e.tableToMap(x, origMap, depth)
		}
		origArr, _ := orig.([]any)
		arr := []any{}
		isArray := true
		var convErr error
		x.ForEach(func(k, val lua.LValue) {
			if !isArray || convErr != nil {
				return
			}
			if lk, ok := k.(lua.LNumber); ok && int(lk) == len(arr)+1 {
				var o any
				if len(arr) < len(origArr) {
					o = origArr[len(arr)]
				}
				item, err := e.fromLValue(val, o, depth+1)
				if err != nil {
					convErr = err
					return
				}
				arr = append(arr, item)
			} else {
				isArray = false
			}
		})
		if convErr != nil {
			return nil, convErr
		}
		if isArray {
			return arr, nil
		}
		return e.tableToMap(x, origMap, depth)
	}
	return nil, fmt.Errorf("cannot convert lua %s to JSON", v.Type().String())
}

func (e *luaEvaluator) tableToMap(t *lua.LTable, orig map[string]any, depth int) (map[string]any, error) {
	obj := map[string]any{}
	var keys []string
	vals := map[string]lua.LValue{}
	t.ForEach(func(k, val lua.LValue) {
		ks := k.String()
		keys = append(keys, ks)
		vals[ks] = val
	})
	sort.Strings(keys)
	for _, k := range keys {
		item, err := e.fromLValue(vals[k], orig[k], depth+1)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		obj[k] = item
	}
	return obj, nil
}
