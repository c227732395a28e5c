package lua

import (
	"fmt"
	"iter"
	"math"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// Bridge provides utilities for Go-Lua interoperability.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGoValue converts a Lua value to a Go value.
// Vectors become []any in sequence order.
func (b *Bridge) ToGoValue(lv lua.LValue) any {
	return ToGoValue(lv)
}

// ToGoValue converts a Lua value to a Go value without a state.
func ToGoValue(lv lua.LValue) any {
	return toGoValueWithVisited(lv, make(map[*lua.LTable]bool))
}

// ToGoValues converts every element of v, in order.
func ToGoValues(v Vec) []any {
	out := make([]any, 0, v.Len())
	for x := range v.Values() {
		out = append(out, ToGoValue(x))
	}
	return out
}

// toGoValueWithVisited converts a Lua value to a Go value, tracking visited tables.
func toGoValueWithVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	if lv == nil {
		return nil
	}

	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		// Break circular references
		if visited[v] {
			return nil
		}
		visited[v] = true
		return tableToGoWithVisited(v, visited)
	case *lua.LUserData:
		if vec, ok := v.Value.(Vec); ok {
			out := make([]any, 0, vec.Len())
			for x := range vec.Values() {
				out = append(out, toGoValueWithVisited(x, visited))
			}
			return out
		}
		return v.Value
	default:
		return nil
	}
}

// tableToGoWithVisited converts a Lua table to a slice when its keys are
// exactly 1..n, otherwise to a map keyed by the string form of each key.
func tableToGoWithVisited(t *lua.LTable, visited map[*lua.LTable]bool) any {
	isArray := true
	count := 0
	maxN := 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		kn, ok := k.(lua.LNumber)
		if !ok {
			isArray = false
			return
		}
		n := int(kn)
		if float64(n) != float64(kn) || n <= 0 {
			isArray = false
			return
		}
		maxN = max(maxN, n)
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = toGoValueWithVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = kv.String()
		default:
			key = k.String()
		}
		m[key] = toGoValueWithVisited(v, visited)
	})
	return m
}

// ToVec returns the vector held by lv. The handle is returned as is, so it
// shares every node with the script's value. It reports false when lv is not
// a vector.
func ToVec(lv lua.LValue) (Vec, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return Vec{}, false
	}
	vec, ok := ud.Value.(Vec)
	return vec, ok
}

// VecFromGo builds a Lua vector from Go values, converting each element
// with ToLuaValue.
func (b *Bridge) VecFromGo(values iter.Seq[any]) Vec {
	var vec Vec
	for x := range values {
		vec = vec.Push(b.ToLuaValue(x))
	}
	return vec
}

// ToLuaValue converts a Go value to a Lua value.
// Vec handles become Lua vectors sharing the same nodes; slices and maps
// become tables.
func (b *Bridge) ToLuaValue(v any) lua.LValue {
	if v == nil {
		return lua.LNil
	}

	switch val := v.(type) {
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []any:
		return b.sliceToTable(val)
	case []string:
		t := b.L.CreateTable(len(val), 0)
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	case map[string]any:
		return b.mapToTable(val)
	case Vec:
		return newVectorUserData(b.L, val)
	case lua.LValue:
		return val
	default:
		return lua.LString(fmt.Sprint(v))
	}
}

// sliceToTable converts a Go slice to a Lua array table.
func (b *Bridge) sliceToTable(s []any) *lua.LTable {
	t := b.L.CreateTable(len(s), 0)
	for _, v := range s {
		t.Append(b.ToLuaValue(v))
	}
	return t
}

// mapToTable converts a Go map to a Lua table. Keys are inserted in sorted
// order so iteration over the result is reproducible.
func (b *Bridge) mapToTable(m map[string]any) *lua.LTable {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := b.L.CreateTable(0, len(m))
	for _, k := range keys {
		t.RawSetString(k, b.ToLuaValue(m[k]))
	}
	return t
}
