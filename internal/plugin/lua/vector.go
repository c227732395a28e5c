package lua

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/arraytrie/internal/engine/vector"
)

const (
	vectorModuleName = "vector"
	vectorTypeName   = "arraytrie.vector"
)

// Vec is the vector type seen by scripts.
type Vec = vector.Vector[lua.LValue]

// registerVectorModule installs the vector metatable, the global "vector"
// table and a preload entry so require("vector") returns the same table.
func (s *State) registerVectorModule() {
	L := s.L

	mt := L.NewTypeMetatable(vectorTypeName)
	methods := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"push":    s.vecPush,
		"pop":     s.vecPop,
		"get":     s.vecGet,
		"last":    s.vecLast,
		"len":     vecLen,
		"height":  vecHeight,
		"iter":    s.vecIter,
		"totable": s.vecToTable,
		"digest":  s.vecDigest,
	})
	L.SetField(mt, "__index", methods)
	L.SetField(mt, "__len", L.NewFunction(vecLen))
	L.SetField(mt, "__tostring", L.NewFunction(vecToString))
	L.SetField(mt, "__eq", L.NewFunction(vecEqual))

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"new":   s.vecNew,
		"empty": vecEmpty,
		"is":    vecIs,
	})
	L.SetGlobal(vectorModuleName, mod)
	L.PreloadModule(vectorModuleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
}

// newVectorUserData wraps v in a userdata carrying the vector metatable.
func newVectorUserData(L *lua.LState, v Vec) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = v
	L.SetMetatable(ud, L.GetTypeMetatable(vectorTypeName))
	return ud
}

// checkVector returns the vector at stack position n or raises an argument error.
func checkVector(L *lua.LState, n int) Vec {
	ud := L.CheckUserData(n)
	v, ok := ud.Value.(Vec)
	if !ok {
		L.ArgError(n, "vector expected")
	}
	return v
}

// charge bills n operations against the sandbox budget.
func (s *State) charge(L *lua.LState, n int64) {
	if s.sandbox.Charge(n) {
		L.RaiseError("%s", ErrOpLimit.Error())
	}
}

// vector.new(...) builds a vector holding its arguments in order.
func (s *State) vecNew(L *lua.LState) int {
	n := L.GetTop()
	s.charge(L, int64(n)+1)
	var v Vec
	for i := 1; i <= n; i++ {
		v = v.Push(L.Get(i))
	}
	L.Push(newVectorUserData(L, v))
	return 1
}

func vecEmpty(L *lua.LState) int {
	L.Push(newVectorUserData(L, Vec{}))
	return 1
}

// vector.is(x) reports whether x is a vector.
func vecIs(L *lua.LState) int {
	ud, ok := L.Get(1).(*lua.LUserData)
	if ok {
		_, ok = ud.Value.(Vec)
	}
	L.Push(lua.LBool(ok))
	return 1
}

func (s *State) vecPush(L *lua.LState) int {
	v := checkVector(L, 1)
	s.charge(L, 1)
	L.Push(newVectorUserData(L, v.Push(L.Get(2))))
	return 1
}

// v:pop() returns the shortened vector and the removed element.
func (s *State) vecPop(L *lua.LState) int {
	v := checkVector(L, 1)
	s.charge(L, 1)
	rest, x, err := v.Pop()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(newVectorUserData(L, rest))
	L.Push(x)
	return 2
}

// v:get(i) reads the element at the zero-based index i.
func (s *State) vecGet(L *lua.LState) int {
	v := checkVector(L, 1)
	s.charge(L, 1)
	x, err := v.Get(L.CheckInt(2))
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(x)
	return 1
}

func (s *State) vecLast(L *lua.LState) int {
	v := checkVector(L, 1)
	s.charge(L, 1)
	x, err := v.Last()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	L.Push(x)
	return 1
}

func vecLen(L *lua.LState) int {
	L.Push(lua.LNumber(checkVector(L, 1).Len()))
	return 1
}

func vecHeight(L *lua.LState) int {
	L.Push(lua.LNumber(checkVector(L, 1).Height()))
	return 1
}

// v:iter() returns a generic-for iterator yielding index, value pairs.
func (s *State) vecIter(L *lua.LState) int {
	it := checkVector(L, 1).Iter()
	L.Push(L.NewFunction(func(L *lua.LState) int {
		if !it.Next() {
			L.Push(lua.LNil)
			return 1
		}
		s.charge(L, 1)
		L.Push(lua.LNumber(it.Index()))
		L.Push(it.Value())
		return 2
	}))
	return 1
}

func (s *State) vecToTable(L *lua.LState) int {
	v := checkVector(L, 1)
	s.charge(L, int64(v.Len())+1)
	t := L.CreateTable(v.Len(), 0)
	for i, x := range v.All() {
		t.RawSetInt(i+1, x)
	}
	L.Push(t)
	return 1
}

// v:digest() returns the content fingerprint as 16 hex digits. Lua numbers
// cannot hold 64 bits exactly.
func (s *State) vecDigest(L *lua.LState) int {
	v := checkVector(L, 1)
	s.charge(L, int64(v.Len())+1)
	L.Push(lua.LString(fmt.Sprintf("%016x", vector.Digest(v, EncodeValue))))
	return 1
}

func vecToString(L *lua.LState) int {
	L.Push(lua.LString(checkVector(L, 1).String()))
	return 1
}

// __eq compares element sequences with Lua's own equality.
func vecEqual(L *lua.LState) int {
	a := checkVector(L, 1)
	b := checkVector(L, 2)
	L.Push(lua.LBool(vector.Equal(a, b, L.Equal)))
	return 1
}

// EncodeValue is the digest encoding of a Lua value. The type name prefix
// keeps the number 1 and the string "1" apart. Tables are encoded by content
// and nested vectors by their own digest.
func EncodeValue(dst []byte, lv lua.LValue) []byte {
	return encodeValue(dst, lv, make(map[*lua.LTable]bool))
}

func encodeValue(dst []byte, lv lua.LValue, visited map[*lua.LTable]bool) []byte {
	dst = append(dst, lv.Type().String()...)
	dst = append(dst, ':')
	switch v := lv.(type) {
	case lua.LNumber:
		return strconv.AppendFloat(dst, float64(v), 'g', -1, 64)
	case *lua.LTable:
		if visited[v] {
			return append(dst, "cycle"...)
		}
		visited[v] = true
		defer delete(visited, v)
		return encodeTable(dst, v, visited)
	case *lua.LUserData:
		if nested, ok := v.Value.(Vec); ok {
			return strconv.AppendUint(dst, vector.Digest(nested, EncodeValue), 16)
		}
	}
	return append(dst, lv.String()...)
}

// encodeTable writes the entries of t sorted by encoded key.
func encodeTable(dst []byte, t *lua.LTable, visited map[*lua.LTable]bool) []byte {
	type entry struct{ k, v []byte }
	var entries []entry
	t.ForEach(func(k, v lua.LValue) {
		entries = append(entries, entry{
			k: encodeValue(nil, k, visited),
			v: encodeValue(nil, v, visited),
		})
	})
	slices.SortFunc(entries, func(a, b entry) int { return bytes.Compare(a.k, b.k) })

	dst = append(dst, '{')
	for i, e := range entries {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = append(dst, e.k...)
		dst = append(dst, '=')
		dst = append(dst, e.v...)
	}
	return append(dst, '}')
}
