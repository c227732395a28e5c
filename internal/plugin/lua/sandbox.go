package lua

import (
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations and meters the
// vector operations a script performs.
type Sandbox struct {
	L *lua.LState

	opLimit   int64
	opCount   int64
	exhausted atomic.Bool
}

// safeModules are the modules require may load.
var safeModules = map[string]bool{
	"string":          true,
	"table":           true,
	"math":            true,
	vectorModuleName:  true,
	historyModuleName: true,
}

// NewSandbox creates a new sandbox for the Lua state.
// A non-positive opLimit disables metering.
func NewSandbox(L *lua.LState, opLimit int64) *Sandbox {
	return &Sandbox{
		L:       L,
		opLimit: opLimit,
	}
}

// Install sets up the sandbox restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installSafeRequire()
}

// installSafeRequire clears the package search paths and replaces require
// with a whitelist-based version.
func (s *Sandbox) installSafeRequire() {
	if pkg, ok := s.L.GetGlobal("package").(*lua.LTable); ok {
		s.L.SetField(pkg, "path", lua.LString(""))
		s.L.SetField(pkg, "cpath", lua.LString(""))
	}

	originalRequire := s.L.GetGlobal("require")
	if originalRequire == lua.LNil {
		return
	}

	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		modName := L.CheckString(1)
		if !safeModules[modName] {
			L.RaiseError("module %q is not available", modName)
			return 0
		}
		L.Push(originalRequire)
		L.Push(lua.LString(modName))
		L.Call(1, 1)
		return 1
	}))
}

// ResetOpCount resets the operation counter.
func (s *Sandbox) ResetOpCount() {
	atomic.StoreInt64(&s.opCount, 0)
	s.exhausted.Store(false)
}

// OpCount returns the number of operations charged since the last reset.
func (s *Sandbox) OpCount() int64 {
	return atomic.LoadInt64(&s.opCount)
}

// OpLimit returns the configured budget.
func (s *Sandbox) OpLimit() int64 {
	return s.opLimit
}

// Charge adds n operations and returns true if the budget is exceeded.
func (s *Sandbox) Charge(n int64) bool {
	count := atomic.AddInt64(&s.opCount, n)
	if s.opLimit <= 0 || count <= s.opLimit {
		return false
	}
	s.exhausted.Store(true)
	return true
}

// Exhausted reports whether the budget was exceeded since the last reset.
func (s *Sandbox) Exhausted() bool {
	return s.exhausted.Load()
}
