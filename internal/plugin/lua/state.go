package lua

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for Lua state.
const (
	DefaultExecutionTimeout = 5 * time.Second
	DefaultOpLimit          = 1_000_000
)

// State wraps gopher-lua with a sandbox and the vector module.
//
// gopher-lua's LState is not goroutine-safe. The mutex serializes calls made
// through State; direct use of L bypasses it.
type State struct {
	L *lua.LState

	mu sync.Mutex

	executionTimeout time.Duration
	opLimit          int64

	sandbox *Sandbox
	bridge  *Bridge
	history *History

	closed bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds each Eval or Do call. Zero disables the bound;
// the caller's context still applies.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithOpLimit sets the vector operation budget per execution.
func WithOpLimit(limit int64) StateOption {
	return func(s *State) {
		s.opLimit = limit
	}
}

// NewState creates a new sandboxed Lua state with the vector module loaded.
func NewState(opts ...StateOption) (*State, error) {
	state := &State{
		executionTimeout: DefaultExecutionTimeout,
		opLimit:          DefaultOpLimit,
	}
	for _, opt := range opts {
		opt(state)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})
	state.L = L

	if err := openSafeLibraries(L); err != nil {
		L.Close()
		return nil, err
	}

	state.sandbox = NewSandbox(L, state.opLimit)
	state.sandbox.Install()
	state.bridge = NewBridge(L)
	state.registerVectorModule()
	if state.history != nil {
		state.registerHistoryModule()
	}

	return state, nil
}

// openSafeLibraries opens only safe Lua standard libraries.
// io, os and debug are never opened.
func openSafeLibraries(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			return fmt.Errorf("open %s library: %w", lib.name, err)
		}
	}
	return nil
}

// DoString executes a Lua chunk and discards its results.
func (s *State) DoString(ctx context.Context, code string) error {
	_, err := s.Eval(ctx, code)
	return err
}

// DoFile executes a Lua file and discards its results.
func (s *State) DoFile(ctx context.Context, path string) error {
	_, err := s.EvalFile(ctx, path)
	return err
}

// Eval executes a Lua chunk and returns the values it returns.
// Returns an empty slice (not nil) if the chunk returns nothing.
func (s *State) Eval(ctx context.Context, code string) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn, err := s.L.LoadString(code)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, fn)
}

// EvalFile executes a Lua file and returns the values it returns.
func (s *State) EvalFile(ctx context.Context, path string) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn, err := s.L.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return s.call(ctx, fn)
}

// call runs fn under the execution timeout and operation budget.
func (s *State) call(ctx context.Context, fn *lua.LFunction) ([]lua.LValue, error) {
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}

	s.sandbox.ResetOpCount()
	s.L.SetContext(ctx)
	defer s.L.RemoveContext()

	top := s.L.GetTop()
	s.L.Push(fn)
	err := s.doWithRecovery(func() error {
		return s.L.PCall(0, lua.MultRet, nil)
	})
	if err != nil {
		s.L.SetTop(top)
		return nil, s.classify(ctx, err)
	}

	nRet := s.L.GetTop() - top
	results := make([]lua.LValue, nRet)
	for i := range nRet {
		results[i] = s.L.Get(top + i + 1)
	}
	s.L.SetTop(top)
	return results, nil
}

// classify maps a failed call to the sentinel describing why it stopped.
func (s *State) classify(ctx context.Context, err error) error {
	switch {
	case s.sandbox.Exhausted():
		return fmt.Errorf("%w: %v", ErrOpLimit, err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	return err
}

// doWithRecovery executes a function with panic recovery.
func (s *State) doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable, converting v with the bridge.
func (s *State) SetGlobal(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.bridge.ToLuaValue(v))
}

// Bridge returns the value converter bound to this state.
func (s *State) Bridge() *Bridge {
	return s.bridge
}

// Sandbox returns the sandbox for inspecting the operation budget.
func (s *State) Sandbox() *Sandbox {
	return s.sandbox
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases all resources associated with the Lua state.
// After Close is called, all other methods will return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// Reset removes user-defined globals while keeping the libraries and the
// vector module, so one state can rerun a script from a clean slate.
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	globals := s.L.Get(lua.GlobalsIndex).(*lua.LTable)
	keep := map[string]bool{
		"_G": true, "_VERSION": true, "_GOPHER_LUA_VERSION": true,
		"assert": true, "error": true, "getmetatable": true,
		"ipairs": true, "next": true, "pairs": true, "pcall": true,
		"print": true, "rawequal": true, "rawget": true, "rawlen": true,
		"rawset": true, "select": true, "setmetatable": true,
		"tonumber": true, "tostring": true, "type": true, "xpcall": true,
		"unpack": true, "require": true, "module": true, "newproxy": true,
		"collectgarbage": true, "getfenv": true, "setfenv": true,
		"coroutine": true, "math": true, "string": true, "table": true,
		"package": true, vectorModuleName: true, historyModuleName: true,
	}

	var keysToRemove []string
	globals.ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok && !keep[string(ks)] {
			keysToRemove = append(keysToRemove, string(ks))
		}
	})
	for _, k := range keysToRemove {
		s.L.SetGlobal(k, lua.LNil)
	}

	s.sandbox.ResetOpCount()
	return nil
}
