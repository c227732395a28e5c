package lua

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/arraytrie/internal/engine/history"
)

const historyModuleName = "history"

// History is the version history a script can read and move through.
type History = history.History[lua.LValue]

// WithHistory exposes h to scripts as the "history" module.
func WithHistory(h *History) StateOption {
	return func(s *State) {
		s.history = h
	}
}

// registerHistoryModule installs the global "history" table.
func (s *State) registerHistoryModule() {
	L := s.L
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"current":  s.histCurrent,
		"commit":   s.histCommit,
		"undo":     s.histUndo,
		"redo":     s.histRedo,
		"get":      s.histGet,
		"checkout": s.histCheckout,
		"group":    s.histGroup,
		"clear":    s.histClear,
		"versions": s.histVersions,
	})
	L.SetGlobal(historyModuleName, mod)
	L.PreloadModule(historyModuleName, func(L *lua.LState) int {
		L.Push(mod)
		return 1
	})
}

// pushVersion pushes the version's vector and ID.
func pushVersion(L *lua.LState, ver history.Version[lua.LValue]) int {
	L.Push(newVectorUserData(L, ver.Vector))
	L.Push(lua.LString(ver.ID.String()))
	return 2
}

// checkID parses the version ID at stack position n.
func checkID(L *lua.LState, n int) uuid.UUID {
	id, err := uuid.Parse(L.CheckString(n))
	if err != nil {
		L.ArgError(n, "version id expected")
	}
	return id
}

// history.current() returns the current vector and its version ID.
func (s *State) histCurrent(L *lua.LState) int {
	s.charge(L, 1)
	return pushVersion(L, s.history.Current())
}

// history.commit(v [, label]) makes v the current version and returns its ID.
func (s *State) histCommit(L *lua.LState) int {
	v := checkVector(L, 1)
	label := L.OptString(2, "commit")
	s.charge(L, 1)
	ver := s.history.Commit(v, label)
	L.Push(lua.LString(ver.ID.String()))
	return 1
}

func (s *State) histUndo(L *lua.LState) int {
	s.charge(L, 1)
	ver, err := s.history.Undo()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	return pushVersion(L, ver)
}

func (s *State) histRedo(L *lua.LState) int {
	s.charge(L, 1)
	ver, err := s.history.Redo()
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	return pushVersion(L, ver)
}

// history.get(id) returns the vector of a recent version, or nil.
func (s *State) histGet(L *lua.LState) int {
	id := checkID(L, 1)
	s.charge(L, 1)
	ver, ok := s.history.Lookup(id)
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(newVectorUserData(L, ver.Vector))
	return 1
}

// history.checkout(id) commits a recent version again and returns it.
func (s *State) histCheckout(L *lua.LState) int {
	id := checkID(L, 1)
	s.charge(L, 1)
	ver, err := s.history.Checkout(id)
	if err != nil {
		L.RaiseError("%s: %s", err.Error(), id)
	}
	return pushVersion(L, ver)
}

// history.group(name, fn) calls fn and folds the commits it makes into one
// undo step. Errors raised by fn propagate after the group is closed.
func (s *State) histGroup(L *lua.LState) int {
	name := L.CheckString(1)
	fn := L.CheckFunction(2)
	s.charge(L, 1)

	// Nested groups join the outer one.
	outer := s.history.IsGrouping()
	if !outer {
		s.history.BeginGroup(name)
	}
	L.Push(fn)
	err := L.PCall(0, 0, nil)
	if !outer {
		s.history.EndGroup()
	}

	if err != nil {
		if apiErr, ok := err.(*lua.ApiError); ok {
			L.Error(apiErr.Object, 0)
		}
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (s *State) histClear(L *lua.LState) int {
	s.charge(L, 1)
	s.history.Clear()
	return 0
}

// history.versions() lists every version from the oldest undo step to the
// furthest redo step. Each entry has id, label, len, digest and current.
func (s *State) histVersions(L *lua.LState) int {
	s.charge(L, 1)

	undo := s.history.UndoInfo()
	redo := s.history.RedoInfo()
	slices.Reverse(redo)
	cur := s.history.Current().Info()

	t := L.CreateTable(len(undo)+len(redo)+1, 0)
	add := func(info history.VersionInfo, current bool) {
		e := L.CreateTable(0, 5)
		e.RawSetString("id", lua.LString(info.ID.String()))
		e.RawSetString("label", lua.LString(info.Label))
		e.RawSetString("len", lua.LNumber(info.Len))
		e.RawSetString("digest", lua.LString(fmt.Sprintf("%016x", info.Digest)))
		e.RawSetString("current", lua.LBool(current))
		t.Append(e)
	}
	for _, info := range undo {
		add(info, false)
	}
	add(cur, true)
	for _, info := range redo {
		add(info, false)
	}
	L.Push(t)
	return 1
}
