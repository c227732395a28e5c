// Package lua embeds a sandboxed Lua runtime that exposes persistent
// vectors to scripts.
//
// This package wraps the gopher-lua library to provide:
//   - Sandboxed Lua state management
//   - A "vector" module backed by vector.Vector
//   - Go-Lua type conversion
//   - Execution timeouts and an operation budget
//
// # State
//
//	state, err := lua.NewState(
//	    lua.WithExecutionTimeout(5 * time.Second),
//	    lua.WithOpLimit(1_000_000),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer state.Close()
//
//	results, err := state.EvalFile(ctx, "script.lua")
//
// # Vector module
//
// Scripts see a global "vector" table (also available through
// require("vector")). Vectors are immutable; every update returns a new
// vector and leaves the receiver untouched:
//
//	local v = vector.new(1, 2, 3)
//	local w = v:push(4)
//	local rest, top = w:pop()
//	print(#v, #w, top, w:get(0))
//	for i, x in w:iter() do print(i, x) end
//	return w
//
// Indices are zero-based. Out-of-range access and popping an empty vector
// raise Lua errors that pcall can catch.
//
// # History module
//
// A state created WithHistory also has a "history" table over the session's
// versions. Vectors come back as the same handles that were committed, so
// moving through history copies nothing:
//
//	local v, id = history.current()
//	history.commit(v:push(1), "push 1")
//	local back = history.undo()
//	history.group("bulk", function()
//	    for i = 1, 3 do history.commit(history.current():push(i)) end
//	end)
//	return history.checkout(id)
//
// # Sandbox
//
// The Sandbox restricts Lua code execution by:
//   - Opening only the base, table, string and math libraries
//   - Removing dofile, loadfile, load and loadstring
//   - Limiting require to built-in safe modules, "vector" and "history"
//
// # Thread Safety
//
// A State serializes its own calls with a mutex. The underlying LState is
// not goroutine-safe and must not be used directly from several goroutines.
package lua
