package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/arraytrie/internal/engine/history"
	"github.com/dshills/arraytrie/internal/plugin/lua"
	"github.com/dshills/arraytrie/internal/watcher"
)

// luaState returns the application's Lua state, creating it on first use
// with the limits from the script configuration.
func (a *Application) luaState() (*lua.State, error) {
	if a.state != nil {
		return a.state, nil
	}
	state, err := lua.NewState(
		lua.WithExecutionTimeout(a.cfg.Script.Timeout),
		lua.WithOpLimit(a.cfg.Script.OpLimit),
		lua.WithHistory(a.history),
	)
	if err != nil {
		return nil, NewOperationError("create lua state", "", err)
	}
	a.state = state
	return state, nil
}

// RunScript executes the Lua file at path once and prints its result.
// args is visible to the script as the global "args" (a table of strings).
func (a *Application) RunScript(ctx context.Context, path string, args []string) error {
	state, err := a.luaState()
	if err != nil {
		return err
	}
	if err := state.Reset(); err != nil {
		return NewOperationError("run", path, err)
	}
	return a.runOnce(ctx, state, path, args)
}

// runOnce evaluates the script, commits a returned vector to history and
// prints the outcome. A script that returns the current version, for example
// after history.undo(), prints it without committing it again.
func (a *Application) runOnce(ctx context.Context, state *lua.State, path string, args []string) error {
	log := a.log.WithField("script", path)
	label := filepath.Base(path)

	state.SetGlobal("args", args)
	state.SetGlobal("previous", a.history.Current().Vector)

	timer := StartTimer()
	results, err := state.EvalFile(ctx, path)
	elapsed := timer.Elapsed()
	ops := state.Sandbox().OpCount()
	a.metrics.RecordRun(elapsed, ops, err)

	if err != nil {
		log.Debug("script failed after %s", elapsed)
		return NewOperationError("run", path, err)
	}
	log.Debug("script finished in %s with %d vector ops", elapsed, ops)

	if len(results) == 0 || results[0] == glua.LNil {
		return NewOperationError("run", path, ErrNoScriptResult)
	}

	if v, ok := lua.ToVec(results[0]); ok && len(results) == 1 {
		ver := a.history.Current()
		if !v.Same(ver.Vector) {
			ver = a.history.Commit(v, label)
		}
		return a.out.Version(ver)
	}

	values := make([]any, len(results))
	for i, r := range results {
		values[i] = lua.ToGoValue(r)
	}
	return a.out.Values(values)
}

// WatchScript runs the script, then reruns it every time the file changes
// until ctx is cancelled. Script failures are reported and the session
// continues; only setup failures are returned.
func (a *Application) WatchScript(ctx context.Context, path string, args []string) error {
	log := a.log.WithComponent("watch").WithField("script", path)

	state, err := a.luaState()
	if err != nil {
		return err
	}

	w, err := watcher.New(
		watcher.WithDebounceDelay(a.cfg.Watch.Debounce),
		watcher.WithEventFilter(func(e watcher.Event) bool { return e.Op.Changed() }),
	)
	if err != nil {
		return NewOperationError("watch", path, err)
	}
	defer w.Close()

	if err := w.Watch(path); err != nil {
		return NewOperationError("watch", path, err)
	}

	rerun := func() {
		before := a.history.Current()
		if err := state.Reset(); err != nil {
			log.Error("reset lua state: %v", err)
			return
		}
		err := a.runOnce(ctx, state, path, args)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Warn("%v", err)
			if perr := a.out.Failure(filepath.Base(path), unwrapOperation(err)); perr != nil {
				log.Error("write output: %v", perr)
			}
			return
		}
		if after := a.history.Current(); after.ID != before.ID {
			log.Info("%s", describeChange(before, after))
		}
	}

	rerun()
	log.Info("watching for changes")

	watcher.Run(ctx, w,
		func(e watcher.Event) {
			log.Debug("%s %s", e.Op, e.Path)
			a.metrics.RecordReload()
			rerun()
		},
		func(err error) {
			log.Warn("watcher: %v", err)
		},
	)

	if err := a.out.History(a.history.UndoInfo(), a.history.Current().Info(), a.history.RedoInfo()); err != nil {
		return err
	}
	return a.out.Summary(a.metrics.Snapshot())
}

// describeChange summarizes how the current version differs from before.
func describeChange(before, after history.Version[glua.LValue]) string {
	switch {
	case before.Digest == after.Digest && before.Vector.Len() == after.Vector.Len():
		return fmt.Sprintf("result unchanged (len %d)", after.Vector.Len())
	case before.Vector.Len() == after.Vector.Len():
		return fmt.Sprintf("result changed (len %d)", after.Vector.Len())
	default:
		return fmt.Sprintf("result changed (len %d -> %d)", before.Vector.Len(), after.Vector.Len())
	}
}

// unwrapOperation strips an OperationError so printed failures do not
// repeat the script path.
func unwrapOperation(err error) error {
	var opErr *OperationError
	if errors.As(err, &opErr) && opErr.Err != nil {
		return opErr.Err
	}
	return err
}
