package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/arraytrie/internal/engine/vector"
)

// LoadJSON builds a vector from the JSON array selected by path, a gjson
// path expression. An empty path selects the whole document. Integral
// numbers become int64, other numbers float64; objects and nested arrays
// become map[string]any and []any.
func LoadJSON(data []byte, path string) (vector.Vector[any], error) {
	var v vector.Vector[any]

	if !gjson.ValidBytes(data) {
		return v, ErrInvalidJSON
	}

	var res gjson.Result
	if path == "" {
		res = gjson.ParseBytes(data)
	} else {
		res = gjson.GetBytes(data, path)
	}
	if !res.Exists() {
		return v, fmt.Errorf("%w: path %q matched nothing", ErrNotArray, path)
	}
	if !res.IsArray() {
		return v, fmt.Errorf("%w: found %s", ErrNotArray, res.Type)
	}

	res.ForEach(func(_, elem gjson.Result) bool {
		v = v.Push(jsonValue(elem))
		return true
	})
	return v, nil
}

// jsonValue converts a gjson result to a Go value.
func jsonValue(r gjson.Result) any {
	if r.Type == gjson.Number && !strings.ContainsAny(r.Raw, ".eE") {
		return r.Int()
	}
	return r.Value()
}

// LoadFile reads a JSON file (or standard input when file is "-"), commits
// the selected array to history and prints it.
func (a *Application) LoadFile(ctx context.Context, file, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return NewOperationError("load", file, err)
	}

	v, err := LoadJSON(data, path)
	if err != nil {
		opErr := NewOperationError("load", file, err)
		if path != "" {
			opErr = opErr.WithContext("path " + path)
		}
		return opErr
	}

	label := "load " + filepath.Base(file)
	if path != "" {
		label += "#" + path
	}
	a.log.WithField("file", file).Debug("loaded %d elements", v.Len())

	// Nested arrays and objects become tables of the application's Lua
	// state so later scripts can read them.
	state, err := a.luaState()
	if err != nil {
		return err
	}

	ver := a.history.Commit(state.Bridge().VecFromGo(v.Values()), label)
	return a.out.Version(ver)
}
