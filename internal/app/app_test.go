package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dshills/arraytrie/internal/config"
	"github.com/dshills/arraytrie/internal/plugin/lua"
)

// syncBuffer is a bytes.Buffer safe for a writer goroutine and a reader.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type testApp struct {
	*Application
	stdout *syncBuffer
	stderr *syncBuffer
}

func newTestApp(t *testing.T, opts Options) *testApp {
	t.Helper()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	opts.Stdout, opts.Stderr = stdout, stderr
	if opts.Environ == nil {
		opts.Environ = []string{}
	}
	if opts.Format == "" {
		opts.Format = config.FormatJSON
	}
	a, err := New(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return &testApp{Application: a, stdout: stdout, stderr: stderr}
}

func writeScript(t *testing.T, dir, name, code string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(code), 0o600))
	return path
}

// jsonLines splits newline-delimited JSON output.
func jsonLines(s string) []gjson.Result {
	var out []gjson.Result
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		if line != "" {
			out = append(out, gjson.Parse(line))
		}
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	a := newTestApp(t, Options{Format: config.FormatText})

	cfg := a.Config()
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, config.FormatText, cfg.Output.Format)
	assert.Equal(t, cfg.History.MaxEntries, a.History().MaxEntries())
	assert.Equal(t, 0, a.History().Current().Vector.Len())
}

func TestNew_Precedence(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "arraytrie.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[logging]
level = "warn"

[history]
maxEntries = 5

[output]
format = "json"
color = true
`), 0o600))

	a := newTestApp(t, Options{
		ConfigPath: cfgPath,
		Environ:    []string{"ARRAYTRIE_HISTORY_MAX_ENTRIES=7", "ARRAYTRIE_LOG_LEVEL=error"},
		LogLevel:   "debug",
		Format:     config.FormatText,
		NoColor:    true,
	})

	cfg := a.Config()
	assert.Equal(t, "debug", cfg.Logging.Level, "flag beats env and file")
	assert.Equal(t, 7, cfg.History.MaxEntries, "env beats file")
	assert.Equal(t, config.FormatText, cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(Options{
		Format:  "xml",
		Environ: []string{},
		Stdout:  &bytes.Buffer{},
		Stderr:  &bytes.Buffer{},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrValidationFailed)
	assert.Equal(t, 1, ExitCode(err))
}

func TestRunScript_Vector(t *testing.T) {
	a := newTestApp(t, Options{})
	script := writeScript(t, t.TempDir(), "build.lua", `
		local v = vector.new(1, 2, 3)
		return v:push(4)
	`)

	require.NoError(t, a.RunScript(context.Background(), script, nil))

	lines := jsonLines(a.stdout.String())
	require.Len(t, lines, 1)
	out := lines[0]
	assert.Equal(t, "build.lua", out.Get("label").String())
	assert.Equal(t, int64(4), out.Get("len").Int())
	assert.Equal(t, int64(2), out.Get("height").Int())
	assert.Len(t, out.Get("digest").String(), 16)
	assert.Equal(t, `[1,2,3,4]`, out.Get("elements").Raw)

	cur := a.History().Current()
	assert.Equal(t, out.Get("version").String(), cur.ID.String())
	assert.Equal(t, 4, cur.Vector.Len())
	assert.Equal(t, uint64(1), a.Metrics().Snapshot().RunCount)
}

func TestRunScript_Args(t *testing.T) {
	a := newTestApp(t, Options{})
	script := writeScript(t, t.TempDir(), "args.lua", `
		local v = vector.empty()
		for _, s in ipairs(args) do v = v:push(s) end
		return v
	`)

	require.NoError(t, a.RunScript(context.Background(), script, []string{"a", "b"}))
	assert.Equal(t, `["a","b"]`, jsonLines(a.stdout.String())[0].Get("elements").Raw)
}

func TestRunScript_PlainValues(t *testing.T) {
	a := newTestApp(t, Options{Format: config.FormatText, NoColor: true})
	script := writeScript(t, t.TempDir(), "values.lua", `return 1, "x", true`)

	require.NoError(t, a.RunScript(context.Background(), script, nil))
	assert.Equal(t, "1\tx\ttrue\n", a.stdout.String())
	assert.Equal(t, 0, a.History().UndoCount(), "plain values are not committed")
}

func TestRunScript_TextOutput(t *testing.T) {
	a := newTestApp(t, Options{Format: config.FormatText, NoColor: true})
	script := writeScript(t, t.TempDir(), "big.lua", `
		local v = vector.empty()
		for i = 1, 40 do v = v:push(i) end
		return v
	`)

	require.NoError(t, a.RunScript(context.Background(), script, nil))
	out := a.stdout.String()
	assert.Contains(t, out, "big.lua")
	assert.Contains(t, out, "len=40")
	assert.Contains(t, out, "[1 2 3")
	assert.Contains(t, out, "(8 more)]")
}

func TestRunScript_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		code string
		want error
	}{
		{"no result", `local x = 1`, ErrNoScriptResult},
		{"nil result", `return nil`, ErrNoScriptResult},
		{"runtime error", `error("boom")`, nil},
		{"pop empty", `return vector.empty():pop()`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestApp(t, Options{})
			script := writeScript(t, dir, strings.ReplaceAll(tt.name, " ", "_")+".lua", tt.code)

			err := a.RunScript(context.Background(), script, nil)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
			var opErr *OperationError
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, "run", opErr.Op)
			assert.Equal(t, 1, ExitCode(err))
			assert.Equal(t, uint64(1), a.Metrics().Snapshot().RunCount)
		})
	}
}

func TestRunScript_Previous(t *testing.T) {
	a := newTestApp(t, Options{})
	script := writeScript(t, t.TempDir(), "grow.lua", `return previous:push(#previous)`)

	for range 3 {
		require.NoError(t, a.RunScript(context.Background(), script, nil))
	}

	cur := a.History().Current()
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, lua.ToGoValues(cur.Vector))
	assert.Equal(t, 3, a.History().UndoCount())

	prev, err := a.History().Undo()
	require.NoError(t, err)
	assert.Equal(t, 2, prev.Vector.Len())
}

func TestRunScript_PreviousSharesNodes(t *testing.T) {
	a := newTestApp(t, Options{})
	dir := t.TempDir()
	build := writeScript(t, dir, "build.lua", `
		local v = vector.empty()
		for i = 1, 4096 do v = v:push(i) end
		return v
	`)
	grow := writeScript(t, dir, "grow.lua", `return previous:push(0)`)

	require.NoError(t, a.RunScript(context.Background(), build, nil))
	base := a.History().Current().Vector
	require.NoError(t, a.RunScript(context.Background(), grow, nil))

	grown := a.History().Current().Vector
	require.Equal(t, 4097, grown.Len())
	// 4096 is a full tree, so the push wraps it whole and pop unwraps it.
	popped, _, err := grown.Pop()
	require.NoError(t, err)
	assert.True(t, popped.Same(base), "committed version should reuse the previous tree")

	undone, err := a.History().Undo()
	require.NoError(t, err)
	assert.True(t, undone.Vector.Same(base))
}

func TestRunScript_ReturningCurrentDoesNotCommit(t *testing.T) {
	a := newTestApp(t, Options{})
	dir := t.TempDir()
	grow := writeScript(t, dir, "grow.lua", `return previous:push(#previous)`)
	same := writeScript(t, dir, "same.lua", `return previous`)
	undo := writeScript(t, dir, "undo.lua", `
		local v = history.undo()
		return v
	`)

	require.NoError(t, a.RunScript(context.Background(), grow, nil))
	require.NoError(t, a.RunScript(context.Background(), grow, nil))
	cur := a.History().Current()

	a.stdout.Reset()
	require.NoError(t, a.RunScript(context.Background(), same, nil))
	assert.Equal(t, cur.ID, a.History().Current().ID)
	assert.Equal(t, cur.ID.String(), jsonLines(a.stdout.String())[0].Get("version").String())
	assert.Equal(t, 2, a.History().UndoCount())

	a.stdout.Reset()
	require.NoError(t, a.RunScript(context.Background(), undo, nil))
	back := a.History().Current()
	assert.Equal(t, 1, back.Vector.Len())
	assert.Equal(t, 1, a.History().UndoCount())
	assert.Equal(t, 1, a.History().RedoCount(), "undo through a script leaves a redo step")
	assert.Equal(t, back.ID.String(), jsonLines(a.stdout.String())[0].Get("version").String())
}

func TestRunScript_HistoryModule(t *testing.T) {
	a := newTestApp(t, Options{})
	script := writeScript(t, t.TempDir(), "steps.lua", `
		local _, start = history.current()
		history.group("steps", function()
			for i = 1, 3 do history.commit(history.current():push(i)) end
		end)
		local v = history.checkout(start)
		assert(#v == 0)
		return #history.versions()
	`)

	require.NoError(t, a.RunScript(context.Background(), script, nil))
	assert.Equal(t, `[3]`, jsonLines(a.stdout.String())[0].Get("values").Raw)
	assert.Equal(t, "checkout initial", a.History().Current().Label)
	assert.Equal(t, 2, a.History().UndoCount())
}

func TestRunScript_DigestDistinguishesTypes(t *testing.T) {
	a := newTestApp(t, Options{})
	dir := t.TempDir()
	num := writeScript(t, dir, "num.lua", `return vector.new(1)`)
	str := writeScript(t, dir, "str.lua", `return vector.new("1")`)

	require.NoError(t, a.RunScript(context.Background(), num, nil))
	before := a.History().Current()
	require.NoError(t, a.RunScript(context.Background(), str, nil))
	after := a.History().Current()

	assert.NotEqual(t, before.Digest, after.Digest)
	assert.Equal(t, "result changed (len 1)", describeChange(before, after))

	lines := jsonLines(a.stdout.String())
	require.Len(t, lines, 2)
	assert.NotEqual(t, lines[0].Get("digest").String(), lines[1].Get("digest").String())
}

func TestRunScript_NestedVectorsStayVectors(t *testing.T) {
	a := newTestApp(t, Options{})
	dir := t.TempDir()
	outer := writeScript(t, dir, "outer.lua", `return vector.new(vector.new(1, 2), "x")`)
	inner := writeScript(t, dir, "inner.lua", `
		local v = previous:get(0)
		assert(vector.is(v), "nested element should still be a vector")
		return v:push(3)
	`)

	require.NoError(t, a.RunScript(context.Background(), outer, nil))
	assert.Equal(t, `[[1,2],"x"]`, jsonLines(a.stdout.String())[0].Get("elements").Raw)

	require.NoError(t, a.RunScript(context.Background(), inner, nil))
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, lua.ToGoValues(a.History().Current().Vector))
}

func TestRunScript_OpLimit(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "arraytrie.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[script]\nopLimit = 10\n"), 0o600))

	a := newTestApp(t, Options{ConfigPath: cfgPath})
	script := writeScript(t, dir, "loop.lua", `
		local v = vector.empty()
		for i = 1, 100 do v = v:push(i) end
		return v
	`)

	err := a.RunScript(context.Background(), script, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation limit")
}

func TestWatchScript(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "arraytrie.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[watch]\ndebounce = \"20ms\"\n"), 0o600))

	a := newTestApp(t, Options{ConfigPath: cfgPath})
	script := writeScript(t, dir, "live.lua", `return vector.new(1)`)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.WatchScript(ctx, script, nil) }()

	require.Eventually(t, func() bool {
		return a.History().Current().Vector.Len() == 1
	}, 5*time.Second, 10*time.Millisecond)

	writeScript(t, dir, "live.lua", `return vector.new(1, 2)`)
	require.Eventually(t, func() bool {
		return a.History().Current().Vector.Len() == 2
	}, 5*time.Second, 10*time.Millisecond)

	// A broken edit is reported and the session keeps going.
	writeScript(t, dir, "live.lua", `error("broken")`)
	require.Eventually(t, func() bool {
		return strings.Contains(a.stdout.String(), "broken")
	}, 5*time.Second, 10*time.Millisecond)

	writeScript(t, dir, "live.lua", `return vector.new(1, 2, 3)`)
	require.Eventually(t, func() bool {
		return a.History().Current().Vector.Len() == 3
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("WatchScript did not return after cancel")
	}

	snap := a.Metrics().Snapshot()
	assert.GreaterOrEqual(t, snap.Reloads, uint64(3))
	assert.GreaterOrEqual(t, snap.RunFailures, uint64(1))

	lines := jsonLines(a.stdout.String())
	require.NotEmpty(t, lines)
	assert.True(t, lines[len(lines)-1].Get("runs").Exists(), "session ends with a summary")
}

func TestWatchScript_MissingFile(t *testing.T) {
	a := newTestApp(t, Options{})

	err := a.WatchScript(context.Background(), filepath.Join(t.TempDir(), "missing.lua"), nil)
	require.Error(t, err)
}
