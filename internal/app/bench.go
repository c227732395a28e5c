package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/dshills/arraytrie/internal/engine/vector"
)

// DefaultBenchSize is the element count used when none is given.
const DefaultBenchSize = 100_000

// BenchResult is the measurement of one benchmark phase.
type BenchResult struct {
	Phase      string
	Ops        int
	Elapsed    time.Duration
	AllocBytes uint64
}

// NsPerOp returns the mean time per operation in nanoseconds.
func (r BenchResult) NsPerOp() float64 {
	if r.Ops == 0 {
		return 0
	}
	return float64(r.Elapsed.Nanoseconds()) / float64(r.Ops)
}

// OpsPerSec returns the throughput of the phase.
func (r BenchResult) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// ctxCheckEvery is how many operations run between context checks.
const ctxCheckEvery = 4096

// RunBench times push, get, iterate, branch and pop over n elements.
// The branch phase pushes onto the same full vector n times, producing n
// independent versions that share all but one path.
func RunBench(ctx context.Context, n int) ([]BenchResult, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: bench size must be positive, got %d", ErrUsage, n)
	}

	var results []BenchResult
	measure := func(phase string, fn func() error) error {
		var before, after runtime.MemStats
		runtime.ReadMemStats(&before)
		timer := StartTimer()
		err := fn()
		elapsed := timer.Elapsed()
		runtime.ReadMemStats(&after)
		if err != nil {
			return err
		}
		results = append(results, BenchResult{
			Phase:      phase,
			Ops:        n,
			Elapsed:    elapsed,
			AllocBytes: after.TotalAlloc - before.TotalAlloc,
		})
		return nil
	}

	var v vector.Vector[int]
	steps := []struct {
		phase string
		fn    func() error
	}{
		{"push", func() error {
			for i := range n {
				if i%ctxCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				v = v.Push(i)
			}
			return nil
		}},
		{"get", func() error {
			for i := range n {
				if i%ctxCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				x, err := v.Get(i)
				if err != nil {
					return err
				}
				if x != i {
					return fmt.Errorf("get %d returned %d", i, x)
				}
			}
			return nil
		}},
		{"iterate", func() error {
			want := 0
			for i, x := range v.All() {
				if i != want || x != i {
					return fmt.Errorf("iterate: element %d is %d", i, x)
				}
				want++
			}
			if want != n {
				return fmt.Errorf("iterate visited %d of %d elements", want, n)
			}
			return ctx.Err()
		}},
		{"branch", func() error {
			for i := range n {
				if i%ctxCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				if w := v.Push(-i); w.Len() != n+1 {
					return fmt.Errorf("branch %d has length %d", i, w.Len())
				}
			}
			return nil
		}},
		{"pop", func() error {
			for i := range n {
				if i%ctxCheckEvery == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				rest, x, err := v.Pop()
				if err != nil {
					return err
				}
				if x != n-1-i {
					return fmt.Errorf("pop returned %d, want %d", x, n-1-i)
				}
				v = rest
			}
			if !v.IsEmpty() {
				return fmt.Errorf("%d elements left after popping", v.Len())
			}
			return nil
		}},
	}

	for _, s := range steps {
		if err := measure(s.phase, s.fn); err != nil {
			return results, NewOperationError("bench", s.phase, err)
		}
	}
	return results, nil
}

// Bench runs the benchmark and prints the phases.
func (a *Application) Bench(ctx context.Context, n int) error {
	a.log.Debug("benchmarking %d elements", n)
	results, err := RunBench(ctx, n)
	if perr := a.out.Bench(results); perr != nil && err == nil {
		err = perr
	}
	return err
}
