package vector

import (
	"errors"
	"testing"
	"testing/quick"
)

// build pushes 1..n onto an empty vector.
func build(n int) Vector[int] {
	var v Vector[int]
	for i := 1; i <= n; i++ {
		v = v.Push(i)
	}
	return v
}

func TestEmpty(t *testing.T) {
	v := Empty[int]()
	if v.Len() != 0 {
		t.Errorf("Empty vector should have length 0, got %d", v.Len())
	}
	if !v.IsEmpty() {
		t.Error("Empty vector should be empty")
	}
	if v.Height() != -1 {
		t.Errorf("Empty vector height = %d, want -1", v.Height())
	}
	if v.String() != "[]" {
		t.Errorf("Empty vector String() = %q, want %q", v.String(), "[]")
	}

	var zero Vector[int]
	if !EqualComparable(v, zero) {
		t.Error("Empty() should equal the zero value")
	}
}

func TestEmptyContract(t *testing.T) {
	var v Vector[int]

	if _, err := v.Get(0); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("Get(0) on empty vector error = %v, want ErrIndexOutOfRange", err)
	}
	if _, _, err := v.Pop(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Pop() on empty vector error = %v, want ErrEmpty", err)
	}
	if _, err := v.Last(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Last() on empty vector error = %v, want ErrEmpty", err)
	}
}

func TestPush(t *testing.T) {
	v := Empty[int]()
	v1 := v.Push(123)
	v2 := v1.Push(456)

	if got := v.Slice(); len(got) != 0 {
		t.Errorf("original vector changed: %v", got)
	}
	if got := v1.String(); got != "[123]" {
		t.Errorf("v1 = %s, want [123]", got)
	}
	if got := v2.String(); got != "[123 456]" {
		t.Errorf("v2 = %s, want [123 456]", got)
	}
}

func TestLen(t *testing.T) {
	v := Empty[int]()
	v1 := v.Push(1)
	v2 := v1.Push(1)

	if v.Len() != 0 || v1.Len() != 1 || v2.Len() != 2 {
		t.Errorf("lengths = %d, %d, %d; want 0, 1, 2", v.Len(), v1.Len(), v2.Len())
	}
}

func TestGet(t *testing.T) {
	var v Vector[int]
	for i := 10; i >= 1; i-- {
		v = v.Push(i)
	}

	for i, want := 0, 10; i < 10; i, want = i+1, want-1 {
		got, err := v.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) error = %v", i, err)
		}
		if got != want {
			t.Errorf("Get(%d) = %d, want %d", i, got, want)
		}
	}
}

func TestGetOutOfRange(t *testing.T) {
	v := build(5)

	tests := []struct {
		name  string
		index int
	}{
		{"negative", -1},
		{"very negative", -100},
		{"at length", 5},
		{"past length", 6},
		{"far past length", 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := v.Get(tt.index); !errors.Is(err, ErrIndexOutOfRange) {
				t.Errorf("Get(%d) error = %v, want ErrIndexOutOfRange", tt.index, err)
			}
		})
	}
}

func TestSequentialBuild(t *testing.T) {
	v := build(10)
	for i := 0; i < 10; i++ {
		got, err := v.Get(i)
		if err != nil {
			t.Fatalf("Get(%d) error = %v", i, err)
		}
		if got != i+1 {
			t.Errorf("Get(%d) = %d, want %d", i, got, i+1)
		}
	}
}

func TestSequentialDrain(t *testing.T) {
	v := build(10)

	for want := 10; want >= 1; want-- {
		var got int
		var err error
		v, got, err = v.Pop()
		if err != nil {
			t.Fatalf("Pop() error = %v", err)
		}
		if got != want {
			t.Errorf("Pop() = %d, want %d", got, want)
		}
		if v.Len() != want-1 {
			t.Errorf("Len() after pop = %d, want %d", v.Len(), want-1)
		}
		for i := 0; i < v.Len(); i++ {
			if x, _ := v.Get(i); x != i+1 {
				t.Errorf("after popping %d: Get(%d) = %d, want %d", want, i, x, i+1)
			}
		}
	}

	if _, _, err := v.Pop(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Pop() on drained vector error = %v, want ErrEmpty", err)
	}
}

func TestPopKeepsOriginal(t *testing.T) {
	v := build(5)

	v1, x1, err := v.Pop()
	if err != nil {
		t.Fatal(err)
	}
	v2, x2, err := v1.Pop()
	if err != nil {
		t.Fatal(err)
	}

	if got := v.String(); got != "[1 2 3 4 5]" {
		t.Errorf("original = %s, want [1 2 3 4 5]", got)
	}
	if got := v1.String(); got != "[1 2 3 4]" || x1 != 5 {
		t.Errorf("first pop = %s, %d; want [1 2 3 4], 5", got, x1)
	}
	if got := v2.String(); got != "[1 2 3]" || x2 != 4 {
		t.Errorf("second pop = %s, %d; want [1 2 3], 4", got, x2)
	}
}

func TestPopSingle(t *testing.T) {
	v := Empty[int]().Push(123)
	w, x, err := v.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if x != 123 {
		t.Errorf("Pop() = %d, want 123", x)
	}
	if !w.IsEmpty() || w.Height() != -1 {
		t.Errorf("Pop() left %s with height %d, want empty", w, w.Height())
	}
	if v.Len() != 1 {
		t.Errorf("original length = %d, want 1", v.Len())
	}
}

func TestLast(t *testing.T) {
	v := build(7)
	x, err := v.Last()
	if err != nil {
		t.Fatal(err)
	}
	if x != 7 {
		t.Errorf("Last() = %d, want 7", x)
	}
}

func TestHeight(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{1, 0},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{8, 3},
		{9, 4},
		{1024, 10},
		{1025, 11},
	}

	for _, tt := range tests {
		if got := build(tt.n).Height(); got != tt.want {
			t.Errorf("Height() with %d elements = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestHeightShrinksOnPop(t *testing.T) {
	v := build(9)
	v, _, _ = v.Pop()
	if v.Height() != 3 {
		t.Errorf("Height() after popping to 8 = %d, want 3", v.Height())
	}
}

func TestIndependentBranches(t *testing.T) {
	h := build(6)
	h1 := h.Push(100)
	h2 := h.Push(200)

	if h.Len() != 6 || h1.Len() != 7 || h2.Len() != 7 {
		t.Fatalf("lengths = %d, %d, %d; want 6, 7, 7", h.Len(), h1.Len(), h2.Len())
	}
	if x, _ := h1.Get(6); x != 100 {
		t.Errorf("h1.Get(6) = %d, want 100", x)
	}
	if x, _ := h2.Get(6); x != 200 {
		t.Errorf("h2.Get(6) = %d, want 200", x)
	}
	if got := h.String(); got != "[1 2 3 4 5 6]" {
		t.Errorf("source changed: %s", got)
	}
}

func TestSame(t *testing.T) {
	v := build(5)
	w := v

	if !v.Same(w) {
		t.Error("copies of a handle should be the same version")
	}
	if !Empty[int]().Same(Vector[int]{}) {
		t.Error("empty vectors should be the same version")
	}
	if v.Same(build(5)) {
		t.Error("separately built vectors should not be the same version")
	}
	p, _, _ := v.Push(6).Pop()
	if v.Same(p) {
		t.Error("push then pop allocates a new root")
	}
	if !EqualComparable(v, p) {
		t.Error("push then pop should be equal to the original")
	}
}

func TestEqual(t *testing.T) {
	a := build(5)
	b := build(5)
	c := build(4).Push(9)

	if !EqualComparable(a, b) {
		t.Error("vectors built the same way should be equal")
	}
	if EqualComparable(a, c) {
		t.Error("vectors with different last element should differ")
	}
	if EqualComparable(a, build(4)) {
		t.Error("vectors of different length should differ")
	}
}

func TestStringAny(t *testing.T) {
	v := Empty[string]().Push("a").Push("b")
	if got := v.String(); got != "[a b]" {
		t.Errorf("String() = %q, want %q", got, "[a b]")
	}
}

// Property-based tests

func TestQuickPushProperties(t *testing.T) {
	f := func(xs []int, x int) bool {
		var h Vector[int]
		for _, y := range xs {
			h = h.Push(y)
		}
		h2 := h.Push(x)
		got, err := h2.Get(h.Len())
		return err == nil && h2.Len() == h.Len()+1 && got == x
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestQuickPopProperties(t *testing.T) {
	f := func(xs []int) bool {
		if len(xs) == 0 {
			return true
		}
		var h Vector[int]
		for _, y := range xs {
			h = h.Push(y)
		}

		h2, x, err := h.Pop()
		if err != nil || h2.Len() != h.Len()-1 {
			return false
		}
		last, _ := h.Get(h.Len() - 1)
		if x != last {
			return false
		}
		for i := 0; i < h2.Len(); i++ {
			a, _ := h2.Get(i)
			b, _ := h.Get(i)
			if a != b {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestQuickRoundTrip(t *testing.T) {
	f := func(xs []int, x int) bool {
		var h Vector[int]
		for _, y := range xs {
			h = h.Push(y)
		}
		back, got, err := h.Push(x).Pop()
		return err == nil && got == x && EqualComparable(back, h)
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

func TestQuickImmutability(t *testing.T) {
	f := func(xs []int, x int) bool {
		var h Vector[int]
		for _, y := range xs {
			h = h.Push(y)
		}
		before := h.Slice()

		_ = h.Push(x)
		if h.Len() > 0 {
			_, _, _ = h.Pop()
		}

		if h.Len() != len(before) {
			return false
		}
		for i, want := range before {
			if got, _ := h.Get(i); got != want {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
