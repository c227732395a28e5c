package vector

import "testing"

// FuzzOperations replays a byte string as a sequence of pushes and pops and
// checks the vector against a slice model after every step.
func FuzzOperations(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{1, 2, 3, 0, 0})
	f.Add([]byte{1, 1, 1, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0})
	f.Add([]byte{0, 0, 5})

	f.Fuzz(func(t *testing.T, ops []byte) {
		var v Vector[byte]
		var model []byte

		for _, op := range ops {
			if op == 0 {
				w, x, err := v.Pop()
				if len(model) == 0 {
					if err == nil {
						t.Fatal("Pop() on empty vector succeeded")
					}
					continue
				}
				if err != nil {
					t.Fatalf("Pop() error = %v", err)
				}
				if want := model[len(model)-1]; x != want {
					t.Fatalf("Pop() = %d, want %d", x, want)
				}
				model = model[:len(model)-1]
				v = w
				continue
			}

			prev := v
			v = v.Push(op)
			model = append(model, op)
			if prev.Len() != len(model)-1 {
				t.Fatalf("Push() changed source length to %d", prev.Len())
			}
		}

		if v.Len() != len(model) {
			t.Fatalf("Len() = %d, want %d", v.Len(), len(model))
		}
		for i, want := range model {
			got, err := v.Get(i)
			if err != nil || got != want {
				t.Fatalf("Get(%d) = %d, %v; want %d", i, got, err, want)
			}
		}
	})
}

// FuzzGet checks index validation for arbitrary indices.
func FuzzGet(f *testing.F) {
	f.Add(0, 0)
	f.Add(5, 4)
	f.Add(5, 5)
	f.Add(5, -1)

	f.Fuzz(func(t *testing.T, n int, i int) {
		if n < 0 || n > 4096 {
			return
		}
		v := build(n)
		got, err := v.Get(i)
		if i < 0 || i >= n {
			if err == nil {
				t.Fatalf("Get(%d) with length %d succeeded", i, n)
			}
			return
		}
		if err != nil || got != i+1 {
			t.Fatalf("Get(%d) = %d, %v; want %d", i, got, err, i+1)
		}
	})
}
