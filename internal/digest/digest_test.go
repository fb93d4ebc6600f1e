package digest

import "testing"

func TestBuilderIsDeterministic(t *testing.T) {
	build := func() Digest {
		return NewBuilder().String("Fe56").Float64(0.1077).Int64(-1).Bool(true).Sum()
	}
	if build() != build() {
		t.Fatalf("same input produced different digests")
	}
	other := NewBuilder().String("Fe56").Float64(0.1078).Int64(-1).Bool(true).Sum()
	if other == build() {
		t.Fatalf("different input produced the same digest")
	}
}

func TestBuilderSeparatesStrings(t *testing.T) {
	a := NewBuilder().String("ab").String("c").Sum()
	b := NewBuilder().String("a").String("bc").Sum()
	if a == b {
		t.Fatalf("length prefix missing: concatenations collide")
	}
}

func TestCombineOrderMatters(t *testing.T) {
	x, y := Of([]byte("x")), Of([]byte("y"))
	if Combine(x, y) == Combine(y, x) {
		t.Fatalf("Combine must depend on order")
	}
	if Combine(x).IsZero() || len(x.Short()) != 12 {
		t.Fatalf("unexpected digest shape")
	}
}
