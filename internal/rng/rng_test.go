package rng

import (
	"math"
	"testing"
)

func TestSameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if x, y := a.Float64(), b.Float64(); x != y {
			t.Fatalf("draw %d differs: %v vs %v", i, x, y)
		}
	}
	if a.Seed() != 42 {
		t.Errorf("expected seed 42, got %d", a.Seed())
	}
}

func TestAngleRange(t *testing.T) {
	r := New(7)
	for i := 0; i < 10000; i++ {
		a := Angle(r)
		if a < 0 || a >= 2*math.Pi {
			t.Fatalf("angle out of range: %v", a)
		}
	}
}

func TestIntNRange(t *testing.T) {
	r := New(3)
	for i := 0; i < 1000; i++ {
		if v := r.IntN(32); v < 0 || v >= 32 {
			t.Fatalf("IntN out of range: %d", v)
		}
	}
}

func TestNewSeed(t *testing.T) {
	s1, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	s2, err := NewSeed()
	if err != nil {
		t.Fatalf("NewSeed: %v", err)
	}
	if s1 == s2 {
		t.Error("two seeds should almost never collide")
	}
}
