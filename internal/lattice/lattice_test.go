package lattice

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/xysim/internal/rng"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero", 0, 0},
		{"inside", 1.5, 1.5},
		{"two pi", 2 * math.Pi, 0},
		{"negative", -math.Pi / 2, 3 * math.Pi / 2},
		{"large", 5*math.Pi + 0.25, math.Pi + 0.25},
		{"large negative", -7 * math.Pi, math.Pi},
		{"tiny negative", -1e-18, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got < 0 || got >= 2*math.Pi {
				t.Fatalf("Normalize(%v) = %v, outside [0, 2π)", tt.in, got)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Normalize(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidSize(t *testing.T) {
	for _, s := range Sizes {
		if !ValidSize(s, s) {
			t.Errorf("expected %d to be valid", s)
		}
	}
	invalid := [][2]int{{16, 16}, {33, 33}, {1024, 1024}, {32, 64}, {0, 0}, {-32, -32}}
	for _, wh := range invalid {
		if ValidSize(wh[0], wh[1]) {
			t.Errorf("expected %dx%d to be invalid", wh[0], wh[1])
		}
	}
}

func TestNewRejectsInvalidSize(t *testing.T) {
	if _, err := New(48, 48); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
}

func TestSetNormalizes(t *testing.T) {
	l, err := New(32, 32)
	if err != nil {
		t.Fatal(err)
	}
	l.Set(3, 4, -0.5)
	got := l.Get(3, 4)
	if math.Abs(got-(2*math.Pi-0.5)) > 1e-12 {
		t.Errorf("expected %v, got %v", 2*math.Pi-0.5, got)
	}
	if l.At(l.Index(3, 4)) != got {
		t.Error("row-major index mismatch")
	}
}

func TestNeighborsWrap(t *testing.T) {
	l, _ := New(32, 32)

	n := l.Neighbors(0, 0)
	want := [4]int{31 * 32, 1, 32, 31}
	if n != want {
		t.Errorf("corner neighbors = %v, want %v", n, want)
	}

	n = l.Neighbors(31, 31)
	want = [4]int{30*32 + 31, 31 * 32, 31, 31*32 + 30}
	if n != want {
		t.Errorf("far corner neighbors = %v, want %v", n, want)
	}

	if l.NeighborsOf(l.Index(5, 7)) != l.Neighbors(5, 7) {
		t.Error("NeighborsOf disagrees with Neighbors")
	}
}

func TestResizeClears(t *testing.T) {
	l, _ := New(32, 32)
	l.Randomize(rng.New(1))

	if err := l.Resize(64, 64); err != nil {
		t.Fatal(err)
	}
	if l.Size() != 64*64 {
		t.Fatalf("expected %d sites, got %d", 64*64, l.Size())
	}
	for i, s := range l.Spins() {
		if s != 0 {
			t.Fatalf("site %d not cleared: %v", i, s)
		}
	}

	if err := l.Resize(100, 100); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("expected ErrInvalidSize, got %v", err)
	}
	if l.W != 64 {
		t.Error("invalid resize must leave the lattice untouched")
	}
}

func TestEachVisitsRowMajor(t *testing.T) {
	l, _ := New(32, 32)
	l.Randomize(rng.New(2))

	i := 0
	l.Each(func(x, y int, theta float64) {
		if l.Index(x, y) != i {
			t.Fatalf("visit %d at (%d,%d) out of order", i, x, y)
		}
		if theta != l.At(i) {
			t.Fatalf("visit %d value mismatch", i)
		}
		i++
	})
	if i != l.Size() {
		t.Errorf("visited %d of %d sites", i, l.Size())
	}
}

func TestAlign(t *testing.T) {
	l, _ := New(32, 32)
	l.Align(rng.New(9))
	first := l.At(0)
	for i, s := range l.Spins() {
		if s != first {
			t.Fatalf("site %d = %v, want %v", i, s, first)
		}
	}
}
