package viz

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/xysim/internal/lattice"
)

func TestCanvasSet(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	c.Set(-1, 0)
	c.Set(4, 0)
	if c.Grid[0][0] != brailleBlank+0x1 {
		t.Errorf("cell 0 = %U", c.Grid[0][0])
	}
	if c.Grid[0][1] != brailleBlank+0x80 {
		t.Errorf("cell 1 = %U", c.Grid[0][1])
	}
	c.Clear()
	if c.String() != strings.Repeat(string(rune(brailleBlank)), 2) {
		t.Errorf("clear left %q", c.String())
	}
}

func TestDrawFieldFollowsSpin(t *testing.T) {
	l, err := lattice.New(32, 32)
	if err != nil {
		t.Fatal(err)
	}

	l.Fill(0)
	c := NewCanvas(4, 2)
	c.DrawField(l)
	// A horizontal needle stays on the centre dot row of each cell pair.
	horizontal := c.String()

	l.Fill(math.Pi / 2)
	c.DrawField(l)
	vertical := c.String()

	if horizontal == vertical {
		t.Error("needles ignore spin direction")
	}
	for _, r := range horizontal {
		if r == '\n' {
			continue
		}
		if r == brailleBlank {
			t.Fatalf("aligned field left an empty cell:\n%s", horizontal)
		}
	}
}

func TestDrawFieldSkipsCancelledBlocks(t *testing.T) {
	l, err := lattice.New(32, 32)
	if err != nil {
		t.Fatal(err)
	}
	for y := 0; y < l.H; y++ {
		for x := 0; x < l.W; x++ {
			if (x+y)%2 == 0 {
				l.Set(x, y, 0)
			} else {
				l.Set(x, y, math.Pi)
			}
		}
	}
	c := NewCanvas(4, 2)
	c.DrawField(l)
	for _, row := range c.Grid {
		for _, r := range row {
			if r != brailleBlank {
				t.Fatalf("antiferromagnetic blocks should cancel:\n%s", c.String())
			}
		}
	}
}

func TestHalfBlocks(t *testing.T) {
	w, h := 4, 4
	pix := make([]byte, w*h*4)
	for i := 3; i < len(pix); i += 4 {
		pix[i] = 0xff
	}
	out := HalfBlocks(pix, w, h, 8, 8)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(lines))
	}
	for _, line := range lines {
		if strings.Count(line, halfBlock) != 4 {
			t.Errorf("expected 4 cells in %q", line)
		}
	}

	if HalfBlocks(pix[:8], w, h, 8, 8) != "" {
		t.Error("short raster should render nothing")
	}
}

func TestPlotSeries(t *testing.T) {
	v := func(f float64) *float64 { return &f }

	if got := PlotSeries([]*float64{nil, v(1), nil}, "m", 20, 4); got != "" {
		t.Errorf("single value should not plot, got %q", got)
	}

	ys := make([]*float64, 201)
	ys[10], ys[20], ys[40] = v(1), v(0.5), v(0.1)
	got := PlotSeries(ys, "magnetization vs T", 30, 5)
	if got == "" {
		t.Fatal("expected a plot")
	}
	if !strings.Contains(got, "magnetization vs T") {
		t.Errorf("caption missing:\n%s", got)
	}
	if Count(ys) != 3 {
		t.Errorf("Count = %d", Count(ys))
	}
}

func TestThemes(t *testing.T) {
	defer SetTheme(ThemeSpectrum.Name)

	SetTheme("ocean")
	if CurrentTheme.Name != "ocean" {
		t.Errorf("SetTheme(ocean) = %s", CurrentTheme.Name)
	}
	SetTheme("missing")
	if CurrentTheme.Name != ThemeSpectrum.Name {
		t.Errorf("unknown theme should fall back, got %s", CurrentTheme.Name)
	}
	seen := map[string]bool{}
	for range Themes {
		seen[CurrentTheme.Name] = true
		NextTheme()
	}
	if len(seen) != len(ThemeNames()) {
		t.Errorf("NextTheme visited %d of %d themes", len(seen), len(Themes))
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil, 5); got != "─────" {
		t.Errorf("empty sparkline = %q", got)
	}
	got := Sparkline([]float64{0, 0.5, 1, 2, -1}, 3)
	if !strings.Contains(got, "█") {
		t.Errorf("expected clamped full block in %q", got)
	}
}
