package viz

import (
	"math"
	"strings"

	"github.com/san-kum/xysim/internal/lattice"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// starting at U+2800.
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const brailleBlank = 0x2800

// Canvas is a braille dot canvas of Width×Height cells, addressed in
// sub-pixels of (2·Width)×(4·Height).
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set raises the dot at sub-pixel (x, y). Out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// DrawField draws one needle per block of sites, pointing along the block's
// mean spin direction. Blocks whose spins cancel are left blank.
func (c *Canvas) DrawField(l *lattice.Lattice) {
	c.Clear()
	if l == nil || l.W == 0 {
		return
	}
	// Each needle gets a 4x4 dot cell.
	cols, rows := c.Width*2/4, c.Height*4/4
	if cols == 0 || rows == 0 {
		return
	}
	bw := max(1, l.W/cols)
	bh := max(1, l.H/rows)

	for by := 0; by < rows && by*bh < l.H; by++ {
		for bx := 0; bx < cols && bx*bw < l.W; bx++ {
			var cx, cy float64
			for y := by * bh; y < min(l.H, (by+1)*bh); y++ {
				for x := bx * bw; x < min(l.W, (bx+1)*bw); x++ {
					theta := l.Get(x, y)
					cx += math.Cos(theta)
					cy += math.Sin(theta)
				}
			}
			if math.Hypot(cx, cy) < 1e-9 {
				continue
			}
			phi := math.Atan2(cy, cx)
			ox, oy := bx*4+2, by*4+2
			dx := int(math.Round(1.8 * math.Cos(phi)))
			// Screen y grows downwards.
			dy := int(math.Round(-1.8 * math.Sin(phi)))
			c.DrawLine(ox-dx, oy-dy, ox+dx, oy+dy)
			c.Set(ox+dx, oy+dy)
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for i, row := range c.Grid {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(row))
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
