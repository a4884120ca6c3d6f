package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const halfBlock = "▀"

// HalfBlocks renders an RGBA raster with one upper-half block per two
// pixel rows: the foreground paints the top pixel and the background the
// bottom one. The raster is downsampled by nearest neighbour to at most
// cols×(2·rows) pixels.
func HalfBlocks(pix []byte, w, h, cols, rows int) string {
	if w <= 0 || h <= 0 || len(pix) < w*h*4 || cols <= 0 || rows <= 0 {
		return ""
	}
	cols = min(cols, w)
	rows = min(rows, (h+1)/2)

	at := func(px, py int) lipgloss.Color {
		x := px * w / cols
		y := py * h / (2 * rows)
		o := (y*w + x) * 4
		return hexColor(pix[o], pix[o+1], pix[o+2])
	}

	var b strings.Builder
	for row := 0; row < rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := 0; col < cols; col++ {
			cell := lipgloss.NewStyle().
				Foreground(at(col, 2*row)).
				Background(at(col, 2*row+1))
			b.WriteString(cell.Render(halfBlock))
		}
	}
	return b.String()
}
