package ptyterm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyBytes(t *testing.T, g *Grid, s string) {
	t.Helper()
	p := NewParser()
	g.ApplyAll(p.Parse([]byte(s)))
}

func TestGridSGRRedH(t *testing.T) {
	g := NewGrid(3, 10)
	applyBytes(t, g, "\x1b[31mH")
	cells := g.Cells()
	assert.Equal(t, Cell{Char: 'H', Fg: IndexedColor(1), Bg: DefaultColor}, cells[0][0])
}

func TestGridWrapAtEndOfLine(t *testing.T) {
	g := NewGrid(3, 3)
	applyBytes(t, g, "ABCD")
	cells := g.Cells()
	assert.Equal(t, 'A', cells[0][0].Char)
	assert.Equal(t, 'B', cells[0][1].Char)
	assert.Equal(t, 'C', cells[0][2].Char)
	assert.Equal(t, 'D', cells[1][0].Char)
	assert.Equal(t, ' ', cells[1][1].Char)
	row, col, _ := g.Cursor()
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)
}

func TestGridCJKWidth(t *testing.T) {
	g := NewGrid(2, 4)
	applyBytes(t, g, "가나")
	cells := g.Cells()
	assert.True(t, cells[0][0].Flags.Has(FlagWideChar))
	assert.Equal(t, '가', cells[0][0].Char)
	assert.True(t, cells[0][1].Flags.Has(FlagSpacer))
	assert.True(t, cells[0][2].Flags.Has(FlagWideChar))
	assert.Equal(t, '나', cells[0][2].Char)
	assert.True(t, cells[0][3].Flags.Has(FlagSpacer))
}

func TestGridEraseLineToEnd(t *testing.T) {
	g := NewGrid(1, 5)
	applyBytes(t, g, "Hello")
	// move cursor back to col 2
	applyBytes(t, g, "\x1b[3D")
	applyBytes(t, g, "\x1b[K")
	cells := g.Cells()
	assert.Equal(t, "He   ", cellsToString(cells[0]))
}

func cellsToString(row []Cell) string {
	out := make([]rune, 0, len(row))
	for _, c := range row {
		if c.Flags.Has(FlagSpacer) {
			continue
		}
		out = append(out, c.Char)
	}
	return string(out)
}

func TestGridEveryRowHasExactlyColsCells(t *testing.T) {
	g := NewGrid(4, 6)
	applyBytes(t, g, "hello world, this wraps across several rows of text\n\n\ngo")
	for _, row := range g.Cells() {
		assert.Len(t, row, 6)
	}
}

func TestGridWideCharAlwaysFollowedBySpacer(t *testing.T) {
	g := NewGrid(2, 6)
	applyBytes(t, g, "a가b나")
	for _, row := range g.Cells() {
		for i, c := range row {
			if c.Flags.Has(FlagWideChar) {
				require.Less(t, i+1, len(row))
				assert.True(t, row[i+1].Flags.Has(FlagSpacer))
			}
			if c.Flags.Has(FlagSpacer) {
				require.Greater(t, i, 0)
				assert.True(t, row[i-1].Flags.Has(FlagWideChar))
			}
		}
	}
}

func TestGridResizeToSameSizeIsNoop(t *testing.T) {
	g := NewGrid(4, 10)
	applyBytes(t, g, "hello")
	before := g.Cells()
	g.Resize(4, 10)
	assert.Equal(t, before, g.Cells())
}

func TestGridResizeTwiceEqualsResizeOnce(t *testing.T) {
	g1 := NewGrid(4, 10)
	applyBytes(t, g1, "hello world")
	g1.Resize(6, 8)
	g1.Resize(6, 8)

	g2 := NewGrid(4, 10)
	applyBytes(t, g2, "hello world")
	g2.Resize(6, 8)

	assert.Equal(t, g2.Cells(), g1.Cells())
}

func TestGridDeleteChars(t *testing.T) {
	g := NewGrid(1, 5)
	applyBytes(t, g, "Hello")
	applyBytes(t, g, "\x1b[5D") // home
	applyBytes(t, g, "\x1b[2P") // delete 2 chars
	assert.Equal(t, "llo  ", cellsToString(g.Cells()[0]))
}

func TestGridCursorVisibility(t *testing.T) {
	g := NewGrid(1, 5)
	_, _, visible := g.Cursor()
	assert.True(t, visible)
	applyBytes(t, g, "\x1b[?25l")
	_, _, visible = g.Cursor()
	assert.False(t, visible)
	applyBytes(t, g, "\x1b[?25h")
	_, _, visible = g.Cursor()
	assert.True(t, visible)
}

func TestGridCursorPositionOneIndexed(t *testing.T) {
	g := NewGrid(5, 5)
	applyBytes(t, g, "\x1b[3;2H")
	row, col, _ := g.Cursor()
	assert.Equal(t, 2, row)
	assert.Equal(t, 1, col)
}

func TestGridBackspaceNoErase(t *testing.T) {
	g := NewGrid(1, 5)
	applyBytes(t, g, "AB\bC")
	assert.Equal(t, "AC", cellsToString(g.Cells()[0])[:2])
}

func TestGraphemeClustersGroupsCombiningMarks(t *testing.T) {
	// "e" + combining acute accent is one grapheme cluster even though
	// it decodes to two runes; a caller grouping input before handing
	// scalars to Print relies on this to keep base+mark together.
	clusters := graphemeClusters("éx")
	require.Len(t, clusters, 2)
	assert.Equal(t, "é", clusters[0])
	assert.Equal(t, "x", clusters[1])
}
