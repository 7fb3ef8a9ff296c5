package ptyterm

// Selection is the set of (row, col) cells an active text selection
// covers.
type Selection map[[2]int]bool

// NewRectSelection builds a Selection covering every cell in the
// rectangle from (startRow, startCol) to (endRow, endCol) inclusive,
// normalizing reversed ranges.
func NewRectSelection(startRow, startCol, endRow, endCol int) Selection {
	if endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}
	sel := make(Selection)
	for r := startRow; r <= endRow; r++ {
		for c := startCol; c <= endCol; c++ {
			sel[[2]int{r, c}] = true
		}
	}
	return sel
}

// Preedit describes an IME composition overlay: the characters being
// composed, anchored at (Row, ColStart).
type Preedit struct {
	Row      int
	ColStart int
	Text     []rune
}

// Overlays bundles the non-grid state the renderer must fold into
// the draw list: the selection, the cursor position/visibility, and
// any active IME preedit.
type Overlays struct {
	Selection     Selection
	CursorRow     int
	CursorCol     int
	CursorVisible bool
	Preedit       *Preedit
}

// SelectionBg is the background color painted under selected cells.
var SelectionBg = Rgb{38, 79, 120}

// Generate is a pure function turning a cell matrix, overlays, and a
// palette into an ordered, fully color-resolved draw list. Output
// order is row-major and deterministic: identical inputs always
// produce byte-identical output.
func Generate(cells [][]Cell, overlays Overlays, palette Palette) []RenderCommand {
	preeditCells := preeditOverlayCells(overlays.Preedit)

	var out []RenderCommand
	for row, line := range cells {
		for col, cell := range line {
			if cell.Flags.Has(FlagSpacer) {
				continue
			}

			ch := cell.Char
			flags := cell.Flags
			if pc, ok := preeditCells[[2]int{row, col}]; ok {
				ch = pc
				flags |= FlagUnderline
			}

			fg := palette.Resolve(cell.Fg)
			bg := palette.ResolveBg(cell.Bg)

			if flags.Has(FlagHidden) {
				fg = bg
			}
			if flags.Has(FlagInverse) {
				fg, bg = bg, fg
			}
			if flags.Has(FlagDim) && !flags.Has(FlagBold) {
				fg = halve(fg)
			}

			if overlays.Selection != nil && overlays.Selection[[2]int{row, col}] {
				bg = SelectionBg
			}
			if overlays.CursorVisible && row == overlays.CursorRow && col == overlays.CursorCol {
				fg, bg = bg, fg
			}

			out = append(out, RenderCommand{
				Row: row, Col: col,
				Character: ch,
				Fg:        fg, Bg: bg,
				Flags: flags,
			})
		}
	}
	return out
}

// preeditOverlayCells expands a Preedit into a per-(row,col) rune map
// so Generate can apply it in its single pass, advancing columns by
// each character's display width (one column for a zero-width
// character).
func preeditOverlayCells(p *Preedit) map[[2]int]rune {
	if p == nil {
		return nil
	}
	out := make(map[[2]int]rune, len(p.Text))
	col := p.ColStart
	for _, r := range p.Text {
		out[[2]int{p.Row, col}] = r
		col += runeWidth(r)
		if runeWidth(r) == 0 {
			col++
		}
	}
	return out
}

// halve multiplies each RGB channel by 0.5, rounded to the nearest
// integer.
func halve(c Rgb) Rgb {
	return Rgb{
		R: roundHalf(c.R),
		G: roundHalf(c.G),
		B: roundHalf(c.B),
	}
}

func roundHalf(v uint8) uint8 {
	return uint8((int(v) + 1) / 2)
}
