package ptyterm

import (
	"sync"

	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"
)

// DefaultMaxScrollback is the scrollback ring capacity used when a
// Grid is constructed without an explicit override.
const DefaultMaxScrollback = 10000

// Grid is a fixed rows x cols cell buffer: the state a Grid State
// Machine owns and mutates in response to TerminalCommand values. All
// mutating methods preserve the invariants that every row has exactly
// cols cells and that a WIDE_CHAR cell is always immediately followed
// by a SPACER.
//
// A Grid is safe for concurrent use: the I/O activity calls Apply
// while the UI activity calls Cells/Cursor/VisibleCells to snapshot
// state for the renderer, all under the same mutex.
type Grid struct {
	mu sync.Mutex

	rows, cols int
	cells      [][]Cell

	cursorRow, cursorCol int
	cursorVisible        bool

	pen Cell // fg/bg/flags applied to new prints; Char is unused

	scrollback    [][]Cell
	maxScrollback int
	scrollOffset  int // 0 = viewing the live screen; >0 = scrolled into scrollback

	dirty   bool
	onDirty func()
}

// NewGrid creates a Grid of the given size, filled with default cells
// and a default pen, using DefaultMaxScrollback capacity.
func NewGrid(rows, cols int) *Grid {
	return NewGridWithScrollback(rows, cols, DefaultMaxScrollback)
}

// NewGridWithScrollback is like NewGrid but with an explicit
// scrollback ring capacity (0 disables scrollback).
func NewGridWithScrollback(rows, cols, maxScrollback int) *Grid {
	if rows < 1 {
		rows = 1
	}
	if cols < 1 {
		cols = 1
	}
	g := &Grid{
		rows:          rows,
		cols:          cols,
		pen:           EmptyCell(),
		cursorVisible: true,
		maxScrollback: maxScrollback,
	}
	g.cells = make([][]Cell, rows)
	for i := range g.cells {
		g.cells[i] = newBlankRow(cols, DefaultColor)
	}
	return g
}

// SetOnDirty registers a callback invoked (outside the lock) whenever
// Apply causes a visible change. Used by the I/O activity to wake the
// UI activity per the concurrency model.
func (g *Grid) SetOnDirty(fn func()) {
	g.mu.Lock()
	g.onDirty = fn
	g.mu.Unlock()
}

func newBlankRow(cols int, bg Color) []Cell {
	row := make([]Cell, cols)
	for i := range row {
		row[i] = EmptyCellWithBg(bg)
	}
	return row
}

func (g *Grid) markDirty() {
	g.dirty = true
}

// TakeDirty reports whether the grid changed since the last call and
// clears the flag.
func (g *Grid) TakeDirty() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	d := g.dirty
	g.dirty = false
	return d
}

// Apply mutates the grid according to cmd. It never errors; malformed
// or out-of-range inputs are clamped rather than rejected.
func (g *Grid) Apply(cmd TerminalCommand) {
	g.mu.Lock()
	notify := g.onDirty
	g.applyLocked(cmd)
	g.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// ApplyAll is a convenience for draining a parser's output in order.
func (g *Grid) ApplyAll(cmds []TerminalCommand) {
	if len(cmds) == 0 {
		return
	}
	g.mu.Lock()
	notify := g.onDirty
	for _, cmd := range cmds {
		g.applyLocked(cmd)
	}
	g.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (g *Grid) applyLocked(cmd TerminalCommand) {
	g.resetViewportLocked()
	switch cmd.Kind {
	case CmdPrint:
		g.printLocked(cmd.Char)
	case CmdNewline:
		g.newlineLocked()
	case CmdCarriageReturn:
		g.cursorCol = 0
	case CmdBackspace:
		if g.cursorCol > 0 {
			g.cursorCol--
		}
	case CmdTab:
		next := (g.cursorCol/8 + 1) * 8
		if next > g.cols {
			next = g.cols
		}
		g.cursorCol = next
	case CmdBell:
		// no-op at this layer
	case CmdCursorUp:
		g.cursorRow = clamp(g.cursorRow-nOrOne(cmd.N), 0, g.rows-1)
	case CmdCursorDown:
		g.cursorRow = clamp(g.cursorRow+nOrOne(cmd.N), 0, g.rows-1)
	case CmdCursorForward:
		g.cursorCol = clamp(g.cursorCol+nOrOne(cmd.N), 0, g.cols-1)
	case CmdCursorBack:
		g.cursorCol = clamp(g.cursorCol-nOrOne(cmd.N), 0, g.cols-1)
	case CmdCursorPosition:
		g.cursorRow = clamp(oneIndexed(cmd.Row)-1, 0, g.rows-1)
		g.cursorCol = clamp(oneIndexed(cmd.Col)-1, 0, g.cols-1)
	case CmdEraseInLine:
		g.eraseInLineLocked(cmd.Mode)
	case CmdEraseInDisplay:
		g.eraseInDisplayLocked(cmd.Mode)
	case CmdDeleteChars:
		g.deleteCharsLocked(nOrOne(cmd.N))
	case CmdSetForeground:
		g.pen.Fg = cmd.Color
	case CmdSetBackground:
		g.pen.Bg = cmd.Color
	case CmdSetFlag:
		g.pen.Flags |= cmd.Flag
	case CmdClearFlag:
		g.pen.Flags &^= cmd.Flag
	case CmdResetAttributes:
		g.pen = EmptyCell()
	case CmdShowCursor:
		g.cursorVisible = true
	case CmdHideCursor:
		g.cursorVisible = false
	}
	g.markDirty()
}

func nOrOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func oneIndexed(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// runeWidth returns the column width of ch: 0 for zero-width
// (combining marks, ZWJ), 2 for East-Asian-wide/fullwidth/emoji, 1
// otherwise. go-runewidth already reports combining marks as width 0,
// which is what drives the "fold into previous glyph" rule below.
func runeWidth(ch rune) int {
	return runewidth.RuneWidth(ch)
}

// graphemeClusters splits s into grapheme clusters, used by callers
// that need to group a base rune with trailing combining marks before
// handing individual scalars to Print.
func graphemeClusters(s string) []string {
	var clusters []string
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		clusters = append(clusters, cluster)
	}
	return clusters
}

func (g *Grid) printLocked(ch rune) {
	w := runeWidth(ch)
	if w == 0 {
		g.foldCombiningLocked(ch)
		return
	}

	if g.cursorCol >= g.cols {
		g.newlineLocked()
		g.cursorCol = 0
	}

	if w == 2 && g.cursorCol == g.cols-1 {
		g.severPairAtLocked(g.cells[g.cursorRow], g.cursorCol)
		g.cells[g.cursorRow][g.cursorCol] = EmptyCellWithBg(g.pen.Bg)
		g.newlineLocked()
		g.cursorCol = 0
	}

	g.repairSeamBeforeWriteLocked(w)

	cell := Cell{Char: ch, Fg: g.pen.Fg, Bg: g.pen.Bg, Flags: g.pen.Flags}
	if w == 2 {
		cell.Flags |= FlagWideChar
	}
	g.cells[g.cursorRow][g.cursorCol] = cell
	if w == 2 {
		g.cells[g.cursorRow][g.cursorCol+1] = Cell{Char: ' ', Fg: g.pen.Fg, Bg: g.pen.Bg, Flags: FlagSpacer}
	}
	g.cursorCol += w
}

// foldCombiningLocked handles a zero-width rune for the "folded into
// previous glyph" layout rule. The grid stores only a single rune per
// cell, so the glyph to the left of the cursor is kept unchanged and
// the mark is dropped from layout — full
// grapheme text is still available to the caller before Print is
// invoked, this only governs column layout.
func (g *Grid) foldCombiningLocked(_ rune) {
	// no layout change: cursor does not advance for a zero-width rune
}

// repairSeamBeforeWriteLocked repairs a wide pair that the upcoming
// write at (cursorRow, cursorCol) would otherwise sever.
func (g *Grid) repairSeamBeforeWriteLocked(newWidth int) {
	row := g.cells[g.cursorRow]
	col := g.cursorCol

	if col < len(row) && row[col].Flags.Has(FlagSpacer) && col > 0 {
		// Overwriting a SPACER: clear the WIDE_CHAR to its left.
		row[col-1] = EmptyCellWithBg(g.pen.Bg)
	}
	if newWidth == 1 && col < len(row) && row[col].Flags.Has(FlagWideChar) {
		// Overwriting a WIDE_CHAR with a narrow write: its SPACER
		// becomes a default cell.
		if col+1 < len(row) {
			row[col+1] = EmptyCellWithBg(g.pen.Bg)
		}
	}
	if newWidth == 2 && col+2 < len(row) && row[col+2].Flags.Has(FlagSpacer) {
		// The cell after our second half is a SPACER tied to a
		// WIDE_CHAR starting at col+1, which our second half
		// overwrites; clear that SPACER too.
		row[col+2] = EmptyCellWithBg(g.pen.Bg)
	}
}

func (g *Grid) newlineLocked() {
	if g.cursorRow == g.rows-1 {
		g.scrollUpLocked(1)
		return
	}
	g.cursorRow++
}

func (g *Grid) scrollUpLocked(n int) {
	for i := 0; i < n; i++ {
		if g.maxScrollback > 0 {
			g.scrollback = append(g.scrollback, g.cells[0])
			if len(g.scrollback) > g.maxScrollback {
				g.scrollback = g.scrollback[1:]
			}
		}
		copy(g.cells, g.cells[1:])
		g.cells[g.rows-1] = newBlankRow(g.cols, g.pen.Bg)
	}
}

func (g *Grid) eraseInLineLocked(mode EraseMode) {
	row := g.cells[g.cursorRow]
	start, end := 0, g.cols
	switch mode {
	case EraseToEnd:
		start = g.cursorCol
	case EraseToStart:
		end = g.cursorCol + 1
	case EraseAll:
	}
	g.severPairAtLocked(row, start)
	g.severPairAtLocked(row, end)
	for c := start; c < end && c < g.cols; c++ {
		row[c] = EmptyCellWithBg(g.pen.Bg)
	}
}

// severPairAtLocked clears whichever half of a WIDE_CHAR/SPACER pair
// straddles the boundary at column c (the half at c-1, the half at
// c, or both), so that the caller can safely blank one side of the
// boundary without orphaning the other.
func (g *Grid) severPairAtLocked(row []Cell, c int) {
	if c > 0 && c-1 < len(row) && row[c-1].Flags.Has(FlagWideChar) {
		row[c-1] = EmptyCellWithBg(g.pen.Bg)
		if c < len(row) {
			row[c] = EmptyCellWithBg(g.pen.Bg)
		}
	}
	if c >= 0 && c < len(row) && row[c].Flags.Has(FlagSpacer) {
		row[c] = EmptyCellWithBg(g.pen.Bg)
		if c > 0 {
			row[c-1] = EmptyCellWithBg(g.pen.Bg)
		}
	}
}

func (g *Grid) eraseInDisplayLocked(mode EraseMode) {
	switch mode {
	case EraseToEnd:
		g.eraseInLineLocked(EraseToEnd)
		for r := g.cursorRow + 1; r < g.rows; r++ {
			g.cells[r] = newBlankRow(g.cols, g.pen.Bg)
		}
	case EraseToStart:
		g.eraseInLineLocked(EraseToStart)
		for r := 0; r < g.cursorRow; r++ {
			g.cells[r] = newBlankRow(g.cols, g.pen.Bg)
		}
	case EraseAll:
		for r := 0; r < g.rows; r++ {
			g.cells[r] = newBlankRow(g.cols, g.pen.Bg)
		}
	}
}

func (g *Grid) deleteCharsLocked(n int) {
	row := g.cells[g.cursorRow]
	col := g.cursorCol
	if col >= len(row) {
		return
	}
	g.severPairAtLocked(row, col)
	end := col + n
	if end > len(row) {
		end = len(row)
	}
	g.severPairAtLocked(row, end)

	tail := append([]Cell{}, row[end:]...)
	copy(row[col:], tail)
	vacatedFrom := col + len(tail)
	for i := vacatedFrom; i < len(row); i++ {
		row[i] = EmptyCellWithBg(g.pen.Bg)
	}
}

// Resize truncates or pads every row to newCols and truncates or
// appends rows to newRows, clamping the cursor into range. Resizing
// to the current size is a no-op.
func (g *Grid) Resize(newRows, newCols int) {
	if newRows < 1 {
		newRows = 1
	}
	if newCols < 1 {
		newCols = 1
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if newRows == g.rows && newCols == g.cols {
		return
	}

	resized := make([][]Cell, newRows)
	for r := 0; r < newRows; r++ {
		if r < len(g.cells) {
			row := g.cells[r]
			newRow := make([]Cell, newCols)
			n := newCols
			if n > len(row) {
				n = len(row)
			}
			copy(newRow, row[:n])
			if n > 0 && newRow[n-1].Flags.Has(FlagWideChar) {
				// Truncation cut off this WIDE_CHAR's SPACER.
				newRow[n-1] = EmptyCell()
			}
			for c := n; c < newCols; c++ {
				newRow[c] = EmptyCell()
			}
			resized[r] = newRow
		} else {
			resized[r] = newBlankRow(newCols, DefaultColor)
		}
	}
	g.cells = resized
	g.rows = newRows
	g.cols = newCols
	g.cursorRow = clamp(g.cursorRow, 0, newRows-1)
	g.cursorCol = clamp(g.cursorCol, 0, newCols)
	g.markDirty()
}

// Size returns the grid's current (rows, cols).
func (g *Grid) Size() (rows, cols int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rows, g.cols
}

// Cursor returns the cursor's (row, col) and whether it is visible.
func (g *Grid) Cursor() (row, col int, visible bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cursorRow, g.cursorCol, g.cursorVisible
}

// Cells returns a deep copy of the live screen, safe to read without
// holding the grid's lock.
func (g *Grid) Cells() [][]Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	return copyRows(g.cells)
}

func copyRows(rows [][]Cell) [][]Cell {
	out := make([][]Cell, len(rows))
	for i, row := range rows {
		out[i] = append([]Cell(nil), row...)
	}
	return out
}

// ScrollViewport offsets the window VisibleCells reads from within
// the scrollback ring; positive delta scrolls further into history.
// It never mutates the live screen.
func (g *Grid) ScrollViewport(delta int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scrollOffset = clamp(g.scrollOffset+delta, 0, len(g.scrollback))
}

// ResetViewport snaps the viewport back to the live screen.
func (g *Grid) ResetViewport() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetViewportOnOutputLocked()
}

func (g *Grid) resetViewportLocked() {
	g.resetViewportOnOutputLocked()
}

func (g *Grid) resetViewportOnOutputLocked() {
	g.scrollOffset = 0
}

// VisibleCells returns the rows currently in view: the live screen
// when the viewport is at the bottom, or a merge of scrollback rows
// and the live screen when scrolled up.
func (g *Grid) VisibleCells() [][]Cell {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.scrollOffset == 0 {
		return copyRows(g.cells)
	}

	history := g.scrollback
	offset := g.scrollOffset
	if offset > len(history) {
		offset = len(history)
	}
	// Conceptually view a window of `rows` rows over history++live,
	// starting at combined index `start`; offset==0 means the window
	// exactly covers the live screen.
	start := len(history) - offset

	out := make([][]Cell, 0, g.rows)
	for i := 0; i < g.rows; i++ {
		combinedIdx := start + i
		switch {
		case combinedIdx < len(history):
			out = append(out, append([]Cell(nil), history[combinedIdx]...))
		case combinedIdx-len(history) < len(g.cells):
			out = append(out, append([]Cell(nil), g.cells[combinedIdx-len(history)]...))
		default:
			out = append(out, newBlankRow(g.cols, DefaultColor))
		}
	}
	return out
}
