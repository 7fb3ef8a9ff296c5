// Package ptyterm provides the core terminal emulation pipeline shared
// between front-end surfaces: an escape-sequence parser, a fixed-grid
// cell buffer, a render-command generator, and the value types that
// tie them together.
//
// This package contains:
//   - Color and palette types
//   - Cell and grid representation
//   - The VT100/ANSI escape sequence parser
//   - The render command generator
//
// The gpu package consumes the render commands produced here; the
// session package drives the parser and grid from a real PTY.
package ptyterm

// ColorType indicates how a color was specified.
type ColorType uint8

const (
	ColorTypeDefault ColorType = iota // terminal default fg/bg (SGR 39/49)
	ColorTypeIndexed                  // 256-color palette index (0-255)
	ColorTypeTrueColor                // 24-bit RGB
)

// Color is a tagged terminal color: Default, an indexed palette entry,
// or a resolved 24-bit RGB triplet.
type Color struct {
	Type    ColorType
	Index   uint8 // valid when Type == ColorTypeIndexed
	R, G, B uint8 // valid when Type == ColorTypeTrueColor
}

// DefaultColor is the zero value of Color: SGR 39/49's "use terminal default".
var DefaultColor = Color{Type: ColorTypeDefault}

// IndexedColor creates a Color referencing palette slot 0-255.
func IndexedColor(index int) Color {
	if index < 0 {
		index = 0
	}
	if index > 255 {
		index = 255
	}
	return Color{Type: ColorTypeIndexed, Index: uint8(index)}
}

// RGBColor creates a resolved 24-bit Color.
func RGBColor(r, g, b uint8) Color {
	return Color{Type: ColorTypeTrueColor, R: r, G: g, B: b}
}

// IsDefault reports whether c is the terminal-default color.
func (c Color) IsDefault() bool { return c.Type == ColorTypeDefault }

// Rgb is a fully resolved 24-bit color. Unlike Color, it never carries
// Default or Indexed — it is what a RenderCommand always carries.
type Rgb struct {
	R, G, B uint8
}

// CellFlags is a bitset of the text attributes a Cell or RenderCommand
// can carry.
type CellFlags uint16

const (
	FlagBold CellFlags = 1 << iota
	FlagDim
	FlagItalic
	FlagUnderline
	FlagStrikethrough
	FlagInverse
	FlagHidden
	FlagWideChar // left half of a double-width glyph
	FlagSpacer   // right half of a double-width glyph; never rendered on its own
	FlagBlink    // metadata only; never participates in color resolution
)

// Has reports whether all bits in mask are set.
func (f CellFlags) Has(mask CellFlags) bool { return f&mask == mask }

// Cell is one character slot in the terminal grid.
type Cell struct {
	Char  rune
	Fg    Color
	Bg    Color
	Flags CellFlags
}

// EmptyCell returns the default cell: a space with default colors and
// no attributes.
func EmptyCell() Cell {
	return Cell{Char: ' ', Fg: DefaultColor, Bg: DefaultColor}
}

// EmptyCellWithBg returns a default cell that carries bg as its
// background, used when erasing under a non-default pen background.
func EmptyCellWithBg(bg Color) Cell {
	return Cell{Char: ' ', Fg: DefaultColor, Bg: bg}
}

// RenderCommand is one fully-resolved draw instruction: a single glyph
// at (Row, Col) with 24-bit colors and attributes. It never references
// Color's Default or Indexed variants.
type RenderCommand struct {
	Row, Col  int
	Character rune
	Fg, Bg    Rgb
	Flags     CellFlags
}

// EraseMode selects the span an EraseInLine/EraseInDisplay command
// covers.
type EraseMode uint8

const (
	EraseToEnd EraseMode = iota
	EraseToStart
	EraseAll
)

// TerminalCommandKind tags the variant held by a TerminalCommand.
type TerminalCommandKind uint8

const (
	CmdPrint TerminalCommandKind = iota
	CmdNewline
	CmdCarriageReturn
	CmdBackspace
	CmdTab
	CmdBell
	CmdCursorUp
	CmdCursorDown
	CmdCursorForward
	CmdCursorBack
	CmdCursorPosition
	CmdEraseInLine
	CmdEraseInDisplay
	CmdSetForeground
	CmdSetBackground
	CmdSetFlag
	CmdClearFlag
	CmdResetAttributes
	CmdDeleteChars
	CmdShowCursor
	CmdHideCursor
)

// TerminalCommand is one unit of work the VT parser emits and the grid
// applies. Only the fields relevant to Kind are populated; this mirrors
// a tagged union without the overhead of an interface per command.
type TerminalCommand struct {
	Kind TerminalCommandKind

	// CmdPrint
	Char rune

	// CmdCursorUp/Down/Forward/Back, CmdDeleteChars: N
	N int

	// CmdCursorPosition: 1-indexed row/col as received on the wire
	Row, Col int

	// CmdEraseInLine/EraseInDisplay
	Mode EraseMode

	// CmdSetForeground/SetBackground
	Color Color

	// CmdSetFlag/ClearFlag
	Flag CellFlags
}

// KeyKind distinguishes a literal character key from a named key.
type KeyKind uint8

const (
	KeyCharacter KeyKind = iota
	KeyNamed
)

// NamedKey enumerates the non-printable keys the Input Encoder
// recognizes.
type NamedKey uint8

const (
	KeyEnter NamedKey = iota
	KeyTab
	KeyEscape
	KeyBackspace
	KeyDelete
	KeyArrowUp
	KeyArrowDown
	KeyArrowLeft
	KeyArrowRight
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
)

// Modifiers is the set of modifier keys held during a KeyEvent.
type Modifiers struct {
	Shift, Ctrl, Alt, Meta bool
}

// KeyEvent is one keystroke as reported by the windowing layer, ready
// to be passed to Encode.
type KeyEvent struct {
	Kind      KeyKind
	Character rune     // valid when Kind == KeyCharacter
	Named     NamedKey // valid when Kind == KeyNamed
	Modifiers Modifiers
}
