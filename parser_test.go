package ptyterm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParserSGRRedH(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[31mH"))
	require.Len(t, cmds, 2)
	assert.Equal(t, TerminalCommand{Kind: CmdSetForeground, Color: IndexedColor(1)}, cmds[0])
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'H'}, cmds[1])
}

func TestParserSplitAcrossChunks(t *testing.T) {
	p := NewParser()
	first := p.Parse([]byte("\x1b[3"))
	assert.Empty(t, first)
	second := p.Parse([]byte("1mX"))
	require.Len(t, second, 2)
	assert.Equal(t, TerminalCommand{Kind: CmdSetForeground, Color: IndexedColor(1)}, second[0])
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'X'}, second[1])
}

func TestParserChunkingIsEquivalentToWhole(t *testing.T) {
	whole := []byte("\x1b[1;31mHi\x1b[0m\x1b[2K\r\n")
	p1 := NewParser()
	want := p1.Parse(whole)

	p2 := NewParser()
	var got []TerminalCommand
	for i := 0; i < len(whole); i++ {
		got = append(got, p2.Parse(whole[i:i+1])...)
	}
	assert.Equal(t, want, got)
}

func TestParserC0Controls(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte{0x0A, 0x0D, 0x08, 0x09, 0x07})
	want := []TerminalCommand{
		{Kind: CmdNewline},
		{Kind: CmdCarriageReturn},
		{Kind: CmdBackspace},
		{Kind: CmdTab},
		{Kind: CmdBell},
	}
	assert.Equal(t, want, cmds)
}

func TestParserCursorMovesDefaults(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[A\x1b[B\x1b[C\x1b[D"))
	want := []TerminalCommand{
		{Kind: CmdCursorUp, N: 1},
		{Kind: CmdCursorDown, N: 1},
		{Kind: CmdCursorForward, N: 1},
		{Kind: CmdCursorBack, N: 1},
	}
	assert.Equal(t, want, cmds)
}

func TestParserCursorPositionDefault(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[H"))
	require.Len(t, cmds, 1)
	assert.Equal(t, TerminalCommand{Kind: CmdCursorPosition, Row: 1, Col: 1}, cmds[0])
}

func TestParserEraseDefaults(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[K\x1b[J"))
	want := []TerminalCommand{
		{Kind: CmdEraseInLine, Mode: EraseToEnd},
		{Kind: CmdEraseInDisplay, Mode: EraseToEnd},
	}
	assert.Equal(t, want, cmds)
}

func TestParserSGRTrueColor(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[38;2;10;20;30m"))
	require.Len(t, cmds, 1)
	assert.Equal(t, TerminalCommand{Kind: CmdSetForeground, Color: RGBColor(10, 20, 30)}, cmds[0])
}

func TestParserSGRIndexedColon(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[48:5:196m"))
	require.Len(t, cmds, 1)
	assert.Equal(t, TerminalCommand{Kind: CmdSetBackground, Color: IndexedColor(196)}, cmds[0])
}

func TestParserUnknownSequenceDropped(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[99zOK"))
	require.Len(t, cmds, 2)
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'O'}, cmds[0])
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'K'}, cmds[1])
}

func TestParserMalformedUTF8ProducesReplacement(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte{0xC0, 'A'})
	require.Len(t, cmds, 2)
	assert.Equal(t, rune(0xFFFD), cmds[0].Char)
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'A'}, cmds[1])
}

func TestParserNeverPanicsOnRandomBytes(t *testing.T) {
	p := NewParser()
	assert.NotPanics(t, func() {
		p.Parse([]byte{0x1b, '[', '?', ';', ':', 0xff, 0x9b, 0x1b})
	})
}

func TestParserOSCAbsorbedUntilBEL(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b]0;Hi\x07OK"))
	require.Len(t, cmds, 2)
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'O'}, cmds[0])
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'K'}, cmds[1])
}

func TestParserOSCAbsorbedUntilStringTerminator(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b]2;title\x1b\\OK"))
	require.Len(t, cmds, 2)
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'O'}, cmds[0])
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'K'}, cmds[1])
}

func TestParserDCSAbsorbedAcrossChunks(t *testing.T) {
	p := NewParser()
	first := p.Parse([]byte("\x1bPq"))
	assert.Empty(t, first)
	second := p.Parse([]byte("1;2;3\x07X"))
	require.Len(t, second, 1)
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'X'}, second[0])
}

func TestParserOSCEscapeNotFollowedByBackslashFallsThrough(t *testing.T) {
	p := NewParser()
	// ESC inside the string that isn't part of a valid ST (not
	// followed by '\') must not swallow the byte that follows it.
	cmds := p.Parse([]byte("\x1b]0;a\x1bZ"))
	require.Len(t, cmds, 1)
	assert.Equal(t, TerminalCommand{Kind: CmdPrint, Char: 'Z'}, cmds[0])
}

func TestParserCursorVisibility(t *testing.T) {
	p := NewParser()
	cmds := p.Parse([]byte("\x1b[?25l\x1b[?25h"))
	want := []TerminalCommand{
		{Kind: CmdHideCursor},
		{Kind: CmdShowCursor},
	}
	assert.Equal(t, want, cmds)
}
