package ptyterm

import "unicode"

// Encode is a pure function mapping a KeyEvent to the byte sequence
// written to the PTY. It never errors; an unrecognized named key
// yields an empty sequence.
func Encode(ev KeyEvent) []byte {
	mods := ev.Modifiers

	if ev.Kind == KeyCharacter {
		return encodeCharacter(ev.Character, mods)
	}
	return encodeNamed(ev.Named, mods)
}

func encodeCharacter(ch rune, mods Modifiers) []byte {
	if mods.Ctrl && isCtrlLetter(ch) {
		ctrlByte := ctrlControlByte(ch)
		if mods.Alt {
			return []byte{0x1b, ctrlByte}
		}
		return []byte{ctrlByte}
	}

	// Ctrl held with a non-alphabetic key passes through unmodified;
	// there is no single-byte control code to produce.
	plain := []byte(string(ch))
	if mods.Alt {
		return append([]byte{0x1b}, plain...)
	}
	return plain
}

func isCtrlLetter(ch rune) bool {
	lower := unicode.ToLower(ch)
	return lower >= 'a' && lower <= 'z'
}

func ctrlControlByte(ch rune) byte {
	lower := unicode.ToLower(ch)
	return byte(lower - 'a' + 1)
}

func encodeNamed(key NamedKey, mods Modifiers) []byte {
	mod := modifierParam(mods)
	hasMods := mod > 0

	switch key {
	case KeyEnter:
		return []byte{'\r'}
	case KeyTab:
		return []byte{'\t'}
	case KeyEscape:
		return []byte{0x1b}
	case KeyBackspace:
		return []byte{0x7f}
	case KeyArrowUp:
		return cursorKey('A', mod, hasMods)
	case KeyArrowDown:
		return cursorKey('B', mod, hasMods)
	case KeyArrowRight:
		return cursorKey('C', mod, hasMods)
	case KeyArrowLeft:
		return cursorKey('D', mod, hasMods)
	case KeyHome:
		return cursorKey('H', mod, hasMods)
	case KeyEnd:
		return cursorKey('F', mod, hasMods)
	case KeyDelete:
		return tildeKey(3, mod, hasMods)
	case KeyPageUp:
		return tildeKey(5, mod, hasMods)
	case KeyPageDown:
		return tildeKey(6, mod, hasMods)
	default:
		return nil
	}
}

// modifierParam computes the xterm modifier parameter: Shift=2,
// Alt=3, Shift+Alt=4, Ctrl=5, Shift+Ctrl=6, Alt+Ctrl=7,
// Shift+Alt+Ctrl=8. Meta folds into the same bit as Alt. Returns 0
// (meaning "no modifier parameter") when nothing is held, matching
// the convention that a default param of 1 is omitted on the wire.
func modifierParam(mods Modifiers) int {
	param := 1
	if mods.Shift {
		param += 1
	}
	if mods.Alt || mods.Meta {
		param += 2
	}
	if mods.Ctrl {
		param += 4
	}
	if param == 1 {
		return 0
	}
	return param
}

// cursorKey builds the xterm sequence for an arrow/Home/End key:
// ESC[<letter> with no modifiers, ESC[1;<mod><letter> with modifiers.
func cursorKey(letter byte, mod int, hasMods bool) []byte {
	if !hasMods {
		return []byte{0x1b, '[', letter}
	}
	out := []byte{0x1b, '['}
	out = append(out, '1', ';')
	out = appendInt(out, mod)
	out = append(out, letter)
	return out
}

// tildeKey builds the xterm sequence for a ~-terminated key:
// ESC[<n>~ with no modifiers, ESC[<n>;<mod>~ with modifiers.
func tildeKey(n int, mod int, hasMods bool) []byte {
	out := []byte{0x1b, '['}
	out = appendInt(out, n)
	if hasMods {
		out = append(out, ';')
		out = appendInt(out, mod)
	}
	out = append(out, '~')
	return out
}

func appendInt(buf []byte, n int) []byte {
	if n == 0 {
		return append(buf, '0')
	}
	start := len(buf)
	for n > 0 {
		buf = append(buf, byte('0'+n%10))
		n /= 10
	}
	// digits were appended least-significant first; reverse them
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}
