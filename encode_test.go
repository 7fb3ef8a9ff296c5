package ptyterm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func charEvent(ch rune, mods Modifiers) KeyEvent {
	return KeyEvent{Kind: KeyCharacter, Character: ch, Modifiers: mods}
}

func namedEvent(key NamedKey, mods Modifiers) KeyEvent {
	return KeyEvent{Kind: KeyNamed, Named: key, Modifiers: mods}
}

func TestEncodeCharacters(t *testing.T) {
	cases := []struct {
		name string
		ev   KeyEvent
		want []byte
	}{
		{"ascii", charEvent('a', Modifiers{}), []byte("a")},
		{"uppercase", charEvent('A', Modifiers{}), []byte("A")},
		{"unicode", charEvent('한', Modifiers{}), []byte("한")},
		{"space", charEvent(' ', Modifiers{}), []byte(" ")},
		{"shift is just the char", charEvent('a', Modifiers{Shift: true}), []byte("a")},
		{"alt char", charEvent('a', Modifiers{Alt: true}), []byte{0x1b, 'a'}},
		{"alt uppercase", charEvent('A', Modifiers{Alt: true}), []byte{0x1b, 'A'}},
		{"ctrl a", charEvent('a', Modifiers{Ctrl: true}), []byte{0x01}},
		{"ctrl c", charEvent('c', Modifiers{Ctrl: true}), []byte{0x03}},
		{"ctrl z", charEvent('z', Modifiers{Ctrl: true}), []byte{0x1a}},
		{"ctrl uppercase a", charEvent('A', Modifiers{Ctrl: true}), []byte{0x01}},
		{"ctrl non-alpha ignored", charEvent('1', Modifiers{Ctrl: true}), []byte("1")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Encode(tc.ev))
		})
	}
}

func TestEncodeNamedKeys(t *testing.T) {
	cases := []struct {
		name string
		ev   KeyEvent
		want []byte
	}{
		{"enter", namedEvent(KeyEnter, Modifiers{}), []byte("\r")},
		{"tab", namedEvent(KeyTab, Modifiers{}), []byte("\t")},
		{"escape", namedEvent(KeyEscape, Modifiers{}), []byte{0x1b}},
		{"backspace", namedEvent(KeyBackspace, Modifiers{}), []byte{0x7f}},
		{"delete", namedEvent(KeyDelete, Modifiers{}), []byte("\x1b[3~")},
		{"arrow up", namedEvent(KeyArrowUp, Modifiers{}), []byte("\x1b[A")},
		{"arrow down", namedEvent(KeyArrowDown, Modifiers{}), []byte("\x1b[B")},
		{"arrow right", namedEvent(KeyArrowRight, Modifiers{}), []byte("\x1b[C")},
		{"arrow left", namedEvent(KeyArrowLeft, Modifiers{}), []byte("\x1b[D")},
		{"home", namedEvent(KeyHome, Modifiers{}), []byte("\x1b[H")},
		{"end", namedEvent(KeyEnd, Modifiers{}), []byte("\x1b[F")},
		{"page up", namedEvent(KeyPageUp, Modifiers{}), []byte("\x1b[5~")},
		{"page down", namedEvent(KeyPageDown, Modifiers{}), []byte("\x1b[6~")},
		{"alt arrow up", namedEvent(KeyArrowUp, Modifiers{Alt: true}), []byte("\x1b[1;3A")},
		{"alt arrow down", namedEvent(KeyArrowDown, Modifiers{Alt: true}), []byte("\x1b[1;3B")},
		{"shift arrow up", namedEvent(KeyArrowUp, Modifiers{Shift: true}), []byte("\x1b[1;2A")},
		{"shift arrow right", namedEvent(KeyArrowRight, Modifiers{Shift: true}), []byte("\x1b[1;2C")},
		{"ctrl arrow left", namedEvent(KeyArrowLeft, Modifiers{Ctrl: true}), []byte("\x1b[1;5D")},
		{"ctrl arrow right", namedEvent(KeyArrowRight, Modifiers{Ctrl: true}), []byte("\x1b[1;5C")},
		{"ctrl alt arrow up", namedEvent(KeyArrowUp, Modifiers{Ctrl: true, Alt: true}), []byte("\x1b[1;7A")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Encode(tc.ev))
		})
	}
}

func TestEncodeUnknownNamedKeyIsEmpty(t *testing.T) {
	assert.Empty(t, Encode(namedEvent(NamedKey(255), Modifiers{})))
}

func TestEncodeNeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		Encode(charEvent(0, Modifiers{Ctrl: true, Alt: true, Shift: true, Meta: true}))
	})
}
