// Package session spawns a child process behind a pseudo-terminal and
// owns the single mutex guarding the shared parser/grid pair, per the
// concurrency model the core terminal package requires: one reader
// goroutine decodes PTY bytes and applies them to the grid, the UI
// activity owns the PTY writer and drains a dirty/wakeup signal to
// know when to re-render.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/ptyterm/ptyterm"
	"github.com/ptyterm/ptyterm/internal/log"
)

// Session owns a child process's PTY, the terminal core it feeds, and
// the goroutine that pumps bytes from the PTY into the parser/grid.
type Session struct {
	pty *os.File
	cmd *exec.Cmd

	mu     sync.Mutex
	parser *ptyterm.Parser
	grid   *ptyterm.Grid

	dirty chan struct{}
	log   log.Logger

	closeOnce sync.Once
}

// Options configures a new Session.
type Options struct {
	Shell      string   // defaults to $SHELL or /bin/sh
	Args       []string
	Env        []string // appended to os.Environ()
	Rows, Cols int
	Scrollback int // 0 uses ptyterm.DefaultMaxScrollback
	Logger     log.Logger
}

// Start spawns Options.Shell behind a PTY sized Rows x Cols and begins
// pumping its output into a fresh parser/grid pair.
func Start(ctx context.Context, opts Options) (*Session, error) {
	shell := opts.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	cmd := exec.CommandContext(ctx, shell, opts.Args...)
	cmd.Env = append(os.Environ(), opts.Env...)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Rows),
		Cols: uint16(opts.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	var grid *ptyterm.Grid
	if opts.Scrollback > 0 {
		grid = ptyterm.NewGridWithScrollback(opts.Rows, opts.Cols, opts.Scrollback)
	} else {
		grid = ptyterm.NewGrid(opts.Rows, opts.Cols)
	}

	s := &Session{
		pty:    ptmx,
		cmd:    cmd,
		parser: ptyterm.NewParser(),
		grid:   grid,
		dirty:  make(chan struct{}, 1),
		log:    logger,
	}
	grid.SetOnDirty(s.signalDirty)

	go s.pump()
	return s, nil
}

// signalDirty posts to the dirty channel without blocking; a channel
// already holding a pending signal means the UI activity hasn't drained
// the last one yet, so another post would be redundant.
func (s *Session) signalDirty() {
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

// Dirty returns the channel the UI activity selects on to learn a
// re-render is due. It never closes while the session is running.
func (s *Session) Dirty() <-chan struct{} {
	return s.dirty
}

// pump reads PTY output and applies it to the grid under the shared
// mutex until the PTY closes (child exit or Close).
func (s *Session) pump() {
	buf := make([]byte, 4096)
	for {
		n, err := s.pty.Read(buf)
		if n > 0 {
			s.mu.Lock()
			cmds := s.parser.Parse(buf[:n])
			s.grid.ApplyAll(cmds)
			s.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				s.log.Warn("pty read failed", "error", err)
			}
			return
		}
	}
}

// Write sends input bytes to the child process. Only the UI activity
// may call Write, matching the single-writer discipline the terminal
// core assumes.
func (s *Session) Write(p []byte) (int, error) {
	return s.pty.Write(p)
}

// Resize changes both the PTY window size and the grid's dimensions.
func (s *Session) Resize(rows, cols int) error {
	s.mu.Lock()
	s.grid.Resize(rows, cols)
	s.mu.Unlock()
	return pty.Setsize(s.pty, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// VisibleCells returns the currently visible cell matrix (accounting
// for scrollback viewport position) under the shared lock.
func (s *Session) VisibleCells() [][]ptyterm.Cell {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.VisibleCells()
}

// Cursor returns the cursor position and visibility under the shared
// lock.
func (s *Session) Cursor() (row, col int, visible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Cursor()
}

// ScrollViewport shifts the scrollback viewport by delta rows.
func (s *Session) ScrollViewport(delta int) {
	s.mu.Lock()
	s.grid.ScrollViewport(delta)
	s.mu.Unlock()
}

// Close terminates the child process and closes the PTY. Safe to call
// more than once.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.pty.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
	})
	return err
}
