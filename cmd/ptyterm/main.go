// Command ptyterm is a minimal reference host: it spawns a shell
// behind a PTY and renders the resulting grid to the controlling
// terminal using ANSI escapes, demonstrating the session/core wiring
// without requiring a GPU surface. A real GPU-backed host wires
// gpu.Renderer to session.Session.VisibleCells/Dirty the same way.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"golang.org/x/term"

	"github.com/ptyterm/ptyterm"
	"github.com/ptyterm/ptyterm/config"
	"github.com/ptyterm/ptyterm/internal/log"
	"github.com/ptyterm/ptyterm/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ptyterm:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := log.New(slog.Default())

	cfgPath := os.Getenv("PTYTERM_CONFIG")
	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			logger.Warn("falling back to default config", "error", err)
		} else {
			cfg = loaded
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	stdinFd := int(os.Stdin.Fd())
	restore, err := makeRaw(stdinFd)
	if err == nil {
		defer restore()
	}

	var env []string
	if cfg.TermType != "" {
		env = append(env, "TERM="+cfg.TermType)
	}
	sess, err := session.Start(ctx, session.Options{
		Shell:      cfg.Shell,
		Env:        env,
		Rows:       cfg.Rows,
		Cols:       cfg.Cols,
		Scrollback: cfg.Scrollback,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.Close()

	palette := cfg.PaletteOverrides(ptyterm.DefaultPalette())
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	go pumpStdin(ctx, sess)

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sess.Dirty():
			if !ok {
				return nil
			}
			draw(out, sess, palette)
		}
	}
}

// pumpStdin forwards raw terminal input to the child process. A real
// GUI host instead calls ptyterm.Encode on decoded key events.
func pumpStdin(ctx context.Context, sess *session.Session) {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			sess.Write(buf[:n])
		}
		if err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// draw renders the visible grid to the real terminal via ANSI
// sequences; this is a reference fallback, not the GPU pipeline.
func draw(out *bufio.Writer, sess *session.Session, palette ptyterm.Palette) {
	cells := sess.VisibleCells()
	cursorRow, cursorCol, cursorVisible := sess.Cursor()
	cmds := ptyterm.Generate(cells, ptyterm.Overlays{
		CursorRow: cursorRow, CursorCol: cursorCol, CursorVisible: cursorVisible,
	}, palette)

	fmt.Fprint(out, "\x1b[H")
	row := -1
	for _, cmd := range cmds {
		if cmd.Row != row {
			if row >= 0 {
				fmt.Fprint(out, "\x1b[K\r\n")
			}
			row = cmd.Row
		}
		fmt.Fprintf(out, "\x1b[38;2;%d;%d;%dm\x1b[48;2;%d;%d;%dm%c",
			cmd.Fg.R, cmd.Fg.G, cmd.Fg.B, cmd.Bg.R, cmd.Bg.G, cmd.Bg.B, cmd.Character)
	}
	fmt.Fprint(out, "\x1b[K")
	out.Flush()
}

func makeRaw(fd int) (func(), error) {
	state, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	return func() { term.Restore(fd, state) }, nil
}
