package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"

	"github.com/richardwooding/z80emu/internal/keyboard"
)

// quitKey (Ctrl+\) ends a raw-mode session, since Ctrl+C is passed to
// the program.
const quitKey = 0x1C

// console feeds stdin into a keyboard queue, switching the terminal to
// raw mode when stdin is a TTY.
type console struct {
	queue    *keyboard.Queue
	fd       int
	oldState *term.State
	restore  sync.Once
}

func openConsole(in *os.File, quit func()) (*console, error) {
	c := &console{queue: keyboard.NewQueue(), fd: int(in.Fd())} //nolint:gosec // G115: file descriptors fit in int

	raw := term.IsTerminal(c.fd)
	if raw {
		state, err := term.MakeRaw(c.fd)
		if err != nil {
			return nil, fmt.Errorf("failed to set raw mode: %w", err)
		}
		c.oldState = state
	}

	go c.pump(in, raw, quit)
	return c, nil
}

func (c *console) pump(in io.Reader, raw bool, quit func()) {
	defer c.queue.Close()
	r := bufio.NewReader(in)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		if raw && b == quitKey {
			quit()
			return
		}
		if !raw && b == '\n' {
			// CP/M programs expect CR at the end of a line
			b = '\r'
		}
		c.queue.Push(b)
	}
}

// Queue returns the queue stdin is fed into.
func (c *console) Queue() *keyboard.Queue {
	return c.queue
}

// Restore puts the terminal back into its original mode.
func (c *console) Restore() {
	c.restore.Do(func() {
		if c.oldState != nil {
			_ = term.Restore(c.fd, c.oldState)
		}
	})
}
