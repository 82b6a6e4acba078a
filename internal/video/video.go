// Package video implements a memory-mapped character screen.
//
// Each byte of video RAM holds one character cell, row by row. The
// default geometry is the 64x16 layout of the TRS-80 Model I, mapped at
// 0x3C00.
package video

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/richardwooding/z80emu/internal/memory"
)

// Default geometry.
const (
	DefaultColumns = 64
	DefaultRows    = 16
	DefaultBase    = 0x3C00
)

// ErrGeometry is returned for screens with no cells.
var ErrGeometry = errors.New("screen must have at least one row and column")

// Screen is the video RAM of a character display. It is written by the
// emulation goroutine and read by the renderer.
type Screen struct {
	mu      sync.RWMutex
	columns int
	rows    int
	cells   []uint8
	dirty   bool
}

// New creates a blank screen.
func New(columns, rows int) (*Screen, error) {
	if columns <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrGeometry, columns, rows)
	}
	s := &Screen{columns: columns, rows: rows, cells: make([]uint8, columns*rows)}
	s.Clear()
	return s, nil
}

// Columns returns the screen width in characters.
func (s *Screen) Columns() int { return s.columns }

// Rows returns the screen height in characters.
func (s *Screen) Rows() int { return s.rows }

// Size returns the number of bytes of video RAM.
func (s *Screen) Size() int { return len(s.cells) }

// Attach maps the screen on bus at base.
func (s *Screen) Attach(bus *memory.Bus, base int) error {
	if err := bus.Map(base, len(s.cells), s); err != nil {
		return fmt.Errorf("failed to map screen: %w", err)
	}
	return nil
}

// Read returns the character at offset.
func (s *Screen) Read(offset uint16) uint8 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(offset) >= len(s.cells) {
		return 0xFF
	}
	return s.cells[offset]
}

// Write stores a character and marks the screen dirty.
func (s *Screen) Write(offset uint16, value uint8) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int(offset) >= len(s.cells) {
		return
	}
	if s.cells[offset] != value {
		s.cells[offset] = value
		s.dirty = true
	}
}

// Clear fills the screen with spaces.
func (s *Screen) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.cells {
		s.cells[i] = ' '
	}
	s.dirty = true
}

// Dirty reports whether the screen changed since the last call, and
// resets the flag.
func (s *Screen) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.dirty
	s.dirty = false
	return d
}

// Lines returns the screen contents as text. Control codes show as
// spaces and graphics characters (bit 7 set) as '#'.
func (s *Screen) Lines() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, s.rows)
	var b strings.Builder
	for row := range s.rows {
		b.Reset()
		for _, c := range s.cells[row*s.columns : (row+1)*s.columns] {
			b.WriteByte(printable(c))
		}
		lines[row] = b.String()
	}
	return lines
}

// String returns the screen as newline-separated rows with trailing
// spaces trimmed.
func (s *Screen) String() string {
	lines := s.Lines()
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(lines, "\n")
}

func printable(c uint8) uint8 {
	switch {
	case c >= 0x80:
		return '#'
	case c < 0x20 || c == 0x7F:
		return ' '
	}
	return c
}
