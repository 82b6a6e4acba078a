package video

import (
	"errors"
	"testing"

	"github.com/richardwooding/z80emu/internal/memory"
)

func TestNew(t *testing.T) {
	s, err := New(DefaultColumns, DefaultRows)
	if err != nil {
		t.Fatal(err)
	}
	if s.Size() != 1024 || s.Columns() != 64 || s.Rows() != 16 {
		t.Errorf("geometry = %dx%d (%d bytes)", s.Columns(), s.Rows(), s.Size())
	}
	if s.Read(0) != ' ' {
		t.Errorf("new screen cell = %02X, want space", s.Read(0))
	}
	if _, err := New(0, 16); !errors.Is(err, ErrGeometry) {
		t.Errorf("New(0, 16) error = %v, want ErrGeometry", err)
	}
}

func TestLines(t *testing.T) {
	s, _ := New(4, 2)
	for i, c := range []uint8{'H', 'i', 0x01, 0x80, 'o', 'k', 0x7F, '!'} {
		s.Write(uint16(i), c) //nolint:gosec // G115: small test index
	}

	lines := s.Lines()
	if len(lines) != 2 || lines[0] != "Hi #" || lines[1] != "ok !" {
		t.Errorf("Lines() = %q", lines)
	}
	if s.String() != "Hi #\nok !" {
		t.Errorf("String() = %q", s.String())
	}
}

func TestDirty(t *testing.T) {
	s, _ := New(4, 2)
	if !s.Dirty() {
		t.Error("new screen should be dirty")
	}
	if s.Dirty() {
		t.Error("Dirty() should reset the flag")
	}

	s.Write(0, ' ') // unchanged
	if s.Dirty() {
		t.Error("writing the same value marked the screen dirty")
	}
	s.Write(0, 'A')
	if !s.Dirty() {
		t.Error("write did not mark the screen dirty")
	}
	s.Write(100, 'B')
	if s.Dirty() {
		t.Error("out of range write marked the screen dirty")
	}
}

func TestAttach(t *testing.T) {
	bus := memory.NewBus()
	s, _ := New(DefaultColumns, DefaultRows)
	if err := s.Attach(bus, DefaultBase); err != nil {
		t.Fatal(err)
	}

	bus.Write(DefaultBase+64, 'Z')
	if s.Lines()[1][0] != 'Z' {
		t.Errorf("row 1 = %q, want leading Z", s.Lines()[1])
	}
	if bus.Read(DefaultBase+64) != 'Z' {
		t.Errorf("bus read = %02X, want 'Z'", bus.Read(DefaultBase+64))
	}
	if err := s.Attach(bus, DefaultBase+1); !errors.Is(err, memory.ErrOverlap) {
		t.Errorf("second Attach() error = %v, want ErrOverlap", err)
	}
}
