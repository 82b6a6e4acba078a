package image

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richardwooding/z80emu/internal/memory"
)

const sampleHex = `:030100003E427606
:01010300C932
:02200000AABB79
:00000001FF
`

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"zexdoc.com", FormatCOM, false},
		{"ZEXALL.COM", FormatCOM, false},
		{"basic.rom", FormatRaw, false},
		{"prog.bin", FormatRaw, false},
		{"monitor.hex", FormatIntelHex, false},
		{"sdcc.ihx", FormatIntelHex, false},
		{"notes.txt", 0, true},
	}
	for _, tt := range tests {
		got, err := FormatForPath(tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("FormatForPath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if err != nil {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("FormatForPath(%q) error = %v, want ErrUnknownFormat", tt.path, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("FormatForPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestParseCOM(t *testing.T) {
	img, err := Parse("hello.com", FormatCOM, []uint8{0xC3, 0x00, 0x00}, Options{LoadAddress: 0x8000})
	if err != nil {
		t.Fatal(err)
	}
	if img.Entry() != 0x0100 || img.Size() != 3 {
		t.Errorf("Entry() = %04X, Size() = %d, want 0x0100, 3", img.Entry(), img.Size())
	}
	if img.Segments[0].Address != 0x0100 {
		t.Errorf("COM loaded at %04X, want 0x0100", img.Segments[0].Address)
	}
}

func TestParseRaw(t *testing.T) {
	img, err := Parse("rom.bin", FormatRaw, []uint8{1, 2, 3, 4}, Options{LoadAddress: 0xC000})
	if err != nil {
		t.Fatal(err)
	}
	if img.Entry() != 0xC000 {
		t.Errorf("Entry() = %04X, want 0xC000", img.Entry())
	}

	if _, err := Parse("big.bin", FormatRaw, make([]uint8, 0x100), Options{LoadAddress: 0xFF80}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized raw image error = %v, want ErrTooLarge", err)
	}
	if _, err := Parse("empty.com", FormatCOM, nil, Options{}); !errors.Is(err, ErrEmpty) {
		t.Errorf("empty image error = %v, want ErrEmpty", err)
	}
	if _, err := Parse("big.com", FormatCOM, make([]uint8, 0xFF01), Options{}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("oversized COM error = %v, want ErrTooLarge", err)
	}
}

func TestParseIntelHex(t *testing.T) {
	img, err := Parse("prog.hex", FormatIntelHex, []uint8(sampleHex), Options{})
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// Contiguous records merge
	if len(img.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(img.Segments))
	}
	first := img.Segments[0]
	if first.Address != 0x0100 || len(first.Data) != 4 || first.Data[3] != 0xC9 {
		t.Errorf("first segment = %04X % X", first.Address, first.Data)
	}
	if img.Segments[1].Address != 0x2000 {
		t.Errorf("second segment at %04X, want 0x2000", img.Segments[1].Address)
	}
	if img.Entry() != 0x0100 || img.Size() != 6 {
		t.Errorf("Entry() = %04X, Size() = %d, want 0x0100, 6", img.Entry(), img.Size())
	}
}

func TestParseIntelHexExtendedAddresses(t *testing.T) {
	// Segment base 0x0010 shifts data by 0x100
	src := ":020000020010EC\n:01001000559A\n:00000001FF\n"
	img, err := Parse("seg.hex", FormatIntelHex, []uint8(src), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if img.Segments[0].Address != 0x0110 {
		t.Errorf("segment at %04X, want 0x0110", img.Segments[0].Address)
	}

	// Linear base 0x10000 is past the Z80 address space
	src = ":020000040001F9\n:01001000559A\n"
	if _, err := Parse("lin.hex", FormatIntelHex, []uint8(src), Options{}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("linear address error = %v, want ErrTooLarge", err)
	}

	// Data running off the end
	if _, err := Parse("end.hex", FormatIntelHex, []uint8(":02FFFF000102FD\n"), Options{}); !errors.Is(err, ErrTooLarge) {
		t.Errorf("overflowing record error = %v, want ErrTooLarge", err)
	}
}

func TestParseIntelHexErrors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		want     error
		wantLine string
	}{
		{"bad checksum", ":030100003E427607\n", ErrChecksum, "line 1"},
		{"missing colon", "030100003E427606\n", ErrMalformedRecord, "line 1"},
		{"odd digits", ":030100003E42760\n", ErrMalformedRecord, "line 1"},
		{"short count", ":020100003E427606\n", ErrMalformedRecord, "line 1"},
		{"unknown type", ":00000007F9\n", ErrMalformedRecord, "line 1"},
		{"data after EOF", ":00000001FF\n:01010300C932\n", ErrMalformedRecord, "line 2"},
		{"no data", ":00000001FF\n", ErrEmpty, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.hex", FormatIntelHex, []uint8(tt.src), Options{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !strings.Contains(err.Error(), tt.wantLine) {
				t.Errorf("error %q does not name %q", err, tt.wantLine)
			}
		})
	}
}

func TestLoadInto(t *testing.T) {
	img, err := Parse("prog.hex", FormatIntelHex, []uint8(sampleHex), Options{})
	if err != nil {
		t.Fatal(err)
	}
	ram, _ := memory.NewPlain(memory.AddressSpaceSize)
	if err := img.LoadInto(ram); err != nil {
		t.Fatalf("LoadInto() error = %v", err)
	}
	if ram.Read(0x0100) != 0x3E || ram.Read(0x0103) != 0xC9 || ram.Read(0x2001) != 0xBB {
		t.Errorf("memory = %02X %02X %02X", ram.Read(0x0100), ram.Read(0x0103), ram.Read(0x2001))
	}

	small, _ := memory.NewPlain(0x1000)
	if err := img.LoadInto(small); !errors.Is(err, memory.ErrOutOfRange) {
		t.Errorf("LoadInto() small memory error = %v, want ErrOutOfRange", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TEST.COM")
	if err := os.WriteFile(path, []uint8{0x00, 0x76}, 0o600); err != nil {
		t.Fatal(err)
	}

	img, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if img.Name != "TEST.COM" || img.Format != FormatCOM {
		t.Errorf("image = %q %v", img.Name, img.Format)
	}

	if _, err := Load(filepath.Join(dir, "missing.com"), Options{}); err == nil {
		t.Error("Load() of a missing file should fail")
	}
	if FormatIntelHex.String() != "Intel HEX" {
		t.Errorf("String() = %q", FormatIntelHex.String())
	}
}
