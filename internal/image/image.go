// Package image loads Z80 program images into memory.
//
// Three formats are understood:
//   - CP/M .COM files, loaded at 0x0100
//   - raw binaries (.bin, .rom), loaded at a caller-chosen address
//   - Intel HEX (.hex, .ihx), which carry their own addresses
package image

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/richardwooding/z80emu/internal/memory"
)

// CPMLoadAddress is where CP/M loads transient programs.
const CPMLoadAddress = 0x0100

// Format identifies an image file format.
type Format uint8

// Image formats.
const (
	FormatRaw Format = iota
	FormatCOM
	FormatIntelHex
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatRaw:
		return "raw binary"
	case FormatCOM:
		return "CP/M COM"
	case FormatIntelHex:
		return "Intel HEX"
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

var (
	// ErrUnknownFormat is returned for file extensions with no known format.
	ErrUnknownFormat = errors.New("unknown image format")
	// ErrTooLarge is returned when an image does not fit in the address space.
	ErrTooLarge = errors.New("image does not fit in 64 KiB")
	// ErrEmpty is returned for images with no data.
	ErrEmpty = errors.New("image is empty")
)

// Segment is a contiguous run of bytes at a fixed address.
type Segment struct {
	Address uint16
	Data    []uint8
}

// End returns the address one past the segment.
func (s Segment) End() int {
	return int(s.Address) + len(s.Data)
}

// Image is a loaded program.
type Image struct {
	Name     string
	Format   Format
	Segments []Segment
}

// Options control how images are interpreted.
type Options struct {
	// LoadAddress is where raw binaries are placed.
	LoadAddress uint16
}

// FormatForPath picks the format from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".com":
		return FormatCOM, nil
	case ".bin", ".rom":
		return FormatRaw, nil
	case ".hex", ".ihx":
		return FormatIntelHex, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
}

// Load reads and parses an image file.
func Load(path string, opts Options) (*Image, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	// #nosec G304 - path is provided by the user via CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	img, err := Parse(filepath.Base(path), format, data, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Parse interprets data in the given format.
func Parse(name string, format Format, data []uint8, opts Options) (*Image, error) {
	img := &Image{Name: name, Format: format}

	switch format {
	case FormatCOM:
		seg, err := binarySegment(CPMLoadAddress, data)
		if err != nil {
			return nil, err
		}
		img.Segments = []Segment{seg}
	case FormatRaw:
		seg, err := binarySegment(opts.LoadAddress, data)
		if err != nil {
			return nil, err
		}
		img.Segments = []Segment{seg}
	case FormatIntelHex:
		segs, err := parseIntelHex(data)
		if err != nil {
			return nil, err
		}
		img.Segments = segs
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}
	return img, nil
}

func binarySegment(addr uint16, data []uint8) (Segment, error) {
	if len(data) == 0 {
		return Segment{}, ErrEmpty
	}
	if int(addr)+len(data) > memory.AddressSpaceSize {
		return Segment{}, fmt.Errorf("%w: %d bytes at 0x%04X", ErrTooLarge, len(data), addr)
	}
	return Segment{Address: addr, Data: data}, nil
}

// LoadInto writes every segment to m.
func (img *Image) LoadInto(m memory.Memory) error {
	for _, seg := range img.Segments {
		if seg.End() > m.Size() {
			return fmt.Errorf("%w: segment 0x%04X-0x%04X beyond memory size %d",
				memory.ErrOutOfRange, seg.Address, seg.End()-1, m.Size())
		}
		for i, b := range seg.Data {
			m.Write(seg.Address+uint16(i), b) //nolint:gosec // G115: bounded by End() check
		}
	}
	return nil
}

// Entry returns the address execution should start at: 0x0100 for COM
// files, otherwise the lowest segment address.
func (img *Image) Entry() uint16 {
	if img.Format == FormatCOM {
		return CPMLoadAddress
	}
	if len(img.Segments) == 0 {
		return 0
	}
	entry := img.Segments[0].Address
	for _, seg := range img.Segments[1:] {
		entry = min(entry, seg.Address)
	}
	return entry
}

// Size returns the total number of data bytes.
func (img *Image) Size() int {
	n := 0
	for _, seg := range img.Segments {
		n += len(seg.Data)
	}
	return n
}
