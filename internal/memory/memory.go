// Package memory implements the Z80 address and port spaces.
//
// A Plain memory is a flat byte array. A Bus layers memory-mapped devices
// (such as a text screen) over a Plain backing store. AccessMap holds the
// per-address access modes and wait states the processor consults on every
// bus cycle.
package memory

import (
	"errors"
	"fmt"
)

// Space sizes.
const (
	AddressSpaceSize  = 0x10000
	PortSpaceSize     = 0x100
	ExtendedPortSpace = 0x10000
)

var (
	// ErrInvalidSize is returned when a memory is created with a size outside 1..64 KiB.
	ErrInvalidSize = errors.New("memory size must be between 1 and 65536 bytes")
	// ErrOutOfRange is returned when a block transfer does not fit in the memory.
	ErrOutOfRange = errors.New("address range out of bounds")
	// ErrInvalidRange is returned when an access map range is negative or too long.
	ErrInvalidRange = errors.New("invalid address range")
	// ErrOverlap is returned when a device is mapped over another device.
	ErrOverlap = errors.New("device range overlaps an existing mapping")
)

// Memory is a byte-addressable space.
type Memory interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	Size() int
}

// Plain is RAM with no side effects.
type Plain struct {
	data []uint8
}

// NewPlain creates a zero-filled memory of the given size.
func NewPlain(size int) (*Plain, error) {
	if size < 1 || size > AddressSpaceSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	return &Plain{data: make([]uint8, size)}, nil
}

// Read returns the byte at addr. Addresses past the end read as 0xFF.
func (p *Plain) Read(addr uint16) uint8 {
	if int(addr) >= len(p.data) {
		return 0xFF
	}
	return p.data[addr]
}

// Write stores value at addr. Addresses past the end are ignored.
func (p *Plain) Write(addr uint16, value uint8) {
	if int(addr) >= len(p.data) {
		return
	}
	p.data[addr] = value
}

// Size returns the number of bytes in the memory.
func (p *Plain) Size() int {
	return len(p.data)
}

// SetContents copies length bytes of data, starting at offset, into the
// memory at start. A negative length copies everything from offset onwards.
func (p *Plain) SetContents(start int, data []uint8, offset, length int) error {
	if length < 0 {
		length = len(data) - offset
	}
	if start < 0 || offset < 0 || length < 0 || offset+length > len(data) {
		return fmt.Errorf("%w: source offset %d length %d of %d bytes", ErrOutOfRange, offset, length, len(data))
	}
	if start+length > len(p.data) {
		return fmt.Errorf("%w: %d bytes at 0x%04X exceed memory size %d", ErrOutOfRange, length, start, len(p.data))
	}
	copy(p.data[start:], data[offset:offset+length])
	return nil
}

// GetContents returns a copy of length bytes starting at start.
func (p *Plain) GetContents(start, length int) ([]uint8, error) {
	if start < 0 || length < 0 || start+length > len(p.data) {
		return nil, fmt.Errorf("%w: %d bytes at 0x%04X exceed memory size %d", ErrOutOfRange, length, start, len(p.data))
	}
	out := make([]uint8, length)
	copy(out, p.data[start:start+length])
	return out, nil
}

// Device is a memory-mapped peripheral. Offsets are relative to the start
// of the device's mapping.
type Device interface {
	Read(offset uint16) uint8
	Write(offset uint16, value uint8)
}

type region struct {
	start, end int // end is exclusive
	device     Device
}

// Bus routes reads and writes to mapped devices, falling back to RAM.
type Bus struct {
	ram     *Plain
	regions []region
}

// NewBus creates a bus over a full 64 KiB RAM.
func NewBus() *Bus {
	ram, _ := NewPlain(AddressSpaceSize)
	return &Bus{ram: ram}
}

// RAM returns the backing store.
func (b *Bus) RAM() *Plain {
	return b.ram
}

// Map attaches a device to length bytes starting at start.
func (b *Bus) Map(start, length int, dev Device) error {
	if start < 0 || length <= 0 || start+length > AddressSpaceSize {
		return fmt.Errorf("%w: start 0x%04X length %d", ErrInvalidRange, start, length)
	}
	end := start + length
	for _, r := range b.regions {
		if start < r.end && r.start < end {
			return fmt.Errorf("%w: 0x%04X-0x%04X", ErrOverlap, start, end-1)
		}
	}
	b.regions = append(b.regions, region{start: start, end: end, device: dev})
	return nil
}

func (b *Bus) lookup(addr uint16) (Device, uint16, bool) {
	a := int(addr)
	for _, r := range b.regions {
		if a >= r.start && a < r.end {
			return r.device, uint16(a - r.start), true //nolint:gosec // G115: offset is below 64 KiB
		}
	}
	return nil, 0, false
}

// Read reads a byte from the bus.
func (b *Bus) Read(addr uint16) uint8 {
	if dev, off, ok := b.lookup(addr); ok {
		return dev.Read(off)
	}
	return b.ram.Read(addr)
}

// Write writes a byte to the bus.
func (b *Bus) Write(addr uint16, value uint8) {
	if dev, off, ok := b.lookup(addr); ok {
		dev.Write(off, value)
		return
	}
	b.ram.Write(addr, value)
}

// Size returns the size of the address space.
func (b *Bus) Size() int {
	return AddressSpaceSize
}
