package memory

import "fmt"

// AccessMode controls whether the processor reaches the underlying memory.
type AccessMode uint8

// Access modes.
const (
	ReadAndWrite AccessMode = iota
	ReadOnly
	WriteOnly
	NotConnected
)

// String returns the mode name.
func (m AccessMode) String() string {
	switch m {
	case ReadAndWrite:
		return "ReadAndWrite"
	case ReadOnly:
		return "ReadOnly"
	case WriteOnly:
		return "WriteOnly"
	case NotConnected:
		return "NotConnected"
	}
	return fmt.Sprintf("AccessMode(%d)", uint8(m))
}

// CanRead reports whether reads reach memory. Other reads see 0xFF.
func (m AccessMode) CanRead() bool {
	return m == ReadAndWrite || m == ReadOnly
}

// CanWrite reports whether writes reach memory.
func (m AccessMode) CanWrite() bool {
	return m == ReadAndWrite || m == WriteOnly
}

// AccessMap stores an access mode and wait state counts for every address
// of a space. M1 wait states apply to opcode fetches only.
type AccessMap struct {
	modes        []AccessMode
	waitStates   []uint8
	m1WaitStates []uint8
}

// NewAccessMap creates a map of the given size with every address
// ReadAndWrite and no wait states.
func NewAccessMap(size int) *AccessMap {
	return &AccessMap{
		modes:        make([]AccessMode, size),
		waitStates:   make([]uint8, size),
		m1WaitStates: make([]uint8, size),
	}
}

// Size returns the number of addresses covered.
func (m *AccessMap) Size() int {
	return len(m.modes)
}

func (m *AccessMap) checkRange(start, length int) error {
	if start < 0 || length < 0 || start+length > len(m.modes) {
		return fmt.Errorf("%w: start 0x%04X length %d beyond 0x%04X", ErrInvalidRange, start, length, len(m.modes)-1)
	}
	return nil
}

// SetMode sets the access mode for length addresses from start.
func (m *AccessMap) SetMode(start, length int, mode AccessMode) error {
	if err := m.checkRange(start, length); err != nil {
		return err
	}
	for i := start; i < start+length; i++ {
		m.modes[i] = mode
	}
	return nil
}

// Mode returns the access mode of addr.
func (m *AccessMap) Mode(addr uint16) AccessMode {
	if int(addr) >= len(m.modes) {
		return NotConnected
	}
	return m.modes[addr]
}

// SetWaitStates sets the wait states for non-M1 accesses.
func (m *AccessMap) SetWaitStates(start, length int, states uint8) error {
	if err := m.checkRange(start, length); err != nil {
		return err
	}
	for i := start; i < start+length; i++ {
		m.waitStates[i] = states
	}
	return nil
}

// WaitStates returns the non-M1 wait states of addr.
func (m *AccessMap) WaitStates(addr uint16) uint8 {
	if int(addr) >= len(m.waitStates) {
		return 0
	}
	return m.waitStates[addr]
}

// SetM1WaitStates sets the wait states for opcode fetches.
func (m *AccessMap) SetM1WaitStates(start, length int, states uint8) error {
	if err := m.checkRange(start, length); err != nil {
		return err
	}
	for i := start; i < start+length; i++ {
		m.m1WaitStates[i] = states
	}
	return nil
}

// M1WaitStates returns the opcode fetch wait states of addr.
func (m *AccessMap) M1WaitStates(addr uint16) uint8 {
	if int(addr) >= len(m.m1WaitStates) {
		return 0
	}
	return m.m1WaitStates[addr]
}
