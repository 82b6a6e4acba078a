package cpu

// Agent is the host side of the processor: the object that owns the
// registers, memory and ports and drives the fetch loop.
type Agent interface {
	// FetchNextOpcode returns the byte at PC and increments PC.
	FetchNextOpcode() uint8

	// PeekNextOpcode returns the byte at PC without incrementing PC.
	PeekNextOpcode() uint8

	ReadFromMemory(addr uint16) uint8
	WriteToMemory(addr uint16, value uint8)

	ReadFromPort(port uint8) uint8
	WriteToPort(port uint8, value uint8)

	// SetInterruptMode is invoked by the IM 0/1/2 instructions.
	SetInterruptMode(mode uint8)

	Registers() *Registers
}

// ExtendedPortAgent is implemented by hosts that decode the full 16-bit
// port address. The high byte is A for IN A,(n) and OUT (n),A and B for
// the (C) forms and block I/O.
type ExtendedPortAgent interface {
	ReadFromExtendedPort(low, high uint8) uint8
	WriteToExtendedPort(low, high uint8, value uint8)
}
