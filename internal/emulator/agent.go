package emulator

import (
	"github.com/richardwooding/z80emu/internal/cpu"
	"github.com/richardwooding/z80emu/internal/memory"
)

// Processor implements the decoder's view of the host.
var (
	_ cpu.Agent             = (*Processor)(nil)
	_ cpu.ExtendedPortAgent = (*Processor)(nil)
)

// FetchNextOpcode reads the byte at PC as an M1 cycle and advances PC.
func (p *Processor) FetchNextOpcode() uint8 {
	var opcode uint8
	if p.exec != nil && p.exec.peeked {
		p.addWaitStates(p.memoryMap.M1WaitStates(p.exec.peekedAddress))
		opcode = p.exec.peekedOpcode
		p.exec.peeked = false
	} else {
		addr := p.registers.PC
		opcode = p.access(memAccess, addr, p.memoryMap.Mode(addr), p.memoryMap.M1WaitStates(addr))
	}
	if p.exec != nil {
		p.exec.event.Opcode = append(p.exec.event.Opcode, opcode)
	}
	p.registers.PC++
	return opcode
}

// PeekNextOpcode reads the byte at PC without advancing PC. Wait states
// are charged when the byte is later fetched.
func (p *Processor) PeekNextOpcode() uint8 {
	if p.exec != nil && p.exec.peeked {
		return p.exec.peekedOpcode
	}
	addr := p.registers.PC
	opcode := p.access(memAccess, addr, p.memoryMap.Mode(addr), 0)
	if p.exec != nil {
		p.exec.peeked = true
		p.exec.peekedOpcode = opcode
		p.exec.peekedAddress = addr
	}
	return opcode
}

// ReadFromMemory reads a data byte.
func (p *Processor) ReadFromMemory(addr uint16) uint8 {
	return p.readMemory(addr)
}

// WriteToMemory writes a data byte.
func (p *Processor) WriteToMemory(addr uint16, value uint8) {
	p.writeMemory(addr, value)
}

// ReadFromPort reads an 8-bit port.
func (p *Processor) ReadFromPort(port uint8) uint8 {
	return p.readPort(uint16(port))
}

// WriteToPort writes an 8-bit port.
func (p *Processor) WriteToPort(port uint8, value uint8) {
	p.writePort(uint16(port), value)
}

// ReadFromExtendedPort reads a port. The high byte is only decoded when
// extended ports are enabled.
func (p *Processor) ReadFromExtendedPort(low, high uint8) uint8 {
	return p.readPort(p.portAddress(low, high))
}

// WriteToExtendedPort writes a port. The high byte is only decoded when
// extended ports are enabled.
func (p *Processor) WriteToExtendedPort(low, high uint8, value uint8) {
	p.writePort(p.portAddress(low, high), value)
}

// SetInterruptMode records the mode selected by IM. Values above 2 are ignored.
func (p *Processor) SetInterruptMode(mode uint8) {
	if mode > 2 {
		p.log.WithError(ErrInterruptMode).WithField("mode", mode).Warn("ignoring invalid interrupt mode")
		return
	}
	p.registers.IM = mode
}

// Registers returns the register file.
func (p *Processor) Registers() *cpu.Registers {
	return p.registers
}

func (p *Processor) portAddress(low, high uint8) uint16 {
	if p.extendedPorts {
		return uint16(high)<<8 | uint16(low)
	}
	return uint16(low)
}

func (p *Processor) addWaitStates(n uint8) {
	if p.exec != nil {
		p.exec.waitStates += int(n)
	}
}

func (p *Processor) readMemory(addr uint16) uint8 {
	return p.access(memAccess, addr, p.memoryMap.Mode(addr), p.memoryMap.WaitStates(addr))
}

func (p *Processor) writeMemory(addr uint16, value uint8) {
	p.store(memAccess, addr, value, p.memoryMap.Mode(addr), p.memoryMap.WaitStates(addr))
}

func (p *Processor) readPort(port uint16) uint8 {
	return p.access(portAccess, port, p.portMap.Mode(port), p.portMap.WaitStates(port))
}

func (p *Processor) writePort(port uint16, value uint8) {
	p.store(portAccess, port, value, p.portMap.Mode(port), p.portMap.WaitStates(port))
}

// space selects the event kinds and backing store of an access.
type space uint8

const (
	memAccess space = iota
	portAccess
)

func (p *Processor) target(s space) (memory.Memory, AccessKind) {
	if s == portAccess {
		return p.ports, BeforePortRead
	}
	return p.memory, BeforeMemoryRead
}

// access performs a read, firing the before and after events around it.
// Reads that are cancelled or not permitted return 0xFF unless a hook
// supplies a value.
func (p *Processor) access(s space, addr uint16, mode memory.AccessMode, waitStates uint8) uint8 {
	mem, before := p.target(s)
	p.addWaitStates(waitStates)

	if len(p.memoryAccess) == 0 {
		if mode.CanRead() {
			return mem.Read(addr)
		}
		return 0xFF
	}

	e := p.fireAccess(before, addr, 0xFF, nil, false)
	value := e.Value
	if !e.CancelAccess && mode.CanRead() {
		value = mem.Read(addr)
	}
	after := p.fireAccess(before+1, addr, value, e.LocalUserState, e.CancelAccess)
	return after.Value
}

// store performs a write, firing the before and after events around it.
func (p *Processor) store(s space, addr uint16, value uint8, mode memory.AccessMode, waitStates uint8) {
	mem, before := p.target(s)
	before += BeforeMemoryWrite - BeforeMemoryRead
	p.addWaitStates(waitStates)

	if len(p.memoryAccess) == 0 {
		if mode.CanWrite() {
			mem.Write(addr, value)
		}
		return
	}

	e := p.fireAccess(before, addr, value, nil, false)
	if !e.CancelAccess && mode.CanWrite() {
		mem.Write(addr, e.Value)
	}
	p.fireAccess(before+1, addr, e.Value, e.LocalUserState, e.CancelAccess)
}
