package cpu

// buildIndexedCBTable fills the DDCB or FDCB table. Every opcode works on
// (IX+d); for shifts, RES and SET an operand code other than (HL) also
// copies the result into that register (undocumented).
func buildIndexedCBTable(t *[256]indexedInstruction, x indexRegister) {
	for op := range 256 {
		opcode := uint8(op) //nolint:gosec // G115: op is in byte range
		y := (opcode >> 3) & 0x07
		z := opcode & 0x07

		switch opcode >> 6 {
		case 0:
			t[opcode] = shiftIndexed(x, y, z)
		case 1:
			t[opcode] = bitIndexed(x, y)
		case 2:
			t[opcode] = resIndexed(x, y, z)
		default:
			t[opcode] = setIndexed(x, y, z)
		}
	}
}

// writeIndexed stores the result of a DDCB/FDCB operation and copies it to
// the register selected by z unless z is the (HL) code.
func (c *CPU) writeIndexed(addr uint16, z uint8, value uint8) {
	c.write(addr, value)
	if z != operandHL {
		*c.reg8(z) = value
	}
}

// RLC/RRC/RL/RR/SLA/SRA/SLL/SRL (IX+d)[, r]
func shiftIndexed(x indexRegister, kind, z uint8) indexedInstruction {
	return func(c *CPU, d uint8) int {
		c.fetchFinished()
		addr := c.index(x) + signExtend(d)
		c.writeIndexed(addr, z, c.shift(kind, c.read(addr)))
		return 23
	}
}

// BIT n, (IX+d). Flags 3 and 5 come from the high byte of the address.
func bitIndexed(x indexRegister, n uint8) indexedInstruction {
	return func(c *CPU, d uint8) int {
		c.fetchFinished()
		addr := c.index(x) + signExtend(d)
		c.bit(n, c.read(addr), hi(addr))
		return 20
	}
}

// RES n, (IX+d)[, r]
func resIndexed(x indexRegister, n, z uint8) indexedInstruction {
	return func(c *CPU, d uint8) int {
		c.fetchFinished()
		addr := c.index(x) + signExtend(d)
		c.writeIndexed(addr, z, withBit(c.read(addr), n, false))
		return 23
	}
}

// SET n, (IX+d)[, r]
func setIndexed(x indexRegister, n, z uint8) indexedInstruction {
	return func(c *CPU, d uint8) int {
		c.fetchFinished()
		addr := c.index(x) + signExtend(d)
		c.writeIndexed(addr, z, withBit(c.read(addr), n, true))
		return 23
	}
}
