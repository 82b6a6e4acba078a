package cpu

// buildCBTable fills the CB-prefixed table. The opcode is decoded as
// xx yyy zzz: xx selects shift/BIT/RES/SET, yyy the shift kind or the bit
// number and zzz the operand.
func buildCBTable(t *[256]instruction) {
	for op := range 256 {
		opcode := uint8(op) //nolint:gosec // G115: op is in byte range
		y := (opcode >> 3) & 0x07
		z := opcode & 0x07

		switch opcode >> 6 {
		case 0:
			t[opcode] = shiftOperand(y, z)
		case 1:
			t[opcode] = bitOperand(y, z)
		case 2:
			t[opcode] = resBitOperand(y, z)
		default:
			t[opcode] = setBitOperand(y, z)
		}
	}
}

// RLC/RRC/RL/RR/SLA/SRA/SLL/SRL r / (HL)
func shiftOperand(kind, r uint8) instruction {
	cycles := 8
	if r == operandHL {
		cycles = 15
	}
	return func(c *CPU) int {
		c.fetchFinished()
		c.setOperand(r, c.shift(kind, c.operand(r)))
		return cycles
	}
}

// BIT n, r / BIT n, (HL)
func bitOperand(n, r uint8) instruction {
	cycles := 8
	if r == operandHL {
		cycles = 12
	}
	return func(c *CPU) int {
		c.fetchFinished()
		value := c.operand(r)
		// MEMPTR is not modelled, so BIT n,(HL) also takes flags 3 and 5 from the value
		c.bit(n, value, value)
		return cycles
	}
}

// RES n, r / RES n, (HL)
func resBitOperand(n, r uint8) instruction {
	cycles := 8
	if r == operandHL {
		cycles = 15
	}
	return func(c *CPU) int {
		c.fetchFinished()
		c.setOperand(r, withBit(c.operand(r), n, false))
		return cycles
	}
}

// SET n, r / SET n, (HL)
func setBitOperand(n, r uint8) instruction {
	cycles := 8
	if r == operandHL {
		cycles = 15
	}
	return func(c *CPU) int {
		c.fetchFinished()
		c.setOperand(r, withBit(c.operand(r), n, true))
		return cycles
	}
}
