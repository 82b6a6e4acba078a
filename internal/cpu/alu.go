package cpu

// Helper methods for arithmetic operations. Unless stated otherwise the
// undocumented flags 3 and 5 are copies of bits 3 and 5 of the result.

// add8 performs 8-bit addition, optionally adding the carry flag, and sets flags.
func (c *CPU) add8(a, b uint8, carry bool) uint8 {
	carryVal := uint16(0)
	if carry && c.r.CarryFlag() {
		carryVal = 1
	}

	sum := uint16(a) + uint16(b) + carryVal
	result := lo(sum)

	f := sz53[result]
	f |= (a ^ b ^ result) & FlagH
	if (a^b^0x80)&(b^result)&0x80 != 0 {
		f |= FlagPV
	}
	if sum > 0xFF {
		f |= FlagC
	}
	c.r.F = f

	return result
}

// sub8 performs 8-bit subtraction, optionally subtracting the carry flag, and sets flags.
func (c *CPU) sub8(a, b uint8, carry bool) uint8 {
	carryVal := uint16(0)
	if carry && c.r.CarryFlag() {
		carryVal = 1
	}

	diff := uint16(a) - uint16(b) - carryVal
	result := lo(diff)

	f := sz53[result] | FlagN
	f |= (a ^ b ^ result) & FlagH
	if (a^b)&(a^result)&0x80 != 0 {
		f |= FlagPV
	}
	if diff&0x100 != 0 {
		f |= FlagC
	}
	c.r.F = f

	return result
}

// cp compares A with value. Flags 3 and 5 come from the operand, not the
// discarded result.
func (c *CPU) cp(value uint8) {
	c.sub8(c.r.A, value, false)
	c.r.F = (c.r.F &^ flags35) | (value & flags35)
}

// and performs bitwise AND with A and sets flags.
func (c *CPU) and(value uint8) {
	c.r.A &= value
	c.r.F = sz53p[c.r.A] | FlagH
}

// or performs bitwise OR with A and sets flags.
func (c *CPU) or(value uint8) {
	c.r.A |= value
	c.r.F = sz53p[c.r.A]
}

// xor performs bitwise XOR with A and sets flags.
func (c *CPU) xor(value uint8) {
	c.r.A ^= value
	c.r.F = sz53p[c.r.A]
}

// alu applies one of the eight accumulator operations selected by bits 3-5
// of the opcode: ADD, ADC, SUB, SBC, AND, XOR, OR, CP.
func (c *CPU) alu(op uint8, value uint8) {
	switch op & 0x07 {
	case 0:
		c.r.A = c.add8(c.r.A, value, false)
	case 1:
		c.r.A = c.add8(c.r.A, value, true)
	case 2:
		c.r.A = c.sub8(c.r.A, value, false)
	case 3:
		c.r.A = c.sub8(c.r.A, value, true)
	case 4:
		c.and(value)
	case 5:
		c.xor(value)
	case 6:
		c.or(value)
	default:
		c.cp(value)
	}
}

// inc8 increments an 8-bit value and sets flags.
func (c *CPU) inc8(value uint8) uint8 {
	result := value + 1

	f := c.r.F&FlagC | sz53[result]
	if value&0x0F == 0x0F {
		f |= FlagH
	}
	if value == 0x7F {
		f |= FlagPV
	}
	c.r.F = f
	// Carry flag not affected

	return result
}

// dec8 decrements an 8-bit value and sets flags.
func (c *CPU) dec8(value uint8) uint8 {
	result := value - 1

	f := c.r.F&FlagC | sz53[result] | FlagN
	if value&0x0F == 0 {
		f |= FlagH
	}
	if value == 0x80 {
		f |= FlagPV
	}
	c.r.F = f
	// Carry flag not affected

	return result
}

// add16 performs 16-bit addition (ADD HL/IX/IY, rr). S, Z and P/V are not
// affected; flags 3 and 5 come from the high byte of the result.
func (c *CPU) add16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b)
	result := uint16(sum) //nolint:gosec // G115: Intentional truncation to 16 bits

	f := c.r.F & (FlagS | FlagZ | FlagPV)
	f |= hi(result) & flags35
	if (a^b^result)&0x1000 != 0 {
		f |= FlagH
	}
	if sum > 0xFFFF {
		f |= FlagC
	}
	c.r.F = f

	return result
}

// adc16 performs ADC HL, rr.
func (c *CPU) adc16(a, b uint16) uint16 {
	sum := uint32(a) + uint32(b) + uint32(boolToUint8(c.r.CarryFlag()))
	result := uint16(sum) //nolint:gosec // G115: Intentional truncation to 16 bits

	f := hi(result) & (FlagS | flags35)
	if result == 0 {
		f |= FlagZ
	}
	if (a^b^result)&0x1000 != 0 {
		f |= FlagH
	}
	if (a^b^0x8000)&(b^result)&0x8000 != 0 {
		f |= FlagPV
	}
	if sum > 0xFFFF {
		f |= FlagC
	}
	c.r.F = f

	return result
}

// sbc16 performs SBC HL, rr.
func (c *CPU) sbc16(a, b uint16) uint16 {
	diff := uint32(a) - uint32(b) - uint32(boolToUint8(c.r.CarryFlag()))
	result := uint16(diff) //nolint:gosec // G115: Intentional truncation to 16 bits

	f := hi(result)&(FlagS|flags35) | FlagN
	if result == 0 {
		f |= FlagZ
	}
	if (a^b^result)&0x1000 != 0 {
		f |= FlagH
	}
	if (a^b)&(a^result)&0x8000 != 0 {
		f |= FlagPV
	}
	if diff&0x10000 != 0 {
		f |= FlagC
	}
	c.r.F = f

	return result
}

// daa adjusts A for BCD arithmetic after an addition or subtraction.
func (c *CPU) daa() {
	a := c.r.A
	correction := uint8(0)
	carry := c.r.CarryFlag()

	if c.r.HalfCarryFlag() || a&0x0F > 9 {
		correction |= 0x06
	}
	if carry || a > 0x99 {
		correction |= 0x60
		carry = true
	}

	var result uint8
	if c.r.SubtractFlag() {
		result = a - correction
	} else {
		result = a + correction
	}

	f := sz53p[result] | c.r.F&FlagN
	f |= (a ^ result) & FlagH
	if carry {
		f |= FlagC
	}
	c.r.F = f
	c.r.A = result
}

// Accumulator rotates. S, Z and P/V are preserved.

func (c *CPU) setAccumulatorRotateFlags(carry bool) {
	f := c.r.F&(FlagS|FlagZ|FlagPV) | c.r.A&flags35
	if carry {
		f |= FlagC
	}
	c.r.F = f
}

// rlca rotates A left, bit 7 goes to carry and bit 0.
func (c *CPU) rlca() {
	carry := c.r.A&0x80 != 0
	c.r.A = c.r.A<<1 | c.r.A>>7
	c.setAccumulatorRotateFlags(carry)
}

// rrca rotates A right, bit 0 goes to carry and bit 7.
func (c *CPU) rrca() {
	carry := c.r.A&0x01 != 0
	c.r.A = c.r.A>>1 | c.r.A<<7
	c.setAccumulatorRotateFlags(carry)
}

// rla rotates A left through carry.
func (c *CPU) rla() {
	carry := c.r.A&0x80 != 0
	c.r.A = c.r.A<<1 | boolToUint8(c.r.CarryFlag())
	c.setAccumulatorRotateFlags(carry)
}

// rra rotates A right through carry.
func (c *CPU) rra() {
	carry := c.r.A&0x01 != 0
	c.r.A = c.r.A>>1 | boolToUint8(c.r.CarryFlag())<<7
	c.setAccumulatorRotateFlags(carry)
}

// Rotate and shift helpers for the CB family. S, Z, P/V, 3 and 5 come from
// the result, H and N are cleared.

func (c *CPU) setShiftFlags(result uint8, carry bool) uint8 {
	f := sz53p[result]
	if carry {
		f |= FlagC
	}
	c.r.F = f
	return result
}

// rlc rotates left, bit 7 goes to carry and bit 0.
func (c *CPU) rlc(value uint8) uint8 {
	return c.setShiftFlags(value<<1|value>>7, value&0x80 != 0)
}

// rrc rotates right, bit 0 goes to carry and bit 7.
func (c *CPU) rrc(value uint8) uint8 {
	return c.setShiftFlags(value>>1|value<<7, value&0x01 != 0)
}

// rl rotates left through carry.
func (c *CPU) rl(value uint8) uint8 {
	return c.setShiftFlags(value<<1|boolToUint8(c.r.CarryFlag()), value&0x80 != 0)
}

// rr rotates right through carry.
func (c *CPU) rr(value uint8) uint8 {
	return c.setShiftFlags(value>>1|boolToUint8(c.r.CarryFlag())<<7, value&0x01 != 0)
}

// sla shifts left arithmetic.
func (c *CPU) sla(value uint8) uint8 {
	return c.setShiftFlags(value<<1, value&0x80 != 0)
}

// sra shifts right arithmetic (preserves sign bit).
func (c *CPU) sra(value uint8) uint8 {
	return c.setShiftFlags(value>>1|value&0x80, value&0x01 != 0)
}

// sll shifts left and sets bit 0 (undocumented).
func (c *CPU) sll(value uint8) uint8 {
	return c.setShiftFlags(value<<1|0x01, value&0x80 != 0)
}

// srl shifts right logical.
func (c *CPU) srl(value uint8) uint8 {
	return c.setShiftFlags(value>>1, value&0x01 != 0)
}

// shift applies the rotate or shift selected by bits 3-5 of a CB opcode.
func (c *CPU) shift(op uint8, value uint8) uint8 {
	switch op & 0x07 {
	case 0:
		return c.rlc(value)
	case 1:
		return c.rrc(value)
	case 2:
		return c.rl(value)
	case 3:
		return c.rr(value)
	case 4:
		return c.sla(value)
	case 5:
		return c.sra(value)
	case 6:
		return c.sll(value)
	default:
		return c.srl(value)
	}
}

// bit tests bit n of value. Flags 3 and 5 are copied from undocumented,
// which is the tested value for register operands and the high byte of
// the effective address for indexed ones.
func (c *CPU) bit(n uint8, value uint8, undocumented uint8) {
	f := c.r.F&FlagC | FlagH | undocumented&flags35
	if !bitOf(value, n) {
		f |= FlagZ | FlagPV
	} else if n == 7 {
		f |= FlagS
	}
	c.r.F = f
}
