package cpu

// buildEDTables fills the ED-prefixed tables: the 64 instructions in
// 0x40-0x7F and the 32 slots of the block instruction range 0xA0-0xBF.
func buildEDTables(plain *[64]instruction, block *[32]instruction) {
	for i := range 64 {
		opcode := uint8(0x40 + i) //nolint:gosec // G115: opcode is in byte range
		y := (opcode >> 3) & 0x07
		z := opcode & 0x07
		p := y >> 1

		var handler instruction
		switch z {
		case 0:
			handler = inOperandC(y)
		case 1:
			handler = outCOperand(y)
		case 2:
			if y&1 == 0 {
				handler = sbcHLPair(p)
			} else {
				handler = adcHLPair(p)
			}
		case 3:
			if y&1 == 0 {
				handler = ldIndirectNNPair(p)
			} else {
				handler = ldPairIndirectNN(p)
			}
		case 4:
			handler = neg
		case 5:
			if y == 1 {
				handler = reti
			} else {
				handler = retn
			}
		case 6:
			handler = im([4]uint8{0, 0, 1, 2}[y&0x03])
		default:
			handler = [8]instruction{ldIA, ldRA, ldAI, ldAR, rrd, rld, edNop, edNop}[y]
		}
		plain[i] = handler
	}

	// Block instructions: bits 0-1 select LD/CP/IN/OUT, bit 3 the
	// direction and bit 4 the repeating form.
	for i := range 32 {
		opcode := uint8(0xA0 + i) //nolint:gosec // G115: opcode is in byte range
		if opcode&0x04 != 0 {
			continue
		}
		var delta uint16 = 1
		if opcode&0x08 != 0 {
			delta = 0xFFFF
		}
		repeat := opcode&0x10 != 0

		switch opcode & 0x03 {
		case 0:
			block[i] = blockLoad(delta, repeat)
		case 1:
			block[i] = blockCompare(delta, repeat)
		case 2:
			block[i] = blockIn(delta, repeat)
		default:
			block[i] = blockOut(delta, repeat)
		}
	}
}

// ED 77, ED 7F: no operation
func edNop(c *CPU) int {
	c.fetchFinished()
	return 8
}

// IN r, (C). IN F, (C) only updates the flags.
func inOperandC(r uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		value := c.in(c.r.C, c.r.B)
		c.r.F = c.r.F&FlagC | sz53p[value]
		if r != operandHL {
			*c.reg8(r) = value
		}
		return 12
	}
}

// OUT (C), r. OUT (C), 0 writes zero.
func outCOperand(r uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		var value uint8
		if r != operandHL {
			value = *c.reg8(r)
		}
		c.out(c.r.C, c.r.B, value)
		return 12
	}
}

// SBC HL, rr
func sbcHLPair(p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.r.SetHL(c.sbc16(c.r.HL(), c.pair(p)))
		return 15
	}
}

// ADC HL, rr
func adcHLPair(p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.r.SetHL(c.adc16(c.r.HL(), c.pair(p)))
		return 15
	}
}

// LD (nn), rr
func ldIndirectNNPair(p uint8) instruction {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.fetchFinished()
		c.writeWord(addr, c.pair(p))
		return 20
	}
}

// LD rr, (nn)
func ldPairIndirectNN(p uint8) instruction {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.NotifyFetchFinished(FetchFinished{IsLdSpInstruction: p == 3})
		c.setPair(p, c.readWord(addr))
		return 20
	}
}

// NEG
func neg(c *CPU) int {
	c.fetchFinished()
	c.r.A = c.sub8(0, c.r.A, false)
	return 8
}

// RETN
func retn(c *CPU) int {
	c.NotifyFetchFinished(FetchFinished{IsRetInstruction: true})
	c.r.IFF1 = c.r.IFF2
	c.r.PC = c.pop()
	return 14
}

// RETI
func reti(c *CPU) int {
	c.NotifyFetchFinished(FetchFinished{IsRetInstruction: true})
	c.r.IFF1 = c.r.IFF2
	c.r.PC = c.pop()
	return 14
}

// IM 0/1/2
func im(mode uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.agent.SetInterruptMode(mode)
		return 8
	}
}

// LD I, A
func ldIA(c *CPU) int {
	c.fetchFinished()
	c.r.I = c.r.A
	return 9
}

// LD R, A
func ldRA(c *CPU) int {
	c.fetchFinished()
	c.r.R = c.r.A
	return 9
}

// LD A, I
func ldAI(c *CPU) int {
	c.fetchFinished()
	c.loadAFromSpecial(c.r.I)
	return 9
}

// LD A, R
func ldAR(c *CPU) int {
	c.fetchFinished()
	c.loadAFromSpecial(c.r.R)
	return 9
}

// loadAFromSpecial loads A from I or R. P/V reflects IFF2.
func (c *CPU) loadAFromSpecial(value uint8) {
	c.r.A = value
	f := c.r.F&FlagC | sz53[value]
	if c.r.IFF2 {
		f |= FlagPV
	}
	c.r.F = f
}

// RRD
func rrd(c *CPU) int {
	c.fetchFinished()
	addr := c.r.HL()
	value := c.read(addr)
	c.write(addr, c.r.A<<4|value>>4)
	c.r.A = c.r.A&0xF0 | value&0x0F
	c.r.F = c.r.F&FlagC | sz53p[c.r.A]
	return 18
}

// RLD
func rld(c *CPU) int {
	c.fetchFinished()
	addr := c.r.HL()
	value := c.read(addr)
	c.write(addr, value<<4|c.r.A&0x0F)
	c.r.A = c.r.A&0xF0 | value>>4
	c.r.F = c.r.F&FlagC | sz53p[c.r.A]
	return 18
}

// Block instructions. delta is 1 for the incrementing forms and 0xFFFF
// for the decrementing ones. Repeating forms step PC back to the prefix
// while they have more work to do.

// LDI, LDD, LDIR, LDDR
func blockLoad(delta uint16, repeat bool) instruction {
	return func(c *CPU) int {
		c.fetchFinished()

		value := c.read(c.r.HL())
		c.write(c.r.DE(), value)
		c.r.SetHL(c.r.HL() + delta)
		c.r.SetDE(c.r.DE() + delta)
		counter := c.r.BC() - 1
		c.r.SetBC(counter)

		n := value + c.r.A
		f := c.r.F & (FlagS | FlagZ | FlagC)
		f |= n & Flag3
		if n&0x02 != 0 {
			f |= Flag5
		}
		if counter != 0 {
			f |= FlagPV
		}
		c.r.F = f

		if repeat && counter != 0 {
			c.r.PC -= 2
			return 21
		}
		return 16
	}
}

// CPI, CPD, CPIR, CPDR
func blockCompare(delta uint16, repeat bool) instruction {
	return func(c *CPU) int {
		c.fetchFinished()

		value := c.read(c.r.HL())
		result := c.r.A - value
		halfCarry := (c.r.A^value^result)&FlagH != 0
		c.r.SetHL(c.r.HL() + delta)
		counter := c.r.BC() - 1
		c.r.SetBC(counter)

		f := c.r.F&FlagC | FlagN | result&FlagS
		if result == 0 {
			f |= FlagZ
		}
		if halfCarry {
			f |= FlagH
		}
		if counter != 0 {
			f |= FlagPV
		}
		n := result - boolToUint8(halfCarry)
		f |= n & Flag3
		if n&0x02 != 0 {
			f |= Flag5
		}
		c.r.F = f

		if repeat && counter != 0 && result != 0 {
			c.r.PC -= 2
			return 21
		}
		return 16
	}
}

// setBlockIOFlags sets the flags after INI/OUTI and friends from the
// decremented B.
func (c *CPU) setBlockIOFlags() {
	c.r.F = c.r.F&(FlagH|FlagPV|FlagC) | sz53[c.r.B] | FlagN
}

// INI, IND, INIR, INDR
func blockIn(delta uint16, repeat bool) instruction {
	return func(c *CPU) int {
		c.fetchFinished()

		value := c.in(c.r.C, c.r.B)
		c.write(c.r.HL(), value)
		c.r.SetHL(c.r.HL() + delta)
		c.r.B--
		c.setBlockIOFlags()

		if repeat && c.r.B != 0 {
			c.r.PC -= 2
			return 21
		}
		return 16
	}
}

// OUTI, OUTD, OTIR, OTDR. B is decremented before the port is written.
func blockOut(delta uint16, repeat bool) instruction {
	return func(c *CPU) int {
		c.fetchFinished()

		value := c.read(c.r.HL())
		c.r.B--
		c.out(c.r.C, c.r.B, value)
		c.r.SetHL(c.r.HL() + delta)
		c.setBlockIOFlags()

		if repeat && c.r.B != 0 {
			c.r.PC -= 2
			return 21
		}
		return 16
	}
}
