package cpu

// indexRegister selects IX (DD prefix) or IY (FD prefix).
type indexRegister uint8

const (
	regIX indexRegister = iota
	regIY
)

func (c *CPU) index(x indexRegister) uint16 {
	if x == regIY {
		return c.r.IY
	}
	return c.r.IX
}

func (c *CPU) setIndex(x indexRegister, value uint16) {
	if x == regIY {
		c.r.IY = value
	} else {
		c.r.IX = value
	}
}

// indexOperand reads a register selected by a 3-bit operand code, with H
// and L replaced by the halves of the index register.
func (c *CPU) indexOperand(x indexRegister, code uint8) uint8 {
	switch code & 0x07 {
	case 4:
		return hi(c.index(x))
	case 5:
		return lo(c.index(x))
	}
	return *c.reg8(code)
}

// setIndexOperand is the write counterpart of indexOperand.
func (c *CPU) setIndexOperand(x indexRegister, code uint8, value uint8) {
	switch code & 0x07 {
	case 4:
		c.setIndex(x, word(value, lo(c.index(x))))
	case 5:
		c.setIndex(x, word(hi(c.index(x)), value))
	default:
		*c.reg8(code) = value
	}
}

// indexPair returns BC, DE, the index register or SP.
func (c *CPU) indexPair(x indexRegister, code uint8) uint16 {
	if code&0x03 == 2 {
		return c.index(x)
	}
	return c.pair(code)
}

// displaced fetches a displacement byte and returns the effective address.
func (c *CPU) displaced(x indexRegister) uint16 {
	d := c.fetchByte()
	return c.index(x) + signExtend(d)
}

// isHalf reports whether an operand code names H or L.
func isHalf(code uint8) bool {
	return code == 4 || code == 5
}

// buildIndexTable fills the table of instructions recognised after a DD or
// FD prefix. Slots left nil make the prefix act as a NOP.
func buildIndexTable(t *[256]instruction, x indexRegister) {
	for p := range uint8(4) {
		t[0x09|p<<4] = addIndexPair(x, p)
	}
	t[0x21] = ldIndexImmediate(x)
	t[0x22] = ldIndirectNNIndex(x)
	t[0x23] = incIndex(x)
	t[0x2A] = ldIndexIndirectNN(x)
	t[0x2B] = decIndex(x)
	t[0x34] = incIndexed(x)
	t[0x35] = decIndexed(x)
	t[0x36] = ldIndexedImmediate(x)

	for _, r := range []uint8{4, 5} {
		t[0x04|r<<3] = incIndexHalf(x, r)
		t[0x05|r<<3] = decIndexHalf(x, r)
		t[0x06|r<<3] = ldIndexHalfImmediate(x, r)
	}

	for dst := range uint8(8) {
		for src := range uint8(8) {
			opcode := 0x40 | dst<<3 | src
			switch {
			case dst == operandHL && src == operandHL:
				// HALT
			case src == operandHL:
				t[opcode] = ldRegisterIndexed(x, dst)
			case dst == operandHL:
				t[opcode] = ldIndexedRegister(x, src)
			case isHalf(dst) || isHalf(src):
				t[opcode] = ldIndexHalves(x, dst, src)
			}
		}
	}

	for op := range uint8(8) {
		for src := range uint8(8) {
			opcode := 0x80 | op<<3 | src
			switch {
			case src == operandHL:
				t[opcode] = aluIndexed(x, op)
			case isHalf(src):
				t[opcode] = aluIndexHalf(x, op, src)
			}
		}
	}

	t[0xE1] = popIndex(x)
	t[0xE3] = exIndirectSPIndex(x)
	t[0xE5] = pushIndex(x)
	t[0xE9] = jpIndex(x)
	t[0xF9] = ldSPIndex(x)
}

// ADD IX, rr
func addIndexPair(x indexRegister, p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setIndex(x, c.add16(c.index(x), c.indexPair(x, p)))
		return 15
	}
}

// LD IX, nn
func ldIndexImmediate(x indexRegister) instruction {
	return func(c *CPU) int {
		value := c.fetchWord()
		c.fetchFinished()
		c.setIndex(x, value)
		return 14
	}
}

// LD (nn), IX
func ldIndirectNNIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.fetchFinished()
		c.writeWord(addr, c.index(x))
		return 20
	}
}

// LD IX, (nn)
func ldIndexIndirectNN(x indexRegister) instruction {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.fetchFinished()
		c.setIndex(x, c.readWord(addr))
		return 20
	}
}

// INC IX
func incIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setIndex(x, c.index(x)+1)
		return 10
	}
}

// DEC IX
func decIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setIndex(x, c.index(x)-1)
		return 10
	}
}

// INC (IX+d)
func incIndexed(x indexRegister) instruction {
	return func(c *CPU) int {
		addr := c.displaced(x)
		c.fetchFinished()
		c.write(addr, c.inc8(c.read(addr)))
		return 23
	}
}

// DEC (IX+d)
func decIndexed(x indexRegister) instruction {
	return func(c *CPU) int {
		addr := c.displaced(x)
		c.fetchFinished()
		c.write(addr, c.dec8(c.read(addr)))
		return 23
	}
}

// LD (IX+d), n
func ldIndexedImmediate(x indexRegister) instruction {
	return func(c *CPU) int {
		addr := c.displaced(x)
		value := c.fetchByte()
		c.fetchFinished()
		c.write(addr, value)
		return 19
	}
}

// INC IXH / INC IXL
func incIndexHalf(x indexRegister, r uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setIndexOperand(x, r, c.inc8(c.indexOperand(x, r)))
		return 8
	}
}

// DEC IXH / DEC IXL
func decIndexHalf(x indexRegister, r uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setIndexOperand(x, r, c.dec8(c.indexOperand(x, r)))
		return 8
	}
}

// LD IXH, n / LD IXL, n
func ldIndexHalfImmediate(x indexRegister, r uint8) instruction {
	return func(c *CPU) int {
		value := c.fetchByte()
		c.fetchFinished()
		c.setIndexOperand(x, r, value)
		return 11
	}
}

// LD r, (IX+d). H and L are the real registers here.
func ldRegisterIndexed(x indexRegister, dst uint8) instruction {
	return func(c *CPU) int {
		addr := c.displaced(x)
		c.fetchFinished()
		*c.reg8(dst) = c.read(addr)
		return 19
	}
}

// LD (IX+d), r. H and L are the real registers here.
func ldIndexedRegister(x indexRegister, src uint8) instruction {
	return func(c *CPU) int {
		addr := c.displaced(x)
		c.fetchFinished()
		c.write(addr, *c.reg8(src))
		return 19
	}
}

// LD r, r' with IXH/IXL in place of H/L
func ldIndexHalves(x indexRegister, dst, src uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setIndexOperand(x, dst, c.indexOperand(x, src))
		return 8
	}
}

// ALU A, (IX+d)
func aluIndexed(x indexRegister, op uint8) instruction {
	return func(c *CPU) int {
		addr := c.displaced(x)
		c.fetchFinished()
		c.alu(op, c.read(addr))
		return 19
	}
}

// ALU A, IXH / ALU A, IXL
func aluIndexHalf(x indexRegister, op, src uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.alu(op, c.indexOperand(x, src))
		return 8
	}
}

// POP IX
func popIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setIndex(x, c.pop())
		return 14
	}
}

// PUSH IX
func pushIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.push(c.index(x))
		return 15
	}
}

// EX (SP), IX
func exIndirectSPIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		value := c.readWord(c.r.SP)
		c.writeWord(c.r.SP, c.index(x))
		c.setIndex(x, value)
		return 23
	}
}

// JP (IX)
func jpIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.r.PC = c.index(x)
		return 8
	}
}

// LD SP, IX
func ldSPIndex(x indexRegister) instruction {
	return func(c *CPU) int {
		c.NotifyFetchFinished(FetchFinished{IsLdSpInstruction: true})
		c.r.SP = c.index(x)
		return 10
	}
}
