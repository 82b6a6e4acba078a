package cpu

// buildMainTable fills the table of unprefixed instructions. Families that
// follow the regular operand encoding are generated, the rest are named.
//
//nolint:funlen // One entry per opcode family
func buildMainTable(t *[256]instruction) {
	// 0x00-0x3F
	t[0x00] = nop
	t[0x02] = ldIndirectBCA
	t[0x07] = rlca
	t[0x08] = exAFAF
	t[0x0A] = ldAIndirectBC
	t[0x0F] = rrca
	t[0x10] = djnz
	t[0x12] = ldIndirectDEA
	t[0x17] = rla
	t[0x18] = jr
	t[0x1A] = ldAIndirectDE
	t[0x1F] = rra
	t[0x22] = ldIndirectNNHL
	t[0x27] = daa
	t[0x2A] = ldHLIndirectNN
	t[0x2F] = cpl
	t[0x32] = ldIndirectNNA
	t[0x37] = scf
	t[0x3A] = ldAIndirectNN
	t[0x3F] = ccf

	for p := range uint8(4) {
		t[0x01|p<<4] = ldPairImmediate(p)
		t[0x03|p<<4] = incPair(p)
		t[0x09|p<<4] = addHLPair(p)
		t[0x0B|p<<4] = decPair(p)
	}

	for cond := range uint8(4) {
		t[0x20|cond<<3] = jrConditional(cond)
	}

	for r := range uint8(8) {
		t[0x04|r<<3] = incOperand(r)
		t[0x05|r<<3] = decOperand(r)
		t[0x06|r<<3] = ldOperandImmediate(r)
	}

	// 0x40-0x7F: LD r, r'
	for dst := range uint8(8) {
		for src := range uint8(8) {
			t[0x40|dst<<3|src] = ldOperandOperand(dst, src)
		}
	}
	t[0x76] = halt

	// 0x80-0xBF: ALU A, r
	for op := range uint8(8) {
		for src := range uint8(8) {
			t[0x80|op<<3|src] = aluOperand(op, src)
		}
	}

	// 0xC0-0xFF
	for cond := range uint8(8) {
		t[0xC0|cond<<3] = retConditional(cond)
		t[0xC2|cond<<3] = jpConditional(cond)
		t[0xC4|cond<<3] = callConditional(cond)
		t[0xC6|cond<<3] = aluImmediate(cond)
		t[0xC7|cond<<3] = rst(uint16(cond) << 3)
	}

	for p := range uint8(4) {
		t[0xC1|p<<4] = pop(p)
		t[0xC5|p<<4] = push(p)
	}

	t[0xC3] = jp
	t[0xC9] = ret
	t[0xCD] = call
	t[0xD3] = outImmediateA
	t[0xD9] = exx
	t[0xDB] = inAImmediate
	t[0xE3] = exIndirectSPHL
	t[0xE9] = jpHL
	t[0xEB] = exDEHL
	t[0xF3] = di
	t[0xF9] = ldSPHL
	t[0xFB] = ei
}

// 0x00: NOP
func nop(c *CPU) int {
	c.fetchFinished()
	return 4
}

// LD rr, nn
func ldPairImmediate(p uint8) instruction {
	return func(c *CPU) int {
		value := c.fetchWord()
		c.NotifyFetchFinished(FetchFinished{IsLdSpInstruction: p == 3})
		c.setPair(p, value)
		return 10
	}
}

// INC rr
func incPair(p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setPair(p, c.pair(p)+1)
		return 6
	}
}

// DEC rr
func decPair(p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setPair(p, c.pair(p)-1)
		return 6
	}
}

// ADD HL, rr
func addHLPair(p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.r.SetHL(c.add16(c.r.HL(), c.pair(p)))
		return 11
	}
}

// 0x02: LD (BC), A
func ldIndirectBCA(c *CPU) int {
	c.fetchFinished()
	c.write(c.r.BC(), c.r.A)
	return 7
}

// 0x12: LD (DE), A
func ldIndirectDEA(c *CPU) int {
	c.fetchFinished()
	c.write(c.r.DE(), c.r.A)
	return 7
}

// 0x0A: LD A, (BC)
func ldAIndirectBC(c *CPU) int {
	c.fetchFinished()
	c.r.A = c.read(c.r.BC())
	return 7
}

// 0x1A: LD A, (DE)
func ldAIndirectDE(c *CPU) int {
	c.fetchFinished()
	c.r.A = c.read(c.r.DE())
	return 7
}

// 0x22: LD (nn), HL
func ldIndirectNNHL(c *CPU) int {
	addr := c.fetchWord()
	c.fetchFinished()
	c.writeWord(addr, c.r.HL())
	return 16
}

// 0x2A: LD HL, (nn)
func ldHLIndirectNN(c *CPU) int {
	addr := c.fetchWord()
	c.fetchFinished()
	c.r.SetHL(c.readWord(addr))
	return 16
}

// 0x32: LD (nn), A
func ldIndirectNNA(c *CPU) int {
	addr := c.fetchWord()
	c.fetchFinished()
	c.write(addr, c.r.A)
	return 13
}

// 0x3A: LD A, (nn)
func ldAIndirectNN(c *CPU) int {
	addr := c.fetchWord()
	c.fetchFinished()
	c.r.A = c.read(addr)
	return 13
}

// INC r / INC (HL)
func incOperand(r uint8) instruction {
	if r == operandHL {
		return func(c *CPU) int {
			c.fetchFinished()
			addr := c.r.HL()
			c.write(addr, c.inc8(c.read(addr)))
			return 11
		}
	}
	return func(c *CPU) int {
		c.fetchFinished()
		reg := c.reg8(r)
		*reg = c.inc8(*reg)
		return 4
	}
}

// DEC r / DEC (HL)
func decOperand(r uint8) instruction {
	if r == operandHL {
		return func(c *CPU) int {
			c.fetchFinished()
			addr := c.r.HL()
			c.write(addr, c.dec8(c.read(addr)))
			return 11
		}
	}
	return func(c *CPU) int {
		c.fetchFinished()
		reg := c.reg8(r)
		*reg = c.dec8(*reg)
		return 4
	}
}

// LD r, n / LD (HL), n
func ldOperandImmediate(r uint8) instruction {
	cycles := 7
	if r == operandHL {
		cycles = 10
	}
	return func(c *CPU) int {
		value := c.fetchByte()
		c.fetchFinished()
		c.setOperand(r, value)
		return cycles
	}
}

// LD r, r' / LD r, (HL) / LD (HL), r
func ldOperandOperand(dst, src uint8) instruction {
	cycles := 4
	if dst == operandHL || src == operandHL {
		cycles = 7
	}
	return func(c *CPU) int {
		c.fetchFinished()
		c.setOperand(dst, c.operand(src))
		return cycles
	}
}

// 0x76: HALT
func halt(c *CPU) int {
	c.NotifyFetchFinished(FetchFinished{IsHaltInstruction: true})
	return 4
}

// ADD/ADC/SUB/SBC/AND/XOR/OR/CP A, r
func aluOperand(op, src uint8) instruction {
	cycles := 4
	if src == operandHL {
		cycles = 7
	}
	return func(c *CPU) int {
		c.fetchFinished()
		c.alu(op, c.operand(src))
		return cycles
	}
}

// ADD/ADC/SUB/SBC/AND/XOR/OR/CP A, n
func aluImmediate(op uint8) instruction {
	return func(c *CPU) int {
		value := c.fetchByte()
		c.fetchFinished()
		c.alu(op, value)
		return 7
	}
}

// Accumulator rotates and flag operations

// 0x07: RLCA
func rlca(c *CPU) int {
	c.fetchFinished()
	c.rlca()
	return 4
}

// 0x0F: RRCA
func rrca(c *CPU) int {
	c.fetchFinished()
	c.rrca()
	return 4
}

// 0x17: RLA
func rla(c *CPU) int {
	c.fetchFinished()
	c.rla()
	return 4
}

// 0x1F: RRA
func rra(c *CPU) int {
	c.fetchFinished()
	c.rra()
	return 4
}

// 0x27: DAA
func daa(c *CPU) int {
	c.fetchFinished()
	c.daa()
	return 4
}

// 0x2F: CPL
func cpl(c *CPU) int {
	c.fetchFinished()
	c.r.A = ^c.r.A
	c.r.F = c.r.F&(FlagS|FlagZ|FlagPV|FlagC) | FlagH | FlagN | c.r.A&flags35
	return 4
}

// 0x37: SCF
func scf(c *CPU) int {
	c.fetchFinished()
	c.r.F = c.r.F&(FlagS|FlagZ|FlagPV) | FlagC | c.r.A&flags35
	return 4
}

// 0x3F: CCF. H takes the old carry.
func ccf(c *CPU) int {
	c.fetchFinished()
	f := c.r.F&(FlagS|FlagZ|FlagPV) | c.r.A&flags35
	if c.r.CarryFlag() {
		f |= FlagH
	} else {
		f |= FlagC
	}
	c.r.F = f
	return 4
}

// Exchanges

// 0x08: EX AF, AF'
func exAFAF(c *CPU) int {
	c.fetchFinished()
	c.r.ExchangeAF()
	return 4
}

// 0xD9: EXX
func exx(c *CPU) int {
	c.fetchFinished()
	c.r.ExchangeMain()
	return 4
}

// 0xEB: EX DE, HL
func exDEHL(c *CPU) int {
	c.fetchFinished()
	de := c.r.DE()
	c.r.SetDE(c.r.HL())
	c.r.SetHL(de)
	return 4
}

// 0xE3: EX (SP), HL
func exIndirectSPHL(c *CPU) int {
	c.fetchFinished()
	value := c.readWord(c.r.SP)
	c.writeWord(c.r.SP, c.r.HL())
	c.r.SetHL(value)
	return 19
}

// Jumps

// 0x10: DJNZ e
func djnz(c *CPU) int {
	d := c.fetchByte()
	c.fetchFinished()
	c.r.B--
	if c.r.B != 0 {
		c.r.PC += signExtend(d)
		return 13
	}
	return 8
}

// 0x18: JR e
func jr(c *CPU) int {
	d := c.fetchByte()
	c.fetchFinished()
	c.r.PC += signExtend(d)
	return 12
}

// JR NZ/Z/NC/C, e
func jrConditional(cond uint8) instruction {
	return func(c *CPU) int {
		d := c.fetchByte()
		c.fetchFinished()
		if c.checkCondition(cond) {
			c.r.PC += signExtend(d)
			return 12
		}
		return 7
	}
}

// 0xC3: JP nn
func jp(c *CPU) int {
	addr := c.fetchWord()
	c.fetchFinished()
	c.r.PC = addr
	return 10
}

// JP cc, nn
func jpConditional(cond uint8) instruction {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.fetchFinished()
		if c.checkCondition(cond) {
			c.r.PC = addr
		}
		return 10
	}
}

// 0xE9: JP (HL)
func jpHL(c *CPU) int {
	c.fetchFinished()
	c.r.PC = c.r.HL()
	return 4
}

// Calls and returns

// 0xCD: CALL nn
func call(c *CPU) int {
	addr := c.fetchWord()
	c.fetchFinished()
	c.push(c.r.PC)
	c.r.PC = addr
	return 17
}

// CALL cc, nn
func callConditional(cond uint8) instruction {
	return func(c *CPU) int {
		addr := c.fetchWord()
		c.fetchFinished()
		if !c.checkCondition(cond) {
			return 10
		}
		c.push(c.r.PC)
		c.r.PC = addr
		return 17
	}
}

// 0xC9: RET
func ret(c *CPU) int {
	c.NotifyFetchFinished(FetchFinished{IsRetInstruction: true})
	c.r.PC = c.pop()
	return 10
}

// RET cc
func retConditional(cond uint8) instruction {
	return func(c *CPU) int {
		taken := c.checkCondition(cond)
		c.NotifyFetchFinished(FetchFinished{IsRetInstruction: taken})
		if !taken {
			return 5
		}
		c.r.PC = c.pop()
		return 11
	}
}

// RST p
func rst(addr uint16) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.push(c.r.PC)
		c.r.PC = addr
		return 11
	}
}

// Stack

// PUSH rr
func push(p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.push(c.stackPair(p))
		return 11
	}
}

// POP rr
func pop(p uint8) instruction {
	return func(c *CPU) int {
		c.fetchFinished()
		c.setStackPair(p, c.pop())
		return 10
	}
}

// 0xF9: LD SP, HL
func ldSPHL(c *CPU) int {
	c.NotifyFetchFinished(FetchFinished{IsLdSpInstruction: true})
	c.r.SP = c.r.HL()
	return 6
}

// Ports

// 0xD3: OUT (n), A
func outImmediateA(c *CPU) int {
	port := c.fetchByte()
	c.fetchFinished()
	c.out(port, c.r.A, c.r.A)
	return 11
}

// 0xDB: IN A, (n)
func inAImmediate(c *CPU) int {
	port := c.fetchByte()
	c.fetchFinished()
	c.r.A = c.in(port, c.r.A)
	return 11
}

// Interrupt flip-flops

// 0xF3: DI
func di(c *CPU) int {
	c.NotifyFetchFinished(FetchFinished{IsEiOrDiInstruction: true})
	c.r.IFF1 = false
	c.r.IFF2 = false
	return 4
}

// 0xFB: EI
func ei(c *CPU) int {
	c.NotifyFetchFinished(FetchFinished{IsEiOrDiInstruction: true})
	c.r.IFF1 = true
	c.r.IFF2 = true
	return 4
}
