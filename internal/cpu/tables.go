package cpu

// instruction executes one instruction whose opcode bytes up to and
// including the one that selected it have been fetched, and returns the
// T-states taken.
type instruction func(c *CPU) int

// indexedInstruction executes a DDCB or FDCB instruction. The displacement
// byte has already been fetched and is passed in.
type indexedInstruction func(c *CPU, d uint8) int

// Dispatch tables. They are filled in once by init and only read afterwards,
// so every CPU instance shares them.
var (
	mainTable    [256]instruction
	cbTable      [256]instruction
	edPlainTable [64]instruction // 0x40-0x7F
	edBlockTable [32]instruction // 0xA0-0xBF, gaps are never reached
	ddTable      [256]instruction
	fdTable      [256]instruction
	ddcbTable    [256]indexedInstruction
	fdcbTable    [256]indexedInstruction
)

func init() {
	buildMainTable(&mainTable)
	buildCBTable(&cbTable)
	buildEDTables(&edPlainTable, &edBlockTable)
	buildIndexTable(&ddTable, regIX)
	buildIndexTable(&fdTable, regIY)
	buildIndexedCBTable(&ddcbTable, regIX)
	buildIndexedCBTable(&fdcbTable, regIY)
}

// Operand decoding shared by the table builders.

// operandHL is the 3-bit operand code that selects (HL) instead of a register.
const operandHL = 6

// reg8 returns the register selected by a 3-bit operand code
// (B, C, D, E, H, L, -, A). It returns nil for operandHL.
func (c *CPU) reg8(code uint8) *uint8 {
	switch code & 0x07 {
	case 0:
		return &c.r.B
	case 1:
		return &c.r.C
	case 2:
		return &c.r.D
	case 3:
		return &c.r.E
	case 4:
		return &c.r.H
	case 5:
		return &c.r.L
	case 7:
		return &c.r.A
	}
	return nil
}

// operand reads the register or (HL) selected by a 3-bit operand code.
func (c *CPU) operand(code uint8) uint8 {
	if code&0x07 == operandHL {
		return c.read(c.r.HL())
	}
	return *c.reg8(code)
}

// setOperand writes the register or (HL) selected by a 3-bit operand code.
func (c *CPU) setOperand(code uint8, value uint8) {
	if code&0x07 == operandHL {
		c.write(c.r.HL(), value)
		return
	}
	*c.reg8(code) = value
}

// pair returns the register pair selected by a 2-bit code (BC, DE, HL, SP).
func (c *CPU) pair(code uint8) uint16 {
	switch code & 0x03 {
	case 0:
		return c.r.BC()
	case 1:
		return c.r.DE()
	case 2:
		return c.r.HL()
	default:
		return c.r.SP
	}
}

// setPair sets the register pair selected by a 2-bit code (BC, DE, HL, SP).
func (c *CPU) setPair(code uint8, value uint16) {
	switch code & 0x03 {
	case 0:
		c.r.SetBC(value)
	case 1:
		c.r.SetDE(value)
	case 2:
		c.r.SetHL(value)
	default:
		c.r.SP = value
	}
}

// stackPair returns the register pair selected by a 2-bit PUSH/POP code
// (BC, DE, HL, AF).
func (c *CPU) stackPair(code uint8) uint16 {
	if code&0x03 == 3 {
		return c.r.AF()
	}
	return c.pair(code)
}

// setStackPair sets the register pair selected by a 2-bit PUSH/POP code.
func (c *CPU) setStackPair(code uint8, value uint16) {
	if code&0x03 == 3 {
		c.r.SetAF(value)
		return
	}
	c.setPair(code, value)
}
