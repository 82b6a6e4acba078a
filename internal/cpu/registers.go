package cpu

// Flags represents the bits of the F register.
const (
	FlagS  uint8 = 0b10000000 // Sign flag (bit 7)
	FlagZ  uint8 = 0b01000000 // Zero flag (bit 6)
	Flag5  uint8 = 0b00100000 // Undocumented copy of result bit 5
	FlagH  uint8 = 0b00010000 // Half-carry flag (bit 4)
	Flag3  uint8 = 0b00001000 // Undocumented copy of result bit 3
	FlagPV uint8 = 0b00000100 // Parity/overflow flag (bit 2)
	FlagN  uint8 = 0b00000010 // Subtraction flag (bit 1)
	FlagC  uint8 = 0b00000001 // Carry flag (bit 0)
)

// flags35 masks the two undocumented flag bits.
const flags35 = Flag5 | Flag3

// MainRegisters is the part of the register file that has an alternate copy.
type MainRegisters struct {
	A uint8 // Accumulator
	F uint8 // Flags
	B uint8 // General purpose
	C uint8 // General purpose
	D uint8 // General purpose
	E uint8 // General purpose
	H uint8 // General purpose (high byte of HL pointer)
	L uint8 // General purpose (low byte of HL pointer)
}

// Registers represents the complete Z80 register file.
type Registers struct {
	MainRegisters

	// Alternate holds AF', BC', DE' and HL'.
	Alternate MainRegisters

	IX uint16 // Index register X
	IY uint16 // Index register Y
	SP uint16 // Stack pointer
	PC uint16 // Program counter

	I uint8 // Interrupt vector
	R uint8 // Memory refresh counter

	IFF1 bool  // Interrupt enable flip-flop 1
	IFF2 bool  // Interrupt enable flip-flop 2
	IM   uint8 // Interrupt mode (0, 1 or 2)
}

// NewRegisters creates a register file in the power-on state.
func NewRegisters() *Registers {
	r := &Registers{}
	r.Reset()
	return r
}

// Reset puts the registers in the state the processor has after a reset.
// Undefined registers are filled with 0xFF.
func (r *Registers) Reset() {
	r.MainRegisters.SetAF(0xFFFF)
	r.MainRegisters.SetBC(0xFFFF)
	r.MainRegisters.SetDE(0xFFFF)
	r.MainRegisters.SetHL(0xFFFF)
	r.Alternate.SetAF(0xFFFF)
	r.Alternate.SetBC(0xFFFF)
	r.Alternate.SetDE(0xFFFF)
	r.Alternate.SetHL(0xFFFF)
	r.IX = 0xFFFF
	r.IY = 0xFFFF
	r.SP = 0xFFFF
	r.PC = 0x0000
	r.I = 0
	r.R = 0
	r.IFF1 = false
	r.IFF2 = false
	r.IM = 0
}

// 16-bit register pair getters

// AF returns the 16-bit AF register pair.
func (r *MainRegisters) AF() uint16 {
	return uint16(r.A)<<8 | uint16(r.F)
}

// BC returns the 16-bit BC register pair.
func (r *MainRegisters) BC() uint16 {
	return uint16(r.B)<<8 | uint16(r.C)
}

// DE returns the 16-bit DE register pair.
func (r *MainRegisters) DE() uint16 {
	return uint16(r.D)<<8 | uint16(r.E)
}

// HL returns the 16-bit HL register pair.
func (r *MainRegisters) HL() uint16 {
	return uint16(r.H)<<8 | uint16(r.L)
}

// 16-bit register pair setters

// SetAF sets the 16-bit AF register pair.
func (r *MainRegisters) SetAF(value uint16) {
	r.A = hi(value)
	r.F = lo(value)
}

// SetBC sets the 16-bit BC register pair.
func (r *MainRegisters) SetBC(value uint16) {
	r.B = hi(value)
	r.C = lo(value)
}

// SetDE sets the 16-bit DE register pair.
func (r *MainRegisters) SetDE(value uint16) {
	r.D = hi(value)
	r.E = lo(value)
}

// SetHL sets the 16-bit HL register pair.
func (r *MainRegisters) SetHL(value uint16) {
	r.H = hi(value)
	r.L = lo(value)
}

// Index register halves

// IXH returns the high byte of IX.
func (r *Registers) IXH() uint8 { return hi(r.IX) }

// IXL returns the low byte of IX.
func (r *Registers) IXL() uint8 { return lo(r.IX) }

// IYH returns the high byte of IY.
func (r *Registers) IYH() uint8 { return hi(r.IY) }

// IYL returns the low byte of IY.
func (r *Registers) IYL() uint8 { return lo(r.IY) }

// SetIXH sets the high byte of IX.
func (r *Registers) SetIXH(value uint8) { r.IX = word(value, lo(r.IX)) }

// SetIXL sets the low byte of IX.
func (r *Registers) SetIXL(value uint8) { r.IX = word(hi(r.IX), value) }

// SetIYH sets the high byte of IY.
func (r *Registers) SetIYH(value uint8) { r.IY = word(value, lo(r.IY)) }

// SetIYL sets the low byte of IY.
func (r *Registers) SetIYL(value uint8) { r.IY = word(hi(r.IY), value) }

// IncR increments the memory refresh register. Only the low 7 bits count,
// bit 7 keeps whatever was last loaded with LD R,A.
func (r *Registers) IncR() {
	r.R = (r.R & 0x80) | ((r.R + 1) & 0x7F)
}

// ExchangeAF swaps AF with AF'.
func (r *Registers) ExchangeAF() {
	r.A, r.Alternate.A = r.Alternate.A, r.A
	r.F, r.Alternate.F = r.Alternate.F, r.F
}

// ExchangeMain swaps BC, DE and HL with their alternates.
func (r *Registers) ExchangeMain() {
	r.B, r.Alternate.B = r.Alternate.B, r.B
	r.C, r.Alternate.C = r.Alternate.C, r.C
	r.D, r.Alternate.D = r.Alternate.D, r.D
	r.E, r.Alternate.E = r.Alternate.E, r.E
	r.H, r.Alternate.H = r.Alternate.H, r.H
	r.L, r.Alternate.L = r.Alternate.L, r.L
}

// Flag operations

// GetFlag checks if a flag is set.
func (r *MainRegisters) GetFlag(flag uint8) bool {
	return r.F&flag != 0
}

// SetFlag sets a flag to 1.
func (r *MainRegisters) SetFlag(flag uint8) {
	r.F |= flag
}

// ClearFlag sets a flag to 0.
func (r *MainRegisters) ClearFlag(flag uint8) {
	r.F &^= flag
}

// SetFlagTo sets a flag to a specific boolean value.
func (r *MainRegisters) SetFlagTo(flag uint8, value bool) {
	if value {
		r.SetFlag(flag)
	} else {
		r.ClearFlag(flag)
	}
}

// Individual flag getters

// SignFlag returns the Sign flag state.
func (r *MainRegisters) SignFlag() bool {
	return r.GetFlag(FlagS)
}

// ZeroFlag returns the Zero flag state.
func (r *MainRegisters) ZeroFlag() bool {
	return r.GetFlag(FlagZ)
}

// HalfCarryFlag returns the Half-carry flag state.
func (r *MainRegisters) HalfCarryFlag() bool {
	return r.GetFlag(FlagH)
}

// ParityOverflowFlag returns the Parity/overflow flag state.
func (r *MainRegisters) ParityOverflowFlag() bool {
	return r.GetFlag(FlagPV)
}

// SubtractFlag returns the Subtract flag state.
func (r *MainRegisters) SubtractFlag() bool {
	return r.GetFlag(FlagN)
}

// CarryFlag returns the Carry flag state.
func (r *MainRegisters) CarryFlag() bool {
	return r.GetFlag(FlagC)
}

// Flag3 returns the undocumented bit 3 flag state.
func (r *MainRegisters) Flag3() bool {
	return r.GetFlag(Flag3)
}

// Flag5 returns the undocumented bit 5 flag state.
func (r *MainRegisters) Flag5() bool {
	return r.GetFlag(Flag5)
}
