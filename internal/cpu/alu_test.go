package cpu

import (
	"math/bits"
	"testing"
)

// Reference flag computations written in terms of signed and unsigned
// integer ranges, independent of the bit tricks used by the ALU.

func referenceSZ53(result uint8) uint8 {
	f := result & (FlagS | Flag5 | Flag3)
	if result == 0 {
		f |= FlagZ
	}
	return f
}

func referenceAdd(a, b, carry uint8) (uint8, uint8) {
	sum := int(a) + int(b) + int(carry)
	result := uint8(sum) //nolint:gosec // G115: Intentional truncation
	signed := int(int8(a)) + int(int8(b)) + int(carry)

	f := referenceSZ53(result)
	if int(a&0x0F)+int(b&0x0F)+int(carry) > 0x0F {
		f |= FlagH
	}
	if signed < -128 || signed > 127 {
		f |= FlagPV
	}
	if sum > 0xFF {
		f |= FlagC
	}
	return result, f
}

func referenceSub(a, b, carry uint8) (uint8, uint8) {
	diff := int(a) - int(b) - int(carry)
	result := uint8(diff) //nolint:gosec // G115: Intentional truncation
	signed := int(int8(a)) - int(int8(b)) - int(carry)

	f := referenceSZ53(result) | FlagN
	if int(a&0x0F)-int(b&0x0F)-int(carry) < 0 {
		f |= FlagH
	}
	if signed < -128 || signed > 127 {
		f |= FlagPV
	}
	if diff < 0 {
		f |= FlagC
	}
	return result, f
}

func referenceLogic(result uint8, halfCarry bool) uint8 {
	f := referenceSZ53(result)
	if bits.OnesCount8(result)%2 == 0 {
		f |= FlagPV
	}
	if halfCarry {
		f |= FlagH
	}
	return f
}

// TestALUFlagsExhaustive runs every accumulator operation on every pair of
// operands and both carry inputs.
func TestALUFlagsExhaustive(t *testing.T) {
	cpu, agent := setupCPU()

	for op := range uint8(8) {
		opcode := 0x80 | op<<3 // ALU A,B
		agent.memory[0] = opcode

		for a := range 256 {
			for b := range 256 {
				for carry := range uint8(2) {
					av, bv := uint8(a), uint8(b) //nolint:gosec // G115: a and b are in byte range

					agent.registers.PC = 0
					agent.registers.A = av
					agent.registers.B = bv
					agent.registers.F = carry

					cpu.Execute(agent.FetchNextOpcode())

					var wantA, wantF uint8
					switch op {
					case 0:
						wantA, wantF = referenceAdd(av, bv, 0)
					case 1:
						wantA, wantF = referenceAdd(av, bv, carry)
					case 2:
						wantA, wantF = referenceSub(av, bv, 0)
					case 3:
						wantA, wantF = referenceSub(av, bv, carry)
					case 4:
						wantA = av & bv
						wantF = referenceLogic(wantA, true)
					case 5:
						wantA = av ^ bv
						wantF = referenceLogic(wantA, false)
					case 6:
						wantA = av | bv
						wantF = referenceLogic(wantA, false)
					case 7:
						_, wantF = referenceSub(av, bv, 0)
						wantF = wantF&^(Flag5|Flag3) | bv&(Flag5|Flag3)
						wantA = av
					}

					if agent.registers.A != wantA || agent.registers.F != wantF {
						t.Fatalf("opcode %02X A=%02X B=%02X C=%d: got A=%02X F=%02X, want A=%02X F=%02X",
							opcode, av, bv, carry, agent.registers.A, agent.registers.F, wantA, wantF)
					}
				}
			}
		}
	}
}

func TestIncDecFlagsExhaustive(t *testing.T) {
	cpu, agent := setupCPU()

	for v := range 256 {
		for carry := range uint8(2) {
			value := uint8(v) //nolint:gosec // G115: v is in byte range

			// INC B
			agent.memory[0] = 0x04
			agent.registers.PC = 0
			agent.registers.B = value
			agent.registers.F = carry
			cpu.Execute(agent.FetchNextOpcode())

			_, wantF := referenceAdd(value, 1, 0)
			wantF = wantF&^FlagC | carry
			if agent.registers.B != value+1 || agent.registers.F != wantF {
				t.Fatalf("INC %02X: got %02X F=%02X, want F=%02X", value, agent.registers.B, agent.registers.F, wantF)
			}

			// DEC B
			agent.memory[0] = 0x05
			agent.registers.PC = 0
			agent.registers.B = value
			agent.registers.F = carry
			cpu.Execute(agent.FetchNextOpcode())

			_, wantF = referenceSub(value, 1, 0)
			wantF = wantF&^FlagC | carry
			if agent.registers.B != value-1 || agent.registers.F != wantF {
				t.Fatalf("DEC %02X: got %02X F=%02X, want F=%02X", value, agent.registers.B, agent.registers.F, wantF)
			}
		}
	}
}

func TestAddAB(t *testing.T) {
	cpu, agent := setupCPU()
	agent.registers.A = 0x0F
	agent.registers.B = 0x01
	agent.load(0x0000, 0x80) // ADD A,B

	cycles := step(cpu, agent)
	if cycles != 4 {
		t.Errorf("ADD A,B cycles = %d, want 4", cycles)
	}
	if agent.registers.A != 0x10 {
		t.Errorf("A = %02X, want 0x10", agent.registers.A)
	}
	if !agent.registers.HalfCarryFlag() {
		t.Error("Half-carry flag should be set")
	}
	if agent.registers.ZeroFlag() || agent.registers.SignFlag() || agent.registers.CarryFlag() {
		t.Errorf("F = %02X, want Z, S and C clear", agent.registers.F)
	}
}

func TestIncA(t *testing.T) {
	cpu, agent := setupCPU()
	agent.registers.A = 0xFF
	agent.load(0x0000, 0x3C) // INC A

	cycles := step(cpu, agent)
	if cycles != 4 {
		t.Errorf("INC A cycles = %d, want 4", cycles)
	}
	if agent.registers.A != 0x00 {
		t.Errorf("A = %02X, want 0x00", agent.registers.A)
	}
	if agent.registers.F != FlagZ|FlagH {
		t.Errorf("F = %02X, want Z|H (0x50)", agent.registers.F)
	}
}

func TestDAA(t *testing.T) {
	tests := []struct {
		name      string
		a, n      uint8
		subtract  bool
		want      uint8
		wantCarry bool
	}{
		{"15+27", 0x15, 0x27, false, 0x42, false},
		{"99+01", 0x99, 0x01, false, 0x00, true},
		{"42-15", 0x42, 0x15, true, 0x27, false},
		{"10-20", 0x10, 0x20, true, 0x90, true},
		{"58+46", 0x58, 0x46, false, 0x04, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, agent := setupCPU()
			agent.registers.A = tt.a
			opcode := uint8(0xC6) // ADD A,n
			if tt.subtract {
				opcode = 0xD6 // SUB n
			}
			agent.load(0x0000, opcode, tt.n, 0x27) // op n; DAA

			step(cpu, agent)
			step(cpu, agent)

			if agent.registers.A != tt.want {
				t.Errorf("A = %02X, want %02X", agent.registers.A, tt.want)
			}
			if agent.registers.CarryFlag() != tt.wantCarry {
				t.Errorf("C = %v, want %v", agent.registers.CarryFlag(), tt.wantCarry)
			}
			if agent.registers.ZeroFlag() != (tt.want == 0) {
				t.Errorf("Z = %v, want %v", agent.registers.ZeroFlag(), tt.want == 0)
			}
			if agent.registers.SubtractFlag() != tt.subtract {
				t.Error("DAA must preserve N")
			}
		})
	}
}

func TestArithmetic16(t *testing.T) {
	tests := []struct {
		name   string
		code   []uint8
		hl, bc uint16
		f      uint8
		wantHL uint16
		wantF  uint8
	}{
		{"ADD HL,BC half carry", []uint8{0x09}, 0x0FFF, 0x0001, 0x00, 0x1000, FlagH},
		{"ADD HL,BC keeps SZPV", []uint8{0x09}, 0xFFFF, 0x0001, FlagS | FlagZ | FlagPV, 0x0000, FlagS | FlagZ | FlagPV | FlagH | FlagC},
		{"ADD HL,BC bits 3/5 from high byte", []uint8{0x09}, 0x2700, 0x0100, 0x00, 0x2800, Flag5 | Flag3},
		{"ADC HL,BC overflow", []uint8{0xED, 0x4A}, 0x7FFF, 0x0001, 0x00, 0x8000, FlagS | FlagH | FlagPV},
		{"ADC HL,BC carry in", []uint8{0xED, 0x4A}, 0xFFFF, 0x0000, FlagC, 0x0000, FlagZ | FlagH | FlagC},
		{"SBC HL,BC borrow", []uint8{0xED, 0x42}, 0x0000, 0x0001, 0x00, 0xFFFF, FlagS | Flag5 | FlagH | Flag3 | FlagN | FlagC},
		{"SBC HL,BC zero", []uint8{0xED, 0x42}, 0x1235, 0x1234, FlagC, 0x0000, FlagZ | FlagN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, agent := setupCPU()
			agent.registers.SetHL(tt.hl)
			agent.registers.SetBC(tt.bc)
			agent.registers.F = tt.f
			agent.load(0x0000, tt.code...)

			step(cpu, agent)
			if agent.registers.HL() != tt.wantHL {
				t.Errorf("HL = %04X, want %04X", agent.registers.HL(), tt.wantHL)
			}
			if agent.registers.F != tt.wantF {
				t.Errorf("F = %02X, want %02X", agent.registers.F, tt.wantF)
			}
		})
	}
}

func TestAccumulatorFlagOps(t *testing.T) {
	tests := []struct {
		name  string
		code  []uint8
		a, f  uint8
		wantA uint8
		wantF uint8
	}{
		{"SCF", []uint8{0x37}, 0x28, 0x00, 0x28, FlagC | Flag5 | Flag3},
		{"CCF with carry", []uint8{0x3F}, 0x28, FlagC, 0x28, FlagH | Flag5 | Flag3},
		{"CCF without carry", []uint8{0x3F}, 0x00, FlagS | FlagZ | FlagH, 0x00, FlagS | FlagZ | FlagC},
		{"CPL", []uint8{0x2F}, 0x0F, 0x00, 0xF0, FlagH | FlagN | Flag5},
		{"RLCA", []uint8{0x07}, 0x81, FlagZ, 0x03, FlagZ | FlagC},
		{"RRCA", []uint8{0x0F}, 0x01, 0x00, 0x80, FlagC},
		{"RLA", []uint8{0x17}, 0x80, FlagC, 0x01, FlagC},
		{"RRA", []uint8{0x1F}, 0x01, 0x00, 0x00, FlagC},
		{"NEG 0x80", []uint8{0xED, 0x44}, 0x80, 0x00, 0x80, FlagS | FlagPV | FlagN | FlagC},
		{"NEG 0x01", []uint8{0xED, 0x44}, 0x01, 0x00, 0xFF, FlagS | Flag5 | FlagH | Flag3 | FlagN | FlagC},
		{"NEG 0x00", []uint8{0xED, 0x44}, 0x00, 0x00, 0x00, FlagZ | FlagN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, agent := setupCPU()
			agent.registers.A = tt.a
			agent.registers.F = tt.f
			agent.load(0x0000, tt.code...)

			step(cpu, agent)
			if agent.registers.A != tt.wantA {
				t.Errorf("A = %02X, want %02X", agent.registers.A, tt.wantA)
			}
			if agent.registers.F != tt.wantF {
				t.Errorf("F = %02X, want %02X", agent.registers.F, tt.wantF)
			}
		})
	}
}

func TestShiftsAndBits(t *testing.T) {
	tests := []struct {
		name   string
		code   []uint8
		value  uint8 // loaded into B, or A for the A forms
		f      uint8
		want   uint8
		wantF  uint8
		useReg func(r *Registers) uint8
	}{
		{"RLC B", []uint8{0xCB, 0x00}, 0x80, 0, 0x01, FlagC, func(r *Registers) uint8 { return r.B }},
		{"RRC B", []uint8{0xCB, 0x08}, 0x01, 0, 0x80, FlagS | FlagC, func(r *Registers) uint8 { return r.B }},
		{"RL B", []uint8{0xCB, 0x10}, 0x00, FlagC, 0x01, 0, func(r *Registers) uint8 { return r.B }},
		{"RR B", []uint8{0xCB, 0x18}, 0x01, 0, 0x00, FlagZ | FlagPV | FlagC, func(r *Registers) uint8 { return r.B }},
		{"SLA B", []uint8{0xCB, 0x20}, 0xC0, 0, 0x80, FlagS | FlagC, func(r *Registers) uint8 { return r.B }},
		{"SRA B", []uint8{0xCB, 0x28}, 0x81, 0, 0xC0, FlagS | FlagPV | FlagC, func(r *Registers) uint8 { return r.B }},
		{"SLL B", []uint8{0xCB, 0x30}, 0x80, 0, 0x01, FlagC, func(r *Registers) uint8 { return r.B }},
		{"SRL B", []uint8{0xCB, 0x38}, 0x01, 0, 0x00, FlagZ | FlagPV | FlagC, func(r *Registers) uint8 { return r.B }},
		{"SET 3,B", []uint8{0xCB, 0xD8}, 0x00, 0xFF, 0x08, 0xFF, func(r *Registers) uint8 { return r.B }},
		{"RES 7,B", []uint8{0xCB, 0xB8}, 0xFF, 0x00, 0x7F, 0x00, func(r *Registers) uint8 { return r.B }},
		{"BIT 7,B set", []uint8{0xCB, 0x78}, 0x80, FlagC, 0x80, FlagS | FlagH | FlagC, func(r *Registers) uint8 { return r.B }},
		{"BIT 0,B clear", []uint8{0xCB, 0x40}, 0x28, 0x00, 0x28, FlagZ | Flag5 | FlagH | Flag3 | FlagPV, func(r *Registers) uint8 { return r.B }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu, agent := setupCPU()
			agent.registers.B = tt.value
			agent.registers.F = tt.f
			agent.load(0x0000, tt.code...)

			step(cpu, agent)
			if got := tt.useReg(&agent.registers); got != tt.want {
				t.Errorf("result = %02X, want %02X", got, tt.want)
			}
			if agent.registers.F != tt.wantF {
				t.Errorf("F = %02X, want %02X", agent.registers.F, tt.wantF)
			}
		})
	}
}

func TestShiftIndirectHL(t *testing.T) {
	cpu, agent := setupCPU()
	agent.registers.SetHL(0x4000)
	agent.memory[0x4000] = 0x81
	agent.load(0x0000, 0xCB, 0x06) // RLC (HL)

	if cycles := step(cpu, agent); cycles != 15 {
		t.Errorf("RLC (HL) cycles = %d, want 15", cycles)
	}
	if agent.memory[0x4000] != 0x03 {
		t.Errorf("(HL) = %02X, want 0x03", agent.memory[0x4000])
	}
	if !agent.registers.CarryFlag() {
		t.Error("Carry flag should be set")
	}
}
