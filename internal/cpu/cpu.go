// Package cpu implements the Zilog Z80 instruction decoder and executor.
//
// The CPU does not own any state of its own: registers, memory and ports
// belong to the Agent supplied by the host, which also fetches the first
// opcode byte of every instruction and passes it to Execute.
package cpu

// FetchFinished describes the instruction whose opcode bytes have just
// been fetched. It is delivered once per instruction, before the
// instruction's operation runs.
type FetchFinished struct {
	// IsRetInstruction is true for RET, RETI, RETN and conditional
	// returns whose condition holds.
	IsRetInstruction bool

	// IsHaltInstruction is true for HALT.
	IsHaltInstruction bool

	// IsLdSpInstruction is true for the instructions that load SP.
	IsLdSpInstruction bool

	// IsEiOrDiInstruction is true for EI and DI.
	IsEiOrDiInstruction bool
}

// UnsupportedEDHandler executes an ED-prefixed opcode that has no
// standard meaning and returns the T-states it took.
type UnsupportedEDHandler func(c *CPU, opcode uint8) int

// Option configures a CPU.
type Option func(*CPU)

// WithFetchFinished registers the fetch finished observer.
func WithFetchFinished(fn func(FetchFinished)) Option {
	return func(c *CPU) {
		c.onFetchFinished = fn
	}
}

// WithUnsupportedED replaces the handler for ED opcodes outside the
// documented set.
func WithUnsupportedED(fn UnsupportedEDHandler) Option {
	return func(c *CPU) {
		c.unsupportedED = fn
	}
}

// CPU executes Z80 instructions against an Agent.
type CPU struct {
	agent Agent
	ports ExtendedPortAgent

	// r caches agent.Registers() for the instruction being executed
	r *Registers

	onFetchFinished func(FetchFinished)
	unsupportedED   UnsupportedEDHandler
}

// New creates a new CPU bound to the given agent.
func New(agent Agent, opts ...Option) *CPU {
	c := &CPU{
		agent:         agent,
		unsupportedED: DefaultUnsupportedED,
	}
	c.ports, _ = agent.(ExtendedPortAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Agent returns the host the CPU is bound to.
func (c *CPU) Agent() Agent {
	return c.agent
}

// DefaultUnsupportedED executes an unsupported ED opcode as two NOPs.
func DefaultUnsupportedED(c *CPU, _ uint8) int {
	c.NotifyFetchFinished(FetchFinished{})
	return 8
}

// NotifyFetchFinished delivers a fetch finished notification to the
// registered observer. Unsupported ED handlers must call it exactly once.
func (c *CPU) NotifyFetchFinished(info FetchFinished) {
	if c.onFetchFinished != nil {
		c.onFetchFinished(info)
	}
}

// fetchFinished notifies an instruction with no special properties.
func (c *CPU) fetchFinished() {
	c.NotifyFetchFinished(FetchFinished{})
}

// Execute executes the instruction whose first opcode byte has already
// been fetched by the host and returns the T-states it took.
func (c *CPU) Execute(first uint8) int {
	c.r = c.agent.Registers()

	switch first {
	case 0xCB:
		return c.executeCB()
	case 0xDD:
		return c.executeIndex(&ddTable, &ddcbTable)
	case 0xED:
		return c.executeED()
	case 0xFD:
		return c.executeIndex(&fdTable, &fdcbTable)
	default:
		c.r.IncR()
		return mainTable[first](c)
	}
}

// executeCB runs a CB-prefixed rotate, shift or bit instruction.
func (c *CPU) executeCB() int {
	c.r.IncR()
	c.r.IncR()
	return cbTable[c.fetchByte()](c)
}

// executeED runs an ED-prefixed instruction.
func (c *CPU) executeED() int {
	c.r.IncR()
	c.r.IncR()

	opcode := c.fetchByte()
	switch {
	case isUnsupportedED(opcode):
		return c.unsupportedED(c, opcode)
	case opcode >= 0xA0:
		return edBlockTable[opcode-0xA0](c)
	default:
		return edPlainTable[opcode-0x40](c)
	}
}

// isUnsupportedED reports whether an ED opcode has no documented meaning.
func isUnsupportedED(opcode uint8) bool {
	switch {
	case opcode < 0x40, opcode >= 0xC0:
		return true
	case opcode >= 0x80 && opcode < 0xA0:
		return true
	case opcode >= 0xA0 && opcode&0x04 != 0:
		// A4-A7, AC-AF, B4-B7, BC-BF
		return true
	}
	return false
}

// executeIndex runs a DD or FD prefixed instruction. Opcodes that have no
// index register form fall back to a NOP and the opcode byte is fetched
// again as a separate instruction.
func (c *CPU) executeIndex(table *[256]instruction, cbTable *[256]indexedInstruction) int {
	c.r.IncR()

	if c.agent.PeekNextOpcode() == 0xCB {
		c.r.IncR()
		c.fetchByte()
		d := c.fetchByte()
		return cbTable[c.fetchByte()](c, d)
	}

	c.r.IncR()
	opcode := c.fetchByte()
	if handler := table[opcode]; handler != nil {
		return handler(c)
	}

	c.r.PC--
	return nop(c)
}

// fetchByte fetches the next opcode byte from the host and increments PC.
func (c *CPU) fetchByte() uint8 {
	return c.agent.FetchNextOpcode()
}

// fetchWord fetches the next word (16-bit, little endian) and increments PC.
func (c *CPU) fetchWord() uint16 {
	low := c.fetchByte()
	high := c.fetchByte()
	return word(high, low)
}

func (c *CPU) read(addr uint16) uint8 {
	return c.agent.ReadFromMemory(addr)
}

func (c *CPU) write(addr uint16, value uint8) {
	c.agent.WriteToMemory(addr, value)
}

// readWord reads a little endian word from memory.
func (c *CPU) readWord(addr uint16) uint16 {
	low := c.read(addr)
	high := c.read(addr + 1)
	return word(high, low)
}

// writeWord writes a little endian word to memory.
func (c *CPU) writeWord(addr uint16, value uint16) {
	c.write(addr, lo(value))
	c.write(addr+1, hi(value))
}

// push pushes a 16-bit value onto the stack.
func (c *CPU) push(value uint16) {
	c.r.SP--
	c.write(c.r.SP, hi(value))
	c.r.SP--
	c.write(c.r.SP, lo(value))
}

// pop pops a 16-bit value from the stack.
func (c *CPU) pop() uint16 {
	low := c.read(c.r.SP)
	c.r.SP++
	high := c.read(c.r.SP)
	c.r.SP++
	return word(high, low)
}

// in reads from a port, passing high as the upper address byte to hosts
// that decode it.
func (c *CPU) in(port, high uint8) uint8 {
	if c.ports != nil {
		return c.ports.ReadFromExtendedPort(port, high)
	}
	return c.agent.ReadFromPort(port)
}

// out writes to a port, passing high as the upper address byte to hosts
// that decode it.
func (c *CPU) out(port, high, value uint8) {
	if c.ports != nil {
		c.ports.WriteToExtendedPort(port, high, value)
		return
	}
	c.agent.WriteToPort(port, value)
}

// checkCondition evaluates the condition encoded in bits 3-5 of a
// conditional jump, call or return opcode.
func (c *CPU) checkCondition(cond uint8) bool {
	switch cond & 0x07 {
	case 0: // NZ - Not Zero
		return !c.r.ZeroFlag()
	case 1: // Z - Zero
		return c.r.ZeroFlag()
	case 2: // NC - Not Carry
		return !c.r.CarryFlag()
	case 3: // C - Carry
		return c.r.CarryFlag()
	case 4: // PO - Parity Odd
		return !c.r.ParityOverflowFlag()
	case 5: // PE - Parity Even
		return c.r.ParityOverflowFlag()
	case 6: // P - Positive
		return !c.r.SignFlag()
	default: // M - Minus
		return c.r.SignFlag()
	}
}
