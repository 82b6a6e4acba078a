// Package emulator provides the host side of the Z80: the Processor owns
// registers, memory and ports, drives the cpu package through its Agent
// interface and runs the fetch/execute loop.
package emulator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80emu/internal/cpu"
	"github.com/richardwooding/z80emu/internal/memory"
	"github.com/richardwooding/z80emu/internal/timer"
)

// Defaults for a new Processor.
const (
	DefaultClockMHz    = 4.0
	DefaultSpeedFactor = 1.0
)

const nopOpcode = 0x00

// execution holds the bookkeeping of the instruction being executed.
type execution struct {
	event *InstructionEvent

	fetchComplete bool
	isRet         bool
	isHalt        bool
	isLdSp        bool
	isEiOrDi      bool
	spAfterFetch  uint16
	startPC       uint16

	peeked        bool
	peekedOpcode  uint8
	peekedAddress uint16

	waitStates int
}

// Processor is a Z80 host.
type Processor struct {
	cpu       *cpu.CPU
	registers *cpu.Registers

	memory    memory.Memory
	ports     memory.Memory
	memoryMap *memory.AccessMap
	portMap   *memory.AccessMap

	extendedPorts bool

	clockMHz     float64
	speedFactor  float64
	sync         *timer.Synchronizer
	syncDisabled bool

	autoStopOnDIPlusHALT      bool
	autoStopOnRetWithStackEmp bool
	startOfStack              uint16

	halted     bool
	state      State
	stopReason StopReason
	stopReq    atomic.Uint32 // requested StopReason, 0 when none
	exec       *execution

	tStatesSinceStart uint64
	tStatesSinceReset uint64

	userState any

	unsupportedED cpu.UnsupportedEDHandler

	beforeFetch     []InstructionHook
	beforeExecution []InstructionHook
	afterExecution  []InstructionHook
	memoryAccess    []AccessHook

	log logrus.FieldLogger
}

// Option configures a Processor.
type Option func(*Processor)

// WithClockFrequency sets the emulated clock frequency in MHz.
func WithClockFrequency(mhz float64) Option {
	return func(p *Processor) { p.clockMHz = mhz }
}

// WithSpeedFactor scales the clock frequency the loop is paced to.
func WithSpeedFactor(factor float64) Option {
	return func(p *Processor) { p.speedFactor = factor }
}

// WithoutClockSync runs as fast as the host allows.
func WithoutClockSync() Option {
	return func(p *Processor) { p.syncDisabled = true }
}

// WithAutoStopOnDIPlusHALT stops the loop when HALT runs with interrupts disabled.
// Enabled by default.
func WithAutoStopOnDIPlusHALT(enabled bool) Option {
	return func(p *Processor) { p.autoStopOnDIPlusHALT = enabled }
}

// WithAutoStopOnRetWithStackEmpty stops the loop when a RET leaves SP at
// the start of the stack. Disabled by default.
func WithAutoStopOnRetWithStackEmpty(enabled bool) Option {
	return func(p *Processor) { p.autoStopOnRetWithStackEmp = enabled }
}

// WithMemory replaces the 64 KiB RAM.
func WithMemory(m memory.Memory) Option {
	return func(p *Processor) { p.memory = m }
}

// WithPorts replaces the port space.
func WithPorts(m memory.Memory) Option {
	return func(p *Processor) { p.ports = m }
}

// WithExtendedPorts decodes all 16 bits of port addresses. The port space
// must then hold 65536 ports.
func WithExtendedPorts() Option {
	return func(p *Processor) { p.extendedPorts = true }
}

// WithUnsupportedED replaces the handler for undocumented ED opcodes.
func WithUnsupportedED(h cpu.UnsupportedEDHandler) Option {
	return func(p *Processor) { p.unsupportedED = h }
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Processor) { p.log = log }
}

// New creates a Processor with 64 KiB of RAM and 256 ports, clocked at 4 MHz.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		registers:            cpu.NewRegisters(),
		clockMHz:             DefaultClockMHz,
		speedFactor:          DefaultSpeedFactor,
		autoStopOnDIPlusHALT: true,
		startOfStack:         0xFFFF,
		stopReason:           NeverRan,
		unsupportedED:        cpu.DefaultUnsupportedED,
		log:                  logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.memory == nil {
		ram, err := memory.NewPlain(memory.AddressSpaceSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create memory: %w", err)
		}
		p.memory = ram
	}

	portSpace := memory.PortSpaceSize
	if p.extendedPorts {
		portSpace = memory.ExtendedPortSpace
	}
	if p.ports == nil {
		ports, err := memory.NewPlain(portSpace)
		if err != nil {
			return nil, fmt.Errorf("failed to create port space: %w", err)
		}
		p.ports = ports
	}
	if p.ports.Size() < portSpace {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrPortSpaceTooSmall, p.ports.Size(), portSpace)
	}

	p.memoryMap = memory.NewAccessMap(memory.AddressSpaceSize)
	p.portMap = memory.NewAccessMap(portSpace)

	if !p.syncDisabled {
		s, err := timer.New(p.clockMHz, p.speedFactor)
		if err != nil {
			return nil, fmt.Errorf("failed to create clock synchronizer: %w", err)
		}
		p.sync = s
	} else if p.clockMHz*p.speedFactor < timer.MinEffectiveMHz || p.clockMHz*p.speedFactor > timer.MaxEffectiveMHz {
		return nil, fmt.Errorf("%w: %g MHz x %g", timer.ErrFrequency, p.clockMHz, p.speedFactor)
	}

	p.cpu = cpu.New(p,
		cpu.WithFetchFinished(p.onFetchFinished),
		cpu.WithUnsupportedED(p.logUnsupportedED),
	)
	return p, nil
}

// logUnsupportedED reports an undocumented ED opcode before delegating.
func (p *Processor) logUnsupportedED(c *cpu.CPU, opcode uint8) int {
	p.log.WithFields(logrus.Fields{
		"opcode": fmt.Sprintf("ED %02X", opcode),
		"pc":     fmt.Sprintf("0x%04X", p.registers.PC-2),
	}).Debug("unsupported ED opcode")
	return p.unsupportedED(c, opcode)
}

// CPU returns the instruction executor.
func (p *Processor) CPU() *cpu.CPU { return p.cpu }

// Memory returns the address space.
func (p *Processor) Memory() memory.Memory { return p.memory }

// Ports returns the port space.
func (p *Processor) Ports() memory.Memory { return p.ports }

// MemoryMap returns the memory access modes and wait states.
func (p *Processor) MemoryMap() *memory.AccessMap { return p.memoryMap }

// PortMap returns the port access modes and wait states.
func (p *Processor) PortMap() *memory.AccessMap { return p.portMap }

// State returns the current execution state.
func (p *Processor) State() State { return p.state }

// StopReason returns why the last loop ended.
func (p *Processor) StopReason() StopReason { return p.stopReason }

// IsHalted reports whether a HALT is in effect.
func (p *Processor) IsHalted() bool { return p.halted }

// StartOfStack is the SP value set by the last LD SP instruction or reset.
func (p *Processor) StartOfStack() uint16 { return p.startOfStack }

// TStatesElapsedSinceStart counts T-states since the last Start.
func (p *Processor) TStatesElapsedSinceStart() uint64 { return p.tStatesSinceStart }

// TStatesElapsedSinceReset counts T-states since the last Reset.
func (p *Processor) TStatesElapsedSinceReset() uint64 { return p.tStatesSinceReset }

// UserState returns the value passed to Start or SetUserState.
func (p *Processor) UserState() any { return p.userState }

// SetUserState stores an arbitrary host value.
func (p *Processor) SetUserState(v any) { p.userState = v }

// InterruptMode returns the mode set by the last IM instruction.
func (p *Processor) InterruptMode() uint8 { return p.registers.IM }

// EffectiveClockFrequencyMHz returns the clock frequency times the speed factor.
func (p *Processor) EffectiveClockFrequencyMHz() float64 {
	return p.clockMHz * p.speedFactor
}

// SetClockSpeedFactor changes the speed factor. It fails when the
// effective frequency would leave the supported range.
func (p *Processor) SetClockSpeedFactor(factor float64) error {
	if p.sync != nil {
		if err := p.sync.SetFrequency(p.clockMHz, factor); err != nil {
			return err
		}
	}
	p.speedFactor = factor
	return nil
}

// Reset puts the processor in its power-on state.
func (p *Processor) Reset() {
	p.registers.Reset()
	p.halted = false
	p.tStatesSinceReset = 0
	p.startOfStack = p.registers.SP
}

// Start resets the processor and runs until stopped. A non-nil userState
// replaces the stored user state.
func (p *Processor) Start(ctx context.Context, userState any) error {
	if p.state == StateRunning {
		return ErrRunning
	}
	if userState != nil {
		p.userState = userState
	}
	p.Reset()
	p.tStatesSinceStart = 0
	_, err := p.run(ctx, false)
	return err
}

// Continue runs from the current state without resetting.
func (p *Processor) Continue(ctx context.Context) error {
	if p.state == StateRunning {
		return ErrRunning
	}
	_, err := p.run(ctx, false)
	return err
}

// ExecuteNextInstruction runs a single instruction and returns its
// T-states. Auto-stop conditions are not evaluated.
func (p *Processor) ExecuteNextInstruction() (int, error) {
	if p.state == StateRunning {
		return 0, ErrRunning
	}
	return p.run(context.Background(), true)
}

// Stop asks the loop to end at the next instruction boundary. With
// isPause the processor is left Paused instead of Stopped. It is safe to
// call from hooks and from other goroutines.
func (p *Processor) Stop(isPause bool) {
	reason := StopInvoked
	if isPause {
		reason = PauseInvoked
	}
	p.stopReq.Store(uint32(reason))
}

func (p *Processor) requestedStop(ctx context.Context) StopReason {
	if r := StopReason(p.stopReq.Load()); r != NotApplicable { //nolint:gosec // G115: only StopReason values are stored
		return r
	}
	select {
	case <-ctx.Done():
		return StopInvoked
	default:
		return NotApplicable
	}
}

func (p *Processor) run(ctx context.Context, single bool) (total int, err error) {
	if p.sync != nil {
		p.sync.Start()
		defer p.sync.Stop()
	}
	p.stopReq.Store(0)
	p.stopReason = NotApplicable
	p.state = StateRunning

	reason := NotApplicable
	defer func() {
		p.exec = nil
		p.stopReason = reason
		if reason == PauseInvoked {
			p.state = StatePaused
		} else {
			p.state = StateStopped
		}
		p.log.WithFields(logrus.Fields{
			"reason":  reason,
			"pc":      fmt.Sprintf("0x%04X", p.registers.PC),
			"tstates": p.tStatesSinceStart,
		}).Trace("processor stopped")
	}()

	for {
		if reason = p.requestedStop(ctx); reason != NotApplicable {
			return total, nil
		}

		p.exec = &execution{event: &InstructionEvent{}}
		p.fireInstruction(p.beforeFetch, p.exec.event)
		if reason = p.requestedStop(ctx); reason != NotApplicable {
			return total, nil
		}

		p.exec.startPC = p.registers.PC
		tStates := p.executeNextOpcode()
		total = tStates + p.exec.waitStates
		p.tStatesSinceStart += uint64(total) //nolint:gosec // G115: T-states are never negative
		p.tStatesSinceReset += uint64(total) //nolint:gosec // G115: T-states are never negative

		if !p.exec.fetchComplete {
			reason = ExceptionThrown
			return total, &FetchFinishedNotFiredError{
				Address: p.exec.startPC,
				Opcode:  p.exec.event.Opcode,
			}
		}

		if !single {
			if p.autoStopOnDIPlusHALT && p.exec.isHalt && !p.registers.IFF1 {
				p.stopReq.CompareAndSwap(0, uint32(DIPlusHALT))
			}
			if p.autoStopOnRetWithStackEmp && p.exec.isRet && p.exec.spAfterFetch == p.startOfStack {
				p.stopReq.CompareAndSwap(0, uint32(RetWithStackEmpty))
			}
			if p.exec.isLdSp {
				p.startOfStack = p.registers.SP
			}
		}

		p.exec.event.TStates = total
		p.fireInstruction(p.afterExecution, p.exec.event)

		if !p.halted {
			p.halted = p.exec.isHalt
		}

		if single {
			reason = ExecuteNextInstructionInvoked
			return total, nil
		}
		if p.sync != nil {
			p.sync.TryWait(total)
		}
	}
}

func (p *Processor) executeNextOpcode() int {
	if p.halted {
		p.exec.event.Opcode = append(p.exec.event.Opcode, nopOpcode)
		return p.cpu.Execute(nopOpcode)
	}
	return p.cpu.Execute(p.FetchNextOpcode())
}

func (p *Processor) onFetchFinished(info cpu.FetchFinished) {
	if p.exec == nil || p.exec.fetchComplete {
		return
	}
	p.exec.fetchComplete = true
	p.exec.isRet = info.IsRetInstruction
	p.exec.isHalt = info.IsHaltInstruction
	p.exec.isLdSp = info.IsLdSpInstruction
	p.exec.isEiOrDi = info.IsEiOrDiInstruction
	p.exec.spAfterFetch = p.registers.SP
	p.fireInstruction(p.beforeExecution, p.exec.event)
}

// ExecuteCall pushes PC and jumps to addr, as CALL would.
func (p *Processor) ExecuteCall(addr uint16) {
	pc := p.registers.PC
	sp := p.registers.SP - 1
	p.writeMemory(sp, uint8(pc>>8)) //nolint:gosec // G115: high byte
	sp--
	p.writeMemory(sp, uint8(pc)) //nolint:gosec // G115: low byte
	p.registers.SP = sp
	p.registers.PC = addr
}

// ExecuteRet pops PC, as RET would.
func (p *Processor) ExecuteRet() {
	sp := p.registers.SP
	lo := p.readMemory(sp)
	hi := p.readMemory(sp + 1)
	p.registers.PC = uint16(hi)<<8 | uint16(lo)
	p.registers.SP = sp + 2
}

// IsFetchFinishedNotFired reports whether err came from an instruction
// that never reported the end of its fetch.
func IsFetchFinishedNotFired(err error) bool {
	var target *FetchFinishedNotFiredError
	return errors.As(err, &target)
}
