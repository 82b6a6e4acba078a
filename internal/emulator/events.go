package emulator

import "fmt"

// InstructionEvent follows one instruction through its hooks. The same
// value is passed to the before-fetch, before-execution and
// after-execution hooks, so LocalUserState set in one is seen by the next.
type InstructionEvent struct {
	// Opcode holds the opcode bytes fetched so far. It is empty before the fetch.
	Opcode []uint8

	// TStates is the instruction's duration including wait states.
	// Only meaningful after execution.
	TStates int

	LocalUserState any
}

// AccessKind identifies a memory or port access event.
type AccessKind uint8

// Access kinds.
const (
	BeforeMemoryRead AccessKind = iota
	AfterMemoryRead
	BeforeMemoryWrite
	AfterMemoryWrite
	BeforePortRead
	AfterPortRead
	BeforePortWrite
	AfterPortWrite
)

var accessKindNames = [...]string{
	BeforeMemoryRead:  "BeforeMemoryRead",
	AfterMemoryRead:   "AfterMemoryRead",
	BeforeMemoryWrite: "BeforeMemoryWrite",
	AfterMemoryWrite:  "AfterMemoryWrite",
	BeforePortRead:    "BeforePortRead",
	AfterPortRead:     "AfterPortRead",
	BeforePortWrite:   "BeforePortWrite",
	AfterPortWrite:    "AfterPortWrite",
}

// String returns the kind name.
func (k AccessKind) String() string {
	if int(k) < len(accessKindNames) {
		return accessKindNames[k]
	}
	return fmt.Sprintf("AccessKind(%d)", uint8(k))
}

// IsPort reports whether the access targets the port space.
func (k AccessKind) IsPort() bool {
	return k >= BeforePortRead
}

// AccessEvent describes a memory or port access.
//
// In a Before event a hook may change Value (for writes, the value that
// will be written; for reads, the value returned when the access is
// cancelled) or set CancelAccess to keep the access away from the
// underlying space. In an After read event a hook may change Value to
// alter what the processor sees.
type AccessEvent struct {
	Kind    AccessKind
	Address uint16
	Value   uint8

	CancelAccess   bool
	LocalUserState any
}

// InstructionHook observes instruction boundaries.
type InstructionHook func(p *Processor, e *InstructionEvent)

// AccessHook observes memory and port accesses.
type AccessHook func(p *Processor, e *AccessEvent)

// OnBeforeInstructionFetch registers a hook that runs before each
// instruction is fetched. Calling Stop from it ends the loop without
// executing the instruction.
func (p *Processor) OnBeforeInstructionFetch(h InstructionHook) {
	p.beforeFetch = append(p.beforeFetch, h)
}

// OnBeforeInstructionExecution registers a hook that runs once the full
// opcode is known, before the instruction's operation.
func (p *Processor) OnBeforeInstructionExecution(h InstructionHook) {
	p.beforeExecution = append(p.beforeExecution, h)
}

// OnAfterInstructionExecution registers a hook that runs after each instruction.
func (p *Processor) OnAfterInstructionExecution(h InstructionHook) {
	p.afterExecution = append(p.afterExecution, h)
}

// OnMemoryAccess registers a hook for memory and port accesses.
func (p *Processor) OnMemoryAccess(h AccessHook) {
	p.memoryAccess = append(p.memoryAccess, h)
}

func (p *Processor) fireInstruction(hooks []InstructionHook, e *InstructionEvent) {
	for _, h := range hooks {
		h(p, e)
	}
}

func (p *Processor) fireAccess(kind AccessKind, addr uint16, value uint8, local any, cancel bool) *AccessEvent {
	e := &AccessEvent{
		Kind:           kind,
		Address:        addr,
		Value:          value,
		CancelAccess:   cancel,
		LocalUserState: local,
	}
	for _, h := range p.memoryAccess {
		h(p, e)
	}
	return e
}
