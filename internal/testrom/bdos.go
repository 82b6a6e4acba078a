package testrom

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80emu/internal/emulator"
)

// CP/M page zero addresses.
const (
	WarmBootAddress = 0x0000
	BDOSAddress     = 0x0005
	// topOfTPA is read by programs to find the top of usable memory.
	topOfTPA = 0x0006
)

// BDOS function numbers.
const (
	FuncSystemReset   = 0
	FuncConsoleInput  = 1
	FuncConsoleOutput = 2
	FuncDirectIO      = 6
	FuncPrintString   = 9
	FuncConsoleStatus = 11
)

const dollar = '$'

// Input is a source of console characters.
type Input interface {
	// Next blocks until a character is available; false means end of input.
	Next() (uint8, bool)
	Pop() (uint8, bool)
	Pending() int
}

// BDOS emulates the handful of CP/M system calls that console programs
// such as ZEXDOC and ZEXALL use. It intercepts execution at address 5
// and returns to the caller as if the call had been serviced.
type BDOS struct {
	out io.Writer
	in  Input
	log logrus.FieldLogger

	// OnCall, when set, is told about every BDOS call before it is serviced.
	OnCall func(function uint8)

	warmBoot bool
}

// NewBDOS creates a BDOS writing console output to out. in may be nil,
// in which case console input reports end of file.
func NewBDOS(out io.Writer, in Input, log logrus.FieldLogger) *BDOS {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &BDOS{out: out, in: in, log: log}
}

// WarmBooted reports whether the program ended by jumping to address 0.
func (b *BDOS) WarmBooted() bool {
	return b.warmBoot
}

// Install prepares page zero and hooks the processor.
func (b *BDOS) Install(p *emulator.Processor) {
	mem := p.Memory()
	mem.Write(WarmBootAddress, 0x76) // HALT, never reached
	mem.Write(BDOSAddress, 0xC9)     // RET, never reached
	mem.Write(topOfTPA, 0xFF)
	mem.Write(topOfTPA+1, 0xFF)

	p.OnBeforeInstructionFetch(func(p *emulator.Processor, _ *emulator.InstructionEvent) {
		switch p.Registers().PC {
		case WarmBootAddress:
			b.warmBoot = true
			p.Stop(false)
		case BDOSAddress:
			b.call(p)
		}
	})
}

func (b *BDOS) call(p *emulator.Processor) {
	r := p.Registers()
	function := r.C
	if b.OnCall != nil {
		b.OnCall(function)
	}

	switch function {
	case FuncSystemReset:
		b.warmBoot = true
		p.Stop(false)
		return

	case FuncConsoleInput:
		c, ok := b.readBlocking()
		if !ok {
			c = 0x1A // ^Z
		} else {
			b.write(c)
		}
		b.result(p, c)

	case FuncConsoleOutput:
		b.write(r.E)

	case FuncDirectIO:
		if r.E == 0xFF {
			var c uint8
			if b.in != nil {
				c, _ = b.in.Pop()
			}
			b.result(p, c)
		} else {
			b.write(r.E)
		}

	case FuncPrintString:
		addr := r.DE()
		mem := p.Memory()
		buf := make([]uint8, 0, 64)
		for n := 0; n < 0x10000; n++ {
			c := mem.Read(addr)
			if c == dollar {
				break
			}
			buf = append(buf, c)
			addr++
		}
		b.writeAll(buf)

	case FuncConsoleStatus:
		var status uint8
		if b.in != nil && b.in.Pending() > 0 {
			status = 0xFF
		}
		b.result(p, status)

	default:
		b.log.WithFields(logrus.Fields{
			"function": function,
			"pc":       r.PC,
		}).Warn("unimplemented BDOS function")
	}

	p.ExecuteRet()
	if r.PC == WarmBootAddress {
		b.warmBoot = true
		p.Stop(false)
	}
}

// result returns a byte in A and L, as CP/M does.
func (b *BDOS) result(p *emulator.Processor, v uint8) {
	r := p.Registers()
	r.A = v
	r.L = v
	r.H = 0
}

func (b *BDOS) readBlocking() (uint8, bool) {
	if b.in == nil {
		return 0, false
	}
	return b.in.Next()
}

func (b *BDOS) write(c uint8) {
	b.writeAll([]uint8{c})
}

func (b *BDOS) writeAll(buf []uint8) {
	if _, err := b.out.Write(buf); err != nil {
		b.log.WithError(err).Warn("failed to write console output")
	}
}
