package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80emu/internal/cpu"
	"github.com/richardwooding/z80emu/internal/emulator"
)

// ErrNoBytes is returned when no instruction bytes are given.
var ErrNoBytes = errors.New("no instruction bytes given")

// FlagsCmd executes one instruction on a fresh processor.
type FlagsCmd struct {
	Bytes []string `arg:"" help:"Instruction bytes in hex, e.g. 'ED 44' or 'dd cb 05 06'."`

	A  uint8  `help:"Initial A."`
	F  uint8  `help:"Initial F."`
	B  uint8  `help:"Initial B."`
	C  uint8  `help:"Initial C."`
	D  uint8  `help:"Initial D."`
	E  uint8  `help:"Initial E."`
	H  uint8  `help:"Initial H."`
	L  uint8  `help:"Initial L."`
	IX uint16 `name:"ix" help:"Initial IX."`
	IY uint16 `name:"iy" help:"Initial IY."`
	SP uint16 `name:"sp" help:"Initial SP." default:"65535"`
	PC uint16 `name:"pc" help:"Address the instruction is placed at."`
}

// Run executes the flags command.
func (c *FlagsCmd) Run(log *logrus.Logger) error {
	code, err := parseBytes(c.Bytes)
	if err != nil {
		return err
	}

	p, err := emulator.New(emulator.WithoutClockSync(), emulator.WithLogger(log))
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}
	for i, b := range code {
		p.Memory().Write(c.PC+uint16(i), b) //nolint:gosec // G115: at most a few bytes
	}

	r := p.Registers()
	r.A, r.F, r.B, r.C = c.A, c.F, c.B, c.C
	r.D, r.E, r.H, r.L = c.D, c.E, c.H, c.L
	r.IX, r.IY, r.SP, r.PC = c.IX, c.IY, c.SP, c.PC

	fmt.Printf("Before: %s\n", formatRegisters(r))
	tStates, err := p.ExecuteNextInstruction()
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	printResult(os.Stdout, r, tStates)
	return nil
}

// parseBytes decodes hex arguments, ignoring spaces and an optional 0x prefix.
func parseBytes(args []string) ([]uint8, error) {
	var sb strings.Builder
	for _, arg := range args {
		for _, field := range strings.Fields(arg) {
			field = strings.TrimPrefix(strings.ToLower(field), "0x")
			if len(field)%2 == 1 {
				field = "0" + field
			}
			sb.WriteString(field)
		}
	}
	if sb.Len() == 0 {
		return nil, ErrNoBytes
	}
	code, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid instruction bytes: %w", err)
	}
	if len(code) > 4 {
		return nil, fmt.Errorf("invalid instruction bytes: %d bytes, at most 4", len(code))
	}
	return code, nil
}

func printResult(w io.Writer, r *cpu.Registers, tStates int) {
	fmt.Fprintf(w, "After:  %s\n", formatRegisters(r))
	fmt.Fprintf(w, "Flags:  %s\n", formatFlags(r.F))
	fmt.Fprintf(w, "Cycles: %d\n", tStates)
}

func formatRegisters(r *cpu.Registers) string {
	return fmt.Sprintf("AF=%04X BC=%04X DE=%04X HL=%04X IX=%04X IY=%04X SP=%04X PC=%04X I=%02X R=%02X",
		r.AF(), r.BC(), r.DE(), r.HL(), r.IX, r.IY, r.SP, r.PC, r.I, r.R)
}

// formatFlags shows set flags by letter and clear flags as '.'.
func formatFlags(f uint8) string {
	const names = "SZ5H3PNC"
	out := []byte(names)
	for i := range out {
		if f&(0x80>>i) == 0 {
			out[i] = '.'
		}
	}
	return string(out)
}
