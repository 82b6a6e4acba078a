package testrom

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/richardwooding/z80emu/internal/emulator"
	"github.com/richardwooding/z80emu/internal/image"
	"github.com/richardwooding/z80emu/internal/keyboard"
)

// printProgram builds a .COM that prints msg with BDOS function 9 and
// warm boots.
func printProgram(msg string) []uint8 {
	code := []uint8{
		0x0E, 0x09, // LD C,9
		0x11, 0x0D, 0x01, // LD DE,010Dh
		0xCD, 0x05, 0x00, // CALL 5
		0xC3, 0x00, 0x00, // JP 0
		0x00, 0x00,
	}
	return append(code, []uint8(msg+"$")...)
}

func comImage(t *testing.T, code []uint8) *image.Image {
	t.Helper()
	img, err := image.Parse("TEST.COM", image.FormatCOM, code, image.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func quietOptions() (Options, *logtest.Hook) {
	logger, hook := logtest.NewNullLogger()
	return Options{Logger: logger}, hook
}

func TestRunPassed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PASS.COM")
	if err := os.WriteFile(path, printProgram("Tests complete"), 0o600); err != nil {
		t.Fatal(err)
	}

	opts, _ := quietOptions()
	var console strings.Builder
	opts.Console = &console

	result, err := Run(context.Background(), path, opts)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !result.IsSuccess() || result.String() != "PASSED" {
		t.Errorf("result = %s, output %q", result, result.Output)
	}
	if result.Output != "Tests complete" || console.String() != result.Output {
		t.Errorf("output = %q, console = %q", result.Output, console.String())
	}
	if result.StopReason != emulator.StopInvoked {
		t.Errorf("StopReason = %v, want StopInvoked", result.StopReason)
	}
	// LD C,n + LD DE,nn + CALL + JP
	if result.TStates != 7+10+17+10 {
		t.Errorf("TStates = %d, want 44", result.TStates)
	}
}

func TestRunFailed(t *testing.T) {
	opts, _ := quietOptions()
	result := &Result{}
	if err := RunImage(context.Background(), comImage(t, printProgram("add hl ERROR crc")), opts, result); err != nil {
		t.Fatal(err)
	}
	if !result.Failed || result.Passed || result.String() != "FAILED" {
		t.Errorf("result = %s (%+v)", result, result)
	}
}

func TestRunUnknown(t *testing.T) {
	opts, _ := quietOptions()
	result := &Result{}
	if err := RunImage(context.Background(), comImage(t, printProgram("hello")), opts, result); err != nil {
		t.Fatal(err)
	}
	if result.String() != "UNKNOWN" || result.IsSuccess() {
		t.Errorf("result = %s", result)
	}
}

func TestRunMaxTStates(t *testing.T) {
	opts, _ := quietOptions()
	opts.MaxTStates = 1200
	result := &Result{}

	// JR -2
	if err := RunImage(context.Background(), comImage(t, []uint8{0x18, 0xFE}), opts, result); err != nil {
		t.Fatal(err)
	}
	if !result.Timeout || result.String() != "TIMEOUT" {
		t.Errorf("result = %s, want TIMEOUT", result)
	}
	if result.TStates != 1200 {
		t.Errorf("TStates = %d, want 1200", result.TStates)
	}
}

func TestRunWallClockTimeout(t *testing.T) {
	opts, _ := quietOptions()
	opts.Timeout = 20 * time.Millisecond
	result := &Result{}

	if err := RunImage(context.Background(), comImage(t, []uint8{0x18, 0xFE}), opts, result); err != nil {
		t.Fatal(err)
	}
	if !result.Timeout || result.IsSuccess() {
		t.Errorf("result = %s, want TIMEOUT", result)
	}
}

func TestRunRejectsNonCOM(t *testing.T) {
	img, err := image.Parse("rom.bin", image.FormatRaw, []uint8{0x00}, image.Options{})
	if err != nil {
		t.Fatal(err)
	}
	opts, _ := quietOptions()
	result := &Result{}
	if err := RunImage(context.Background(), img, opts, result); !errors.Is(err, ErrNotCOM) {
		t.Errorf("RunImage() error = %v, want ErrNotCOM", err)
	}
	if !strings.HasPrefix(result.String(), "ERROR: ") {
		t.Errorf("String() = %q", result.String())
	}
}

func TestRunMissingFile(t *testing.T) {
	opts, _ := quietOptions()
	result, err := Run(context.Background(), filepath.Join(t.TempDir(), "NONE.COM"), opts)
	if err == nil || result.Error == nil {
		t.Fatal("Run() of a missing file should fail")
	}
}

func TestConsoleInput(t *testing.T) {
	code := []uint8{
		0x0E, 0x01, // LD C,1
		0xCD, 0x05, 0x00, // CALL 5
		0x5F,       // LD E,A
		0x0E, 0x02, // LD C,2
		0xCD, 0x05, 0x00, // CALL 5
		0xC3, 0x00, 0x00, // JP 0
	}
	q := keyboard.NewQueue()
	q.Push('q')

	opts, _ := quietOptions()
	opts.Input = q
	result := &Result{}
	if err := RunImage(context.Background(), comImage(t, code), opts, result); err != nil {
		t.Fatal(err)
	}
	// Echo plus explicit output
	if result.Output != "qq" {
		t.Errorf("output = %q, want \"qq\"", result.Output)
	}
}

func TestConsoleInputEOF(t *testing.T) {
	code := []uint8{
		0x0E, 0x01, // LD C,1
		0xCD, 0x05, 0x00, // CALL 5
		0x32, 0x00, 0x20, // LD (2000h),A
		0xC3, 0x00, 0x00, // JP 0
	}
	q := keyboard.NewQueue()
	q.Close()

	var proc *emulator.Processor
	opts, _ := quietOptions()
	opts.Input = q
	opts.Setup = func(p *emulator.Processor, _ *BDOS) error {
		proc = p
		return nil
	}
	if err := RunImage(context.Background(), comImage(t, code), opts, &Result{}); err != nil {
		t.Fatal(err)
	}
	if got := proc.Memory().Read(0x2000); got != 0x1A {
		t.Errorf("console input at EOF = %02X, want 0x1A", got)
	}
}

func TestConsoleStatus(t *testing.T) {
	code := []uint8{
		0x0E, 0x0B, // LD C,11
		0xCD, 0x05, 0x00, // CALL 5
		0x32, 0x00, 0x20, // LD (2000h),A
		0xC3, 0x00, 0x00, // JP 0
	}
	q := keyboard.NewQueue()
	q.Push('k')

	var proc *emulator.Processor
	var calls []uint8
	opts, _ := quietOptions()
	opts.Input = q
	opts.Setup = func(p *emulator.Processor, b *BDOS) error {
		proc = p
		b.OnCall = func(fn uint8) { calls = append(calls, fn) }
		return nil
	}
	if err := RunImage(context.Background(), comImage(t, code), opts, &Result{}); err != nil {
		t.Fatal(err)
	}
	if got := proc.Memory().Read(0x2000); got != 0xFF {
		t.Errorf("console status = %02X, want 0xFF", got)
	}
	if len(calls) != 1 || calls[0] != FuncConsoleStatus {
		t.Errorf("BDOS calls = %v, want [11]", calls)
	}
}

func TestUnknownBDOSFunction(t *testing.T) {
	code := []uint8{
		0x0E, 0x63, // LD C,99
		0xCD, 0x05, 0x00, // CALL 5
		0xC3, 0x00, 0x00, // JP 0
	}
	opts, hook := quietOptions()
	if err := RunImage(context.Background(), comImage(t, code), opts, &Result{}); err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "unimplemented BDOS function" && e.Data["function"] == uint8(99) {
			found = true
		}
	}
	if !found {
		t.Error("unknown BDOS function was not logged")
	}
}

func TestSetupError(t *testing.T) {
	opts, _ := quietOptions()
	wantErr := errors.New("boom")
	opts.Setup = func(*emulator.Processor, *BDOS) error { return wantErr }
	result := &Result{}
	if err := RunImage(context.Background(), comImage(t, printProgram("x")), opts, result); !errors.Is(err, wantErr) {
		t.Errorf("RunImage() error = %v, want %v", err, wantErr)
	}
}

func TestSkipTests(t *testing.T) {
	p, err := emulator.New(emulator.WithoutClockSync())
	if err != nil {
		t.Fatal(err)
	}
	SkipTests(p, 3)
	got := uint16(p.Memory().Read(0x0121))<<8 | uint16(p.Memory().Read(0x0120))
	if got != 0x0140 {
		t.Errorf("test table pointer = %04X, want 0x0140", got)
	}
}
