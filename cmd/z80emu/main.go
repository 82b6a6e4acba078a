// Package main provides the z80emu CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80emu/internal/emulator"
	"github.com/richardwooding/z80emu/internal/image"
	"github.com/richardwooding/z80emu/internal/script"
	"github.com/richardwooding/z80emu/internal/testrom"
)

var (
	// ErrTestFailed indicates a conformance program failed.
	ErrTestFailed = errors.New("test failed")

	// ErrInvalidScale indicates the scale factor is out of valid range.
	ErrInvalidScale = errors.New("scale must be between 1 and 10")
)

// CLI represents the command-line interface structure.
type CLI struct {
	LogLevel  string `help:"Log level." default:"warn" enum:"panic,fatal,error,warn,info,debug,trace" env:"Z80EMU_LOG_LEVEL"`
	LogFormat string `help:"Log format." default:"text" enum:"text,json" env:"Z80EMU_LOG_FORMAT"`

	Info    InfoCmd    `cmd:"" help:"Display program image information."`
	Run     RunCmd     `cmd:"" help:"Run a program with a CP/M console on the terminal."`
	Test    TestCmd    `cmd:"" help:"Run a conformance program and report results."`
	Display DisplayCmd `cmd:"" help:"Run a program with a memory-mapped text screen."`
	Flags   FlagsCmd   `cmd:"" help:"Execute a single instruction and show the resulting registers."`
}

// ImageFlags select and place a program image.
type ImageFlags struct {
	Image       string `arg:"" type:"existingfile" help:"Path to program image (.com, .bin, .rom, .hex, .ihx)."`
	LoadAddress uint16 `help:"Load address for raw binaries." default:"0"`
}

func (f *ImageFlags) load() (*image.Image, error) {
	img, err := image.Load(f.Image, image.Options{LoadAddress: f.LoadAddress})
	if err != nil {
		return nil, fmt.Errorf("failed to load image: %w", err)
	}
	return img, nil
}

// ClockFlags configure clock synchronisation.
type ClockFlags struct {
	MHz         float64 `name:"mhz" help:"Emulated clock frequency in MHz." default:"4" env:"Z80EMU_MHZ"`
	SpeedFactor float64 `help:"Multiplier applied to the clock frequency." default:"1" env:"Z80EMU_SPEED_FACTOR"`
	NoSync      bool    `help:"Run as fast as possible."`
}

func (f *ClockFlags) options() []emulator.Option {
	if f.NoSync {
		return []emulator.Option{emulator.WithoutClockSync()}
	}
	return []emulator.Option{
		emulator.WithClockFrequency(f.MHz),
		emulator.WithSpeedFactor(f.SpeedFactor),
	}
}

// InfoCmd displays image information.
type InfoCmd struct {
	ImageFlags
}

// Run executes the info command.
func (c *InfoCmd) Run() error {
	img, err := c.load()
	if err != nil {
		return err
	}

	fmt.Printf("Image Information:\n")
	fmt.Printf("  Name:     %s\n", img.Name)
	fmt.Printf("  Format:   %s\n", img.Format)
	fmt.Printf("  Entry:    0x%04X\n", img.Entry())
	fmt.Printf("  Size:     %d bytes\n", img.Size())
	fmt.Printf("  Segments: %d\n", len(img.Segments))
	for _, seg := range img.Segments {
		fmt.Printf("    0x%04X-0x%04X (%d bytes)\n", seg.Address, seg.End()-1, len(seg.Data))
	}

	return nil
}

// RunCmd runs a program on the terminal.
type RunCmd struct {
	ImageFlags
	ClockFlags

	Script     string `type:"existingfile" help:"Lua script with on_fetch/on_bdos hooks."`
	MaxTStates uint64 `name:"max-tstates" help:"Stop after this many T-states (0 = no limit)."`
}

// Run executes the run command.
func (c *RunCmd) Run(log *logrus.Logger) error {
	img, err := c.load()
	if err != nil {
		return err
	}

	opts := append(c.options(), emulator.WithLogger(log))
	p, err := emulator.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}
	if err := img.LoadInto(p.Memory()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	con, err := openConsole(os.Stdin, cancel)
	if err != nil {
		return err
	}
	defer con.Restore()
	go func() {
		<-ctx.Done()
		con.Queue().Close()
	}()

	var bdos *testrom.BDOS
	if img.Format == image.FormatCOM {
		bdos = testrom.NewBDOS(os.Stdout, con.Queue(), log)
		bdos.Install(p)
	}

	var engine *script.Engine
	if c.Script != "" {
		engine = script.New(p, log)
		defer engine.Close()
		if err := engine.LoadFile(c.Script); err != nil {
			return err
		}
		if bdos != nil && engine.HasBDOSHook() {
			bdos.OnCall = engine.BDOSCall
		}
	}

	if c.MaxTStates > 0 {
		p.OnAfterInstructionExecution(func(p *emulator.Processor, _ *emulator.InstructionEvent) {
			if p.TStatesElapsedSinceReset() >= c.MaxTStates {
				p.Stop(false)
			}
		})
	}

	p.Reset()
	p.Registers().PC = img.Entry()
	runErr := p.Continue(ctx)

	con.Restore()
	log.WithFields(logrus.Fields{
		"reason":  p.StopReason(),
		"tstates": p.TStatesElapsedSinceReset(),
		"pc":      fmt.Sprintf("0x%04X", p.Registers().PC),
	}).Info("program stopped")

	if runErr != nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	if engine != nil && engine.Err() != nil {
		return engine.Err()
	}
	return nil
}

// TestCmd runs a conformance program and reports results.
type TestCmd struct {
	Image      string `arg:"" type:"existingfile" help:"Path to CP/M test program (zexdoc.com, zexall.com)."`
	Timeout    int    `default:"1800" help:"Timeout in seconds."`
	Skip       int    `help:"Number of tests to skip."`
	MaxTStates uint64 `name:"max-tstates" help:"Stop after this many T-states (0 = no limit)."`
	Verbose    bool   `short:"v" help:"Stream program output while running."`
}

// Run executes the test command.
func (c *TestCmd) Run(log *logrus.Logger) error {
	fmt.Printf("Running test program: %s\n", c.Image)

	opts := testrom.Options{
		Timeout:    time.Duration(c.Timeout) * time.Second,
		MaxTStates: c.MaxTStates,
		SkipTests:  c.Skip,
		Logger:     log,
	}
	if c.Verbose {
		opts.Console = os.Stdout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	result, err := testrom.Run(ctx, c.Image, opts)

	fmt.Printf("\nResult: %s\n", result.String())
	fmt.Printf("T-states: %d, elapsed: %s\n", result.TStates, result.Elapsed.Round(time.Millisecond))

	if !c.Verbose && !result.IsSuccess() {
		fmt.Printf("\nOutput:\n%s\n", result.Output)
	}

	if err != nil {
		return err
	}
	if !result.IsSuccess() {
		return ErrTestFailed
	}

	return nil
}

func newLogger(level, format string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger, nil
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("z80emu"),
		kong.Description("A Z80 instruction set emulator written in Go."),
		kong.UsageOnError(),
	)

	logger, err := newLogger(cli.LogLevel, cli.LogFormat, os.Stderr)
	ctx.FatalIfErrorf(err)

	err = ctx.Run(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
