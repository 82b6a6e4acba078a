// Package testrom runs CP/M instruction exercisers such as ZEXDOC and
// ZEXALL and reports whether they passed.
package testrom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/richardwooding/z80emu/internal/emulator"
	"github.com/richardwooding/z80emu/internal/image"
)

// Exerciser layout: the word at testTablePointer holds the address of
// the first entry of the test table, which starts at firstTestAddress.
const (
	testTablePointer = 0x0120
	firstTestAddress = 0x013A
)

// Output markers.
const (
	successMarker = "Tests complete"
	failureMarker = "ERROR"
)

// ErrNotCOM is returned for images that are not CP/M programs.
var ErrNotCOM = errors.New("conformance tests must be CP/M .COM programs")

// Options control a test run.
type Options struct {
	// Timeout bounds wall-clock time. Zero means no limit.
	Timeout time.Duration

	// MaxTStates bounds emulated time. Zero means no limit.
	MaxTStates uint64

	// SkipTests starts the exerciser at the given test number.
	SkipTests int

	// Console receives program output as it is produced.
	Console io.Writer

	// Input feeds console input. May be nil.
	Input Input

	// Setup runs after the program is loaded and before it starts.
	Setup func(p *emulator.Processor, b *BDOS) error

	// ProcessorOptions are passed to emulator.New.
	ProcessorOptions []emulator.Option

	Logger logrus.FieldLogger
}

// Result represents the result of running a test program.
type Result struct {
	Output  string
	Passed  bool
	Failed  bool
	Timeout bool
	Error   error

	TStates    uint64
	StopReason emulator.StopReason
	Elapsed    time.Duration
}

// Run executes a CP/M test program and returns the result. The error is
// also recorded in the result.
func Run(ctx context.Context, path string, opts Options) (*Result, error) {
	result := &Result{}

	img, err := image.Load(path, image.Options{})
	if err != nil {
		result.Error = fmt.Errorf("failed to load program: %w", err)
		return result, result.Error
	}
	if err := RunImage(ctx, img, opts, result); err != nil {
		return result, err
	}
	return result, nil
}

// RunImage executes an already loaded program, filling in result.
func RunImage(ctx context.Context, img *image.Image, opts Options, result *Result) error {
	if img.Format != image.FormatCOM {
		result.Error = fmt.Errorf("%w: %s is %v", ErrNotCOM, img.Name, img.Format)
		return result.Error
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	procOpts := append([]emulator.Option{
		emulator.WithoutClockSync(),
		emulator.WithAutoStopOnRetWithStackEmpty(true),
		emulator.WithLogger(log),
	}, opts.ProcessorOptions...)
	p, err := emulator.New(procOpts...)
	if err != nil {
		result.Error = fmt.Errorf("failed to create processor: %w", err)
		return result.Error
	}

	if err := img.LoadInto(p.Memory()); err != nil {
		result.Error = fmt.Errorf("failed to load program into memory: %w", err)
		return result.Error
	}

	var output strings.Builder
	var console io.Writer = &output
	if opts.Console != nil {
		console = io.MultiWriter(&output, opts.Console)
	}
	bdos := NewBDOS(console, opts.Input, log)
	bdos.Install(p)

	if opts.SkipTests > 0 {
		SkipTests(p, opts.SkipTests)
	}

	if opts.MaxTStates > 0 {
		p.OnAfterInstructionExecution(func(p *emulator.Processor, _ *emulator.InstructionEvent) {
			if p.TStatesElapsedSinceReset() >= opts.MaxTStates {
				result.Timeout = true
				p.Stop(false)
			}
		})
	}

	if opts.Setup != nil {
		if err := opts.Setup(p, bdos); err != nil {
			result.Error = fmt.Errorf("failed to set up run: %w", err)
			return result.Error
		}
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log.WithFields(logrus.Fields{
		"program": img.Name,
		"size":    img.Size(),
		"skip":    opts.SkipTests,
	}).Info("starting conformance run")

	start := time.Now()
	p.Reset()
	p.Registers().PC = img.Entry()
	runErr := p.Continue(ctx)

	result.Elapsed = time.Since(start)
	result.Output = output.String()
	result.TStates = p.TStatesElapsedSinceReset()
	result.StopReason = p.StopReason()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		result.Timeout = true
	}

	// Check "ERROR" first to avoid ambiguity if both strings are present
	result.Failed = strings.Contains(result.Output, failureMarker)
	result.Passed = strings.Contains(result.Output, successMarker) && !result.Failed

	log.WithFields(logrus.Fields{
		"program": img.Name,
		"tstates": result.TStates,
		"reason":  result.StopReason,
		"elapsed": result.Elapsed,
	}).Info("conformance run finished")

	if runErr != nil {
		result.Error = fmt.Errorf("execution failed: %w", runErr)
		return result.Error
	}
	return nil
}

// SkipTests patches the exerciser's test table pointer so that the
// first n tests are skipped.
func SkipTests(p *emulator.Processor, n int) {
	addr := firstTestAddress + n*2
	p.Memory().Write(testTablePointer, uint8(addr))      //nolint:gosec // G115: low byte
	p.Memory().Write(testTablePointer+1, uint8(addr>>8)) //nolint:gosec // G115: high byte
}

// String returns a human-readable representation of the result.
func (r *Result) String() string {
	if r.Error != nil && !r.Timeout {
		return fmt.Sprintf("ERROR: %v", r.Error)
	}

	if r.Timeout {
		return "TIMEOUT"
	}

	if r.Passed {
		return "PASSED"
	}

	if r.Failed {
		return "FAILED"
	}

	return "UNKNOWN"
}

// IsSuccess returns true if the test passed.
func (r *Result) IsSuccess() bool {
	return r.Passed && !r.Failed && r.Error == nil && !r.Timeout
}
