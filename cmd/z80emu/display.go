package main

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text"
	"github.com/sirupsen/logrus"
	"golang.design/x/clipboard"
	"golang.org/x/image/font/basicfont"

	"github.com/richardwooding/z80emu/internal/emulator"
	"github.com/richardwooding/z80emu/internal/image"
	"github.com/richardwooding/z80emu/internal/keyboard"
	"github.com/richardwooding/z80emu/internal/memory"
	"github.com/richardwooding/z80emu/internal/testrom"
	"github.com/richardwooding/z80emu/internal/video"
)

// Character cell size of basicfont.Face7x13.
const (
	cellWidth  = 7
	cellHeight = 13
	fontAscent = 11
	maxPaste   = 4096
)

var (
	background = color.RGBA{0x10, 0x10, 0x10, 0xFF}
	foreground = color.RGBA{0x33, 0xFF, 0x66, 0xFF}
)

// DisplayCmd runs a program with a text screen window.
type DisplayCmd struct {
	ImageFlags
	ClockFlags

	Scale      int    `help:"Window scale factor (1-10)." default:"2"`
	ScreenBase uint16 `help:"Address of the memory-mapped screen (default 0x3C00)." default:"15360"`
	KeyPort    uint8  `help:"Keyboard status port (default 0x10); data is read from the next port." default:"16"`
}

// Run executes the display command.
func (c *DisplayCmd) Run(log *logrus.Logger) error {
	if c.Scale < 1 || c.Scale > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidScale, c.Scale)
	}

	img, err := c.load()
	if err != nil {
		return err
	}

	screen, err := video.New(video.DefaultColumns, video.DefaultRows)
	if err != nil {
		return err
	}
	mem := memory.NewBus()
	if err := screen.Attach(mem, int(c.ScreenBase)); err != nil {
		return err
	}
	keys := keyboard.NewQueue()
	ports := memory.NewBus()
	if err := keyboard.Attach(ports, keys, int(c.KeyPort)); err != nil {
		return fmt.Errorf("failed to map keyboard: %w", err)
	}

	opts := append(c.options(),
		emulator.WithMemory(mem),
		emulator.WithPorts(ports),
		emulator.WithLogger(log),
	)
	p, err := emulator.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create processor: %w", err)
	}
	if err := img.LoadInto(mem); err != nil {
		return err
	}
	if img.Format == image.FormatCOM {
		testrom.NewBDOS(os.Stdout, keys, log).Install(p)
	}

	d := NewDisplay(p, screen, keys, log)
	d.start(img.Entry())
	defer d.stop()

	ebiten.SetWindowTitle("z80emu - " + img.Name)
	ebiten.SetWindowSize(screen.Columns()*cellWidth*c.Scale, screen.Rows()*cellHeight*c.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	if err := ebiten.RunGame(d); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("display error: %w", err)
	}
	return d.stop()
}

// Display implements the Ebiten game interface for the text screen.
type Display struct {
	proc   *emulator.Processor
	screen *video.Screen
	keys   *keyboard.Queue
	log    logrus.FieldLogger

	cancel context.CancelFunc
	done   chan error
	runErr error
	once   sync.Once

	clipboardOnce sync.Once
	clipboardOK   bool
}

// NewDisplay creates a display for the processor.
func NewDisplay(p *emulator.Processor, screen *video.Screen, keys *keyboard.Queue, log logrus.FieldLogger) *Display {
	return &Display{
		proc:   p,
		screen: screen,
		keys:   keys,
		log:    log,
		done:   make(chan error, 1),
	}
}

func (d *Display) start(entry uint16) {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	d.proc.Reset()
	d.proc.Registers().PC = entry
	go func() {
		err := d.proc.Continue(ctx)
		d.log.WithField("reason", d.proc.StopReason()).Info("program stopped")
		d.done <- err
	}()
}

// stop ends the program and waits for the processor goroutine.
func (d *Display) stop() error {
	d.once.Do(func() {
		d.cancel()
		d.keys.Close()
		d.runErr = <-d.done
	})
	return d.runErr
}

// Update forwards keyboard input. The processor runs on its own goroutine.
func (d *Display) Update() error {
	select {
	case err := <-d.done:
		// Keep the value for stop
		d.done <- err
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			return ebiten.Termination
		}
		return nil
	default:
	}

	d.handleInput()
	return nil
}

func (d *Display) handleInput() {
	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)

	// Clipboard paste: Ctrl+Shift+V
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		d.paste()
		return
	}

	for _, r := range ebiten.AppendInputChars(nil) {
		if r > 0 && r < 0x80 {
			d.keys.Push(uint8(r))
		}
	}

	for _, key := range []ebiten.Key{ebiten.KeyEnter, ebiten.KeyNumpadEnter, ebiten.KeyBackspace, ebiten.KeyTab, ebiten.KeyEscape} {
		if inpututil.IsKeyJustPressed(key) {
			d.keys.Push(controlCode(key))
		}
	}

	// Ctrl+letter produces control codes
	if ctrl && !shift {
		for i, key := range letterKeys {
			if inpututil.IsKeyJustPressed(key) {
				d.keys.Push(uint8(i) + 1) //nolint:gosec // G115: at most 26
			}
		}
	}
}

var letterKeys = [...]ebiten.Key{
	ebiten.KeyA, ebiten.KeyB, ebiten.KeyC, ebiten.KeyD, ebiten.KeyE, ebiten.KeyF, ebiten.KeyG,
	ebiten.KeyH, ebiten.KeyI, ebiten.KeyJ, ebiten.KeyK, ebiten.KeyL, ebiten.KeyM, ebiten.KeyN,
	ebiten.KeyO, ebiten.KeyP, ebiten.KeyQ, ebiten.KeyR, ebiten.KeyS, ebiten.KeyT, ebiten.KeyU,
	ebiten.KeyV, ebiten.KeyW, ebiten.KeyX, ebiten.KeyY, ebiten.KeyZ,
}

func controlCode(key ebiten.Key) uint8 {
	switch key {
	case ebiten.KeyBackspace:
		return 0x08
	case ebiten.KeyTab:
		return '\t'
	case ebiten.KeyEscape:
		return 0x1B
	}
	return '\r'
}

func (d *Display) paste() {
	d.clipboardOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			d.log.WithError(err).Warn("clipboard unavailable")
			return
		}
		d.clipboardOK = true
	})
	if !d.clipboardOK {
		return
	}
	d.keys.Push(pasteBytes(clipboard.Read(clipboard.FmtText))...)
}

// pasteBytes converts clipboard text to key codes: LF and CRLF become CR,
// non-ASCII bytes are dropped and the result is capped at maxPaste.
func pasteBytes(data []byte) []uint8 {
	out := make([]uint8, 0, min(len(data), maxPaste))
	for i := 0; i < len(data) && len(out) < maxPaste; i++ {
		b := data[i]
		switch {
		case b == '\r' && i+1 < len(data) && data[i+1] == '\n':
			continue
		case b == '\n':
			out = append(out, '\r')
		case b < 0x80:
			out = append(out, b)
		}
	}
	return out
}

// Draw renders the screen contents.
func (d *Display) Draw(dst *ebiten.Image) {
	dst.Fill(background)
	for row, line := range d.screen.Lines() {
		text.Draw(dst, line, basicfont.Face7x13, 0, row*cellHeight+fontAscent, foreground)
	}
}

// Layout returns the logical screen size.
func (d *Display) Layout(_, _ int) (int, int) {
	return d.screen.Columns() * cellWidth, d.screen.Rows() * cellHeight
}
