// Package script runs Lua hooks against a running processor.
//
// A script may define two global functions:
//
//	on_fetch(pc)  called before every instruction fetch; returning true stops execution
//	on_bdos(fn)   called for every CP/M BDOS call with the function number
//
// and may call peek(addr), poke(addr, value), reg(name), set_reg(name, value),
// stop() and log(message).
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/richardwooding/z80emu/internal/cpu"
	"github.com/richardwooding/z80emu/internal/emulator"
)

// Hook function names.
const (
	fetchHook = "on_fetch"
	bdosHook  = "on_bdos"
)

// ErrUnknownRegister is raised in scripts for unknown register names.
var ErrUnknownRegister = errors.New("unknown register")

// Engine is a Lua interpreter bound to a processor. It must only be used
// from the goroutine running the processor.
type Engine struct {
	state *lua.LState
	proc  *emulator.Processor
	log   logrus.FieldLogger

	onFetch *lua.LFunction
	onBDOS  *lua.LFunction

	err error
}

// New creates an engine for p.
func New(p *emulator.Processor, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	e := &Engine{
		state: lua.NewState(),
		proc:  p,
		log:   log.WithField("component", "script"),
	}
	e.register()
	return e
}

// Close releases the interpreter.
func (e *Engine) Close() {
	e.state.Close()
}

// Err returns the first error raised by a hook, if any.
func (e *Engine) Err() error {
	return e.err
}

// LoadFile runs a script file and installs its hooks.
func (e *Engine) LoadFile(path string) error {
	if err := e.state.DoFile(path); err != nil {
		return fmt.Errorf("failed to run script %s: %w", path, err)
	}
	e.install()
	return nil
}

// LoadString runs script source and installs its hooks.
func (e *Engine) LoadString(src string) error {
	if err := e.state.DoString(src); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}
	e.install()
	return nil
}

func (e *Engine) install() {
	if fn, ok := e.state.GetGlobal(fetchHook).(*lua.LFunction); ok && e.onFetch == nil {
		e.onFetch = fn
		e.proc.OnBeforeInstructionFetch(e.beforeFetch)
	}
	if fn, ok := e.state.GetGlobal(bdosHook).(*lua.LFunction); ok {
		e.onBDOS = fn
	}
}

// HasBDOSHook reports whether the script defines on_bdos.
func (e *Engine) HasBDOSHook() bool {
	return e.onBDOS != nil
}

// BDOSCall forwards a BDOS call to on_bdos.
func (e *Engine) BDOSCall(function uint8) {
	if e.onBDOS == nil || e.err != nil {
		return
	}
	if _, err := e.call(e.onBDOS, lua.LNumber(function)); err != nil {
		e.fail(bdosHook, err)
	}
}

func (e *Engine) beforeFetch(p *emulator.Processor, _ *emulator.InstructionEvent) {
	if e.err != nil {
		return
	}
	ret, err := e.call(e.onFetch, lua.LNumber(p.Registers().PC))
	if err != nil {
		e.fail(fetchHook, err)
		return
	}
	if lua.LVAsBool(ret) {
		p.Stop(false)
	}
}

func (e *Engine) call(fn *lua.LFunction, args ...lua.LValue) (lua.LValue, error) {
	if err := e.state.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...); err != nil {
		return lua.LNil, err
	}
	ret := e.state.Get(-1)
	e.state.Pop(1)
	return ret, nil
}

func (e *Engine) fail(hook string, err error) {
	e.err = fmt.Errorf("%s failed: %w", hook, err)
	e.log.WithError(err).WithField("hook", hook).Error("script hook failed, stopping")
	e.proc.Stop(false)
}

func (e *Engine) register() {
	e.state.SetGlobal("peek", e.state.NewFunction(e.peek))
	e.state.SetGlobal("poke", e.state.NewFunction(e.poke))
	e.state.SetGlobal("reg", e.state.NewFunction(e.reg))
	e.state.SetGlobal("set_reg", e.state.NewFunction(e.setReg))
	e.state.SetGlobal("stop", e.state.NewFunction(e.stop))
	e.state.SetGlobal("log", e.state.NewFunction(e.logMessage))
}

func (e *Engine) peek(L *lua.LState) int {
	addr := L.CheckInt(1)
	L.Push(lua.LNumber(e.proc.Memory().Read(uint16(addr)))) //nolint:gosec // G115: addresses wrap at 64 KiB
	return 1
}

func (e *Engine) poke(L *lua.LState) int {
	addr := L.CheckInt(1)
	value := L.CheckInt(2)
	e.proc.Memory().Write(uint16(addr), uint8(value)) //nolint:gosec // G115: truncation intended
	return 0
}

func (e *Engine) reg(L *lua.LState) int {
	v, err := readRegister(e.proc.Registers(), L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	L.Push(lua.LNumber(v))
	return 1
}

func (e *Engine) setReg(L *lua.LState) int {
	name := L.CheckString(1)
	value := L.CheckInt(2)
	if err := writeRegister(e.proc.Registers(), name, uint16(value)); err != nil { //nolint:gosec // G115: truncation intended
		L.RaiseError("%v", err)
	}
	return 0
}

func (e *Engine) stop(_ *lua.LState) int {
	e.proc.Stop(false)
	return 0
}

func (e *Engine) logMessage(L *lua.LState) int {
	e.log.Info(L.CheckString(1))
	return 0
}

func readRegister(r *cpu.Registers, name string) (uint16, error) {
	switch strings.ToLower(name) {
	case "a":
		return uint16(r.A), nil
	case "f":
		return uint16(r.F), nil
	case "b":
		return uint16(r.B), nil
	case "c":
		return uint16(r.C), nil
	case "d":
		return uint16(r.D), nil
	case "e":
		return uint16(r.E), nil
	case "h":
		return uint16(r.H), nil
	case "l":
		return uint16(r.L), nil
	case "i":
		return uint16(r.I), nil
	case "r":
		return uint16(r.R), nil
	case "af":
		return r.AF(), nil
	case "bc":
		return r.BC(), nil
	case "de":
		return r.DE(), nil
	case "hl":
		return r.HL(), nil
	case "ix":
		return r.IX, nil
	case "iy":
		return r.IY, nil
	case "sp":
		return r.SP, nil
	case "pc":
		return r.PC, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
}

func writeRegister(r *cpu.Registers, name string, v uint16) error {
	b := uint8(v) //nolint:gosec // G115: 8-bit registers take the low byte
	switch strings.ToLower(name) {
	case "a":
		r.A = b
	case "f":
		r.F = b
	case "b":
		r.B = b
	case "c":
		r.C = b
	case "d":
		r.D = b
	case "e":
		r.E = b
	case "h":
		r.H = b
	case "l":
		r.L = b
	case "i":
		r.I = b
	case "r":
		r.R = b
	case "af":
		r.SetAF(v)
	case "bc":
		r.SetBC(v)
	case "de":
		r.SetDE(v)
	case "hl":
		r.SetHL(v)
	case "ix":
		r.IX = v
	case "iy":
		r.IY = v
	case "sp":
		r.SP = v
	case "pc":
		r.PC = v
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	return nil
}
