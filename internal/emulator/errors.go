package emulator

import (
	"errors"
	"fmt"
)

var (
	// ErrPortSpaceTooSmall is returned when the port space cannot hold every port number.
	ErrPortSpaceTooSmall = errors.New("port space too small")
	// ErrInterruptMode is returned for interrupt modes other than 0, 1 and 2.
	ErrInterruptMode = errors.New("interrupt mode must be 0, 1 or 2")
	// ErrRunning is returned when a run is requested while the processor is already running.
	ErrRunning = errors.New("processor is already running")
)

// FetchFinishedNotFiredError is returned when an instruction completed
// without the decoder reporting the end of its opcode fetch.
type FetchFinishedNotFiredError struct {
	Address uint16
	Opcode  []uint8
}

func (e *FetchFinishedNotFiredError) Error() string {
	return fmt.Sprintf("instruction at 0x%04X (% X) did not report fetch finished", e.Address, e.Opcode)
}
