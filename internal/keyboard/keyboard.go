// Package keyboard implements a character input queue exposed to the Z80
// through two I/O ports.
//
// The status port reads 0xFF while a character is waiting and 0x00
// otherwise. Reading the data port removes and returns the next character,
// or 0x00 when the queue is empty.
package keyboard

import (
	"sync"

	"github.com/richardwooding/z80emu/internal/memory"
)

// Default port assignments.
const (
	DefaultStatusPort = 0x10
	DefaultDataPort   = DefaultStatusPort + 1
)

// Port offsets within the device mapping.
const (
	statusOffset = 0
	dataOffset   = 1

	// PortCount is the number of ports the device occupies.
	PortCount = 2
)

// Queue is a thread-safe FIFO of characters. Producers (a terminal or a
// window) push keys; the emulated program or the BDOS console pops them.
type Queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	keys   []uint8
	closed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends keys to the queue. Keys pushed after Close are dropped.
func (q *Queue) Push(keys ...uint8) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.keys = append(q.keys, keys...)
	q.cond.Broadcast()
}

// PushString appends the bytes of s.
func (q *Queue) PushString(s string) {
	q.Push([]uint8(s)...)
}

// Pop removes the next key without blocking.
func (q *Queue) Pop() (uint8, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

func (q *Queue) popLocked() (uint8, bool) {
	if len(q.keys) == 0 {
		return 0, false
	}
	k := q.keys[0]
	q.keys = q.keys[1:]
	return k, true
}

// Next blocks until a key is available. It returns false once the queue
// is closed and drained.
func (q *Queue) Next() (uint8, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.keys) == 0 && !q.closed {
		q.cond.Wait()
	}
	return q.popLocked()
}

// Pending returns the number of queued keys.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys)
}

// Close marks the end of input and wakes blocked readers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Device returns the port view of the queue, to be mapped at the status
// port with PortCount ports.
func (q *Queue) Device() memory.Device {
	return device{q}
}

type device struct {
	q *Queue
}

func (d device) Read(offset uint16) uint8 {
	switch offset {
	case statusOffset:
		if d.q.Pending() > 0 {
			return 0xFF
		}
		return 0x00
	case dataOffset:
		k, _ := d.q.Pop()
		return k
	}
	return 0xFF
}

// Write is ignored: the ports are read-only.
func (device) Write(uint16, uint8) {}

// Attach maps the queue's ports on bus starting at base.
func Attach(bus *memory.Bus, q *Queue, base int) error {
	return bus.Map(base, PortCount, q.Device())
}
