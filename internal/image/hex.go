package image

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/richardwooding/z80emu/internal/memory"
)

var (
	// ErrChecksum is returned when an Intel HEX record's checksum does not match.
	ErrChecksum = errors.New("record checksum mismatch")
	// ErrMalformedRecord is returned for Intel HEX lines that cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record")
)

// Intel HEX record types.
const (
	recordData                   = 0x00
	recordEOF                    = 0x01
	recordExtendedSegmentAddress = 0x02
	recordStartSegmentAddress    = 0x03
	recordExtendedLinearAddress  = 0x04
	recordStartLinearAddress     = 0x05
)

func parseIntelHex(data []uint8) ([]Segment, error) {
	var (
		segs []Segment
		base int
		eof  bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if eof {
			return nil, fmt.Errorf("line %d: %w: data after end-of-file record", line, ErrMalformedRecord)
		}

		rec, err := decodeRecord(text)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		switch rec.kind {
		case recordData:
			addr := base + int(rec.address)
			if addr+len(rec.data) > memory.AddressSpaceSize {
				return nil, fmt.Errorf("line %d: %w: %d bytes at 0x%X", line, ErrTooLarge, len(rec.data), addr)
			}
			segs = appendData(segs, uint16(addr), rec.data) //nolint:gosec // G115: checked against 64 KiB above
		case recordEOF:
			eof = true
		case recordExtendedSegmentAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: %w: segment address needs 2 bytes", line, ErrMalformedRecord)
			}
			base = (int(rec.data[0])<<8 | int(rec.data[1])) << 4
		case recordExtendedLinearAddress:
			if len(rec.data) != 2 {
				return nil, fmt.Errorf("line %d: %w: linear address needs 2 bytes", line, ErrMalformedRecord)
			}
			base = (int(rec.data[0])<<8 | int(rec.data[1])) << 16
		case recordStartSegmentAddress, recordStartLinearAddress:
			// Start addresses are for x86 targets
		default:
			return nil, fmt.Errorf("line %d: %w: unknown record type 0x%02X", line, ErrMalformedRecord, rec.kind)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	if len(segs) == 0 {
		return nil, ErrEmpty
	}
	return segs, nil
}

type record struct {
	kind    uint8
	address uint16
	data    []uint8
}

func decodeRecord(text string) (record, error) {
	if !strings.HasPrefix(text, ":") {
		return record{}, fmt.Errorf("%w: missing start code", ErrMalformedRecord)
	}
	raw, err := hex.DecodeString(text[1:])
	if err != nil {
		return record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	// count, address (2), type, checksum
	if len(raw) < 5 {
		return record{}, fmt.Errorf("%w: record too short", ErrMalformedRecord)
	}
	count := int(raw[0])
	if len(raw) != count+5 {
		return record{}, fmt.Errorf("%w: byte count %d does not match record length", ErrMalformedRecord, count)
	}

	var sum uint8
	for _, b := range raw {
		sum += b
	}
	if sum != 0 {
		return record{}, fmt.Errorf("%w: sum is 0x%02X", ErrChecksum, sum)
	}

	return record{
		kind:    raw[3],
		address: uint16(raw[1])<<8 | uint16(raw[2]),
		data:    raw[4 : 4+count],
	}, nil
}

// appendData extends the last segment when addr follows it, otherwise
// starts a new segment.
func appendData(segs []Segment, addr uint16, data []uint8) []Segment {
	if len(data) == 0 {
		return segs
	}
	if n := len(segs); n > 0 && segs[n-1].End() == int(addr) {
		segs[n-1].Data = append(segs[n-1].Data, data...)
		return segs
	}
	return append(segs, Segment{Address: addr, Data: append([]uint8(nil), data...)})
}
