package cpu

// Byte and word helpers shared by the instruction handlers.

// hi returns the high byte of a word.
func hi(value uint16) uint8 {
	return uint8(value >> 8) //nolint:gosec // G115: Intentional byte extraction from 16-bit value
}

// lo returns the low byte of a word.
func lo(value uint16) uint8 {
	return uint8(value) //nolint:gosec // G115: Intentional byte extraction from 16-bit value
}

// word builds a word from its high and low bytes.
func word(high, low uint8) uint16 {
	return uint16(high)<<8 | uint16(low)
}

// signExtend converts a two's complement displacement byte to a word
// suitable for wrapping address arithmetic.
func signExtend(value uint8) uint16 {
	return uint16(int16(int8(value))) //nolint:gosec // G115: Sign extension is the intent
}

// bitOf reports whether bit n of value is set.
func bitOf(value uint8, n uint8) bool {
	return value&(1<<n) != 0
}

// withBit returns value with bit n set or cleared.
func withBit(value uint8, n uint8, set bool) uint8 {
	if set {
		return value | (1 << n)
	}
	return value &^ (1 << n)
}

// boolToUint8 returns 1 for true and 0 for false.
func boolToUint8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
