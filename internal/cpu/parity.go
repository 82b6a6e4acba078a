package cpu

import "math/bits"

// parity[v] is true when v has an even number of set bits.
var parity [256]bool

// sz53 holds the S, Z, 5 and 3 flags for every result byte.
var sz53 [256]uint8

// sz53p is sz53 with the parity flag merged in.
var sz53p [256]uint8

func init() {
	for i := range 256 {
		v := uint8(i) //nolint:gosec // G115: i is in byte range
		parity[i] = bits.OnesCount8(v)%2 == 0

		f := v & (FlagS | flags35)
		if v == 0 {
			f |= FlagZ
		}
		sz53[i] = f
		sz53p[i] = f
		if parity[i] {
			sz53p[i] |= FlagPV
		}
	}
}
