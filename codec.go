package nque

import (
	"fmt"
	"math"
)

// keyCodec maps logical item positions in [0, capacity) onto fixed-width
// decimal storage keys. Zero padding keeps lexicographic key order equal to
// numeric position order within any non-wrapped span, and the fixed width
// keeps keys distinguishable from the reserved pointer keys, which are
// non-numeric.
type keyCodec struct {
	capacity int
	width    int // digits per key, ceil(log10(capacity))
}

func newKeyCodec(capacity int) keyCodec {
	width := int(math.Ceil(math.Log10(float64(capacity))))
	if width < 1 {
		width = 1
	}
	return keyCodec{capacity: capacity, width: width}
}

// encode renders pos as a zero-padded decimal key, e.g. 7 → "007" at
// capacity 1000.
func (c keyCodec) encode(pos int) []byte {
	return fmt.Appendf(nil, "%0*d", c.width, pos)
}

// next returns the position following pos, wrapping back to 0 at capacity.
func (c keyCodec) next(pos int) int {
	if pos == c.capacity-1 {
		return 0
	}
	return pos + 1
}
