package ordernum

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// Prefix is prepended to every generated order number.
const Prefix = "POS"

// Generator produces unique human-facing order numbers. Injected into the
// fulfillment coordinator so storage-backed sequences can replace the default.
type Generator interface {
	Next() string
}

type generator struct{}

// New returns the default generator: prefix + microsecond timestamp +
// random suffix, collision-resistant without process-global state.
func New() Generator {
	return generator{}
}

func (generator) Next() string {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand is documented to never fail on supported platforms;
		// fall back to the clock rather than panic in the order path.
		binary.BigEndian.PutUint32(buf[:], uint32(time.Now().UnixNano()))
	}
	return fmt.Sprintf("%s%x%08x", Prefix, time.Now().UnixMicro(), binary.BigEndian.Uint32(buf[:]))
}
