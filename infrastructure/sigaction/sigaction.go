// Package sigaction reads and writes process signal dispositions below the
// Go runtime, so handlers installed by native code can be saved and put back.
//
// A restored disposition is bit-exact except for one flag: a handler
// function always gets SA_ONSTACK, which the Go runtime requires of every
// handler that can run on a Go thread. Older interpreters install theirs
// without it.
package sigaction

import (
	"encoding/binary"

	"github.com/reglet-dev/vfpython/domain/ports"
)

// dispositionSize is large enough for struct sigaction on every supported
// platform.
const dispositionSize = 256

var _ ports.DispositionTable = (*Table)(nil)

// layout locates the two struct sigaction fields the table touches.
type layout struct {
	handlerOff int
	handlerLen int
	flagsOff   int
	flagsLen   int
	onStack    uint64
}

// Handler values below this are SIG_DFL and SIG_IGN.
const firstHandler = 2

func (l layout) read(d []byte, off, n int) uint64 {
	if n == 4 {
		return uint64(binary.NativeEndian.Uint32(d[off:]))
	}
	return binary.NativeEndian.Uint64(d[off:])
}

func (l layout) flags(d []byte) uint64 {
	return l.read(d, l.flagsOff, l.flagsLen)
}

// withOnStack returns a copy of d with SA_ONSTACK set when d installs a
// handler function.
func (l layout) withOnStack(d ports.Disposition) ports.Disposition {
	if l.read(d, l.handlerOff, l.handlerLen) < firstHandler {
		return d
	}
	f := l.flags(d)
	if f&l.onStack != 0 {
		return d
	}
	out := make(ports.Disposition, len(d))
	copy(out, d)
	f |= l.onStack
	if l.flagsLen == 4 {
		binary.NativeEndian.PutUint32(out[l.flagsOff:], uint32(f))
	} else {
		binary.NativeEndian.PutUint64(out[l.flagsOff:], f)
	}
	return out
}
