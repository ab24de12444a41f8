package sigaction

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reglet-dev/vfpython/domain/ports"
)

func TestLayout_WithOnStack(t *testing.T) {
	layouts := map[string]layout{
		"long flags":  {handlerOff: 0, handlerLen: 8, flagsOff: 8, flagsLen: 8, onStack: 0x08000000},
		"int flags":   {handlerOff: 0, handlerLen: 8, flagsOff: 12, flagsLen: 4, onStack: 0x0001},
		"flags first": {handlerOff: 8, handlerLen: 8, flagsOff: 0, flagsLen: 4, onStack: 0x08000000},
	}
	for name, l := range layouts {
		t.Run(name, func(t *testing.T) {
			disposition := func(handler uint64, flags uint64) ports.Disposition {
				d := make(ports.Disposition, dispositionSize)
				binary.NativeEndian.PutUint64(d[l.handlerOff:], handler)
				if l.flagsLen == 4 {
					binary.NativeEndian.PutUint32(d[l.flagsOff:], uint32(flags))
				} else {
					binary.NativeEndian.PutUint64(d[l.flagsOff:], flags)
				}
				return d
			}

			ignored := disposition(1, 0)
			assert.Equal(t, ignored, l.withOnStack(ignored), "SIG_IGN is left alone")
			dfl := disposition(0, 0)
			assert.Equal(t, dfl, l.withOnStack(dfl), "SIG_DFL is left alone")

			handler := disposition(0x7f0012345678, 0x4)
			patched := l.withOnStack(handler)
			assert.Equal(t, uint64(0x4)|l.onStack, l.flags(patched))
			assert.Equal(t, uint64(0x4), l.flags(handler), "input is not modified")
			assert.Equal(t, handler[l.handlerOff:l.handlerOff+8], patched[l.handlerOff:l.handlerOff+8])

			already := disposition(0x7f0012345678, l.onStack)
			assert.Equal(t, already, l.withOnStack(already))
		})
	}
}
