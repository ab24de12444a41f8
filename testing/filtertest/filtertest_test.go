package filtertest

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/domain/entities"
	"github.com/reglet-dev/vfpython/infrastructure/catalog"
	"github.com/reglet-dev/vfpython/testing/guesttest"
)

const thresholdSource = "class Threshold: ...\n"

// threshold maps bytes below 128 to 0 and others to 255. A first byte of 1
// raises, 2 interrupts.
func threshold(m *guesttest.Module) error {
	m.DefineClass("Threshold", func(string) (*guesttest.Instance, error) {
		return &guesttest.Instance{Call: func(in, out *guesttest.View) error {
			src, err := entities.ParseHeader(in.Bytes())
			if err != nil {
				return err
			}
			dst, err := entities.ParseHeader(out.Bytes())
			if err != nil {
				return err
			}
			switch src.Plane(0)[0] {
			case 1:
				return guesttest.Raisef("ValueError", "bad frame")
			case 2:
				return guesttest.Raisef("KeyboardInterrupt", "")
			}
			for i, b := range src.Plane(0) {
				if b >= 128 {
					dst.Plane(0)[i] = 255
				}
			}
			return nil
		}}, nil
	})
	return nil
}

func TestRunFrameTests(t *testing.T) {
	env := NewEnv(t, thresholdSource, threshold)
	f := env.New(t, "Threshold", "")
	sigs := CatchInterrupts(t, f)

	fill := func(first byte) func(*entities.Frame) {
		return func(in *entities.Frame) {
			p := in.Plane(0)
			for i := range p {
				p[i] = byte(i * 16)
			}
			p[0] = first
		}
	}

	RunFrameTests(t, f, []FrameCase{
		{
			Name:   "thresholds",
			Format: catalog.GRAY8, Width: 16, Height: 2,
			Fill: fill(0),
			Validate: func(t *testing.T, in, out *entities.Frame, err error) {
				AssertSuccess(t, out, err)
				require.NotNil(t, out)
				assert.Equal(t, byte(0), out.Plane(0)[7])
				assert.Equal(t, byte(255), out.Plane(0)[8])
			},
		},
		{
			Name:   "failure",
			Format: catalog.GRAY8, Width: 16, Height: 2,
			Fill:     fill(1),
			Validate: failureCase,
		},
		{
			Name:   "interrupt",
			Format: catalog.GRAY8, Width: 16, Height: 2,
			Fill: fill(2),
			Validate: func(t *testing.T, _, out *entities.Frame, err error) {
				AssertInterrupted(t, out, err)
				assert.Equal(t, os.Interrupt, <-sigs)
			},
		},
	})

	assert.Equal(t, int64(3), f.Runtime().Stats().Invocations)
}

// failureCase adapts AssertFailure to FrameCase.Validate.
func failureCase(t *testing.T, _, out *entities.Frame, err error) {
	AssertFailure(t, out, err)
}
