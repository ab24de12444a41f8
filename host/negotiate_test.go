package host_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reglet-dev/vfpython/domain/entities"
	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/host"
	"github.com/reglet-dev/vfpython/infrastructure/catalog"
	"github.com/reglet-dev/vfpython/testing/guesttest"
)

const formatsSource = "class Formats: ...\n"

// formatsScript defines Formats whose get_formats is chosen by the
// constructor argument.
func formatsScript(m *guesttest.Module) error {
	m.DefineClass("Formats", func(arg string) (*guesttest.Instance, error) {
		inst := &guesttest.Instance{Call: func(in, out *guesttest.View) error { return nil }}
		reply := func(v any) {
			inst.Methods = map[string]guesttest.Method{
				"get_formats": func(...any) (any, error) { return v, nil },
			}
		}
		switch arg {
		case "absent":
		case "list":
			reply([]int{2, 5, 9})
		case "tuple-like":
			reply([]any{int64(0), int64(26)})
		case "scalar":
			reply(7)
		case "string":
			reply("rgb24")
		case "names":
			reply([]string{"rgb24"})
		case "out-of-range":
			reply([]int{2, 9999})
		case "negative":
			reply([]int{-1})
		case "empty":
			reply([]int{})
		case "raises":
			inst.Methods = map[string]guesttest.Method{
				"get_formats": func(...any) (any, error) { return nil, guesttest.Raisef("RuntimeError", "no formats today") },
			}
		case "attribute":
			inst.Attrs = map[string]any{"get_formats": 3}
		}
		return inst, nil
	})
	return nil
}

func TestQueryFormats(t *testing.T) {
	fx := newFixture(t)
	rt := fx.start(t)
	path := fx.script(t, "formats.py", formatsSource, formatsScript)

	tests := []struct {
		arg    string
		want   entities.FormatList
		reason string
	}{
		{arg: "absent", want: entities.FormatList{catalog.RGB24, entities.PixFmtNone}},
		{arg: "list", want: entities.FormatList{2, 5, 9, -1}},
		{arg: "tuple-like", want: entities.FormatList{0, 26, -1}},
		{arg: "scalar", reason: "result is not a sequence"},
		{arg: "string", reason: "element 0 is not an integer"},
		{arg: "names", reason: "element 0 is not an integer"},
		{arg: "out-of-range", reason: "element 1 (9999) outside [0, 43]"},
		{arg: "negative", reason: "element 0 (-1) outside [0, 43]"},
		{arg: "empty", reason: "empty format list"},
		{arg: "raises", reason: "call failed"},
		{arg: "attribute", reason: "not callable"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			do(t, rt, func(s *host.Session) error {
				mod, err := s.LoadModule(path)
				require.NoError(t, err)
				obj, err := s.Instantiate(mod, "Formats", tt.arg)
				require.NoError(t, err)
				require.NoError(t, s.Release(mod))
				defer s.Release(obj)

				base := fx.interp.RefTotal()
				got, err := s.QueryFormats(obj, catalog.RGB24)
				assert.Equal(t, base, fx.interp.RefTotal())
				assert.False(t, s.API().ErrOccurred())

				if tt.reason != "" {
					var capErr *domainerrors.CapabilityError
					require.ErrorAs(t, err, &capErr)
					assert.Equal(t, host.FormatsMethod, capErr.Method)
					assert.Equal(t, tt.reason, capErr.Reason)
					assert.Nil(t, got)
					return nil
				}
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				assert.True(t, got.Terminated())
				return nil
			})
		})
	}
}

func TestLookupCapability(t *testing.T) {
	fx := newFixture(t)
	rt := fx.start(t)
	path := fx.script(t, "formats.py", formatsSource, formatsScript)

	do(t, rt, func(s *host.Session) error {
		mod, err := s.LoadModule(path)
		require.NoError(t, err)
		defer s.Release(mod)
		obj, err := s.Instantiate(mod, "Formats", "list")
		require.NoError(t, err)
		defer s.Release(obj)

		present := s.LookupCapability(obj, host.FormatsMethod)
		defer present.Close()
		assert.Equal(t, host.CapabilityPresent, present.Kind)

		absent := s.LookupCapability(obj, "flush")
		assert.Equal(t, host.CapabilityAbsent, absent.Kind)
		assert.NoError(t, absent.Err)
		assert.False(t, s.API().ErrOccurred())
		return nil
	})
}
