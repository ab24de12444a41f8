package guest_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
	"github.com/reglet-dev/vfpython/guest"
	"github.com/reglet-dev/vfpython/testing/guesttest"
)

const echoSource = "def echo(*args): return args\n"

func loadEcho(t *testing.T, f *guesttest.Interp) *guest.Ref {
	t.Helper()
	f.RegisterScript(echoSource, func(m *guesttest.Module) error {
		m.DefineClass("Box", func(arg string) (*guesttest.Instance, error) {
			if arg == "boom" {
				return nil, guesttest.Raisef("ValueError", "bad box %q", arg)
			}
			return &guesttest.Instance{
				Methods: map[string]guesttest.Method{
					"label": func(args ...any) (any, error) { return "box:" + arg, nil },
				},
			}, nil
		})
		return nil
	})
	code := guest.Own(f, f.Compile(echoSource, "echo.py", 257))
	require.NotNil(t, code)
	defer code.Close()
	mod := guest.Own(f, f.ExecCodeModule("echo", code.Obj(), "echo.py"))
	require.NotNil(t, mod)
	return mod
}

func TestNewTuple_ConsumesItems(t *testing.T) {
	f := newInterp(t)
	base := f.RefTotal()

	a, err := guest.String(f, "a")
	require.NoError(t, err)
	b, err := guest.Int(f, 2)
	require.NoError(t, err)

	tup, err := guest.NewTuple(f, a, b)
	require.NoError(t, err)
	assert.False(t, a.Valid())
	assert.False(t, b.Valid())
	assert.Equal(t, 2, f.TupleSize(tup.Obj()))

	tup.Close()
	assert.Equal(t, base, f.RefTotal())
}

func TestNewTuple_InvalidItemReleasesRest(t *testing.T) {
	f := newInterp(t)
	base := f.RefTotal()

	a, _ := guest.String(f, "a")
	moved, _ := guest.String(f, "m")
	keep := moved.Move()
	c, _ := guest.Int(f, 3)

	_, err := guest.NewTuple(f, a, moved, c)
	require.Error(t, err)
	assert.False(t, c.Valid())
	keep.Close()
	assert.Equal(t, base, f.RefTotal())
}

func TestBytes_RoundTrip(t *testing.T) {
	f := newInterp(t)
	r, err := guest.Bytes(f, []byte{1, 2, 3})
	require.NoError(t, err)
	defer r.Close()
	b, ok := f.AsBytes(r.Obj())
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, b)
}

func TestCallMethod(t *testing.T) {
	f := newInterp(t)
	mod := loadEcho(t, f)
	defer mod.Close()
	base := f.RefTotal()

	cls, err := guest.GetAttr(f, mod, "Box")
	require.NoError(t, err)
	arg, _ := guest.String(f, "red")
	box, err := guest.Call(f, cls, arg)
	cls.Close()
	require.NoError(t, err)

	label, err := guest.CallMethod(f, box, "label")
	require.NoError(t, err)
	assert.Equal(t, "box:red", guest.Text(f, label.Obj()))
	guest.CloseAll(label, box)
	assert.Equal(t, base, f.RefTotal())
}

func TestCall_RaisesGuestException(t *testing.T) {
	f := newInterp(t)
	mod := loadEcho(t, f)
	defer mod.Close()
	base := f.RefTotal()

	cls, err := guest.GetAttr(f, mod, "Box")
	require.NoError(t, err)
	defer cls.Close()
	arg, _ := guest.String(f, "boom")
	_, err = guest.Call(f, cls, arg)
	require.Error(t, err)

	var exc *domainerrors.GuestException
	require.True(t, errors.As(err, &exc))
	assert.Equal(t, "ValueError", exc.Type)
	assert.Contains(t, exc.Message, "bad box")
	assert.False(t, f.ErrOccurred())
	assert.Equal(t, base, f.RefTotal())
}

func TestCallMethod_MissingAttributeReleasesArgs(t *testing.T) {
	f := newInterp(t)
	mod := loadEcho(t, f)
	defer mod.Close()
	base := f.RefTotal()

	arg, _ := guest.Int(f, 1)
	_, err := guest.CallMethod(f, mod, "nope", arg)
	require.Error(t, err)
	assert.False(t, arg.Valid())
	assert.Equal(t, base, f.RefTotal())
}

func TestImport_Missing(t *testing.T) {
	f := newInterp(t)
	_, err := guest.Import(f, "numpy")
	require.Error(t, err)
	var exc *domainerrors.GuestException
	require.True(t, errors.As(err, &exc))
	assert.Equal(t, "ModuleNotFoundError", exc.Type)
}

func TestText(t *testing.T) {
	f := newInterp(t)
	n, _ := guest.Int(f, 42)
	defer n.Close()
	assert.Equal(t, "42", guest.Text(f, n.Obj()))
	assert.Equal(t, "", guest.Text(f, 0))
	assert.False(t, f.ErrOccurred())
}
