package cpython

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/reglet-dev/vfpython/domain/errors"
)

type fakeLibrary struct {
	symbols map[string]uintptr
	lookups []string
}

func (l *fakeLibrary) Path() string { return "/opt/python/lib/libpython3.11.so.1.0" }
func (l *fakeLibrary) Close() error { return nil }

func (l *fakeLibrary) Lookup(name string) (uintptr, error) {
	l.lookups = append(l.lookups, name)
	if a, ok := l.symbols[name]; ok {
		return a, nil
	}
	return 0, errors.New("undefined symbol")
}

func completeLibrary() *fakeLibrary {
	lib := &fakeLibrary{symbols: map[string]uintptr{}}
	for i, name := range Manifest() {
		lib.symbols[name] = uintptr(0x1000 + 16*i)
	}
	return lib
}

func TestManifest_MatchesSymbols(t *testing.T) {
	typ := reflect.TypeOf(symbols{})
	fields := make(map[string]bool, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		fields[typ.Field(i).Name] = true
	}
	assert.Len(t, functionSymbols, typ.NumField())
	for _, name := range functionSymbols {
		assert.True(t, fields[name], "manifest entry %s has no binding", name)
	}
}

func TestManifest_Stable(t *testing.T) {
	assert.Equal(t, Manifest(), Manifest())
	assert.Contains(t, Manifest(), "PyExc_KeyboardInterrupt")
	assert.Contains(t, Manifest(), noneSymbol)
}

func TestResolve_Complete(t *testing.T) {
	lib := completeLibrary()
	table, err := Resolve(lib)
	require.NoError(t, err)

	assert.Equal(t, len(Manifest()), table.Len())
	assert.Equal(t, ManifestVersion, table.Version())
	assert.Equal(t, lib.Path(), table.Path())
	addr, ok := table.Addr("Py_InitializeEx")
	assert.True(t, ok)
	assert.NotZero(t, addr)
}

func TestResolve_MissingSymbolYieldsNoTable(t *testing.T) {
	lib := completeLibrary()
	delete(lib.symbols, "PyErr_SetInterrupt")

	table, err := Resolve(lib)
	assert.Nil(t, table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domainerrors.ErrSymbolMissing))

	var le *domainerrors.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "PyErr_SetInterrupt", le.Symbol)
	assert.Equal(t, "PyErr_SetInterrupt", lib.lookups[len(lib.lookups)-1], "resolution stops at the first missing symbol")
}

func TestResolve_ZeroAddressIsMissing(t *testing.T) {
	lib := completeLibrary()
	lib.symbols["_Py_NoneStruct"] = 0

	_, err := Resolve(lib)
	assert.True(t, errors.Is(err, domainerrors.ErrSymbolMissing))
}

func TestBind(t *testing.T) {
	table, err := Resolve(completeLibrary())
	require.NoError(t, err)

	api, err := Bind(table)
	require.NoError(t, err)
	assert.NotNil(t, api.fn.Py_InitializeEx)
	assert.NotNil(t, api.fn.PyCFunction_NewEx)
	noneAddr, _ := table.Addr(noneSymbol)
	assert.Equal(t, noneAddr, uintptr(api.None()))
}

func TestBind_NilTable(t *testing.T) {
	_, err := Bind(nil)
	assert.Error(t, err)
}

func TestBind_IncompleteTable(t *testing.T) {
	table := &SymbolTable{addrs: map[string]uintptr{"Py_DecodeLocale": 0x10}, path: "lib", version: ManifestVersion}
	api, err := Bind(table)
	assert.Nil(t, api)
	assert.True(t, errors.Is(err, domainerrors.ErrSymbolMissing))
}

func TestLoad_PropagatesResolveFailure(t *testing.T) {
	lib := completeLibrary()
	delete(lib.symbols, "Py_FinalizeEx")
	api, err := Load(lib)
	assert.Nil(t, api)
	assert.True(t, errors.Is(err, domainerrors.ErrSymbolMissing))
}

func TestReleaseHostFunctions_Empty(t *testing.T) {
	ReleaseHostFunctions()
	assert.Equal(t, 0, hostFunctionCount())
}
