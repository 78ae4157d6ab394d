package wasm

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/quire/internal/logging"
	"github.com/dshills/quire/internal/plugin"
)

// activate and deactivate, both empty.
var emptyModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x19, 0x02,
	0x08, 'a', 'c', 't', 'i', 'v', 'a', 't', 'e', 0x00, 0x00,
	0x0a, 'd', 'e', 'a', 'c', 't', 'i', 'v', 'a', 't', 'e', 0x00, 0x00,
	0x0a, 0x04, 0x01, 0x02, 0x00, 0x0b,
}

// activate traps with unreachable.
var trapModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	0x03, 0x02, 0x01, 0x00,
	0x07, 0x0c, 0x01,
	0x08, 'a', 'c', 't', 'i', 'v', 'a', 't', 'e', 0x00, 0x00,
	0x0a, 0x05, 0x01, 0x03, 0x00, 0x00, 0x0b,
}

// activate calls quire.log(0, 2) with "hi" stored at offset 0.
var logModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x09, 0x02, 0x60, 0x02, 0x7f, 0x7f, 0x00, 0x60, 0x00, 0x00,
	0x02, 0x0d, 0x01, 0x05, 'q', 'u', 'i', 'r', 'e', 0x03, 'l', 'o', 'g', 0x00, 0x00,
	0x03, 0x02, 0x01, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x0c, 0x01, 0x08, 'a', 'c', 't', 'i', 'v', 'a', 't', 'e', 0x00, 0x01,
	0x0a, 0x0a, 0x01, 0x08, 0x00, 0x41, 0x00, 0x41, 0x02, 0x10, 0x00, 0x0b,
	0x0b, 0x08, 0x01, 0x00, 0x41, 0x00, 0x0b, 0x02, 'h', 'i',
}

type testWindow struct{}

func (testWindow) Role() string              { return "main" }
func (testWindow) DocumentURIs() []string    { return nil }
func (testWindow) ActiveDocumentURI() string { return "" }

func writePlugin(t *testing.T, module string, code []byte) *plugin.Info {
	t.Helper()
	dir := t.TempDir()
	manifest := fmt.Sprintf("[Plugin]\nIAge = 2\nModule = %q\nLoader = \"wasm\"\nName = %q\n", module, module)
	path := filepath.Join(dir, module+plugin.ManifestExt)
	require.NoError(t, os.WriteFile(path, []byte(manifest), 0o644))
	if code != nil {
		require.NoError(t, os.WriteFile(filepath.Join(dir, module+ModuleExt), code, 0o644))
	}
	info, err := plugin.ParseInfo(path, "")
	require.NoError(t, err)
	return info
}

func newLoader(t *testing.T, opts ...Option) *Loader {
	t.Helper()
	l, err := NewLoader(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLoader_Lifecycle(t *testing.T) {
	l := newLoader(t)
	require.Equal(t, "wasm", l.ID())
	info := writePlugin(t, "empty", emptyModule)

	p, err := l.Load(info, info.InstallDir())
	require.NoError(t, err)

	w := testWindow{}
	require.NoError(t, p.Activate(w))
	p.UpdateUI(w)
	require.NoError(t, p.Deactivate(w))
	require.False(t, p.IsConfigurable())
	require.ErrorIs(t, p.Configure(), plugin.ErrNotConfigurable)

	l.Unload(info)
	require.Len(t, l.retired, 1)
	l.GarbageCollect()
	require.Empty(t, l.retired)

	// The module name is free again once unloaded.
	_, err = l.Load(info, info.InstallDir())
	require.NoError(t, err)
}

func TestLoader_Trap(t *testing.T) {
	l := newLoader(t)
	info := writePlugin(t, "trap", trapModule)

	p, err := l.Load(info, info.InstallDir())
	require.NoError(t, err)
	require.Error(t, p.Activate(testWindow{}))
}

func TestLoader_HostLog(t *testing.T) {
	var buf bytes.Buffer
	log := logging.NewLogger(logging.LoggerConfig{Level: logging.LogLevelDebug, Output: &buf})
	l := newLoader(t, WithLogger(log))
	info := writePlugin(t, "logger", logModule)

	p, err := l.Load(info, info.InstallDir())
	require.NoError(t, err)
	require.NoError(t, p.Activate(testWindow{}))
	require.Contains(t, buf.String(), `"message":"hi"`)
	require.Contains(t, buf.String(), `"plugin":"logger"`)
}

func TestLoader_Errors(t *testing.T) {
	l := newLoader(t)

	missing := writePlugin(t, "missing", nil)
	_, err := l.Load(missing, missing.InstallDir())
	require.ErrorIs(t, err, os.ErrNotExist)

	garbage := writePlugin(t, "garbage", []byte("not wasm"))
	_, err = l.Load(garbage, garbage.InstallDir())
	require.Error(t, err)
}

func TestFactory(t *testing.T) {
	loader, err := Factory(WithExecTimeout(0))()
	require.NoError(t, err)
	require.Equal(t, LoaderID, loader.ID())
	require.NoError(t, loader.(*Loader).Close())
}
