package resources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedIndex(t *testing.T) {
	data, err := Embedded().Load(IndexPage)
	require.NoError(t, err)
	assert.Contains(t, string(data), `src="/videostream.cgi"`)
}

func TestEmbeddedNotFound(t *testing.T) {
	_, err := Embedded().Load("missing.html")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Embedded().Load("../loader.go")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirLoader(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, IndexPage), []byte("<html>custom</html>"), 0644))

	outside := filepath.Join(filepath.Dir(root), "secret.html")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))
	t.Cleanup(func() { os.Remove(outside) })

	l := Dir(root)

	data, err := l.Load(IndexPage)
	require.NoError(t, err)
	assert.Equal(t, "<html>custom</html>", string(data))

	_, err = l.Load("nope.html")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = l.Load("../secret.html")
	assert.ErrorIs(t, err, ErrNotFound, "names are confined to the root")
}
