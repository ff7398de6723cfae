// Package resources loads static files served by the API.
package resources

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// IndexPage is the name of the viewer page.
const IndexPage = "index.html"

// ErrNotFound is returned when a resource does not exist
var ErrNotFound = errors.New("resource not found")

//go:embed static
var staticFS embed.FS

// Loader returns the bytes of a named resource.
type Loader interface {
	Load(name string) ([]byte, error)
}

type embeddedLoader struct{}

// Embedded returns a loader for the resources compiled into the binary.
func Embedded() Loader {
	return embeddedLoader{}
}

func (embeddedLoader) Load(name string) ([]byte, error) {
	data, err := staticFS.ReadFile(path.Join("static", path.Clean("/" + name)[1:]))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read embedded resource %s: %w", name, err)
	}
	return data, nil
}

type dirLoader struct {
	root string
}

// Dir returns a loader reading from root. Names cannot escape root.
func Dir(root string) Loader {
	return dirLoader{root: root}
}

func (l dirLoader) Load(name string) ([]byte, error) {
	p, err := securejoin.SecureJoin(l.root, name)
	if err != nil {
		return nil, fmt.Errorf("resolve resource %s: %w", name, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("read resource %s: %w", name, err)
	}
	return data, nil
}
