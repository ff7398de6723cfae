package live

import (
	"fmt"
	"os"
)

// FileLoader returns a loader reading the whole file at path.
func FileLoader(path string) Loader {
	return func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read captured image: %w", err)
		}
		return data, nil
	}
}
