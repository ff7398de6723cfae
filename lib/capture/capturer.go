// Package capture produces still images from a camera command or from a
// directory of recorded images.
package capture

import "context"

// Capturer writes one image to path. A nil error means the file at path holds
// a complete image.
type Capturer interface {
	CaptureImage(ctx context.Context, path string) error
}

// CapturerFunc adapts a function to the Capturer interface.
type CapturerFunc func(ctx context.Context, path string) error

func (f CapturerFunc) CaptureImage(ctx context.Context, path string) error {
	return f(ctx, path)
}
