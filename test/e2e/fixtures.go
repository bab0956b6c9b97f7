// Package e2e provides end-to-end tests; this file writes corpus images to disk.
package e2e

import (
	"bytes"
	"image/png"
	"os"
)

// WritePNGFile renders spec and writes it as a PNG to path.
func WritePNGFile(path string, spec ImageSpec) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, spec.Render()); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
