// Package imageconvert produces distributable variants of a finished
// image. Only xz compression is implemented; raw and qcow2 are already the
// backend's native outputs.
package imageconvert

import (
	"fmt"
	"io"
	"os"

	"github.com/ulikunitz/xz"

	"github.com/open-edge-platform/imagecraft/internal/logger"
)

var log = logger.Logger()

// CompressXZ streams the file at path through an xz writer into
// "<path>.xz" and returns the output path. The input file is left in
// place; callers that want only the compressed artifact remove it
// themselves.
func CompressXZ(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening image for compression: %w", err)
	}
	defer in.Close()

	outPath := path + ".xz"
	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("creating %q: %w", outPath, err)
	}
	defer out.Close()

	zw, err := xz.NewWriter(out)
	if err != nil {
		return "", fmt.Errorf("starting xz stream: %w", err)
	}
	n, err := io.Copy(zw, in)
	if err != nil {
		zw.Close()
		return "", fmt.Errorf("compressing %q: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finishing xz stream: %w", err)
	}

	log.Infow("image compressed", "input", path, "output", outPath, "bytes_in", n)
	return outPath, nil
}
