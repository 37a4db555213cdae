// Package diskbackend creates the final disk image file in either raw or
// qcow2 format and writes its GPT partition table.
package diskbackend

import (
	"context"

	"github.com/open-edge-platform/imagecraft/internal/manifest"
)

// Backend creates and tears down one image's backing storage.
type Backend interface {
	// Create writes the backing file at Path, sized and partitioned per
	// spec, and returns the resolved partition geometry.
	Create(ctx context.Context, spec Spec) ([]PartitionGeometry, error)
	// Path is the backing file's location.
	Path() string
	// DevicePath returns a path presenting the whole image as one flat
	// byte sequence, for PartFS to open read-write. A raw backing file
	// already qualifies; qcow2 must first expose itself over NBD.
	DevicePath(ctx context.Context) (string, error)
	// Close releases any resources the backend is holding (qcow2's
	// qemu-storage-daemon process, NBD export, and QMP socket; a no-op for
	// raw).
	Close(ctx context.Context) error
}

// Spec describes the image a Backend must create.
type Spec struct {
	Format     manifest.ImageFormat
	SizeMiB    int64
	Partitions []manifest.Partition
}

// New returns the Backend matching format, writing its backing file at
// path. Any format other than qcow2 yields a RawBackend.
func New(path string, format manifest.ImageFormat) Backend {
	switch format {
	case manifest.FormatQCow2:
		return &QCow2Backend{path: path}
	default:
		return &RawBackend{path: path}
	}
}
