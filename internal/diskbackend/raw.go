package diskbackend

import (
	"context"
)

// RawBackend writes a plain flat file and partitions it directly. No
// container format, no mount step of its own.
type RawBackend struct {
	path string
}

func (b *RawBackend) Path() string { return b.path }

// DevicePath is the backing file itself, already a flat byte view of the
// whole image.
func (b *RawBackend) DevicePath(ctx context.Context) (string, error) { return b.path, nil }

func (b *RawBackend) Create(ctx context.Context, spec Spec) ([]PartitionGeometry, error) {
	geoms, err := ComputeGeometry(spec.Partitions, spec.SizeMiB)
	if err != nil {
		return nil, err
	}
	if err := WriteGPT(b.path, spec.SizeMiB, geoms); err != nil {
		return nil, err
	}
	return geoms, nil
}

func (b *RawBackend) Close(ctx context.Context) error { return nil }
