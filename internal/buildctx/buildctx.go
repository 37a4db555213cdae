// Package buildctx wires together every scoped resource one image build
// needs — the build directory layout, the disk backend, PartFS, and each
// partition's live mount — behind a single Acquire call, and guarantees
// they unwind in the reverse order they were acquired: on a failed
// acquisition step, on a panic during one, or when the caller is done with
// the build and releases it.
package buildctx

import (
	"context"
	"fmt"
	"os"

	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/open-edge-platform/imagecraft/internal/diskbackend"
	"github.com/open-edge-platform/imagecraft/internal/fsdriver"
	"github.com/open-edge-platform/imagecraft/internal/logger"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
	"github.com/open-edge-platform/imagecraft/internal/partfs"
	"github.com/open-edge-platform/imagecraft/internal/pathmgr"
)

var log = logger.Logger()

// Context holds every resource acquired for one build.
type Context struct {
	Paths    *pathmgr.Manager
	Backend  diskbackend.Backend
	Geometry []diskbackend.PartitionGeometry
	Mounts   *fsdriver.Coordinator

	partfsServer *fuse.Server
	teardown     []func(ctx context.Context) error
}

// Acquire creates the image's backing storage, partitions it, mounts PartFS
// over it, and formats and mounts every partition that names a filesystem.
// If any step fails, or a later step panics, everything already acquired is
// unwound in reverse order before Acquire returns or re-panics.
func Acquire(ctx context.Context, m *manifest.Manifest, buildDir string) (bc *Context, err error) {
	bc = &Context{
		Paths:  pathmgr.New(buildDir, m.Name, string(m.Image.Format)),
		Mounts: fsdriver.NewCoordinator(),
	}

	defer func() {
		if p := recover(); p != nil {
			bc.unwind(ctx)
			panic(p)
		}
		if err != nil {
			bc.unwind(ctx)
			bc = nil
		}
	}()

	if err = os.MkdirAll(bc.Paths.Partitions(), 0o755); err != nil {
		return nil, fmt.Errorf("creating partitions directory: %w", err)
	}
	if err = os.MkdirAll(bc.Paths.LivePartitions(), 0o755); err != nil {
		return nil, fmt.Errorf("creating live mounts directory: %w", err)
	}

	bc.Backend = diskbackend.New(bc.Paths.FinalImage(), m.Image.Format)
	geoms, err := bc.Backend.Create(ctx, diskbackend.Spec{
		Format:     m.Image.Format,
		SizeMiB:    m.Image.SizeMiB,
		Partitions: m.Image.Partitions,
	})
	if err != nil {
		return nil, err
	}
	bc.Geometry = geoms
	bc.pushTeardown(bc.Backend.Close)

	devicePath, err := bc.Backend.DevicePath(ctx)
	if err != nil {
		return nil, err
	}

	if err = bc.mountPartFS(devicePath); err != nil {
		return nil, err
	}

	if err = bc.mountLivePartitions(ctx, m.Image.Partitions); err != nil {
		return nil, err
	}

	return bc, nil
}

func (bc *Context) mountPartFS(devicePath string) error {
	backing, err := os.OpenFile(devicePath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("opening %q for partfs: %w", devicePath, err)
	}
	bc.pushTeardown(func(context.Context) error { return backing.Close() })

	entries := make([]partfs.Entry, len(bc.Geometry))
	for i, g := range bc.Geometry {
		entries[i] = partfs.Entry{
			Label:  g.Label,
			Offset: int64(g.StartLBA) * 512,
			Size:   int64(g.SizeBytes),
		}
	}

	root := partfs.NewRoot(backing, entries)
	server, err := partfs.Mount(bc.Paths.Partitions(), root)
	if err != nil {
		return err
	}
	bc.partfsServer = server
	bc.pushTeardown(func(context.Context) error { return bc.partfsServer.Unmount() })
	return nil
}

// mountLivePartitions formats (first use only — callers resuming an
// already-formatted image should skip this and mount directly) and mounts
// every partition that names a filesystem, exposing its contents at
// Paths.LivePartition(label) for the populator to write into. Each
// partition's mkfs and mount source is its PartFS-exposed file, so all
// partition I/O stays funneled through PartFS — the backing image is never
// opened by anything else while PartFS holds it. Partitions with no
// filesystem are only ever touched through PartFS too.
func (bc *Context) mountLivePartitions(ctx context.Context, partitions []manifest.Partition) error {
	mountedAny := false
	for _, p := range partitions {
		if p.Filesystem == "" {
			continue
		}
		source := bc.Paths.Partition(p.Label)
		target := bc.Paths.LivePartition(p.Label)
		if err := bc.Mounts.FormatAndMountPartition(ctx, source, p.Filesystem, p.Label, target); err != nil {
			return err
		}
		if !mountedAny {
			bc.pushTeardown(func(context.Context) error { return bc.Mounts.UnmountAll() })
			mountedAny = true
		}
	}
	return nil
}

func (bc *Context) pushTeardown(fn func(ctx context.Context) error) {
	bc.teardown = append(bc.teardown, fn)
}

func (bc *Context) unwind(ctx context.Context) {
	_ = bc.Release(ctx)
}

// Release tears down every resource this Context acquired, in reverse
// order, and returns the first error encountered.
func (bc *Context) Release(ctx context.Context) error {
	var firstErr error
	for i := len(bc.teardown) - 1; i >= 0; i-- {
		if err := bc.teardown[i](ctx); err != nil {
			log.Errorw("build context teardown step failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	bc.teardown = nil
	return firstErr
}
