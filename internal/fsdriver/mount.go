package fsdriver

import (
	"context"
	"os"
	"sync"
	"syscall"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
)

var log = logger.Logger()

// Coordinator tracks every filesystem this build has mounted so UnmountAll
// can tear them down in strict reverse order, the same discipline the
// build context applies to every scoped resource it acquires.
type Coordinator struct {
	mu     sync.Mutex
	mounts []string // mount targets, in acquisition order
}

// NewCoordinator constructs an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Mount creates target if needed and mounts source onto it with fstype,
// recording the mount for later teardown.
func (c *Coordinator) Mount(source, target, fstype string, flags uintptr, data string) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return imgerr.Wrap(imgerr.KindMountFailed, err, "creating mount point %q", target)
	}
	if err := syscall.Mount(source, target, fstype, flags, data); err != nil {
		return imgerr.Wrap(imgerr.KindMountFailed, err, "mounting %q (%s) at %q", source, fstype, target)
	}

	c.mu.Lock()
	c.mounts = append(c.mounts, target)
	c.mu.Unlock()

	log.Infow("mounted filesystem", "source", source, "target", target, "fstype", fstype)
	return nil
}

// MountPartition mounts an already-formatted partition at target. source is
// the partition's PartFS-exposed file, so no caller ever touches the
// backing image directly and no loop device is involved.
func (c *Coordinator) MountPartition(source, fstype, target string) error {
	return c.Mount(source, target, KernelType(fstype), 0, "")
}

// FormatAndMountPartition formats a partition's PartFS-exposed file with
// fsName, then mounts it at target, tracking the mount for teardown. Used
// the first time a freshly created image's partition is populated; an
// already-formatted partition should use MountPartition instead so a
// rebuild doesn't reformat live data.
func (c *Coordinator) FormatAndMountPartition(ctx context.Context, source, fsName, volumeLabel, target string) error {
	if err := MustFormat(ctx, fsName, source, volumeLabel); err != nil {
		return err
	}
	return c.MountPartition(source, fsName, target)
}

// UnmountAll tears down every tracked mount in reverse order, continuing
// past individual failures so one stuck mount doesn't leave the rest of the
// build's partitions mounted, and returns the first error encountered.
func (c *Coordinator) UnmountAll() error {
	c.mu.Lock()
	mounts := c.mounts
	c.mounts = nil
	c.mu.Unlock()

	var firstErr error
	for i := len(mounts) - 1; i >= 0; i-- {
		target := mounts[i]
		if err := syscall.Unmount(target, 0); err != nil {
			log.Errorw("teardown failed", "target", target, "error", err)
			if firstErr == nil {
				firstErr = imgerr.Wrap(imgerr.KindUnmountFailed, err, "unmounting %q", target)
			}
			continue
		}
		log.Infow("unmounted filesystem", "target", target)
	}
	return firstErr
}
