// Package fsdriver formats a partition's backing file with a concrete
// filesystem and tracks live mounts so every one of them can be torn down
// in reverse order. Drivers register themselves by name at init time.
package fsdriver

import (
	"context"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
)

// Driver formats a partition's backing file with one concrete filesystem.
type Driver interface {
	Name() string
	// KernelType is the fstype mount(2) expects for this filesystem, which
	// is not always the manifest name (fat32 mounts as "vfat").
	KernelType() string
	Format(ctx context.Context, devicePath, volumeLabel string) error
}

var registry = map[string]Driver{}

// Register adds d to the registry, keyed by d.Name(). Called from each
// driver's init().
func Register(d Driver) {
	registry[d.Name()] = d
}

// Get looks up a driver by the manifest's `filesystem` field.
func Get(name string) (Driver, bool) {
	d, ok := registry[name]
	return d, ok
}

// KernelType maps a manifest filesystem name to the fstype mount(2)
// expects. Unregistered names map to themselves; MustFormat will have
// rejected those before any mount is attempted.
func KernelType(name string) string {
	if d, ok := Get(name); ok {
		return d.KernelType()
	}
	return name
}

// MustFormat formats devicePath with the named filesystem or returns
// KindUnrecognisedFilesystem if no driver is registered for it.
func MustFormat(ctx context.Context, name, devicePath, volumeLabel string) error {
	d, ok := Get(name)
	if !ok {
		return imgerr.New(imgerr.KindUnrecognisedFilesystem, "no filesystem driver registered for %q", name)
	}
	if err := d.Format(ctx, devicePath, volumeLabel); err != nil {
		return imgerr.Wrap(imgerr.KindFailedToCreateFilesystem, err, "formatting %q as %s", devicePath, name)
	}
	return nil
}
