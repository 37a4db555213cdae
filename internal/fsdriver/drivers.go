package fsdriver

import (
	"context"
	"fmt"

	"github.com/open-edge-platform/imagecraft/internal/shellutil"
)

func init() {
	Register(fat32Driver{})
	Register(ext4Driver{})
}

// fat32Driver shells out to mkfs.fat for ESP/boot partitions, the same
// external-tool pattern used for every filesystem formatter here.
type fat32Driver struct{}

func (fat32Driver) Name() string { return "fat32" }

func (fat32Driver) KernelType() string { return "vfat" }

func (fat32Driver) Format(ctx context.Context, devicePath, volumeLabel string) error {
	script := fmt.Sprintf("mkfs.fat -F 32 -n %q %q", volumeLabel, devicePath)
	_, err := shellutil.Default.Run(ctx, "sh", script, nil, "")
	return err
}

// ext4Driver shells out to mkfs.ext4 for root/data partitions.
type ext4Driver struct{}

func (ext4Driver) Name() string { return "ext4" }

func (ext4Driver) KernelType() string { return "ext4" }

func (ext4Driver) Format(ctx context.Context, devicePath, volumeLabel string) error {
	script := fmt.Sprintf("mkfs.ext4 -F -L %q %q", volumeLabel, devicePath)
	_, err := shellutil.Default.Run(ctx, "sh", script, nil, "")
	return err
}

// redoxfs is intentionally unregistered: no Go binding or host-side
// formatter for it exists. A manifest partition naming "redoxfs" resolves
// through MustFormat's registry miss into KindUnrecognisedFilesystem,
// exactly as any other unsupported name would.
