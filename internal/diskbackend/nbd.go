package diskbackend

import (
	"context"
	"fmt"
	"os"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/shellutil"
)

// findFreeNBDDevice scans /dev/nbd0.. for the first device the kernel
// reports as unattached (size 0 in sysfs).
func findFreeNBDDevice() (string, error) {
	for i := 0; i < 16; i++ {
		data, err := os.ReadFile(fmt.Sprintf("/sys/block/nbd%d/size", i))
		if err != nil {
			continue
		}
		if string(data) == "0\n" {
			return fmt.Sprintf("/dev/nbd%d", i), nil
		}
	}
	return "", imgerr.New(imgerr.KindFailedToCreateImage, "no free /dev/nbdN device found")
}

// attachNBD connects path (a qcow2 file) to a free /dev/nbdN device via
// qemu-nbd, exposing the image as one flat byte sequence so PartFS can
// open it the same way it opens a raw backend's plain file.
func attachNBD(ctx context.Context, exec shellutil.Executor, path string) (string, error) {
	dev, err := findFreeNBDDevice()
	if err != nil {
		return "", err
	}
	script := fmt.Sprintf("qemu-nbd -c %q %q", dev, path)
	if out, err := exec.Run(ctx, "sh", script, nil, ""); err != nil {
		log.Debugf("qemu-nbd connect failed: %s", out)
		return "", imgerr.Wrap(imgerr.KindFailedToCreateImage, err, "attaching %q via qemu-nbd", path)
	}
	return dev, nil
}

// detachNBD disconnects a device previously attached by attachNBD.
func detachNBD(ctx context.Context, exec shellutil.Executor, dev string) error {
	script := fmt.Sprintf("qemu-nbd -d %q", dev)
	if _, err := exec.Run(ctx, "sh", script, nil, ""); err != nil {
		return imgerr.Wrap(imgerr.KindUnmountFailed, err, "detaching nbd device %q", dev)
	}
	return nil
}
