package diskbackend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/shellutil"
)

// QCow2Backend partitions a raw staging file, converts it to qcow2 via the
// external qemu-img tool, then keeps a qemu-storage-daemon running against
// the result for the rest of the build so later stages can issue QMP
// commands against it.
type QCow2Backend struct {
	path       string
	socketPath string
	cmd        *exec.Cmd
	qmp        *qmpClient
	nbdDevice  string
}

func (b *QCow2Backend) Path() string { return b.path }

// DevicePath lazily attaches the qcow2 file to a free NBD device on first
// call and returns it; later calls return the same device.
func (b *QCow2Backend) DevicePath(ctx context.Context) (string, error) {
	if b.nbdDevice != "" {
		return b.nbdDevice, nil
	}
	dev, err := attachNBD(ctx, shellutil.Default, b.path)
	if err != nil {
		return "", err
	}
	b.nbdDevice = dev
	log.Infow("qcow2 image attached over nbd", "path", b.path, "device", dev)
	return dev, nil
}

func (b *QCow2Backend) Create(ctx context.Context, spec Spec) ([]PartitionGeometry, error) {
	geoms, err := ComputeGeometry(spec.Partitions, spec.SizeMiB)
	if err != nil {
		return nil, err
	}

	staging := b.path + ".staging.raw"
	if err := WriteGPT(staging, spec.SizeMiB, geoms); err != nil {
		return nil, err
	}
	defer os.Remove(staging)

	convertScript := fmt.Sprintf("qemu-img convert -f raw -O qcow2 %q %q", staging, b.path)
	if out, err := shellutil.Default.Run(ctx, "sh", convertScript, nil, ""); err != nil {
		log.Debugf("qemu-img convert failed: %s", out)
		return nil, imgerr.Wrap(imgerr.KindFailedToCreateImage, err, "converting %q to qcow2", b.path)
	}

	if err := b.startDaemon(ctx); err != nil {
		return nil, err
	}
	return geoms, nil
}

func (b *QCow2Backend) startDaemon(ctx context.Context) error {
	b.socketPath = filepath.Join(filepath.Dir(b.path), "qmp-"+uuid.NewString()+".sock")

	nodeArg := fmt.Sprintf("driver=qcow2,node-name=disk0,file.driver=file,file.filename=%s", b.path)
	b.cmd = exec.CommandContext(ctx, "qemu-storage-daemon",
		"--qmp", "unix:"+b.socketPath+",server,nowait",
		"--blockdev", nodeArg,
	)
	if err := b.cmd.Start(); err != nil {
		return imgerr.Wrap(imgerr.KindFailedToCreateImage, err, "starting qemu-storage-daemon for %q", b.path)
	}

	qmp, err := dialQMP(b.socketPath, 5*time.Second)
	if err != nil {
		_ = b.cmd.Process.Kill()
		return err
	}
	b.qmp = qmp
	log.Infow("qemu-storage-daemon ready", "path", b.path, "socket", b.socketPath)
	return nil
}

// Close sends the QMP "quit" command, waits for the daemon to exit, and
// removes the control socket.
func (b *QCow2Backend) Close(ctx context.Context) error {
	var err error
	if b.nbdDevice != "" {
		err = detachNBD(ctx, shellutil.Default, b.nbdDevice)
		b.nbdDevice = ""
	}
	if b.qmp == nil {
		return err
	}
	if quitErr := b.qmp.Quit(); quitErr != nil && err == nil {
		err = quitErr
	}
	if waitErr := b.cmd.Wait(); waitErr != nil && err == nil {
		err = imgerr.Wrap(imgerr.KindQmpQuitFailed, waitErr, "waiting for qemu-storage-daemon to exit")
	}
	os.Remove(b.socketPath)
	return err
}
