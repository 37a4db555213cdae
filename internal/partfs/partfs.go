// Package partfs exposes every partition of a disk image as a flat file
// inside a single mounted directory, so a filesystem driver or the
// populator can write into "a partition" as an ordinary file instead of
// computing byte offsets into the backing disk image itself. Built on the
// go-fuse v2 node API with a single-level "one entry per partition"
// layout.
package partfs

import (
	"context"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
)

var log = logger.Logger()

// entryTTL is how long the kernel may cache a lookup/attr result before
// re-asking; short because build-time writers change partition sizes
// rarely but components are actively writing through this filesystem.
const entryTTL = time.Second

// Entry is one partition's extent within the backing disk image file.
type Entry struct {
	Label  string
	Offset int64
	Size   int64
}

// Root is the PartFS root directory inode: one child per Entry, addressed
// by label, inode number index+2 (root itself is always inode 1 in FUSE).
// Every child resolves to a regular file regardless of whether the
// partition's nominal type is a block device, resolving the
// BlockDevice/RegularFile inconsistency in favor of RegularFile throughout:
// components and the populator only ever need read/write/seek semantics,
// never block-device ioctls.
type Root struct {
	fs.Inode

	mu      sync.Mutex
	backing *os.File
	entries []Entry
}

var (
	_ fs.NodeReaddirer = (*Root)(nil)
	_ fs.NodeLookuper  = (*Root)(nil)
	_ fs.NodeGetattrer = (*Root)(nil)
)

// NewRoot constructs the PartFS root over an already-open backing file.
func NewRoot(backing *os.File, entries []Entry) *Root {
	return &Root{backing: backing, entries: entries}
}

// Mount starts a FUSE server rooted at mountPoint; the server serves
// requests on its own goroutines. Call the returned server's Unmount to
// tear down.
func Mount(mountPoint string, root *Root) (*fuse.Server, error) {
	server, err := fs.Mount(mountPoint, root, &fs.Options{
		MountOptions: fuse.MountOptions{
			FsName:     "partfs",
			Name:       "partfs",
			AllowOther: false,
		},
		EntryTimeout: durationPtr(entryTTL),
		AttrTimeout:  durationPtr(entryTTL),
	})
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindMountFailed, err, "mounting partfs at %q", mountPoint)
	}
	log.Infow("partfs mounted", "mountpoint", mountPoint, "partitions", len(root.entries))
	return server, nil
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func (r *Root) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = 0o755 | syscall.S_IFDIR
	out.SetTimes(&now, &now, &now)
	return 0
}

func (r *Root) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(r.entries))
	for i, e := range r.entries {
		entries = append(entries, fuse.DirEntry{
			Name: e.Label,
			Mode: syscall.S_IFREG,
			Ino:  uint64(i + 2),
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (r *Root) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	for i, e := range r.entries {
		if e.Label != name {
			continue
		}
		now := time.Now()
		out.Attr.Mode = 0o644 | syscall.S_IFREG
		out.Attr.Size = uint64(e.Size)
		out.Attr.SetTimes(&now, &now, &now)
		node := &partitionNode{entry: e, backing: r.backing, mu: &r.mu}
		return r.NewInode(ctx, node, fs.StableAttr{Mode: syscall.S_IFREG, Ino: uint64(i + 2)}), 0
	}
	return nil, syscall.ENOENT
}
