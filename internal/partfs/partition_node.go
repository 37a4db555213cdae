package partfs

import (
	"context"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// partitionNode is one partition's file: reads and writes are clamped to
// [0, entry.Size) and translated into pread/pwrite against entry.Offset in
// the shared backing file, so every partition's file looks like an
// independent, correctly-sized file even though they're all slices of one
// disk image.
type partitionNode struct {
	fs.Inode

	entry   Entry
	backing *os.File
	mu      *sync.Mutex
}

var (
	_ fs.NodeGetattrer = (*partitionNode)(nil)
	_ fs.NodeOpener    = (*partitionNode)(nil)
	_ fs.NodeReader    = (*partitionNode)(nil)
	_ fs.NodeWriter    = (*partitionNode)(nil)
	_ fs.NodeStatfser  = (*partitionNode)(nil)
)

func (p *partitionNode) Getattr(ctx context.Context, f fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	now := time.Now()
	out.Mode = 0o644 | syscall.S_IFREG
	out.Size = uint64(p.entry.Size)
	out.SetTimes(&now, &now, &now)
	return 0
}

func (p *partitionNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

// Read clamps [off, off+len(dest)) to the partition's extent so a reader
// can never see bytes belonging to a neighboring partition.
func (p *partitionNode) Read(ctx context.Context, f fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off >= p.entry.Size {
		return fuse.ReadResultData(nil), 0
	}
	want := int64(len(dest))
	if off+want > p.entry.Size {
		want = p.entry.Size - off
	}

	p.mu.Lock()
	n, err := p.backing.ReadAt(dest[:want], p.entry.Offset+off)
	p.mu.Unlock()
	if err != nil && n == 0 {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

// Write clamps the write length to the partition's remaining space,
// symmetric with Read: bytes past the end are dropped and the return value
// is the count actually written (a PartFS file's size is fixed by the
// partition table, never resizable).
func (p *partitionNode) Write(ctx context.Context, f fs.FileHandle, data []byte, off int64) (uint32, syscall.Errno) {
	if off >= p.entry.Size {
		return 0, 0
	}
	want := int64(len(data))
	if off+want > p.entry.Size {
		want = p.entry.Size - off
	}

	p.mu.Lock()
	n, err := p.backing.WriteAt(data[:want], p.entry.Offset+off)
	p.mu.Unlock()
	if err != nil {
		return uint32(n), syscall.EIO
	}
	return uint32(n), 0
}

func (p *partitionNode) Statfs(ctx context.Context, out *fuse.StatfsOut) syscall.Errno {
	const blockSize = 512
	blocks := uint64(p.entry.Size) / blockSize
	out.Bsize = blockSize
	out.Blocks = blocks
	out.Bfree = 0
	out.Bavail = 0
	out.NameLen = 255
	return 0
}
