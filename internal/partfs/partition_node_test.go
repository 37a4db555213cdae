package partfs

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/hanwen/go-fuse/v2/fuse"
)

func newTestNode(t *testing.T, backingSize, offset, size int64) *partitionNode {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "backing")
	if err != nil {
		t.Fatalf("create backing file: %v", err)
	}
	if err := f.Truncate(backingSize); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return &partitionNode{
		entry:   Entry{Label: "test", Offset: offset, Size: size},
		backing: f,
		mu:      &sync.Mutex{},
	}
}

func TestReadClampsToPartitionExtent(t *testing.T) {
	node := newTestNode(t, 4096, 1024, 100)
	dest := make([]byte, 200) // request more than the partition holds

	res, errno := node.Read(context.Background(), nil, dest, 50)
	if errno != 0 {
		t.Fatalf("Read errno: %v", errno)
	}
	buf, status := res.Bytes(dest)
	if status != fuse.OK {
		t.Fatalf("unexpected fuse status: %v", status)
	}
	if len(buf) != 50 { // 100-byte partition, offset 50 in, so 50 bytes remain
		t.Fatalf("expected clamped read of 50 bytes, got %d", len(buf))
	}
}

func TestReadPastEndReturnsEmpty(t *testing.T) {
	node := newTestNode(t, 4096, 1024, 100)
	dest := make([]byte, 10)

	res, errno := node.Read(context.Background(), nil, dest, 200)
	if errno != 0 {
		t.Fatalf("Read errno: %v", errno)
	}
	buf, _ := res.Bytes(dest)
	if len(buf) != 0 {
		t.Fatalf("expected empty read past end, got %d bytes", len(buf))
	}
}

func TestWriteClampsToPartitionExtent(t *testing.T) {
	node := newTestNode(t, 4096, 0, 100)
	data := make([]byte, 150)
	for i := range data {
		data[i] = 0xAB
	}

	n, errno := node.Write(context.Background(), nil, data, 60)
	if errno != 0 {
		t.Fatalf("Write errno: %v", errno)
	}
	if n != 40 { // 100-byte partition, offset 60, so only 40 bytes fit
		t.Fatalf("expected clamped write of 40 bytes, got %d", n)
	}
}

func TestWritePastEndIsClampedToZeroBytes(t *testing.T) {
	node := newTestNode(t, 4096, 0, 100)
	n, errno := node.Write(context.Background(), nil, []byte{1, 2, 3}, 200)
	if errno != 0 {
		t.Fatalf("expected success, got errno %v", errno)
	}
	if n != 0 {
		t.Fatalf("expected 0 bytes written past end, got %d", n)
	}
}

// TestWriteReadRoundTripAcrossNodes simulates an unmount/remount: a write
// through one partitionNode must be visible to a fresh node over the same
// extent, and a neighboring partition must stay untouched.
func TestWriteReadRoundTripAcrossNodes(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "backing")
	if err != nil {
		t.Fatalf("create backing file: %v", err)
	}
	defer f.Close()
	if err := f.Truncate(16 << 20); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	var mu sync.Mutex
	p1 := &partitionNode{entry: Entry{Label: "p1", Offset: 0, Size: 8 << 20}, backing: f, mu: &mu}
	p2 := &partitionNode{entry: Entry{Label: "p2", Offset: 8 << 20, Size: 8 << 20}, backing: f, mu: &mu}

	pattern := []byte("DEADBEEF")
	n, errno := p2.Write(context.Background(), nil, pattern, 0)
	if errno != 0 || n != uint32(len(pattern)) {
		t.Fatalf("Write = (%d, %v)", n, errno)
	}

	// Fresh node over the same extent, as a remount would produce.
	p2again := &partitionNode{entry: p2.entry, backing: f, mu: &mu}
	dest := make([]byte, len(pattern))
	res, errno := p2again.Read(context.Background(), nil, dest, 0)
	if errno != 0 {
		t.Fatalf("Read errno: %v", errno)
	}
	buf, _ := res.Bytes(dest)
	if string(buf) != "DEADBEEF" {
		t.Fatalf("round trip = %q, want DEADBEEF", buf)
	}

	destP1 := make([]byte, 1)
	res, errno = p1.Read(context.Background(), nil, destP1, 0)
	if errno != 0 {
		t.Fatalf("Read p1 errno: %v", errno)
	}
	buf, _ = res.Bytes(destP1)
	if len(buf) != 1 || buf[0] != 0x00 {
		t.Fatalf("p1 byte 0 = %v, want 0x00", buf)
	}
}
