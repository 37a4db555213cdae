package imageconvert

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestCompressXZRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "demo.img")
	payload := bytes.Repeat([]byte("imagecraft"), 4096)
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("writing input: %v", err)
	}

	outPath, err := CompressXZ(src)
	if err != nil {
		t.Fatalf("CompressXZ: %v", err)
	}
	if outPath != src+".xz" {
		t.Errorf("output path = %q, want %q", outPath, src+".xz")
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	zr, err := xz.NewReader(f)
	if err != nil {
		t.Fatalf("xz.NewReader: %v", err)
	}
	got, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompressing: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("round trip mismatch: got %d bytes, want %d", len(got), len(payload))
	}

	if _, err := os.Stat(src); err != nil {
		t.Errorf("input file should be left in place: %v", err)
	}
}

func TestCompressXZMissingInput(t *testing.T) {
	if _, err := CompressXZ(filepath.Join(t.TempDir(), "nope.img")); err == nil {
		t.Fatal("expected an error for a missing input file")
	}
}
