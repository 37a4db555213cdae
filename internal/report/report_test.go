package report

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/open-edge-platform/imagecraft/internal/diskbackend"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
)

func sampleManifest() *manifest.Manifest {
	m := &manifest.Manifest{
		Name: "Test OS",
		Image: manifest.ImageSpec{
			Label:   "testos",
			SizeMiB: 64,
			Partitions: []manifest.Partition{
				{Label: "boot", SizeMiB: 16, Filesystem: "fat32"},
				{Label: "root", SizeMiB: 48, Filesystem: "ext4"},
			},
		},
	}
	m.Normalize()
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	m := sampleManifest()
	r := New("run-1", m, "/tmp/test-os.img")
	r.RecordPartitions([]diskbackend.PartitionGeometry{
		{Label: "boot", Number: 1, StartLBA: 2048, EndLBA: 34815, SizeBytes: 16 << 20},
		{Label: "root", Number: 2, StartLBA: 34816, EndLBA: 100000, SizeBytes: 32 << 20},
	}, m.Image.Partitions)
	r.Components = append(r.Components, ComponentResult{
		Name: "kernel", Status: "Success", DurationMS: 1234, Artifacts: []string{"kernel.bin"},
	})
	r.Finish(nil)

	path := filepath.Join(t.TempDir(), "report.json.zst")
	if err := r.Write(path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.RunID != "run-1" || got.Manifest != "Test OS" {
		t.Errorf("identity fields lost: %+v", got)
	}
	if !got.Succeeded || got.Error != "" {
		t.Errorf("expected success, got %+v", got)
	}
	if len(got.Partitions) != 2 || got.Partitions[0].Filesystem != "fat32" {
		t.Errorf("partition layout lost: %+v", got.Partitions)
	}
	if len(got.Components) != 1 || got.Components[0].DurationMS != 1234 {
		t.Errorf("component result lost: %+v", got.Components)
	}
}

func TestFinishRecordsError(t *testing.T) {
	r := New("run-2", sampleManifest(), "/tmp/x.img")
	r.Finish(errors.New("boom"))
	if r.Succeeded {
		t.Error("Succeeded should be false after a failing Finish")
	}
	if r.Error != "boom" {
		t.Errorf("Error = %q, want \"boom\"", r.Error)
	}
	if r.FinishedAt.Before(r.StartedAt) {
		t.Error("FinishedAt precedes StartedAt")
	}
}
