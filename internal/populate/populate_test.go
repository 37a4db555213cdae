package populate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
	"github.com/open-edge-platform/imagecraft/internal/pathmgr"
	"github.com/open-edge-platform/imagecraft/internal/scheduler"
	"github.com/open-edge-platform/imagecraft/internal/shellutil"
)

type fakeExecutor struct{}

func (fakeExecutor) Run(context.Context, string, string, map[string]string, string) (string, error) {
	return "", nil
}

func (fakeExecutor) RunStreaming(_ context.Context, _ string, script string, _ map[string]string, _ string, stdout, _ *os.File) error {
	_, err := stdout.WriteString("shell output: " + script)
	return err
}

func textPtr(s string) *string { return &s }

func TestPopulatePartitionTextAndSymlink(t *testing.T) {
	build := t.TempDir()
	pm := pathmgr.New(build, "demo", "raw")
	p := New(pm, fakeExecutor{})

	files := []manifest.FileEntry{
		{Path: "etc/motd", Text: textPtr("hello")},
		{Path: "etc/link", Symlink: "/etc/motd"},
	}
	if err := p.PopulatePartition(context.Background(), "root", files, nil); err != nil {
		t.Fatalf("PopulatePartition: %v", err)
	}

	root := pm.LivePartition("root")
	data, err := os.ReadFile(filepath.Join(root, "etc/motd"))
	if err != nil || string(data) != "hello" {
		t.Fatalf("motd content = %q, err %v", data, err)
	}
	target, err := os.Readlink(filepath.Join(root, "etc/link"))
	if err != nil || target != "/etc/motd" {
		t.Fatalf("symlink target = %q, err %v", target, err)
	}
}

func TestPopulatePartitionArtifact(t *testing.T) {
	build := t.TempDir()
	pm := pathmgr.New(build, "demo", "raw")
	p := New(pm, fakeExecutor{})

	compDir := pm.ComponentBuildDir("kernel")
	if err := os.MkdirAll(compDir, 0o755); err != nil {
		t.Fatalf("mkdir component dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(compDir, "vmlinuz"), []byte("kernel-bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	artifacts := map[string]scheduler.ArtifactList{
		"kernel": {Component: "kernel", Artifacts: []string{"vmlinuz"}},
	}
	files := []manifest.FileEntry{
		{Path: "boot/vmlinuz", Artifact: &manifest.ArtifactRef{Component: "kernel", Artifact: "vmlinuz"}},
	}
	if err := p.PopulatePartition(context.Background(), "boot", files, artifacts); err != nil {
		t.Fatalf("PopulatePartition: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(pm.LivePartition("boot"), "boot/vmlinuz"))
	if err != nil || string(data) != "kernel-bytes" {
		t.Fatalf("artifact content = %q, err %v", data, err)
	}
}

func TestPopulatePartitionUnresolvedArtifact(t *testing.T) {
	pm := pathmgr.New(t.TempDir(), "demo", "raw")
	p := New(pm, fakeExecutor{})

	files := []manifest.FileEntry{
		{Path: "boot/vmlinuz", Artifact: &manifest.ArtifactRef{Component: "ghost", Artifact: "vmlinuz"}},
	}
	err := p.PopulatePartition(context.Background(), "boot", files, map[string]scheduler.ArtifactList{})
	if !imgerr.Is(err, imgerr.KindUnresolvedArtifact) {
		t.Fatalf("expected KindUnresolvedArtifact, got %v", err)
	}
}

func TestPopulatePartitionFromShell(t *testing.T) {
	pm := pathmgr.New(t.TempDir(), "demo", "raw")
	p := New(pm, fakeExecutor{})

	script := "echo hi"
	files := []manifest.FileEntry{{Path: "generated.txt", FromShell: &script}}
	if err := p.PopulatePartition(context.Background(), "root", files, nil); err != nil {
		t.Fatalf("PopulatePartition: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(pm.LivePartition("root"), "generated.txt"))
	if err != nil {
		t.Fatalf("read generated file: %v", err)
	}
	if string(data) != "shell output: echo hi" {
		t.Fatalf("unexpected generated content: %q", data)
	}
}

var _ = shellutil.Executor(fakeExecutor{})
