// Package populate materializes a partition's `file` directives (symlink,
// literal text, a component's artifact, or a shell script's stdout) into
// that partition's live mount directory. Existing entries at a target path
// are replaced; parent directories are created as needed.
package populate

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
	"github.com/open-edge-platform/imagecraft/internal/pathmgr"
	"github.com/open-edge-platform/imagecraft/internal/scheduler"
	"github.com/open-edge-platform/imagecraft/internal/shellutil"
)

var log = logger.Logger()

// Populator writes a partition's file directives into its live mount root.
type Populator struct {
	pm   *pathmgr.Manager
	exec shellutil.Executor
}

// New constructs a Populator rooted at pm, running FromShell scripts
// through exec.
func New(pm *pathmgr.Manager, exec shellutil.Executor) *Populator {
	return &Populator{pm: pm, exec: exec}
}

// PopulatePartition writes every file directive for one partition into its
// live mount directory (pm.LivePartition(label)), looking up Artifact
// directives against the scheduler's completed build results.
func (p *Populator) PopulatePartition(ctx context.Context, label string, files []manifest.FileEntry, artifacts map[string]scheduler.ArtifactList) error {
	root := p.pm.LivePartition(label)
	for _, f := range files {
		if err := p.populateOne(ctx, root, f, artifacts); err != nil {
			return err
		}
	}
	return nil
}

// RunSetup executes a partition's setup script with the live mount as its
// working directory, before any file directive is materialized. Partitions
// with no mounted filesystem run the script from the build directory
// instead and reach the partition through its PartFS file.
func (p *Populator) RunSetup(ctx context.Context, label, script string, mounted bool) error {
	if script == "" {
		return nil
	}
	dir := p.pm.BuildDir()
	if mounted {
		dir = p.pm.LivePartition(label)
	}
	env := shellutil.OSEnviron()
	env["BUILD_DIR"] = p.pm.BuildDir()
	env["IMAGE"] = p.pm.FinalImage()
	out, err := p.exec.Run(ctx, "nu", script, env, dir)
	if err != nil {
		log.Debugf("setup script output for %q: %s", label, out)
		return imgerr.Wrap(imgerr.KindSubprocessFailed, err, "running setup for partition %q", label)
	}
	return nil
}

func (p *Populator) populateOne(ctx context.Context, root string, f manifest.FileEntry, artifacts map[string]scheduler.ArtifactList) error {
	target := filepath.Join(root, f.Path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return imgerr.Wrap(imgerr.KindInvalidBuildDir, err, "creating parent directory for %q", f.Path)
	}
	// Overwrite semantics: whatever is already at target is replaced.
	if err := os.RemoveAll(target); err != nil {
		return imgerr.Wrap(imgerr.KindInvalidBuildDir, err, "clearing existing entry at %q", f.Path)
	}

	switch f.Kind() {
	case manifest.ContentSymlink:
		if err := os.Symlink(f.Symlink, target); err != nil {
			return imgerr.Wrap(imgerr.KindInvalidPartitionReference, err, "symlinking %q -> %q", f.Path, f.Symlink)
		}

	case manifest.ContentText:
		if err := os.WriteFile(target, []byte(*f.Text), 0o644); err != nil {
			return imgerr.Wrap(imgerr.KindInvalidPartitionReference, err, "writing text file %q", f.Path)
		}

	case manifest.ContentArtifact:
		if err := p.populateArtifact(target, f, artifacts); err != nil {
			return err
		}

	case manifest.ContentFromShell:
		if err := p.populateFromShell(ctx, target, f); err != nil {
			return err
		}
	}

	log.Debugf("populated %s (%v)", f.Path, f.Kind())
	return nil
}

func (p *Populator) populateArtifact(target string, f manifest.FileEntry, artifacts map[string]scheduler.ArtifactList) error {
	list, ok := artifacts[f.Artifact.Component]
	if !ok {
		return imgerr.New(imgerr.KindUnresolvedArtifact, "file %q references component %q, which did not build", f.Path, f.Artifact.Component)
	}
	found := false
	for _, name := range list.Artifacts {
		if name == f.Artifact.Artifact {
			found = true
			break
		}
	}
	if !found {
		return imgerr.New(imgerr.KindUnresolvedArtifact, "component %q does not yield artifact %q", f.Artifact.Component, f.Artifact.Artifact)
	}

	src := filepath.Join(p.pm.ComponentBuildDir(f.Artifact.Component), f.Artifact.Artifact)
	if err := copyFile(src, target); err != nil {
		return imgerr.Wrap(imgerr.KindUnresolvedArtifact, err, "copying artifact %q from %q", f.Artifact.Artifact, f.Artifact.Component)
	}
	return nil
}

func (p *Populator) populateFromShell(ctx context.Context, target string, f manifest.FileEntry) error {
	out, err := os.Create(target)
	if err != nil {
		return imgerr.Wrap(imgerr.KindInvalidPartitionReference, err, "creating from-shell target %q", f.Path)
	}
	defer out.Close()

	env := shellutil.OSEnviron()
	env["BUILD_DIR"] = p.pm.BuildDir()
	env["IMAGE"] = p.pm.FinalImage()
	if err := p.exec.RunStreaming(ctx, "nu", *f.FromShell, env, p.pm.BuildDir(), out, os.Stderr); err != nil {
		return imgerr.Wrap(imgerr.KindInvalidPartitionReference, err, "running from-shell for %q", f.Path)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %q to %q: %w", src, dst, err)
	}
	return nil
}
