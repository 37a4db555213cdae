package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/open-edge-platform/imagecraft/internal/buildctx"
	"github.com/open-edge-platform/imagecraft/internal/graph"
	"github.com/open-edge-platform/imagecraft/internal/imageconvert"
	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
	"github.com/open-edge-platform/imagecraft/internal/pathmgr"
	"github.com/open-edge-platform/imagecraft/internal/populate"
	"github.com/open-edge-platform/imagecraft/internal/report"
	"github.com/open-edge-platform/imagecraft/internal/reporter"
	"github.com/open-edge-platform/imagecraft/internal/scheduler"
	"github.com/open-edge-platform/imagecraft/internal/shellutil"
)

// Build command flags
var (
	buildIn        string = "build" // Directory the image is assembled in
	cleanBuild     bool   = false   // Wipe the build directory first
	reportModeFlag string = "auto"  // Progress reporting mode
	dumpManifest   bool   = false   // Print the merged manifest and exit
	exportXZ       bool   = false   // Compress the finished image
)

// createBuildCommand creates the build subcommand
func createBuildCommand() *cobra.Command {
	buildCmd := &cobra.Command{
		Use:   "build [flags] CONFIG",
		Short: "Build the disk image a manifest describes",
		Long: `Build reads the TOML manifest at CONFIG, resolves its imported
modules, builds every component required by the image's partitions in
dependency order, and assembles the final partitioned disk image in the
build directory.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := reporter.Resolve(reportModeFlag)
			return err
		},
		RunE:              executeBuild,
		ValidArgsFunction: manifestFileCompletion,
	}

	buildCmd.Flags().BoolVar(&cleanBuild, "clean", false,
		"Remove the build directory before building")

	buildCmd.Flags().StringVar(&buildIn, "build-in", "build",
		"Directory to assemble the image in")

	buildCmd.Flags().StringVar(&reportModeFlag, "report-mode", "auto",
		"Progress reporting mode (auto, tui, text, json)")

	buildCmd.Flags().BoolVar(&dumpManifest, "dump-manifest", false,
		"Print the fully merged manifest as YAML and exit without building")

	buildCmd.Flags().BoolVar(&exportXZ, "export-xz", false,
		"Compress the finished image to <image>.xz")

	return buildCmd
}

// manifestFileCompletion completes the CONFIG argument to manifest files
func manifestFileCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) != 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"toml"}, cobra.ShellCompDirectiveFilterFileExt
}

// executeBuild handles the build command execution logic
func executeBuild(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}

	if dumpManifest {
		data, err := m.DumpYAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	g, err := graph.Build(m)
	if err != nil {
		return err
	}
	g.ValidatePartitionRequires(m)

	buildDir, err := filepath.Abs(buildIn)
	if err != nil {
		return imgerr.Wrap(imgerr.KindInvalidBuildDir, err, "resolving --build-in %q", buildIn)
	}
	if cleanBuild {
		if err := os.RemoveAll(buildDir); err != nil {
			return imgerr.Wrap(imgerr.KindInvalidBuildDir, err, "cleaning %q", buildDir)
		}
	}
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return imgerr.Wrap(imgerr.KindInvalidBuildDir, err, "creating %q", buildDir)
	}

	mode, err := reporter.Resolve(reportModeFlag)
	if err != nil {
		return err
	}

	if err := runBuild(cmd.Context(), m, g, buildDir, mode); err != nil {
		return err
	}

	if exportXZ {
		imagePath := pathmgr.New(buildDir, m.Name, string(m.Image.Format)).FinalImage()
		if _, err := imageconvert.CompressXZ(imagePath); err != nil {
			return err
		}
	}

	log.Infof("image built: %s", pathmgr.New(buildDir, m.Name, string(m.Image.Format)).FinalImage())
	return nil
}

// runBuild acquires the build context, runs the component scheduler under a
// progress reporter, populates every partition, and writes the build report.
// The context is released on every exit path; a teardown failure is only
// surfaced when the build itself succeeded.
func runBuild(ctx context.Context, m *manifest.Manifest, g *graph.Graph, buildDir string, mode reporter.Mode) (err error) {
	log := logger.Logger()

	bc, err := buildctx.Acquire(ctx, m, buildDir)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := bc.Release(ctx); relErr != nil && err == nil {
			err = relErr
		}
	}()

	rep := report.New(uuid.NewString(), m, bc.Paths.FinalImage())
	rep.RecordPartitions(bc.Geometry, m.Image.Partitions)

	sched := scheduler.New(g, bc.Paths, shellutil.Default)
	pop := populate.New(bc.Paths, shellutil.Default)

	session := reporter.Start(mode, sched)
	artifacts, buildErr := sched.BuildFor(ctx, partitionRoots(m))
	session.Stop()

	rep.RecordComponents(sched, artifacts, bc.Paths.ComponentBuildDir)

	if buildErr == nil {
		buildErr = populatePartitions(ctx, m, pop, artifacts)
	}
	sched.CleanupTransient()

	rep.Finish(buildErr)
	if werr := rep.Write(bc.Paths.Report()); werr != nil {
		log.Warnf("writing build report to %q: %v", bc.Paths.Report(), werr)
	}

	return buildErr
}

// populatePartitions runs each partition's setup script and materializes its
// file directives, in manifest order. File directives need a mounted
// filesystem to land in; a partition without one can only be written through
// its PartFS file by a setup script or a component build.
func populatePartitions(ctx context.Context, m *manifest.Manifest, pop *populate.Populator, artifacts map[string]scheduler.ArtifactList) error {
	log := logger.Logger()
	for _, p := range m.Image.Partitions {
		if err := pop.RunSetup(ctx, p.Label, p.Setup, p.Filesystem != ""); err != nil {
			return err
		}
		if len(p.Files) == 0 {
			continue
		}
		if p.Filesystem == "" {
			log.Warnf("partition %q has file entries but no filesystem; skipping them", p.Label)
			continue
		}
		if err := pop.PopulatePartition(ctx, p.Label, p.Files, artifacts); err != nil {
			return err
		}
	}
	return nil
}

// partitionRoots collects the deduplicated set of component names any
// partition directly requires.
func partitionRoots(m *manifest.Manifest) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, p := range m.Image.Partitions {
		for _, req := range p.Requires {
			if !seen[req] {
				seen[req] = true
				roots = append(roots, req)
			}
		}
	}
	return roots
}
