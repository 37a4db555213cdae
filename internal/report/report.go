// Package report serializes the outcome of one build run — partition
// layout, per-component status and timing, artifact identities — into a
// zstd-compressed JSON file next to the image, so a failed CI build can be
// diagnosed from the report alone without re-running anything.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/open-edge-platform/imagecraft/internal/artifact"
	"github.com/open-edge-platform/imagecraft/internal/diskbackend"
	"github.com/open-edge-platform/imagecraft/internal/logger"
	"github.com/open-edge-platform/imagecraft/internal/manifest"
	"github.com/open-edge-platform/imagecraft/internal/scheduler"
)

var log = logger.Logger()

// ComponentResult records one component's build outcome.
type ComponentResult struct {
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	DurationMS int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
	Artifacts  []string         `json:"artifacts,omitempty"`
	Packages   []*artifact.Info `json:"packages,omitempty"`
}

// PartitionLayout records one partition's resolved geometry.
type PartitionLayout struct {
	Label      string `json:"label"`
	Number     int    `json:"number"`
	StartLBA   uint64 `json:"start_lba"`
	EndLBA     uint64 `json:"end_lba"`
	SizeBytes  uint64 `json:"size_bytes"`
	Filesystem string `json:"filesystem,omitempty"`
}

// Report is the full record of one build run.
type Report struct {
	RunID      string            `json:"run_id"`
	Manifest   string            `json:"manifest"`
	Image      string            `json:"image"`
	Format     string            `json:"format"`
	SizeMiB    int64             `json:"size_mib"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Succeeded  bool              `json:"succeeded"`
	Error      string            `json:"error,omitempty"`
	Partitions []PartitionLayout `json:"partitions,omitempty"`
	Components []ComponentResult `json:"components,omitempty"`
}

// New starts a report for one run of manifest m producing imagePath.
func New(runID string, m *manifest.Manifest, imagePath string) *Report {
	return &Report{
		RunID:     runID,
		Manifest:  m.Name,
		Image:     imagePath,
		Format:    string(m.Image.Format),
		SizeMiB:   m.Image.SizeMiB,
		StartedAt: time.Now().UTC(),
	}
}

// RecordPartitions copies the resolved geometry into the report, annotating
// each entry with the filesystem its manifest partition named.
func (r *Report) RecordPartitions(geoms []diskbackend.PartitionGeometry, parts []manifest.Partition) {
	fsByLabel := make(map[string]string, len(parts))
	for _, p := range parts {
		fsByLabel[p.Label] = p.Filesystem
	}
	for _, g := range geoms {
		r.Partitions = append(r.Partitions, PartitionLayout{
			Label:      g.Label,
			Number:     g.Number,
			StartLBA:   g.StartLBA,
			EndLBA:     g.EndLBA,
			SizeBytes:  g.SizeBytes,
			Filesystem: fsByLabel[g.Label],
		})
	}
}

// RecordComponents copies every component's final status out of the
// scheduler. RPM artifacts get their package header read into the report;
// an unreadable header is logged and skipped, never fatal — the report is
// diagnostic output, not a gate.
func (r *Report) RecordComponents(s *scheduler.Scheduler, artifacts map[string]scheduler.ArtifactList, componentDir func(name string) string) {
	for _, name := range s.Components() {
		cr := ComponentResult{
			Name:       name,
			Status:     s.Status(name).String(),
			DurationMS: s.Duration(name).Milliseconds(),
		}
		if err := s.Err(name); err != nil {
			cr.Error = err.Error()
		}
		if list, ok := artifacts[name]; ok {
			cr.Artifacts = list.Artifacts
			for _, art := range list.Artifacts {
				info, err := artifact.Inspect(filepath.Join(componentDir(name), art))
				if err != nil {
					log.Warnf("inspecting artifact %q of %q: %v", art, name, err)
					continue
				}
				if info != nil {
					cr.Packages = append(cr.Packages, info)
				}
			}
		}
		r.Components = append(r.Components, cr)
	}
}

// Finish stamps the end time and outcome.
func (r *Report) Finish(err error) {
	r.FinishedAt = time.Now().UTC()
	r.Succeeded = err == nil
	if err != nil {
		r.Error = err.Error()
	}
}

// Write serializes the report as zstd-compressed JSON at path.
func (r *Report) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// Read loads a report previously written by Write.
func Read(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var r Report
	if err := json.NewDecoder(zr).Decode(&r); err != nil {
		return nil, err
	}
	return &r, nil
}
