package manifest

import "github.com/open-edge-platform/imagecraft/internal/imgerr"

// Validate checks the tagged unions and cross-field constraints the JSON
// Schema in schema.go cannot express cleanly: a FileEntry must carry exactly
// one content form, and a Component must carry exactly one build mode.
func (m *Manifest) Validate() error {
	seen := make(map[string]bool, len(m.Components))
	for _, c := range m.Components {
		if seen[c.Name] {
			return imgerr.New(imgerr.KindDuplicateComponentName, "%q", c.Name)
		}
		seen[c.Name] = true

		if err := c.validateBuildMode(); err != nil {
			return err
		}
	}
	for _, p := range m.Image.Partitions {
		for _, f := range p.Files {
			if err := f.validateContent(p.Label); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c Component) validateBuildMode() error {
	n := 0
	if c.Cargo != nil {
		n++
	}
	if c.Shell != nil {
		n++
	}
	switch n {
	case 0:
		return imgerr.New(imgerr.KindUnresolvedArtifact, "component %q declares no build mode (need cargo or shell)", c.Name)
	case 1:
		return nil
	default:
		return imgerr.New(imgerr.KindUnresolvedArtifact, "component %q declares more than one build mode", c.Name)
	}
}

func (f FileEntry) validateContent(partitionLabel string) error {
	n := 0
	if f.Symlink != "" {
		n++
	}
	if f.Text != nil {
		n++
	}
	if f.Artifact != nil {
		n++
	}
	if f.FromShell != nil {
		n++
	}
	switch n {
	case 0:
		return imgerr.New(imgerr.KindInvalidPartitionReference, "file %q in partition %q declares no content (need symlink, text, artifact, or from-shell)", f.Path, partitionLabel)
	case 1:
		return nil
	default:
		return imgerr.New(imgerr.KindInvalidPartitionReference, "file %q in partition %q declares more than one content form", f.Path, partitionLabel)
	}
}
