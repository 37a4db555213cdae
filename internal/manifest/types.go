// Package manifest implements the TOML-shaped root manifest and importable
// module schema: parsing, import resolution, and
// duplicate-name rejection.
package manifest

// Manifest is the fully merged root document: the file at the given path
// plus every component contributed by its Requires imports.
type Manifest struct {
	Name        string      `toml:"name" yaml:"name"`
	Description string      `toml:"description,omitempty" yaml:"description,omitempty"`
	Requires    []string    `toml:"requires" yaml:"requires,omitempty"`
	Image       ImageSpec   `toml:"image" yaml:"image"`
	Components  []Component `toml:"component" yaml:"component,omitempty"`
}

// ImageSpec is the manifest's `image` table.
type ImageSpec struct {
	Label       string      `toml:"label" yaml:"label"`
	Description string      `toml:"description,omitempty" yaml:"description,omitempty"`
	SizeMiB     int64       `toml:"size" yaml:"size"`
	Format      ImageFormat `toml:"format" yaml:"format"`
	Partitions  []Partition `toml:"partition" yaml:"partition,omitempty"`
}

// ImageFormat is either "raw" or "qcow2"; the zero value means unset, which
// Normalize resolves to FormatRaw, the documented default.
type ImageFormat string

const (
	FormatUnset ImageFormat = ""
	FormatRaw   ImageFormat = "raw"
	FormatQCow2 ImageFormat = "qcow2"
)

// Partition is one entry of `image.partition`.
type Partition struct {
	Label      string      `toml:"label" yaml:"label"`
	SizeMiB    int64       `toml:"size" yaml:"size"`
	Filesystem string      `toml:"filesystem,omitempty" yaml:"filesystem,omitempty"`
	Setup      string      `toml:"setup,omitempty" yaml:"setup,omitempty"`
	Requires   []string    `toml:"requires" yaml:"requires,omitempty"`
	Files      []FileEntry `toml:"file" yaml:"file,omitempty"`
}

// FileEntry places one file at Path inside a partition. Exactly one content
// form must be set; see Validate.
type FileEntry struct {
	Path      string       `toml:"path" yaml:"path"`
	Symlink   string       `toml:"symlink,omitempty" yaml:"symlink,omitempty"`
	Text      *string      `toml:"text,omitempty" yaml:"text,omitempty"`
	Artifact  *ArtifactRef `toml:"artifact,omitempty" yaml:"artifact,omitempty"`
	FromShell *string      `toml:"from-shell,omitempty" yaml:"from-shell,omitempty"`
}

// ArtifactRef names one artifact produced by a component's build.
type ArtifactRef struct {
	Component string `toml:"component" yaml:"component"`
	Artifact  string `toml:"artifact" yaml:"artifact"`
}

// ContentKind enumerates FileEntry's tagged content union.
type ContentKind int

const (
	ContentNone ContentKind = iota
	ContentSymlink
	ContentText
	ContentArtifact
	ContentFromShell
)

// Kind reports which of the four content forms is populated.
func (f FileEntry) Kind() ContentKind {
	switch {
	case f.Symlink != "":
		return ContentSymlink
	case f.Text != nil:
		return ContentText
	case f.Artifact != nil:
		return ContentArtifact
	case f.FromShell != nil:
		return ContentFromShell
	default:
		return ContentNone
	}
}

// Component is a unit of buildable source: its name, dependencies, yielded
// artifact paths, cache mode, and exactly one build mode.
type Component struct {
	Name      string    `toml:"name" yaml:"name"`
	Requires  []string  `toml:"requires" yaml:"requires,omitempty"`
	Yields    []string  `toml:"yields" yaml:"yields,omitempty"`
	CacheMode CacheMode `toml:"caching" yaml:"caching,omitempty"`
	Cargo     []string  `toml:"cargo,omitempty" yaml:"cargo,omitempty"`
	Shell     *string   `toml:"shell,omitempty" yaml:"shell,omitempty"`
}

// CacheMode is one of aggressive|normal|transient; zero value means unset,
// resolved to CacheNormal by Normalize, the documented default.
type CacheMode string

const (
	CacheUnset      CacheMode = ""
	CacheAggressive CacheMode = "aggressive"
	CacheNormal     CacheMode = "normal"
	CacheTransient  CacheMode = "transient"
)

// BuildModeKind distinguishes a component's build mode.
type BuildModeKind int

const (
	BuildModeNone BuildModeKind = iota
	BuildModeCargo
	BuildModeShell
)

// BuildMode reports which build mode the component uses.
func (c Component) BuildMode() BuildModeKind {
	switch {
	case c.Cargo != nil:
		return BuildModeCargo
	case c.Shell != nil:
		return BuildModeShell
	default:
		return BuildModeNone
	}
}

// ImportableModule is the schema of a file referenced by Manifest.Requires:
// it may contain only a component array, merged wholesale into the root.
type ImportableModule struct {
	Components []Component `toml:"component" yaml:"component,omitempty"`
}

// Normalize fills in the documented defaults (image format, cache mode) in
// place, so later stages never see the unset zero values.
func (m *Manifest) Normalize() {
	if m.Image.Format == FormatUnset {
		m.Image.Format = FormatRaw
	}
	for i := range m.Components {
		if m.Components[i].CacheMode == CacheUnset {
			m.Components[i].CacheMode = CacheNormal
		}
	}
}
