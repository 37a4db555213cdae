// Package pathmgr derives every on-disk path imagecraft uses for one build,
// from the root build directory down to a single partition's live mount
// point, centralizing these derivations so no other package
// string-concatenates a path of its own.
package pathmgr

import (
	"path/filepath"
	"strings"
)

// Manager derives every path rooted at one build directory for one image.
type Manager struct {
	buildDir  string
	imageName string // already kebab-cased
	format    string // "raw" or "qcow2"
}

// New builds a Manager. name is the manifest's `name` field (not the image's
// `label`) — the final image file is named after the manifest.
func New(buildDir, name, format string) *Manager {
	return &Manager{
		buildDir:  buildDir,
		imageName: Kebab(name),
		format:    format,
	}
}

// BuildDir is the root scratch directory for this run.
func (m *Manager) BuildDir() string { return m.buildDir }

// FinalImage is the path of the assembled disk image file, named
// "<name-kebab>.img" for raw or "<name-kebab>.qcow2" for qcow2.
func (m *Manager) FinalImage() string {
	ext := ".img"
	if m.format == "qcow2" {
		ext = ".qcow2"
	}
	return filepath.Join(m.buildDir, m.imageName+ext)
}

// Partitions is the PartFS mount point, "<build-dir>/partitions". Once
// PartFS is up it holds one flat file per partition of the image.
func (m *Manager) Partitions() string {
	return filepath.Join(m.buildDir, "partitions")
}

// Partition is one partition's PartFS-exposed file, keyed by partition
// label. Filesystem drivers format it and the mount coordinator mounts it;
// nothing in the build opens the backing image directly.
func (m *Manager) Partition(label string) string {
	return filepath.Join(m.Partitions(), label)
}

// LivePartitions is the directory every partition's live filesystem mount
// is rooted under, e.g. "<build-dir>/live".
func (m *Manager) LivePartitions() string {
	return filepath.Join(m.buildDir, "live")
}

// LivePartition is the mount point a partition's filesystem driver exposes
// its contents at while components are being populated into it.
func (m *Manager) LivePartition(label string) string {
	return filepath.Join(m.LivePartitions(), label)
}

// ComponentBuildDir is the scratch directory one component's build mode runs
// in, e.g. "<build-dir>/components/<name>".
func (m *Manager) ComponentBuildDir(name string) string {
	return filepath.Join(m.buildDir, "components", name)
}

// Report is the path of the compressed build report written at the end of a
// successful or failed run.
func (m *Manager) Report() string {
	return filepath.Join(m.buildDir, "report.json.zst")
}

// QMPSocket is the Unix socket path used to control the qemu-storage-daemon
// backing a qcow2 build, suffixed with a run-unique id so concurrent builds
// in the same build dir never collide.
func (m *Manager) QMPSocket(runID string) string {
	return filepath.Join(m.buildDir, "qmp-"+runID+".sock")
}

// Kebab converts name to kebab-case, used when deriving the final image's
// filename.
func Kebab(name string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range name {
		switch {
		case r == ' ' || r == '_' || r == '-':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
			prevLower = false
		case r >= 'A' && r <= 'Z':
			if prevLower && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r - 'A' + 'a')
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = r >= 'a' && r <= 'z' || r >= '0' && r <= '9'
		}
	}
	return strings.Trim(b.String(), "-")
}
