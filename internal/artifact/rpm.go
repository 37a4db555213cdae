// Package artifact inspects a component's yielded build outputs so the
// build report can record more than a bare filename. Only RPM packages are
// recognized; nothing in the retrieved dependency corpus provides a DEB
// header parser, so DEB artifacts are reported by name alone.
package artifact

import (
	"os"
	"strings"

	"github.com/sassoftware/go-rpmutils"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
)

var log = logger.Logger()

// Info is the subset of an artifact's identity worth recording in a build
// report.
type Info struct {
	Name    string
	Version string
	Release string
	Arch    string
	License string
}

// IsRPM reports whether path names an RPM package by extension.
func IsRPM(path string) bool {
	return strings.HasSuffix(path, ".rpm")
}

// InspectRPM reads name/version/release/arch/license out of path's RPM
// header without unpacking the package's payload.
func InspectRPM(path string) (*Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindUnresolvedArtifact, err, "opening %q for rpm inspection", path)
	}
	defer f.Close()

	hdr, err := rpmutils.ReadRpm(f)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindUnresolvedArtifact, err, "reading rpm header of %q", path)
	}
	nevra, err := hdr.Header.GetNEVRA()
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindUnresolvedArtifact, err, "reading nevra of %q", path)
	}

	license, err := hdr.Header.GetString(rpmutils.LICENSE)
	if err != nil {
		log.Debugf("rpm %q has no readable license tag: %v", path, err)
		license = ""
	}

	return &Info{
		Name:    nevra.Name,
		Version: nevra.Version,
		Release: nevra.Release,
		Arch:    nevra.Arch,
		License: license,
	}, nil
}

// Inspect returns artifact identity for path if its format is recognized,
// or nil if it has no known inspector — a DEB or a plain binary artifact,
// for instance, which the report then records by name alone.
func Inspect(path string) (*Info, error) {
	if !IsRPM(path) {
		return nil, nil
	}
	return InspectRPM(path)
}
