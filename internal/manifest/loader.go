package manifest

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/open-edge-platform/imagecraft/internal/imgerr"
	"github.com/open-edge-platform/imagecraft/internal/logger"
)

var log = logger.Logger()

// Load reads the manifest at path, resolves every module named in its
// `requires` list, validates the merged result, and returns it ready for
// graph building. Each imported path is canonicalized and loaded at most
// once, even when several requires entries resolve to the same file.
func Load(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindInvalidBuildDir, err, "resolving manifest path %q", path)
	}

	root, err := decodeManifest(abs)
	if err != nil {
		return nil, err
	}

	loaded := map[string]bool{abs: true}
	for _, req := range root.Requires {
		if err := resolveRequire(abs, req, loaded, &root.Components); err != nil {
			return nil, err
		}
	}

	root.Normalize()
	if err := root.Validate(); err != nil {
		return nil, err
	}
	log.Infow("manifest loaded", "path", abs, "components", len(root.Components))
	return root, nil
}

func resolveRequire(referrer, req string, loaded map[string]bool, components *[]Component) error {
	dir := filepath.Dir(referrer)
	p := req
	if filepath.Ext(p) == "" {
		p += ".toml"
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(dir, p)
	}
	canonical, err := filepath.Abs(p)
	if err != nil {
		return imgerr.Wrap(imgerr.KindParseError, err, "resolving required module %q", req)
	}
	if loaded[canonical] {
		return nil
	}
	loaded[canonical] = true

	mod, err := decodeModule(canonical)
	if err != nil {
		return err
	}
	*components = append(*components, mod.Components...)
	return nil
}

func decodeManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindParseError, err, "reading manifest %q", path)
	}

	var raw map[string]interface{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, wrapParseError(path, err)
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, wrapParseError(path, err)
	}
	return &m, nil
}

func decodeModule(path string) (*ImportableModule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, imgerr.Wrap(imgerr.KindParseError, err, "reading required module %q", path)
	}

	var raw map[string]interface{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, wrapParseError(path, err)
	}
	if err := validateAgainstSchema(raw); err != nil {
		return nil, err
	}

	var mod ImportableModule
	if _, err := toml.Decode(string(data), &mod); err != nil {
		return nil, wrapParseError(path, err)
	}
	return &mod, nil
}

// wrapParseError attaches the file and, when BurntSushi/toml reports one, the
// exact line/column of the syntax error, so a bad manifest prints a source
// snippet instead of a bare "toml: ...".
func wrapParseError(path string, err error) error {
	if perr, ok := err.(toml.ParseError); ok {
		// ErrorWithPosition renders the offending source region with a
		// caret, which is the snippet users need to fix the manifest.
		return imgerr.New(imgerr.KindParseError, "%s:%d:\n%s", path, perr.Position.Line, perr.ErrorWithPosition())
	}
	return imgerr.Wrap(imgerr.KindParseError, err, "parsing %q", path)
}
