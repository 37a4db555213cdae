package manifest

import "gopkg.in/yaml.v3"

// DumpYAML renders the merged manifest back out as YAML for the
// `imagecraft build --dump-manifest` debug flag: seeing the fully resolved
// document (imports merged, defaults filled in) in one human-readable file
// is the fastest way to debug a `requires` resolution gone wrong.
func (m *Manifest) DumpYAML() ([]byte, error) {
	return yaml.Marshal(m)
}
