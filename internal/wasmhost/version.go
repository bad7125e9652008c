package wasmhost

import (
	"bytes"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/tetratelabs/wazero"
)

const (
	packageNamespace = "nero"
	packageName      = "extension"
)

// readPackageVersion scans a compiled component's custom sections for
// its WIT package declaration and extracts the semantic version off
// the `nero:extension@X.Y.Z` marker. wazero has no dedicated
// WIT-introspection API, but does expose every custom section
// verbatim via CompiledModule.CustomSections() when the runtime is
// configured WithCustomSections(true) (as NewHost does), which is where the
// component-model encoder leaves the package name/version string; a
// byte scan for the namespace:name@ prefix is enough to recover it
// without a full WIT resolver.
func readPackageVersion(compiled wazero.CompiledModule) (*semver.Version, error) {
	prefix := []byte(packageNamespace + ":" + packageName + "@")

	for _, sec := range compiled.CustomSections() {
		data := sec.Data()
		idx := bytes.Index(data, prefix)
		if idx < 0 {
			continue
		}
		rest := data[idx+len(prefix):]
		end := bytes.IndexAny(rest, "\x00 \t\n\r\"'")
		if end < 0 {
			end = len(rest)
		}
		v, err := semver.NewVersion(string(rest[:end]))
		if err != nil {
			continue
		}
		return v, nil
	}

	return nil, fmt.Errorf("wasmhost: no %s:%s package version found in module custom sections", packageNamespace, packageName)
}
