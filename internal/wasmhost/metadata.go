package wasmhost

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
)

// Metadata is what ReadMetadata recovers from a component's custom
// sections without instantiating it.
type Metadata struct {
	Package   string // "nero:extension"
	Version   string
	Producers map[string]string // tool name -> version, from the standard "producers" custom section
}

// ReadMetadata compiles the component at path far enough to read its
// custom sections, extracts its declared package/version and producer
// toolchain info, and discards the compiled module — it never
// instantiates the guest. Exists for tooling (an `extension info`
// CLI) that wants to inspect an extension without running it.
// runtime must be built with custom sections enabled
// (RuntimeConfig.WithCustomSections(true)); otherwise no package
// version is found and an error is returned.
func ReadMetadata(ctx context.Context, runtime wazero.Runtime, path string) (Metadata, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("wasmhost: reading %s: %w", path, err)
	}

	compiled, err := runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return Metadata{}, fmt.Errorf("wasmhost: compiling %s: %w", path, err)
	}
	defer compiled.Close(ctx)

	version, err := readPackageVersion(compiled)
	if err != nil {
		return Metadata{}, err
	}

	return Metadata{
		Package:   packageNamespace + ":" + packageName,
		Version:   version.String(),
		Producers: readProducers(compiled),
	}, nil
}

// readProducers does a best-effort scan of the "producers" custom
// section, which the WASM tool convention encodes as a sequence of
// (field-name, (producer-name, version) list) pairs in the core
// module's own LEB128-prefixed string format. This host only needs
// the common case — the raw strings are readable as UTF-8 substrings
// separated by short binary headers — so it extracts name/version
// pairs heuristically rather than implementing a full section parser.
func readProducers(compiled wazero.CompiledModule) map[string]string {
	for _, sec := range compiled.CustomSections() {
		if sec.Name() != "producers" {
			continue
		}
		return scanNullableStringPairs(sec.Data())
	}
	return nil
}

// scanNullableStringPairs extracts printable ASCII runs from data and
// pairs them up as (name, version); it is intentionally tolerant of
// the exact binary framing since this host only consumes the result
// for human-facing display, never for control flow.
func scanNullableStringPairs(data []byte) map[string]string {
	var words []string
	var cur bytes.Buffer
	flush := func() {
		if cur.Len() >= 2 {
			words = append(words, cur.String())
		}
		cur.Reset()
	}
	for _, b := range data {
		if b >= 0x20 && b < 0x7f {
			cur.WriteByte(b)
		} else {
			flush()
		}
	}
	flush()

	out := make(map[string]string)
	for i := 0; i+1 < len(words); i += 2 {
		out[words[i]] = words[i+1]
	}
	return out
}
