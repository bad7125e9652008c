package wasmhost

import (
	"context"
	"os"
	"testing"

	"github.com/tetratelabs/wazero"
)

func TestScanNullableStringPairs(t *testing.T) {
	// Printable runs separated by non-printable bytes, pairing up
	// consecutive runs; an odd trailing run is dropped.
	data := append([]byte{0x00}, append([]byte("toolchain"), append([]byte{0x00},
		append([]byte("v1.2.3"), 0x00)...)...)...)

	got := scanNullableStringPairs(data)
	if want := "v1.2.3"; got["toolchain"] != want {
		t.Fatalf("got %q, want %q", got["toolchain"], want)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one pair, got %v", got)
	}
}

func TestScanNullableStringPairsDropsOddTrailingRun(t *testing.T) {
	data := []byte{0x01, 'l', 'a', 'n', 'g', 0x01, 'r', 'u', 's', 't', 'c', 0x02, 'o', 'r', 'p', 'h', 'a', 'n'}

	got := scanNullableStringPairs(data)
	if got["lang"] != "rustc" {
		t.Fatalf("got %v, want lang->rustc", got)
	}
	if _, ok := got["orphan"]; ok {
		t.Fatalf("odd trailing run must not be paired: %v", got)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly one pair, got %v", got)
	}
}

// customSection builds one WASM custom-section record: id 0, a
// LEB128-prefixed size, a LEB128-prefixed name, then payload verbatim.
func customSection(name string, payload []byte) []byte {
	content := append(leb128(uint32(len(name))), append([]byte(name), payload...)...)
	return append([]byte{0x00}, append(leb128(uint32(len(content))), content...)...)
}

func leb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
		} else {
			out = append(out, b)
			break
		}
	}
	return out
}

// minimalModule assembles a WASM binary consisting only of the magic
// header/version and the given custom sections — a module with no
// types, functions, or code is legal WASM and is all ReadMetadata
// ever looks at.
func minimalModule(sections ...[]byte) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func TestReadMetadataDecodesVersionAndProducers(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCustomSections(true))
	defer runtime.Close(ctx)

	pkgSection := customSection("nero-meta", []byte("nero:extension@0.3.0-draft"))
	producersPayload := append([]byte{0x00}, append([]byte("toolchain"), append([]byte{0x00},
		append([]byte("v1.2.3"), 0x00)...)...)...)
	producersSection := customSection("producers", producersPayload)

	dir := t.TempDir()
	path := dir + "/extension.wasm"
	if err := os.WriteFile(path, minimalModule(pkgSection, producersSection), 0o644); err != nil {
		t.Fatalf("writing fixture module: %v", err)
	}

	meta, err := ReadMetadata(ctx, runtime, path)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta.Package != "nero:extension" {
		t.Fatalf("got package %q", meta.Package)
	}
	if meta.Version != "0.3.0-draft" {
		t.Fatalf("got version %q", meta.Version)
	}
	if meta.Producers["toolchain"] != "v1.2.3" {
		t.Fatalf("got producers %v", meta.Producers)
	}
}

func TestReadMetadataMissingVersionFails(t *testing.T) {
	ctx := context.Background()
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCustomSections(true))
	defer runtime.Close(ctx)

	dir := t.TempDir()
	path := dir + "/extension.wasm"
	if err := os.WriteFile(path, minimalModule(), 0o644); err != nil {
		t.Fatalf("writing fixture module: %v", err)
	}

	if _, err := ReadMetadata(ctx, runtime, path); err == nil {
		t.Fatalf("expected an error for a module with no package version")
	}
}
