// Package wasmhost loads the sandboxed WebAssembly extension the
// gateway searches a remote catalog through, negotiates its contract
// version, and dispatches the five guest operations against it. Every
// call gets a fresh guest instance; no guest state survives between
// calls. Outbound HTTP the guest attempts is captured as a host-side
// HTTPRequestRecord rather than performed, so the media proxy (not the
// sandboxed guest) ends up making the real network request.
package wasmhost

import (
	"context"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"nero/internal/kvstore"
)

// Host owns the shared wazero runtime extensions are compiled
// against. One Host serves every extension the gateway loads over its
// lifetime; compiling a component is expensive, instantiating one for
// a single call is cheap, which is why compilation happens once in
// LoadExtension and instantiation happens fresh per operation.
type Host struct {
	runtime wazero.Runtime
}

// NewHost builds a Host. kv backs the guest-facing key-value
// capability linked alongside outbound HTTP. The returned Host must
// be closed with Close once the gateway is done with every extension
// it loaded.
func NewHost(ctx context.Context, kv *kvstore.Store) (*Host, error) {
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCustomSections(true))
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, runtime); err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("wasmhost: instantiating WASI: %w", err)
	}
	if err := linkHostModule(ctx, runtime, kv); err != nil {
		_ = runtime.Close(ctx)
		return nil, err
	}
	return &Host{runtime: runtime}, nil
}

// Close releases the runtime and every module compiled against it.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

// LoadExtension reads and compiles the component at path, extracts its
// declared `nero:extension` version, and selects the contract binding
// that will be used for every subsequent call against it.
func (h *Host) LoadExtension(ctx context.Context, path string) (*Extension, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: reading %s: %w", path, err)
	}

	compiled, err := h.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("wasmhost: compiling %s: %w", path, err)
	}

	version, err := readPackageVersion(compiled)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	binding, err := selectBinding(version)
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, err
	}

	return &Extension{
		host:     h,
		compiled: compiled,
		version:  version,
		protocol: binding.protocol,
		path:     path,
	}, nil
}
