package wasmhost

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"nero/internal/kvstore"
)

// linkHostModule registers every capability this host links into the
// guest import table — outbound HTTP and the namespaced key-value
// store — as a single "nero_host" module, instantiated once against
// runtime. Both capabilities share the pointer/length-pair-in,
// packed-pointer/length-out calling convention used for guest exports
// in guestcall.go.
func linkHostModule(ctx context.Context, runtime wazero.Runtime, kv *kvstore.Store) error {
	i32i32 := []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}
	i64 := []api.ValueType{api.ValueTypeI64}

	_, err := runtime.NewHostModuleBuilder("nero_host").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(outboundHTTPFunc), i32i32, i64).
		Export("nero_outbound_http").
		NewFunctionBuilder().
		WithGoModuleFunction(kvGetFunc(kv), i32i32, i64).
		Export("nero_kvstore_get").
		NewFunctionBuilder().
		WithGoModuleFunction(kvSetFunc(kv), i32i32, i64).
		Export("nero_kvstore_set").
		NewFunctionBuilder().
		WithGoModuleFunction(kvDeleteFunc(kv), i32i32, i64).
		Export("nero_kvstore_delete").
		Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("wasmhost: linking nero_host module: %w", err)
	}
	return nil
}
