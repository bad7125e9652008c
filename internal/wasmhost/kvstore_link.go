package wasmhost

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero/api"

	"nero/internal/kvstore"
)

// kvGetRequest/kvSetRequest/kvDeleteRequest are the wire shapes for
// the nero:keyvalue-ttl/store capability's three operations. Value is
// a []byte, which encoding/json already base64-encodes across the
// wire, so no separate encoding step is needed here.
type kvGetRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type kvGetResponse struct {
	Value []byte `json:"value,omitempty"`
	Found bool   `json:"found"`
}

type kvSetRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Value  []byte `json:"value"`
	TTLMs  int64  `json:"ttlMs,omitempty"`
}

type kvDeleteResponse struct {
	Found bool `json:"found"`
}

func kvGetFunc(store *kvstore.Store) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var req kvGetRequest
		readHostArgs(mod, stack, &req)

		value, found := store.Get(req.Bucket, req.Key)
		writeHostResult(ctx, mod, stack, kvGetResponse{Value: value, Found: found})
	}
}

func kvSetFunc(store *kvstore.Store) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var req kvSetRequest
		readHostArgs(mod, stack, &req)

		store.Set(req.Bucket, req.Key, req.Value, time.Duration(req.TTLMs)*time.Millisecond)
		writeHostResult(ctx, mod, stack, struct{}{})
	}
}

func kvDeleteFunc(store *kvstore.Store) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		var req kvGetRequest
		readHostArgs(mod, stack, &req)

		found := store.Delete(req.Bucket, req.Key)
		writeHostResult(ctx, mod, stack, kvDeleteResponse{Found: found})
	}
}

// readHostArgs decodes the (ptr,len) argument pair on stack[0:2] as
// JSON into dst. Every guest->host call in this package uses the same
// pointer/length-pair-in, packed-pointer/length-out calling
// convention as the guest->export calls in guestcall.go.
func readHostArgs(mod api.Module, stack []uint64, dst any) {
	ptr, length := uint32(stack[0]), uint32(stack[1])
	data, ok := mod.Memory().Read(ptr, length)
	if !ok {
		panic("wasmhost: host call: guest passed an out-of-bounds argument buffer")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		panic(fmt.Sprintf("wasmhost: host call: malformed argument JSON: %v", err))
	}
}

func writeHostResult(ctx context.Context, mod api.Module, stack []uint64, result any) {
	encoded, err := json.Marshal(result)
	if err != nil {
		panic(fmt.Sprintf("wasmhost: host call: encoding result: %v", err))
	}
	ptr, err := writeModuleBytes(ctx, mod, encoded)
	if err != nil {
		panic(fmt.Sprintf("wasmhost: host call: writing result: %v", err))
	}
	stack[0] = packPtrLen(ptr, uint32(len(encoded)))
}
