package wasmhost

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"nero/pkg/types"
)

var guestInstanceSeq uint64

// guestCall is one disposable guest instantiation, scoped to exactly
// one host-facing operation. It owns the fresh module instance and
// the table of outbound-HTTP requests the guest issued during the
// call; both are discarded once the operation returns, so no guest
// state (or captured request) survives past it.
type guestCall struct {
	module api.Module

	mu       sync.Mutex
	nextRef  uint64
	captured map[uint64]types.HTTPRequestRecord
}

type guestCallCtxKey struct{}

// newGuestCall instantiates a fresh copy of ext's compiled module
// under a unique instance name, so concurrent operations against the
// same Extension never share linear memory.
func newGuestCall(ctx context.Context, ext *Extension) (*guestCall, error) {
	call := &guestCall{captured: make(map[uint64]types.HTTPRequestRecord)}

	name := fmt.Sprintf("guest-%d", atomic.AddUint64(&guestInstanceSeq, 1))
	cfg := wazero.NewModuleConfig().WithName(name)

	ctx = context.WithValue(ctx, guestCallCtxKey{}, call)
	mod, err := ext.host.runtime.InstantiateModule(ctx, ext.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiating guest: %w", err)
	}
	call.module = mod
	return call, nil
}

func (call *guestCall) close(ctx context.Context) {
	_ = call.module.Close(ctx)
}

// invoke calls the guest export named fn with argsJSON as its single
// JSON argument and returns the Ok payload of its guestResult
// envelope. Arguments and results cross the sandbox boundary as
// JSON bytes in guest linear memory, addressed by the guest's own
// `alloc` export — the pointer/length convention this host's
// approximation of the component-model ABI relies on throughout.
func (call *guestCall) invoke(ctx context.Context, fn string, argsJSON []byte) (json.RawMessage, error) {
	ctx = context.WithValue(ctx, guestCallCtxKey{}, call)

	argsPtr, err := call.writeBytes(ctx, argsJSON)
	if err != nil {
		return nil, err
	}

	export := call.module.ExportedFunction(fn)
	if export == nil {
		return nil, fmt.Errorf("guest does not export %q", fn)
	}
	packed, err := export.Call(ctx, uint64(argsPtr), uint64(len(argsJSON)))
	if err != nil {
		return nil, fmt.Errorf("calling guest export %q: %w", fn, err)
	}
	if len(packed) != 1 {
		return nil, fmt.Errorf("guest export %q returned %d values, want 1", fn, len(packed))
	}

	resultPtr, resultLen := unpackPtrLen(packed[0])
	data, ok := call.module.Memory().Read(resultPtr, resultLen)
	if !ok {
		return nil, fmt.Errorf("guest export %q returned an out-of-bounds result", fn)
	}

	return decodeResult(data)
}

// writeBytes allocates len(data) bytes of guest memory via the
// guest's `alloc` export and copies data into it, returning the
// guest-side pointer.
func (call *guestCall) writeBytes(ctx context.Context, data []byte) (uint32, error) {
	return writeModuleBytes(ctx, call.module, data)
}

// writeModuleBytes is writeBytes generalized over any module instance,
// for host functions (kvstore, outbound-HTTP) that receive their
// calling module directly from wazero rather than through a guestCall.
func writeModuleBytes(ctx context.Context, mod api.Module, data []byte) (uint32, error) {
	alloc := mod.ExportedFunction("alloc")
	if alloc == nil {
		return 0, fmt.Errorf("guest does not export alloc")
	}
	res, err := alloc.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("calling guest alloc: %w", err)
	}
	ptr := uint32(res[0])
	if len(data) > 0 {
		if !mod.Memory().Write(ptr, data) {
			return 0, fmt.Errorf("writing %d bytes to guest memory at %d", len(data), ptr)
		}
	}
	return ptr, nil
}

func (call *guestCall) addCaptured(rec types.HTTPRequestRecord) uint64 {
	call.mu.Lock()
	defer call.mu.Unlock()
	call.nextRef++
	ref := call.nextRef
	call.captured[ref] = rec
	return ref
}

func formatRef(ref uint64) string {
	return strconv.FormatUint(ref, 10)
}

func (call *guestCall) lookupCaptured(ref string) (types.HTTPRequestRecord, bool) {
	n, err := strconv.ParseUint(ref, 10, 64)
	if err != nil {
		return types.HTTPRequestRecord{}, false
	}
	call.mu.Lock()
	defer call.mu.Unlock()
	rec, ok := call.captured[n]
	return rec, ok
}

func unpackPtrLen(packed uint64) (ptr, length uint32) {
	return uint32(packed >> 32), uint32(packed)
}

func packPtrLen(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}
