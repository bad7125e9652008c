package wasmhost

import (
	"context"

	"github.com/tetratelabs/wazero/api"
)

// outboundHTTPFunc backs the nero_outbound_http import: it never
// performs the request it's given — it decodes it, stores it in the
// calling guestCall's capture table (recovered from ctx, since wazero
// threads the Call context down into host functions), and hands the
// guest back a small JSON envelope naming the correlation ref, which
// the guest embeds in the MediaResource it eventually returns.
func outboundHTTPFunc(ctx context.Context, mod api.Module, stack []uint64) {
	call, _ := ctx.Value(guestCallCtxKey{}).(*guestCall)
	if call == nil {
		panic("wasmhost: nero_outbound_http invoked outside a guestCall")
	}

	var wire wireHTTPRequest
	readHostArgs(mod, stack, &wire)

	ref := call.addCaptured(wire.toTypes())

	writeHostResult(ctx, mod, stack, struct {
		Ref string `json:"ref"`
	}{Ref: formatRef(ref)})
}
