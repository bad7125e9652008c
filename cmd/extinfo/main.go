// Command extinfo prints an extension's declared package/version and
// producer toolchain info without instantiating it, using
// wasmhost.ReadMetadata — handy for checking a `.wasm` file before
// pointing EXTENSION_PATH at it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tetratelabs/wazero"

	"nero/internal/wasmhost"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s <extension.wasm>\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	ctx := context.Background()
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCustomSections(true))
	defer runtime.Close(ctx)

	meta, err := wasmhost.ReadMetadata(ctx, runtime, path)
	if err != nil {
		log.Fatalf("extinfo: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		log.Fatalf("extinfo: encoding metadata: %v", err)
	}
}
