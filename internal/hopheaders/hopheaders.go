// Package hopheaders strips the headers that are meaningful only for
// one hop of a connection, so a cached HTTPRequestRecord can be safely
// replayed against a fresh upstream connection.
package hopheaders

import (
	"net/http"
	"strings"
)

var byHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailers",
	"Transfer-Encoding",
	"Upgrade",
}

// Strip removes hop-by-hop headers from h in place, including any
// header named by a Connection token (e.g. "Connection: X-Custom").
func Strip(h http.Header) {
	if conn := h.Get("Connection"); conn != "" {
		for _, tok := range strings.Split(conn, ",") {
			tok = strings.TrimSpace(tok)
			if tok != "" {
				h.Del(tok)
			}
		}
	}
	for _, name := range byHop {
		h.Del(name)
	}
}
