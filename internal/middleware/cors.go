package middleware

import "net/http"

// EnableCORS marks a response as fetchable from any origin — the
// gateway is a local loopback service consumed by a browser-hosted
// player, not a multi-tenant API, so origin restriction buys nothing.
func EnableCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Range")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Content-Type")
}
