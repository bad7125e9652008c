// Package config centralizes the gateway's environment-derived settings:
// where its WASM extension lives, how its caches are sized, how its
// optional torrent backend behaves, and how its logging is filtered.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	listenAddr    = ":4001"
	extensionPath = "./extension.wasm"

	imageCacheTTL      = 30 * time.Minute
	imageCacheCapacity = 2048
	videoCacheTTL      = 10 * time.Minute
	videoCacheCapacity = 512

	kvstoreDefaultTTL = 5 * time.Minute
	kvstoreCapacity   = 4096

	torrentEnabled   = true
	dataRoot         = "./torrent-cache"
	cacheMaxBytes    int64
	evictTTL         time.Duration
	waitMetadata     = 25 * time.Second
	trackersMode     = "udp" // all|http|udp|none

	// logging
	logFilePath   = "gateway.log"
	logAllowRegex = `^\[(boot|host|proxy|resolver|janitor|stats)\]`
	logDenyRegex  = `FlushFileBuffers|fsync|WriteFile|The handle is invalid|Access is denied|Permission denied`
	logDedupWin   = 3 * time.Second
)

func Load() {
	listenAddr = getenv("LISTEN", listenAddr)
	extensionPath = getenv("EXTENSION_PATH", extensionPath)

	imageCacheTTL = getenvDuration("IMAGE_CACHE_TTL", imageCacheTTL)
	imageCacheCapacity = int(getenvInt64("IMAGE_CACHE_CAPACITY", int64(imageCacheCapacity)))
	videoCacheTTL = getenvDuration("VIDEO_CACHE_TTL", videoCacheTTL)
	videoCacheCapacity = int(getenvInt64("VIDEO_CACHE_CAPACITY", int64(videoCacheCapacity)))

	kvstoreDefaultTTL = getenvDuration("KVSTORE_DEFAULT_TTL", kvstoreDefaultTTL)
	kvstoreCapacity = int(getenvInt64("KVSTORE_CAPACITY", int64(kvstoreCapacity)))

	torrentEnabled = strings.ToLower(getenv("TORRENT_ENABLED", "true")) != "false"

	if v := getenv("TORRENT_DATA_ROOT", ""); v != "" {
		dataRoot = v
	}
	_ = os.MkdirAll(dataRoot, 0o755)

	cacheMaxBytes = getenvInt64("CACHE_MAX_BYTES", 0)
	evictTTL = getenvDuration("CACHE_EVICT_TTL", 0)

	waitMetadata = getenvDuration("WAIT_METADATA", waitMetadata)
	if ms := getenvInt64("WAIT_METADATA_MS", 0); ms > 0 {
		waitMetadata = time.Duration(ms) * time.Millisecond
	}

	trackersMode = strings.ToLower(getenv("TRACKERS_MODE", trackersMode))

	logFilePath = getenv("LOG_FILE", logFilePath)
	logAllowRegex = getenv("LOG_ALLOW", logAllowRegex)
	logDenyRegex = getenv("LOG_DENY", logDenyRegex)
	logDedupWin = getenvDuration("LOG_DEDUP_WINDOW", logDedupWin)
}

// getters
func ListenAddr() string              { return listenAddr }
func ExtensionPath() string           { return extensionPath }
func ImageCacheTTL() time.Duration    { return imageCacheTTL }
func ImageCacheCapacity() int         { return imageCacheCapacity }
func VideoCacheTTL() time.Duration    { return videoCacheTTL }
func VideoCacheCapacity() int         { return videoCacheCapacity }
func KVStoreDefaultTTL() time.Duration { return kvstoreDefaultTTL }
func KVStoreCapacity() int            { return kvstoreCapacity }
func TorrentEnabled() bool            { return torrentEnabled }
func DataRoot() string                { return dataRoot }
func CacheMaxBytes() int64            { return cacheMaxBytes }
func EvictTTL() time.Duration         { return evictTTL }
func WaitMetadata() time.Duration     { return waitMetadata }
func TrackersMode() string            { return trackersMode }
func LogFilePath() string             { return logFilePath }
func LogAllowRegex() string           { return logAllowRegex }
func LogDenyRegex() string            { return logDenyRegex }
func LogDedupWindow() time.Duration   { return logDedupWin }

// helpers
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func getenvInt64(k string, def int64) int64 {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
func getenvDuration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
