// Command gateway boots the nero media gateway: it loads the
// configured WASM extension, starts the media proxy and (optionally)
// the torrent backend, and serves both the facade's JSON API and the
// proxy's media routes off one listener, following the same
// godotenv/config/signal-context/graceful-shutdown boot sequence as
// the teacher's cmd/vod/main.go.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"nero/internal/config"
	"nero/internal/filenameparser"
	"nero/internal/gateway"
	"nero/internal/gatewayapi"
	"nero/internal/janitor"
	"nero/internal/kvstore"
	"nero/internal/middleware"
	"nero/internal/proxy"
	"nero/internal/torrentbackend"
	"nero/internal/wasmhost"
)

func main() {
	_ = godotenv.Load(".env")

	config.Load()
	config.SetupLogging()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	kv := kvstore.New(config.KVStoreDefaultTTL(), config.KVStoreCapacity())

	host, err := wasmhost.NewHost(rootCtx, kv)
	if err != nil {
		log.Fatalf("[boot] starting extension host: %v", err)
	}
	defer host.Close(context.Background())

	proxySrv := proxy.New(proxy.Config{
		Addr:               config.ListenAddr(),
		ImageCacheTTL:      config.ImageCacheTTL(),
		ImageCacheCapacity: config.ImageCacheCapacity(),
		VideoCacheTTL:      config.VideoCacheTTL(),
		VideoCacheCapacity: config.VideoCacheCapacity(),
	})

	facade := gateway.New(proxySrv, filenameparser.New())

	var backend *torrentbackend.AnacrolixBackend
	if config.TorrentEnabled() {
		backend, err = torrentbackend.NewAnacrolixBackend(config.DataRoot(), config.TrackersMode(), config.WaitMetadata())
		if err != nil {
			log.Fatalf("[boot] starting torrent backend: %v", err)
		}
		defer backend.Close()
		facade.SetTorrentBackend(backend)
	}

	if path := config.ExtensionPath(); path != "" {
		if _, err := os.Stat(path); err == nil {
			ext, err := host.LoadExtension(rootCtx, path)
			if err != nil {
				log.Fatalf("[boot] loading extension %s: %v", path, err)
			}
			if err := facade.LoadExtension(rootCtx, ext); err != nil {
				log.Fatalf("[boot] installing extension: %v", err)
			}
			log.Printf("[boot] loaded extension %s (version %s)", path, ext.Version())
		} else {
			log.Printf("[boot] no extension at %s yet; gateway starts unloaded", path)
		}
	}

	mux := http.NewServeMux()
	gatewayapi.New(facade).Register(mux)
	proxyRouter := proxySrv.Router()
	mux.Handle("/image/", proxyRouter)
	mux.Handle("/video/", proxyRouter)
	mux.Handle("/torrent/", proxyRouter)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			middleware.EnableCORS(w)
			return
		}
		http.NotFound(w, r)
	})

	addr := config.ListenAddr()
	log.Printf("[boot] gateway listening on %s extension=%s torrent=%v",
		addr, config.ExtensionPath(), config.TorrentEnabled())

	if backend != nil {
		go janitor.Run(rootCtx, backend, proxySrv.CurrentTorrentID)
	}

	srv := &http.Server{
		Addr:     addr,
		Handler:  middleware.Recover(mux),
		ErrorLog: log.New(log.Writer(), "[http] ", 0),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-rootCtx.Done()
	log.Printf("[boot] shutdown requested")

	shCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)

	log.Printf("[boot] shutdown complete")
}
