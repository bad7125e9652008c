// Package janitor periodically sweeps the torrent backend's held
// torrents, dropping ones that have sat idle past a configured TTL
// and, if the data directory still exceeds a configured size cap,
// evicting further candidates oldest/largest-first — the same
// age-then-size eviction order as the teacher's internal/janitor, now
// over a single backend instead of per-category clients and guarded
// by the proxy's current-session id instead of a per-category
// mayDrop table.
package janitor

import (
	"context"
	"log"
	"time"

	"nero/internal/config"
	"nero/internal/torrentbackend"
)

// Current reports the torrent id of the active playback session, if
// any; the sweep never drops it.
type Current func() (id string, ok bool)

func Run(ctx context.Context, backend *torrentbackend.AnacrolixBackend, current Current) {
	t := time.NewTicker(2 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweep(backend, current)
		}
	}
}

func sweep(backend *torrentbackend.AnacrolixBackend, current Current) {
	now := time.Now()
	currentID, hasCurrent := current()

	if ttl := config.EvictTTL(); ttl > 0 {
		for _, st := range backend.Statuses() {
			if hasCurrent && st.ID == currentID {
				continue
			}
			if st.LastTouch.IsZero() || now.Sub(st.LastTouch) <= ttl {
				continue
			}
			log.Printf("[janitor] dropping idle %s", st.Name)
			if err := backend.CancelTorrent(context.Background(), st.ID); err != nil {
				log.Printf("[janitor] drop %s: %v", st.ID, err)
			}
		}
	}

	max := config.CacheMaxBytes()
	if max <= 0 {
		return
	}

	used := torrentbackend.DirSize(backend.DataDir())
	for used > max {
		cands := backend.Statuses()
		if hasCurrent {
			cands = excludeID(cands, currentID)
		}
		if len(cands) == 0 {
			log.Printf("[janitor] cache %d > %d but no safe candidate to evict; will retry later", used, max)
			return
		}

		best := pickBest(cands)
		log.Printf("[janitor] evicting %s (age=%s size=%d) | used=%d max=%d",
			best.Name, now.Sub(best.LastTouch).Truncate(time.Second), best.Size, used, max)
		if err := backend.CancelTorrent(context.Background(), best.ID); err != nil {
			log.Printf("[janitor] evict %s: %v", best.ID, err)
			return
		}
		used = torrentbackend.DirSize(backend.DataDir())
	}
}

func excludeID(cands []torrentbackend.TorrentStatus, id string) []torrentbackend.TorrentStatus {
	out := cands[:0]
	for _, c := range cands {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

// pickBest chooses the eviction candidate: oldest by last touch,
// preferring a bigger same-age candidate when two are within 2
// minutes of each other.
func pickBest(cands []torrentbackend.TorrentStatus) torrentbackend.TorrentStatus {
	best := cands[0]
	for _, x := range cands[1:] {
		older := x.LastTouch.Before(best.LastTouch)
		closeAge := x.LastTouch.Sub(best.LastTouch)
		if closeAge < 0 {
			closeAge = -closeAge
		}
		bigger := x.Size > best.Size
		if older || (closeAge < 2*time.Minute && bigger) {
			best = x
		}
	}
	return best
}
