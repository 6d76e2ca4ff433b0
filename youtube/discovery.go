package youtube

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"releasetracker/storage"
)

// DiscoveryEngine walks the channel registry and collects videos published
// inside the configured day window that have not been seen before. Per
// channel it remembers the newest video it has handed out (the watch
// marker) so repeated runs over the same window stay incremental.
type DiscoveryEngine struct {
	primary  VideoLister
	fallback VideoLister
	docs     *storage.Documents

	windowBegin time.Time
	windowEnd   time.Time
}

// NewDiscoveryEngine creates a discovery engine over the given listers and
// document store. fallback may be nil. The window bounds are inclusive.
func NewDiscoveryEngine(primary, fallback VideoLister, docs *storage.Documents, windowBegin, windowEnd time.Time) *DiscoveryEngine {
	return &DiscoveryEngine{
		primary:     primary,
		fallback:    fallback,
		docs:        docs,
		windowBegin: windowBegin,
		windowEnd:   windowEnd,
	}
}

// Discover returns fresh candidates across all registered channels, in
// registry order, newest first within each channel. Watch state is
// persisted once, after every channel has been visited. A channel whose
// fetch fails on both listers is logged and skipped; it does not abort the
// run and its marker does not move.
func (e *DiscoveryEngine) Discover(ctx context.Context) ([]VideoInfo, error) {
	channels, err := e.docs.LoadChannels()
	if err != nil {
		return nil, fmt.Errorf("load channel registry: %w", err)
	}

	state, err := e.docs.LoadWatchState()
	if err != nil {
		return nil, fmt.Errorf("load watch state: %w", err)
	}

	deleted, err := e.docs.LoadDeleted()
	if err != nil {
		return nil, fmt.Errorf("load deleted set: %w", err)
	}

	var fresh []VideoInfo
	changed := false

	for _, ch := range channels {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		videos, err := e.listChannel(ctx, ch.ID)
		if err != nil {
			log.Printf("youtube: discovery skipping channel %s (%s): %v", ch.Name, ch.ID, err)
			continue
		}

		candidates := e.selectCandidates(videos, state[ch.ID], deleted)
		if len(candidates) == 0 {
			continue
		}

		// Listers return newest first already; sort defensively before
		// advancing the marker.
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].Published.After(candidates[j].Published)
		})

		for i := range candidates {
			if candidates[i].ChannelName == "" {
				candidates[i].ChannelName = ch.Name
			}
		}

		state[ch.ID] = candidates[0].ID
		changed = true
		fresh = append(fresh, candidates...)

		log.Printf("youtube: discovered %d new video(s) on %s", len(candidates), ch.Name)
	}

	if changed {
		if err := e.docs.StoreWatchState(state); err != nil {
			return nil, fmt.Errorf("store watch state: %w", err)
		}
	}

	return fresh, nil
}

// listChannel fetches recent videos for a channel, falling back to the
// secondary lister when the primary fails.
func (e *DiscoveryEngine) listChannel(ctx context.Context, channelID string) ([]VideoInfo, error) {
	opts := &ListOptions{StopBefore: e.windowBegin}

	videos, err := e.primary.ListRecent(ctx, channelID, opts)
	if err == nil {
		return videos, nil
	}
	if e.fallback == nil {
		return nil, err
	}

	log.Printf("youtube: primary lister failed for %s, trying feed: %v", channelID, err)

	videos, fbErr := e.fallback.ListRecent(ctx, channelID, opts)
	if fbErr != nil {
		return nil, fmt.Errorf("primary: %v; fallback: %w", err, fbErr)
	}
	return videos, nil
}

// selectCandidates filters a newest-first video list down to unseen videos
// published inside the day window. The walk stops at the watch marker;
// everything at or past it has been handed out before.
func (e *DiscoveryEngine) selectCandidates(videos []VideoInfo, marker string, deleted *storage.DeletedSet) []VideoInfo {
	var out []VideoInfo
	for _, v := range videos {
		if marker != "" && v.ID == marker {
			break
		}
		if deleted.Contains(v.ID) {
			continue
		}
		if v.Published.Before(e.windowBegin) || v.Published.After(e.windowEnd) {
			continue
		}
		out = append(out, v)
	}
	return out
}
