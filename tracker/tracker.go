// Package tracker orchestrates the periodic pipeline: discover new release
// videos, generate post text and genre for each, and append the results to
// the moderation queue.
package tracker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"releasetracker/storage"
	"releasetracker/youtube"
)

// Discoverer yields fresh candidate videos for one cycle.
type Discoverer interface {
	Discover(ctx context.Context) ([]youtube.VideoInfo, error)
}

// Generator produces markup-safe post text and genre labels.
type Generator interface {
	GenerateValidatedPost(ctx context.Context, title, description string) string
	GenerateValidatedGenre(ctx context.Context, title, description, videoURL string) string
}

// Appender receives generated posts for moderation.
type Appender interface {
	Append(posts ...storage.PendingPost) error
}

// Tracker runs discovery and generation on a fixed interval.
type Tracker struct {
	discoverer Discoverer
	gen        Generator
	queue      Appender
	interval   time.Duration
}

// New creates a tracker that runs a cycle every interval.
func New(discoverer Discoverer, gen Generator, queue Appender, interval time.Duration) *Tracker {
	return &Tracker{
		discoverer: discoverer,
		gen:        gen,
		queue:      queue,
		interval:   interval,
	}
}

// RunCycle executes one discovery and generation pass. Generation failures
// degrade to sentinel text inside the generator, so every discovered video
// yields a queued post unless the context is canceled.
func (t *Tracker) RunCycle(ctx context.Context) error {
	cycle := uuid.NewString()[:8]
	log.Printf("tracker: cycle %s starting", cycle)

	videos, err := t.discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("cycle %s: discovery: %w", cycle, err)
	}
	if len(videos) == 0 {
		log.Printf("tracker: cycle %s found no new videos", cycle)
		return nil
	}

	posts := make([]storage.PendingPost, 0, len(videos))
	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return err
		}

		post := t.gen.GenerateValidatedPost(ctx, v.Title, v.Description)
		genre := t.gen.GenerateValidatedGenre(ctx, v.Title, v.Description, v.VideoURL())

		posts = append(posts, storage.PendingPost{
			VideoID:       v.ID,
			ChannelName:   v.ChannelName,
			Title:         v.Title,
			Description:   v.Description,
			ThumbnailURL:  v.Thumbnail,
			GeneratedPost: post,
			Genre:         genre,
			Status:        storage.StatusPending,
			CreatedAt:     time.Now().UTC(),
		})
		log.Printf("tracker: cycle %s queued post for %q", cycle, v.Title)
	}

	if err := t.queue.Append(posts...); err != nil {
		return fmt.Errorf("cycle %s: append posts: %w", cycle, err)
	}

	log.Printf("tracker: cycle %s added %d post(s) for moderation", cycle, len(posts))
	return nil
}

// Run executes cycles until the context is canceled. The wait between
// cycles aborts promptly on cancellation. A failed cycle is logged; the
// loop keeps going.
func (t *Tracker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		if err := t.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("tracker: %v", err)
		}

		log.Printf("tracker: next check in %s", t.interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
