package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"releasetracker/storage"
	"releasetracker/youtube"
)

type fakeDiscoverer struct {
	videos []youtube.VideoInfo
	err    error
	calls  int
}

func (f *fakeDiscoverer) Discover(ctx context.Context) ([]youtube.VideoInfo, error) {
	f.calls++
	return f.videos, f.err
}

type fakeGenerator struct{}

func (fakeGenerator) GenerateValidatedPost(ctx context.Context, title, description string) string {
	return "post for " + title
}

func (fakeGenerator) GenerateValidatedGenre(ctx context.Context, title, description, videoURL string) string {
	return "rock"
}

type fakeAppender struct {
	appended []storage.PendingPost
	err      error
}

func (f *fakeAppender) Append(posts ...storage.PendingPost) error {
	if f.err != nil {
		return f.err
	}
	f.appended = append(f.appended, posts...)
	return nil
}

func TestRunCycle_QueuesPostPerVideo(t *testing.T) {
	disc := &fakeDiscoverer{videos: []youtube.VideoInfo{
		{ID: "vid1", Title: "First", Description: "d1", ChannelName: "Alpha", Thumbnail: "https://t/1.jpg"},
		{ID: "vid2", Title: "Second", Description: "d2", ChannelName: "Beta", Thumbnail: "https://t/2.jpg"},
	}}
	app := &fakeAppender{}

	tr := New(disc, fakeGenerator{}, app, time.Hour)
	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}

	if len(app.appended) != 2 {
		t.Fatalf("appended %d posts, want 2", len(app.appended))
	}

	p := app.appended[0]
	if p.VideoID != "vid1" || p.ChannelName != "Alpha" || p.ThumbnailURL != "https://t/1.jpg" {
		t.Errorf("post = %+v, want video metadata carried over", p)
	}
	if p.GeneratedPost != "post for First" || p.Genre != "rock" {
		t.Errorf("post content = (%q, %q), want generated values", p.GeneratedPost, p.Genre)
	}
	if p.Status != storage.StatusPending {
		t.Errorf("status = %q, want pending", p.Status)
	}
	if p.CreatedAt.IsZero() || p.CreatedAt.Location() != time.UTC {
		t.Errorf("CreatedAt = %v, want non-zero UTC", p.CreatedAt)
	}
}

func TestRunCycle_NoVideosNoAppend(t *testing.T) {
	app := &fakeAppender{}
	tr := New(&fakeDiscoverer{}, fakeGenerator{}, app, time.Hour)

	if err := tr.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle() error = %v", err)
	}
	if len(app.appended) != 0 {
		t.Errorf("appended %d posts, want 0", len(app.appended))
	}
}

func TestRunCycle_DiscoveryErrorPropagates(t *testing.T) {
	wantErr := errors.New("registry missing")
	tr := New(&fakeDiscoverer{err: wantErr}, fakeGenerator{}, &fakeAppender{}, time.Hour)

	if err := tr.RunCycle(context.Background()); !errors.Is(err, wantErr) {
		t.Errorf("RunCycle() error = %v, want wrapped discovery error", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	disc := &fakeDiscoverer{}
	tr := New(disc, fakeGenerator{}, &fakeAppender{}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()

	// Let the first cycle run, then cancel the inter-cycle wait.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not stop promptly after cancel")
	}

	if disc.calls != 1 {
		t.Errorf("discovery ran %d times, want 1", disc.calls)
	}
}
