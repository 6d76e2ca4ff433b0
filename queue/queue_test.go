package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"releasetracker/storage"
)

type fakeGenerator struct {
	validated   int
	ensured     int
	regenerated string
}

func (f *fakeGenerator) GenerateValidatedPost(ctx context.Context, title, description string) string {
	f.validated++
	return f.regenerated
}

func (f *fakeGenerator) EnsureValidPost(ctx context.Context, title, description, current string) string {
	f.ensured++
	return current
}

type fakePublisher struct {
	err          error
	destinations []int64
	captions     []string
}

func (f *fakePublisher) Publish(ctx context.Context, destination int64, photoURL, caption string) error {
	f.destinations = append(f.destinations, destination)
	f.captions = append(f.captions, caption)
	return f.err
}

func post(videoID, genre string) storage.PendingPost {
	return storage.PendingPost{
		VideoID:       videoID,
		ChannelName:   "Alpha",
		Title:         "title " + videoID,
		Description:   "description " + videoID,
		GeneratedPost: "<b>post " + videoID + "</b>",
		Genre:         genre,
		Status:        storage.StatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func newTestQueue(t *testing.T, pub *fakePublisher, gen *fakeGenerator, posts ...storage.PendingPost) *Queue {
	t.Helper()
	docs, err := storage.NewDocuments(t.TempDir())
	if err != nil {
		t.Fatalf("NewDocuments() error = %v", err)
	}
	cfg := Config{
		GroupsByGenre:      map[string]int64{"rock": -100200, "jazz": -100300},
		DefaultDestination: -100999,
	}
	q := New(docs, gen, pub, cfg)
	if err := q.Append(posts...); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	return q
}

func TestApply_DeleteRemovesPostAndRecordsVideoID(t *testing.T) {
	q := newTestQueue(t, &fakePublisher{}, &fakeGenerator{},
		post("vid0", "rock"), post("vid1", "rock"), post("vid2", "jazz"))

	out, err := q.Apply(context.Background(), ActionDelete, 1)
	if err != nil {
		t.Fatalf("Apply(delete) error = %v", err)
	}

	// Elements shift left: the same index now shows the next post.
	if out.Finished || out.Post == nil || out.Post.VideoID != "vid2" {
		t.Errorf("outcome = %+v, want vid2 at index 1", out)
	}

	posts, _ := q.docs.LoadQueue()
	if len(posts) != 2 || posts[0].VideoID != "vid0" || posts[1].VideoID != "vid2" {
		t.Errorf("queue after delete = %+v, want vid0, vid2", posts)
	}

	deleted, _ := q.docs.LoadDeleted()
	if !deleted.Contains("vid1") {
		t.Error("deleted set does not contain vid1")
	}
}

func TestApply_DeleteWithIDAlreadyRecorded(t *testing.T) {
	q := newTestQueue(t, &fakePublisher{}, &fakeGenerator{}, post("vid0", "rock"))
	if _, err := q.docs.AddDeleted("vid0"); err != nil {
		t.Fatal(err)
	}

	out, err := q.Apply(context.Background(), ActionDelete, 0)
	if err != nil {
		t.Fatalf("Apply(delete) error = %v", err)
	}
	if !out.Finished {
		t.Errorf("outcome = %+v, want finished on emptied queue", out)
	}

	deleted, _ := q.docs.LoadDeleted()
	if deleted.Len() != 1 {
		t.Errorf("deleted set has %d entries, want exactly 1", deleted.Len())
	}
}

func TestApply_ApprovePublishesToGenreDestination(t *testing.T) {
	pub := &fakePublisher{}
	gen := &fakeGenerator{}
	q := newTestQueue(t, pub, gen, post("vid0", "jazz"))

	out, err := q.Apply(context.Background(), ActionApprove, 0)
	if err != nil {
		t.Fatalf("Apply(approve) error = %v", err)
	}
	if out.PublishErr != nil {
		t.Errorf("PublishErr = %v, want nil", out.PublishErr)
	}

	posts, _ := q.docs.LoadQueue()
	if posts[0].Status != storage.StatusApproved {
		t.Errorf("status = %q, want approved", posts[0].Status)
	}
	if gen.ensured != 1 {
		t.Errorf("EnsureValidPost called %d times, want 1", gen.ensured)
	}

	if len(pub.destinations) != 1 || pub.destinations[0] != -100300 {
		t.Fatalf("published to %v, want genre destination -100300", pub.destinations)
	}
	caption := pub.captions[0]
	if !strings.Contains(caption, "<b>post vid0</b>") {
		t.Errorf("caption %q missing post text", caption)
	}
	if !strings.Contains(caption, "https://youtu.be/vid0") {
		t.Errorf("caption %q missing watch link", caption)
	}
}

func TestApply_ApproveUnknownGenreUsesDefaultDestination(t *testing.T) {
	pub := &fakePublisher{}
	q := newTestQueue(t, pub, &fakeGenerator{}, post("vid0", "polka"))

	if _, err := q.Apply(context.Background(), ActionApprove, 0); err != nil {
		t.Fatalf("Apply(approve) error = %v", err)
	}
	if len(pub.destinations) != 1 || pub.destinations[0] != -100999 {
		t.Errorf("published to %v, want default destination -100999", pub.destinations)
	}
}

func TestApply_ApprovePublishFailureKeepsApprovedState(t *testing.T) {
	pub := &fakePublisher{err: errors.New("telegram down")}
	q := newTestQueue(t, pub, &fakeGenerator{}, post("vid0", "rock"))

	out, err := q.Apply(context.Background(), ActionApprove, 0)
	if err != nil {
		t.Fatalf("Apply(approve) error = %v", err)
	}
	if out.PublishErr == nil {
		t.Error("PublishErr = nil, want publish failure reported")
	}

	posts, _ := q.docs.LoadQueue()
	if posts[0].Status != storage.StatusApproved {
		t.Errorf("status after failed publish = %q, want approved", posts[0].Status)
	}
}

func TestApply_ReviseRegeneratesAndStaysPending(t *testing.T) {
	gen := &fakeGenerator{regenerated: "<i>take two</i>"}
	q := newTestQueue(t, &fakePublisher{}, gen, post("vid0", "rock"))

	out, err := q.Apply(context.Background(), ActionRevise, 0)
	if err != nil {
		t.Fatalf("Apply(revise) error = %v", err)
	}
	if out.Post == nil || out.Post.GeneratedPost != "<i>take two</i>" {
		t.Errorf("outcome post = %+v, want regenerated text", out.Post)
	}

	posts, _ := q.docs.LoadQueue()
	if posts[0].Status != storage.StatusPending {
		t.Errorf("status after revise = %q, want pending", posts[0].Status)
	}
	if gen.validated != 1 {
		t.Errorf("GenerateValidatedPost called %d times, want 1", gen.validated)
	}
}

func TestApply_NavigationAndEndOfQueue(t *testing.T) {
	q := newTestQueue(t, &fakePublisher{}, &fakeGenerator{},
		post("vid0", "rock"), post("vid1", "rock"))

	out, err := q.Apply(context.Background(), ActionNext, 0)
	if err != nil {
		t.Fatalf("Apply(next) error = %v", err)
	}
	if out.Finished || out.Post.VideoID != "vid1" {
		t.Errorf("next from 0 = %+v, want vid1 at index 1", out)
	}

	out, err = q.Apply(context.Background(), ActionNext, 1)
	if err != nil {
		t.Fatalf("Apply(next) past end error = %v", err)
	}
	if !out.Finished {
		t.Errorf("next past end = %+v, want finished, not an error", out)
	}

	out, err = q.Apply(context.Background(), ActionApprove, 99)
	if err != nil {
		t.Fatalf("Apply(approve) out of range error = %v", err)
	}
	if !out.Finished {
		t.Errorf("approve out of range = %+v, want finished", out)
	}

	out, err = q.Apply(context.Background(), ActionFinish, 1)
	if err != nil || !out.Finished {
		t.Errorf("finish = %+v, %v; want finished outcome", out, err)
	}
}

func TestApply_UnknownAction(t *testing.T) {
	q := newTestQueue(t, &fakePublisher{}, &fakeGenerator{}, post("vid0", "rock"))

	if _, err := q.Apply(context.Background(), Action("explode"), 0); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("Apply(explode) error = %v, want ErrUnknownAction", err)
	}
}

func TestFirstPending_SkipsApproved(t *testing.T) {
	approved := post("vid0", "rock")
	approved.Status = storage.StatusApproved
	q := newTestQueue(t, &fakePublisher{}, &fakeGenerator{}, approved, post("vid1", "rock"))

	out, err := q.FirstPending()
	if err != nil {
		t.Fatalf("FirstPending() error = %v", err)
	}
	if out.Finished || out.Index != 1 || out.Post.VideoID != "vid1" {
		t.Errorf("FirstPending() = %+v, want vid1 at index 1", out)
	}
}

func TestPublishCaption_EmptyGenre(t *testing.T) {
	p := post("vid0", "")
	caption := PublishCaption(p)
	if !strings.Contains(caption, "<b>Genre:</b> Unknown") {
		t.Errorf("caption %q missing Unknown genre fallback", caption)
	}
}
