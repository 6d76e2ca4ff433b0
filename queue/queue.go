// Package queue implements the pending-post moderation state machine.
//
// Posts move pending -> approved; rejection is modeled as deletion, not a
// status. Every action is one whole-document read-modify-write against the
// pending posts file, keyed by (action, index). The package never imports
// the UI layer; publishing and regeneration happen through the small
// collaborator interfaces below.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log"

	"releasetracker/storage"
)

// Action identifies a moderator input.
type Action string

const (
	ActionApprove Action = "approve"
	ActionRevise  Action = "revise"
	ActionDelete  Action = "delete"
	ActionNext    Action = "next"
	ActionFinish  Action = "finish"
)

// ErrUnknownAction is returned for an action the state machine does not know.
var ErrUnknownAction = errors.New("queue: unknown action")

// ErrStalePost is returned when the post at the given index changed while a
// generation call was in flight.
var ErrStalePost = errors.New("queue: post changed during action")

// Publisher sends an approved post to a destination chat. Publishing is
// fire-and-forget from the state machine's viewpoint; failures are reported
// in the Outcome, never retried here.
type Publisher interface {
	Publish(ctx context.Context, destination int64, photoURL, caption string) error
}

// PostGenerator regenerates post text under the markup contract.
type PostGenerator interface {
	GenerateValidatedPost(ctx context.Context, title, description string) string
	EnsureValidPost(ctx context.Context, title, description, current string) string
}

// Config routes approved posts to destination chats by genre.
type Config struct {
	// GroupsByGenre maps a genre label to a destination chat id.
	GroupsByGenre map[string]int64
	// DefaultDestination receives posts whose genre has no mapping.
	DefaultDestination int64
}

// Destination returns the chat id for a genre.
func (c Config) Destination(genre string) int64 {
	if id, ok := c.GroupsByGenre[genre]; ok {
		return id
	}
	return c.DefaultDestination
}

// Outcome is the result of applying a moderator action: the index to display
// next and the post at that index, if any.
type Outcome struct {
	// Index is the display index after the action.
	Index int
	// Post is the post at Index, nil when Finished.
	Post *storage.PendingPost
	// Finished means there is nothing left to display. This is the defined
	// end-of-queue condition, not an error.
	Finished bool
	// PublishErr carries a publish failure from an approve action. The post
	// stays approved regardless.
	PublishErr error
}

// Queue applies moderation actions to the persisted pending posts document.
type Queue struct {
	docs *storage.Documents
	gen  PostGenerator
	pub  Publisher
	cfg  Config
}

// New creates a moderation queue over the given document store.
func New(docs *storage.Documents, gen PostGenerator, pub Publisher, cfg Config) *Queue {
	return &Queue{docs: docs, gen: gen, pub: pub, cfg: cfg}
}

// Append adds freshly generated posts to the end of the queue.
func (q *Queue) Append(posts ...storage.PendingPost) error {
	if len(posts) == 0 {
		return nil
	}
	return q.docs.UpdateQueue(func(existing []storage.PendingPost) ([]storage.PendingPost, error) {
		return append(existing, posts...), nil
	})
}

// Get returns the post at index, or a Finished outcome when the index is at
// or beyond the end of the queue.
func (q *Queue) Get(index int) (*Outcome, error) {
	return q.display(index)
}

// FirstPending returns the index of the first post with pending status, or
// a Finished outcome when none remain.
func (q *Queue) FirstPending() (*Outcome, error) {
	posts, err := q.docs.LoadQueue()
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].Status == storage.StatusPending {
			return &Outcome{Index: i, Post: &posts[i]}, nil
		}
	}
	return &Outcome{Index: len(posts), Finished: true}, nil
}

// Apply executes one moderator action against the queue and returns what to
// display next. An index at or beyond the queue length yields a Finished
// outcome for every action.
func (q *Queue) Apply(ctx context.Context, action Action, index int) (*Outcome, error) {
	switch action {
	case ActionFinish:
		return &Outcome{Index: index, Finished: true}, nil
	case ActionNext:
		return q.display(index + 1)
	case ActionApprove:
		return q.approve(ctx, index)
	case ActionRevise:
		return q.revise(ctx, index)
	case ActionDelete:
		return q.delete(index)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// approve makes the post markup-safe, marks it approved, persists, then
// publishes. A publish failure is reported but never rolls back the status.
func (q *Queue) approve(ctx context.Context, index int) (*Outcome, error) {
	post, outcome, err := q.postAt(index)
	if post == nil {
		return outcome, err
	}

	// Generation runs outside the document lock; it can take minutes.
	ensured := q.gen.EnsureValidPost(ctx, post.Title, post.Description, post.GeneratedPost)

	err = q.docs.UpdateQueue(func(posts []storage.PendingPost) ([]storage.PendingPost, error) {
		if index >= len(posts) || posts[index].VideoID != post.VideoID {
			return nil, ErrStalePost
		}
		posts[index].GeneratedPost = ensured
		posts[index].Status = storage.StatusApproved
		return posts, nil
	})
	if err != nil {
		return nil, err
	}

	published := *post
	published.GeneratedPost = ensured

	destination := q.cfg.Destination(post.Genre)
	publishErr := q.pub.Publish(ctx, destination, post.ThumbnailURL, PublishCaption(published))
	if publishErr != nil {
		log.Printf("queue: publish of %q to %d failed: %v", post.Title, destination, publishErr)
	} else {
		log.Printf("queue: published %q to %d", post.Title, destination)
	}

	out, err := q.display(index)
	if err != nil {
		return nil, err
	}
	out.PublishErr = publishErr
	return out, nil
}

// revise regenerates the post text from the stored metadata and keeps the
// post pending.
func (q *Queue) revise(ctx context.Context, index int) (*Outcome, error) {
	post, outcome, err := q.postAt(index)
	if post == nil {
		return outcome, err
	}

	regenerated := q.gen.GenerateValidatedPost(ctx, post.Title, post.Description)

	err = q.docs.UpdateQueue(func(posts []storage.PendingPost) ([]storage.PendingPost, error) {
		if index >= len(posts) || posts[index].VideoID != post.VideoID {
			return nil, ErrStalePost
		}
		posts[index].GeneratedPost = regenerated
		posts[index].Status = storage.StatusPending
		return posts, nil
	})
	if err != nil {
		return nil, err
	}

	return q.display(index)
}

// delete records the post's video id in the deleted set and removes the
// element. Subsequent posts shift left, so the same index now shows the
// next post.
func (q *Queue) delete(index int) (*Outcome, error) {
	post, outcome, err := q.postAt(index)
	if post == nil {
		return outcome, err
	}

	// Record first: a video id in the deleted set is never rediscovered,
	// while a removed-but-unrecorded post would come back next cycle.
	if _, err := q.docs.AddDeleted(post.VideoID); err != nil {
		return nil, err
	}

	err = q.docs.UpdateQueue(func(posts []storage.PendingPost) ([]storage.PendingPost, error) {
		if index >= len(posts) || posts[index].VideoID != post.VideoID {
			return nil, ErrStalePost
		}
		return append(posts[:index], posts[index+1:]...), nil
	})
	if err != nil {
		return nil, err
	}

	return q.display(index)
}

// postAt loads the queue and returns a copy of the post at index. A nil
// post with a non-nil outcome means end of queue.
func (q *Queue) postAt(index int) (*storage.PendingPost, *Outcome, error) {
	posts, err := q.docs.LoadQueue()
	if err != nil {
		return nil, nil, err
	}
	if index < 0 || index >= len(posts) {
		return nil, &Outcome{Index: index, Finished: true}, nil
	}
	post := posts[index]
	return &post, nil, nil
}

// display loads the queue and builds the outcome for the given index.
func (q *Queue) display(index int) (*Outcome, error) {
	posts, err := q.docs.LoadQueue()
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(posts) {
		return &Outcome{Index: index, Finished: true}, nil
	}
	return &Outcome{Index: index, Post: &posts[index]}, nil
}

// PublishCaption renders the caption for publication: the generated text
// plus a genre line and the watch link, all derived from the record itself.
func PublishCaption(p storage.PendingPost) string {
	genre := p.Genre
	if genre == "" {
		genre = "Unknown"
	}
	return p.GeneratedPost +
		"\n\n<b>Genre:</b> " + genre +
		"\n<a href=\"" + p.VideoURL() + "\">Watch video</a>"
}
