package storage

import "time"

// ChannelDescriptor identifies a watched YouTube channel.
// The channel registry is maintained by hand; the tracker only reads it.
type ChannelDescriptor struct {
	// ID is the YouTube channel ID (e.g., "UCxxxxxxxxxxxxxxxxxxxxxx").
	ID string `json:"id"`
	// Name is the display name used in generated posts.
	Name string `json:"name"`
}

// PostStatus is the moderation state of a pending post.
type PostStatus string

const (
	// StatusPending means the post is awaiting a moderator decision.
	StatusPending PostStatus = "pending"
	// StatusApproved means the post was approved and publication was attempted.
	StatusApproved PostStatus = "approved"
)

// PendingPost is one entry of the moderation queue document.
// It is created after successful generation, mutated in place by moderator
// actions, and removed on deletion.
type PendingPost struct {
	// VideoID is the YouTube video ID this post was generated for.
	VideoID string `json:"videoId"`
	// ChannelName is the display name of the source channel.
	ChannelName string `json:"channel_name"`
	// Title is the video title as fetched at discovery time.
	Title string `json:"title"`
	// Description is the video description used for regeneration.
	Description string `json:"description"`
	// ThumbnailURL is the video thumbnail attached to the published post.
	ThumbnailURL string `json:"thumbnail_url"`
	// GeneratedPost is the markup-safe post body.
	GeneratedPost string `json:"generated_post"`
	// Genre is the label used to route the post to a destination channel.
	Genre string `json:"genre"`
	// Status is pending or approved.
	Status PostStatus `json:"status"`
	// CreatedAt is when the post was appended to the queue (UTC).
	CreatedAt time.Time `json:"created_at"`
}

// VideoURL returns the short watch URL for the post's video.
func (p PendingPost) VideoURL() string {
	return "https://youtu.be/" + p.VideoID
}

// DeletedSet is the set of video IDs permanently excluded from discovery.
// Membership checks are O(1); IDs are never removed once added.
type DeletedSet struct {
	ids   []string
	index map[string]struct{}
}

// NewDeletedSet creates a DeletedSet from a list of video IDs.
func NewDeletedSet(ids []string) *DeletedSet {
	s := &DeletedSet{index: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

// Contains reports whether the video ID is excluded.
func (s *DeletedSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id]
	return ok
}

// Add inserts a video ID and reports whether it was newly added.
// Adding an existing ID is a no-op.
func (s *DeletedSet) Add(id string) bool {
	return s.add(id)
}

func (s *DeletedSet) add(id string) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Len returns the number of excluded video IDs.
func (s *DeletedSet) Len() int { return len(s.ids) }

// deletedDoc is the persisted shape of the deleted-videos document.
type deletedDoc struct {
	Deleted []string `json:"deleted"`
}
