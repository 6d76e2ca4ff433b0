// Package youtube provides release video listing and incremental discovery.
package youtube

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for video listing operations.
var (
	ErrChannelNotFound = errors.New("youtube: channel not found")
	ErrRateLimited     = errors.New("youtube: rate limited")
	ErrNetworkTimeout  = errors.New("youtube: network timeout")
	ErrInvalidChannel  = errors.New("youtube: invalid channel id")
)

// VideoLister fetches recent uploads for a channel, newest first.
// Implementations exist for the Data API and for the public Atom feed.
type VideoLister interface {
	// ListRecent fetches recent videos from the channel, ordered newest
	// first. The channelID must be a raw channel ID (UC...).
	ListRecent(ctx context.Context, channelID string, opts *ListOptions) ([]VideoInfo, error)
}

// ListOptions configures video listing behavior.
type ListOptions struct {
	// StopBefore stops pagination once a video published before this time
	// is seen. Zero time means fetch everything available.
	StopBefore time.Time

	// MaxResults limits the number of videos returned. 0 means no limit.
	MaxResults int
}

// VideoInfo contains metadata about a YouTube video.
type VideoInfo struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`

	// Title is the video title.
	Title string `json:"title"`

	// ChannelID is the YouTube channel ID (e.g., "UCuAXFkgsw1L7xaCfnd5JJOw").
	ChannelID string `json:"channel_id"`

	// ChannelName is the display name of the channel.
	ChannelName string `json:"channel_name"`

	// Published is when the video was published.
	Published time.Time `json:"published"`

	// Description is the video description. May be truncated by some sources.
	Description string `json:"description,omitempty"`

	// Thumbnail is the URL to the video thumbnail image.
	Thumbnail string `json:"thumbnail,omitempty"`
}

// VideoURL returns the full YouTube URL for this video.
func (v VideoInfo) VideoURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// ChannelURL returns the full YouTube URL for this video's channel.
func (v VideoInfo) ChannelURL() string {
	return "https://www.youtube.com/channel/" + v.ChannelID
}

// ListerError wraps listing errors with context about what failed.
// Use errors.As() to extract this error type and get operation details:
//
//	var listerErr *youtube.ListerError
//	if errors.As(err, &listerErr) {
//		fmt.Printf("Failed to list from %s: %v\n", listerErr.Source, listerErr.Err)
//	}
type ListerError struct {
	// Source indicates which lister produced the error ("api", "feed").
	Source string
	// Channel is the channel ID that was being listed.
	Channel string
	// Err is the underlying error that occurred.
	Err error
}

// Error returns a string representation of the listing error.
func (e *ListerError) Error() string {
	return "youtube: " + e.Source + " listing " + e.Channel + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *ListerError) Unwrap() error { return e.Err }
