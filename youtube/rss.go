package youtube

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	rthttp "releasetracker/http"
)

const feedURLTemplate = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

// FeedLister implements VideoLister using YouTube's public Atom feeds.
// Feeds only expose the 15 most recent videos, which is enough for the
// incremental day-window walk, so this serves as the fallback when the
// Data API is unavailable.
type FeedLister struct {
	client *rthttp.Client
}

// NewFeedLister creates a feed-based video lister on top of the shared
// resilient HTTP client.
func NewFeedLister(client *rthttp.Client) *FeedLister {
	return &FeedLister{client: client}
}

// ListRecent fetches the channel's Atom feed and returns its entries,
// newest first.
func (f *FeedLister) ListRecent(ctx context.Context, channelID string, opts *ListOptions) ([]VideoInfo, error) {
	if !channelIDRegex.MatchString(channelID) {
		return nil, &ListerError{Source: "feed", Channel: channelID, Err: ErrInvalidChannel}
	}

	resp, err := f.client.Get(ctx, fmt.Sprintf(feedURLTemplate, channelID))
	if err != nil {
		return nil, &ListerError{Source: "feed", Channel: channelID, Err: mapFeedError(err)}
	}

	feed, err := parseAtomFeed(resp.Body)
	if err != nil {
		return nil, &ListerError{Source: "feed", Channel: channelID, Err: err}
	}

	videos := feedToVideoInfo(feed, channelID)
	sort.Slice(videos, func(i, j int) bool {
		return videos[i].Published.After(videos[j].Published)
	})

	return filterVideos(videos, opts), nil
}

// mapFeedError translates transport errors into lister sentinels.
func mapFeedError(err error) error {
	var httpErr *rthttp.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
		return ErrChannelNotFound
	}

	var rlErr *rthttp.RateLimitError
	if errors.As(err, &rlErr) {
		return ErrRateLimited
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNetworkTimeout
	}

	return err
}

// atomFeed represents a YouTube Atom feed structure.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Title   string      `xml:"title"`
	Author  atomAuthor  `xml:"author"`
	Entries []atomEntry `xml:"entry"`
}

type atomAuthor struct {
	Name string `xml:"name"`
	URI  string `xml:"uri"`
}

type atomEntry struct {
	ID          string        `xml:"id"`
	VideoID     string        `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	ChannelID   string        `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	Title       string        `xml:"title"`
	Published   time.Time     `xml:"published"`
	Updated     time.Time     `xml:"updated"`
	Description string        `xml:"group>description"`
	Thumbnail   atomThumbnail `xml:"group>thumbnail"`
}

type atomThumbnail struct {
	URL    string `xml:"url,attr"`
	Width  int    `xml:"width,attr"`
	Height int    `xml:"height,attr"`
}

// parseAtomFeed parses YouTube's Atom XML feed.
func parseAtomFeed(data []byte) (*atomFeed, error) {
	var feed atomFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parse atom feed: %w", err)
	}
	return &feed, nil
}

// feedToVideoInfo converts an Atom feed to a VideoInfo slice.
func feedToVideoInfo(feed *atomFeed, channelID string) []VideoInfo {
	videos := make([]VideoInfo, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		videos = append(videos, VideoInfo{
			ID:          entry.VideoID,
			Title:       entry.Title,
			ChannelID:   channelID,
			ChannelName: feed.Author.Name,
			Published:   entry.Published,
			Description: entry.Description,
			Thumbnail:   entry.Thumbnail.URL,
		})
	}
	return videos
}

// filterVideos applies ListOptions bounds to a newest-first video list.
func filterVideos(videos []VideoInfo, opts *ListOptions) []VideoInfo {
	if opts == nil {
		return videos
	}

	if !opts.StopBefore.IsZero() {
		filtered := make([]VideoInfo, 0, len(videos))
		for _, v := range videos {
			if v.Published.Before(opts.StopBefore) {
				break
			}
			filtered = append(filtered, v)
		}
		videos = filtered
	}

	if opts.MaxResults > 0 && len(videos) > opts.MaxResults {
		videos = videos[:opts.MaxResults]
	}

	return videos
}
