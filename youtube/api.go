package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"releasetracker/retry"
)

// channelIDRegex matches YouTube channel IDs (UC followed by 22 base64 chars).
var channelIDRegex = regexp.MustCompile(`^UC[a-zA-Z0-9_-]{22}$`)

// APILister implements VideoLister using YouTube Data API v3.
// It walks the channel's uploads playlist page by page and stops early once
// videos fall behind the StopBefore bound.
type APILister struct {
	service     *youtube.Service
	RetryConfig *retry.Config
}

// NewAPILister creates a new YouTube Data API v3-based video lister.
func NewAPILister(ctx context.Context, apiKey string) (*APILister, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}

	service, err := youtube.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	cfg := retry.DefaultConfig()
	return &APILister{
		service:     service,
		RetryConfig: &cfg,
	}, nil
}

// ListRecent fetches recent uploads for the channel, newest first.
func (a *APILister) ListRecent(ctx context.Context, channelID string, opts *ListOptions) ([]VideoInfo, error) {
	if !channelIDRegex.MatchString(channelID) {
		return nil, &ListerError{Source: "api", Channel: channelID, Err: ErrInvalidChannel}
	}

	uploadsPlaylistID, channelName, err := a.getUploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channelID, Err: err}
	}

	videos, err := a.listPlaylistVideos(ctx, uploadsPlaylistID, channelID, channelName, opts)
	if err != nil {
		return nil, &ListerError{Source: "api", Channel: channelID, Err: err}
	}

	return videos, nil
}

// getUploadsPlaylistID gets the uploads playlist ID and display name for a channel.
func (a *APILister) getUploadsPlaylistID(ctx context.Context, channelID string) (string, string, error) {
	var playlistID string
	var channelName string

	cfg := a.retryConfig()
	err := retry.Do(ctx, cfg, apiErrorClassifier, func(ctx context.Context) error {
		call := a.service.Channels.List([]string{"contentDetails", "snippet"}).
			Id(channelID).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			if ctx.Err() != nil {
				return ErrNetworkTimeout
			}
			return err
		}

		if len(resp.Items) == 0 {
			return ErrChannelNotFound
		}

		channel := resp.Items[0]
		playlistID = channel.ContentDetails.RelatedPlaylists.Uploads
		if channel.Snippet != nil {
			channelName = channel.Snippet.Title
		}
		return nil
	})

	if err != nil {
		return "", "", err
	}

	return playlistID, channelName, nil
}

// listPlaylistVideos fetches videos from the uploads playlist using
// pagination, stopping early once StopBefore is crossed.
func (a *APILister) listPlaylistVideos(ctx context.Context, playlistID, channelID, channelName string, opts *ListOptions) ([]VideoInfo, error) {
	var allVideos []VideoInfo

	cfg := a.retryConfig()
	pageToken := ""
	done := false

	for !done {
		if opts != nil && opts.MaxResults > 0 && len(allVideos) >= opts.MaxResults {
			allVideos = allVideos[:opts.MaxResults]
			break
		}

		err := retry.Do(ctx, cfg, apiErrorClassifier, func(ctx context.Context) error {
			call := a.service.PlaylistItems.List([]string{"snippet", "contentDetails"}).
				PlaylistId(playlistID).
				MaxResults(50).
				PageToken(pageToken).
				Context(ctx)

			resp, err := call.Do()
			if err != nil {
				if ctx.Err() != nil {
					return ErrNetworkTimeout
				}
				return err
			}

			for _, item := range resp.Items {
				video := VideoInfo{
					ID:          item.ContentDetails.VideoId,
					ChannelID:   channelID,
					ChannelName: channelName,
				}

				if item.Snippet != nil {
					video.Title = item.Snippet.Title
					video.Description = item.Snippet.Description
					if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.High != nil {
						video.Thumbnail = item.Snippet.Thumbnails.High.Url
					} else if item.Snippet.Thumbnails != nil && item.Snippet.Thumbnails.Default != nil {
						video.Thumbnail = item.Snippet.Thumbnails.Default.Url
					}
					video.Published = parsePublished(item.Snippet.PublishedAt, opts)
				}

				// Uploads playlists are ordered newest first, so the first
				// video behind the bound ends the walk.
				if opts != nil && !opts.StopBefore.IsZero() && video.Published.Before(opts.StopBefore) {
					done = true
					break
				}

				allVideos = append(allVideos, video)
			}

			if !done {
				pageToken = resp.NextPageToken
				if pageToken == "" {
					done = true
				}
			}
			return nil
		})

		if err != nil {
			return nil, err
		}
	}

	return allVideos, nil
}

// parsePublished parses an RFC3339 published date. A malformed date maps to
// a time safely behind the StopBefore bound so the walk terminates instead
// of paging through the whole history.
func parsePublished(raw string, opts *ListOptions) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if opts != nil && !opts.StopBefore.IsZero() {
		return opts.StopBefore.Add(-120 * time.Hour)
	}
	return time.Time{}
}

func (a *APILister) retryConfig() retry.Config {
	if a.RetryConfig != nil {
		return *a.RetryConfig
	}
	return retry.DefaultConfig()
}

// apiErrorClassifier determines if a Data API error is retryable.
func apiErrorClassifier(err error) bool {
	if err == nil {
		return false
	}

	switch err {
	case ErrChannelNotFound, ErrInvalidChannel:
		return false
	}

	if strings.Contains(err.Error(), "quotaExceeded") {
		return true
	}
	if strings.Contains(err.Error(), "rateLimitExceeded") {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Default to retryable for unknown errors
	return true
}
