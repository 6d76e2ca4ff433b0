// Package releasetracker tracks release videos on YouTube channels,
// generates announcement posts for them and runs a Telegram moderation
// queue in front of publication.
//
// # Overview
//
// The pipeline has three stages, each its own sub-package:
//
//   - youtube: incremental discovery of new videos inside a configured
//     UTC day window, with per-channel watch markers and a persistent
//     deleted-video set
//   - llm: post text and genre generation through an Ollama-compatible
//     endpoint, with chunked fan-out, bounded retries and a guaranteed
//     markup-safe result
//   - queue: the pending -> approved moderation state machine over the
//     persisted post queue
//
// The telegram package adapts the queue to the Bot API (moderation cards,
// inline actions, publishing), and tracker runs the periodic
// discovery+generation cycle.
//
// # Configuration
//
// Settings load from three sources, highest priority first:
//
//  1. RELTRACK_* environment variables
//  2. releasetracker.json (cwd or ~/.config/releasetracker/)
//  3. Defaults
//
// Telegram token, moderator chat id and YouTube API key are required and
// validated at startup.
//
// # Error Handling
//
// Sub-packages expose sentinel errors plus wrapper types with context:
//
//	if errors.Is(err, releasetracker.ErrChannelNotFound) {
//		fmt.Println("channel gone")
//	}
//
//	var docErr *releasetracker.DocumentError
//	if errors.As(err, &docErr) {
//		fmt.Printf("document %s: %v\n", docErr.Doc, docErr.Err)
//	}
//
// External-call failures degrade to sentinel output instead of
// propagating: a failed generation yields placeholder post text, an
// unknown genre yields "Unknown", and a failed publish leaves the post
// approved with the error reported to the moderator.
package releasetracker
