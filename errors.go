package releasetracker

import (
	"releasetracker/llm"
	"releasetracker/retry"
	"releasetracker/storage"
	"releasetracker/youtube"
)

// Error handling types exported for library users.
//
// Using errors.Is() for sentinel errors:
//
//	if errors.Is(err, releasetracker.ErrChannelNotFound) {
//		fmt.Println("Channel not found")
//	}
//
// Using errors.As() for wrapped errors:
//
//	var listerErr *releasetracker.ListerError
//	if errors.As(err, &listerErr) {
//		fmt.Printf("Listing failed for %s: %v\n", listerErr.Channel, listerErr.Err)
//	}

// Type aliases for convenient error handling.
type (
	// ListerError wraps errors during video listing.
	ListerError = youtube.ListerError
	// DocumentError wraps errors during document storage operations.
	DocumentError = storage.DocumentError
	// GenerateError wraps errors from the text generation endpoint.
	GenerateError = llm.GenerateError
)

// Sentinel errors exported from sub-packages.
var (
	// ErrChannelNotFound indicates the YouTube channel does not exist.
	ErrChannelNotFound = youtube.ErrChannelNotFound
	// ErrRateLimited indicates the operation was rate limited.
	ErrRateLimited = youtube.ErrRateLimited
	// ErrNetworkTimeout indicates a network timeout occurred.
	ErrNetworkTimeout = youtube.ErrNetworkTimeout
	// ErrInvalidChannel indicates a malformed channel id.
	ErrInvalidChannel = youtube.ErrInvalidChannel

	// ErrNotFound indicates a document was not found in storage.
	ErrNotFound = storage.ErrNotFound
	// ErrCorrupt indicates document corruption was detected.
	ErrCorrupt = storage.ErrCorrupt
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = storage.ErrLockTimeout

	// ErrExhausted indicates a bounded retry ran out of attempts.
	ErrExhausted = retry.ErrExhausted
)

// IsRetryable determines if an error should be retried.
func IsRetryable(err error) bool {
	return retry.IsRetryable(err)
}
