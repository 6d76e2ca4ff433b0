// Package storage persists the tracker's state as a small set of
// whole-file JSON documents. There are no partial updates: every mutation
// re-serializes the full document through an atomic temp-file replace, and
// read-modify-write sequences hold an advisory file lock so logical
// operations stay serialized across the periodic checker and the
// moderation handler.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Document file names inside the data directory.
const (
	ChannelsFile      = "channels.json"
	WatchStateFile    = "last_video.json"
	DeletedVideosFile = "deleted_videos.json"
	PendingPostsFile  = "pending_posts.json"
)

const lockTimeout = 5 * time.Second

// Sentinel errors for common document conditions.
var (
	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrCorrupt indicates a document could not be decoded.
	ErrCorrupt = errors.New("storage: document corrupt")
	// ErrLockTimeout indicates a timeout acquiring a file lock.
	ErrLockTimeout = errors.New("storage: lock acquisition timeout")
)

// DocumentError wraps document errors with operation and document context.
// Use errors.As() to extract it:
//
//	var docErr *storage.DocumentError
//	if errors.As(err, &docErr) {
//		fmt.Printf("failed to %s %s: %v\n", docErr.Op, docErr.Doc, docErr.Err)
//	}
type DocumentError struct {
	// Op is the operation that failed ("load", "store", "update", "lock").
	Op string
	// Doc is the document file name.
	Doc string
	// Err is the underlying error.
	Err error
}

// Error returns a string representation of the document error.
func (e *DocumentError) Error() string {
	return fmt.Sprintf("storage: %s %s: %v", e.Op, e.Doc, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is() and errors.As().
func (e *DocumentError) Unwrap() error { return e.Err }

// Documents provides load/replace access to the named documents under a
// single data directory. The zero value is not usable; use NewDocuments.
type Documents struct {
	dir string
}

// NewDocuments creates a document store rooted at dir, creating the
// directory if needed.
func NewDocuments(dir string) (*Documents, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &DocumentError{Op: "create", Doc: dir, Err: err}
	}
	return &Documents{dir: dir}, nil
}

// Dir returns the data directory path.
func (d *Documents) Dir() string { return d.dir }

func (d *Documents) path(name string) string {
	return filepath.Join(d.dir, name)
}

// loadJSON reads and decodes a document. Missing files return ErrNotFound,
// undecodable files return ErrCorrupt; both are wrapped in DocumentError.
func (d *Documents) loadJSON(name string, v any) error {
	data, err := os.ReadFile(d.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &DocumentError{Op: "load", Doc: name, Err: ErrNotFound}
		}
		return &DocumentError{Op: "load", Doc: name, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &DocumentError{Op: "load", Doc: name, Err: ErrCorrupt}
	}
	return nil
}

// storeJSON atomically replaces a document with the serialized value.
func (d *Documents) storeJSON(name string, v any) error {
	writer, err := NewAtomicWriter(d.path(name))
	if err != nil {
		return &DocumentError{Op: "store", Doc: name, Err: err}
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		writer.Abort()
		return &DocumentError{Op: "store", Doc: name, Err: err}
	}
	if err := writer.Commit(); err != nil {
		return &DocumentError{Op: "store", Doc: name, Err: err}
	}
	return nil
}

// withLock runs fn while holding the advisory lock for a document.
func (d *Documents) withLock(name string, fn func() error) error {
	lock := NewFileLock(d.path(name))
	if err := lock.Lock(lockTimeout); err != nil {
		return &DocumentError{Op: "lock", Doc: name, Err: err}
	}
	defer lock.Unlock()
	return fn()
}

// LoadChannels reads the channel registry. A missing or unreadable registry
// is an error: the watch list is required input, not recoverable state.
func (d *Documents) LoadChannels() ([]ChannelDescriptor, error) {
	var channels []ChannelDescriptor
	if err := d.loadJSON(ChannelsFile, &channels); err != nil {
		return nil, err
	}
	return channels, nil
}

// LoadWatchState reads the per-channel last-seen video markers.
// A missing or corrupt document resets to empty: the worst outcome is
// reprocessing, never a crash.
func (d *Documents) LoadWatchState() (map[string]string, error) {
	state := make(map[string]string)
	err := d.loadJSON(WatchStateFile, &state)
	switch {
	case err == nil:
		return state, nil
	case errors.Is(err, ErrNotFound):
		return make(map[string]string), nil
	case errors.Is(err, ErrCorrupt):
		log.Printf("storage: %s corrupt, resetting watch state", WatchStateFile)
		return make(map[string]string), nil
	default:
		return nil, err
	}
}

// StoreWatchState replaces the watch-state document.
func (d *Documents) StoreWatchState(state map[string]string) error {
	return d.withLock(WatchStateFile, func() error {
		return d.storeJSON(WatchStateFile, state)
	})
}

// LoadDeleted reads the deleted-videos document. If the document is absent
// or malformed it is recreated as an empty set on disk.
func (d *Documents) LoadDeleted() (*DeletedSet, error) {
	var doc deletedDoc
	err := d.loadJSON(DeletedVideosFile, &doc)
	switch {
	case err == nil:
		return NewDeletedSet(doc.Deleted), nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrCorrupt):
		if errors.Is(err, ErrCorrupt) {
			log.Printf("storage: %s corrupt, recreating empty deleted set", DeletedVideosFile)
		}
		empty := NewDeletedSet(nil)
		if err := d.storeJSON(DeletedVideosFile, deletedDoc{Deleted: []string{}}); err != nil {
			return nil, err
		}
		return empty, nil
	default:
		return nil, err
	}
}

// AddDeleted records a video ID into the deleted set with a full
// read-modify-write round trip. Returns whether the ID was newly added;
// re-adding an existing ID rewrites nothing.
func (d *Documents) AddDeleted(videoID string) (bool, error) {
	added := false
	err := d.withLock(DeletedVideosFile, func() error {
		set, err := d.LoadDeleted()
		if err != nil {
			return err
		}
		if !set.Add(videoID) {
			return nil
		}
		added = true
		return d.storeJSON(DeletedVideosFile, deletedDoc{Deleted: set.ids})
	})
	return added, err
}

// LoadQueue reads the moderation queue document. Absent or malformed
// documents are treated as an empty queue.
func (d *Documents) LoadQueue() ([]PendingPost, error) {
	var posts []PendingPost
	err := d.loadJSON(PendingPostsFile, &posts)
	switch {
	case err == nil:
		return posts, nil
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case errors.Is(err, ErrCorrupt):
		log.Printf("storage: %s corrupt, treating queue as empty", PendingPostsFile)
		return nil, nil
	default:
		return nil, err
	}
}

// UpdateQueue applies one mutation to the full queue document under the
// document lock: load, mutate, store. This is the only way the queue is
// written, so logical queue operations serialize on the lock even though
// the file itself offers no transactions.
func (d *Documents) UpdateQueue(fn func(posts []PendingPost) ([]PendingPost, error)) error {
	return d.withLock(PendingPostsFile, func() error {
		posts, err := d.LoadQueue()
		if err != nil {
			return err
		}
		updated, err := fn(posts)
		if err != nil {
			return err
		}
		if updated == nil {
			updated = []PendingPost{}
		}
		return d.storeJSON(PendingPostsFile, updated)
	})
}
