package upxfer

import (
	"context"
	"fmt"

	"github.com/derektruong/upxfer/internal/fileutils"
	"github.com/derektruong/upxfer/storage"
	"github.com/docker/go-units"
	"github.com/melbahja/got"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

const listDelimiter = "/"

// Stats summarizes the objects stored under a prefix.
type Stats struct {
	// TotalSize is the sum of the object sizes in bytes
	TotalSize int64 `json:"totalSize"`
	// Count is the number of objects, the folder placeholder excluded
	Count int `json:"count"`
}

// HumanTotal returns the total size in a human-readable format.
func (s Stats) HumanTotal() string {
	return units.HumanSize(float64(s.TotalSize))
}

// List fetches one page of objects under the folder-like prefix and replaces
// the known entries with it. When delimited, only the first-level prefixes
// are returned.
func (e *Engine) List(
	ctx context.Context,
	prefix string,
	delimited bool,
) (entries []storage.RemoteObjectEntry, err error) {
	delimiter := ""
	if delimited {
		delimiter = listDelimiter
	}

	var listed []storage.RemoteObjectEntry
	if listed, err = e.gateway.ListObjects(ctx, fileutils.ListPrefix(prefix), delimiter, e.maxKeysPerList); err != nil {
		err = fmt.Errorf("%w: %q: %w", ErrList, prefix, err)
		return
	}
	entries = lo.Filter(listed, func(entry storage.RemoteObjectEntry, _ int) bool {
		return entry.IsPrefix == delimited
	})

	e.entriesMu.Lock()
	e.entries = slices.Clone(entries)
	e.entriesMu.Unlock()

	e.logger.V(1).Info("listed objects", "prefix", prefix, "delimited", delimited, "entries", len(entries))
	e.notify(Event{Kind: EventListed, Entries: slices.Clone(entries)})
	return
}

// Delete removes the object and its entry.
func (e *Engine) Delete(ctx context.Context, key string) (err error) {
	if err = e.gateway.DeleteObject(ctx, key); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrDelete, key, err)
		return
	}

	entries := e.removeEntry(key)
	e.logger.Info("deleted object", "key", key)
	e.notify(Event{Kind: EventDeleted, Key: key, Entries: entries})
	return
}

// Share returns a presigned download URL of the object.
func (e *Engine) Share(ctx context.Context, key string) (url string, err error) {
	if url, err = e.gateway.PresignDownloadURL(ctx, key, e.shareExpiry); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrShare, key, err)
	}
	return
}

// Stats sums the objects stored under the prefix.
func (e *Engine) Stats(ctx context.Context, prefix string) (stats Stats, err error) {
	var listed []storage.RemoteObjectEntry
	if listed, err = e.gateway.ListObjects(ctx, prefix, "", e.maxKeysPerList); err != nil {
		err = fmt.Errorf("%w: %q: %w", ErrList, prefix, err)
		return
	}

	placeholder := fileutils.ListPrefix(prefix)
	for _, entry := range listed {
		if entry.IsPrefix {
			continue
		}
		stats.TotalSize += entry.Size
		if prefix != "" && entry.Key == placeholder {
			continue
		}
		stats.Count++
	}
	return
}

// Download saves the object to destPath through a presigned URL.
func (e *Engine) Download(ctx context.Context, key, destPath string) (err error) {
	var url string
	if url, err = e.gateway.PresignDownloadURL(ctx, key, e.shareExpiry); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrDownload, key, err)
		return
	}

	downloader := got.New()
	downloader.Client = e.uploader.standardClient()
	if err = downloader.Do(got.NewDownload(ctx, url, destPath)); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrDownload, key, err)
		return
	}
	e.logger.Info("downloaded object", "key", key, "path", destPath)
	return
}

// Entries returns a snapshot of the known objects.
func (e *Engine) Entries() []storage.RemoteObjectEntry {
	e.entriesMu.RLock()
	defer e.entriesMu.RUnlock()
	return slices.Clone(e.entries)
}

// upsertEntry records an uploaded object and returns the new snapshot.
func (e *Engine) upsertEntry(entry storage.RemoteObjectEntry) []storage.RemoteObjectEntry {
	e.entriesMu.Lock()
	defer e.entriesMu.Unlock()
	if i := slices.IndexFunc(e.entries, func(item storage.RemoteObjectEntry) bool {
		return item.Key == entry.Key
	}); i >= 0 {
		e.entries[i].Size = entry.Size
	} else {
		e.entries = append(e.entries, entry)
	}
	return slices.Clone(e.entries)
}

// removeEntry drops the entry of key and returns the new snapshot.
func (e *Engine) removeEntry(key string) []storage.RemoteObjectEntry {
	e.entriesMu.Lock()
	defer e.entriesMu.Unlock()
	e.entries = slices.DeleteFunc(e.entries, func(item storage.RemoteObjectEntry) bool {
		return item.Key == key
	})
	return slices.Clone(e.entries)
}
