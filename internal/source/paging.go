package source

import "context"

// Cursor is an opaque pagination position. The zero value requests the first
// page.
type Cursor string

// PageFetcher fetches one page at cursor and returns the cursor of the next
// page, or done when there is none.
type PageFetcher[T any] func(ctx context.Context, cursor Cursor) (items []T, next Cursor, done bool, err error)

// Drain fetches pages from the first until the fetcher reports done or
// maxPages pages were read. maxPages <= 0 means no limit. Any page error fails
// the whole drain; no partial result is returned.
func Drain[T any](ctx context.Context, fetch PageFetcher[T], maxPages int) ([]T, error) {
	var all []T
	var cursor Cursor
	for pages := 0; maxPages <= 0 || pages < maxPages; pages++ {
		items, next, done, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if done || next == "" {
			break
		}
		cursor = next
	}
	return all, nil
}
