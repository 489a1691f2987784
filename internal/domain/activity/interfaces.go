package activity

import "context"

// Repository provides persistence operations for activity events.
type Repository interface {
	// AppendIfAbsent stores ev unless an event with its ID exists.
	AppendIfAbsent(ctx context.Context, ev Event) (bool, error)
	// Upsert stores ev, replacing any event with its ID. It reports whether
	// the event was new.
	Upsert(ctx context.Context, ev Event) (bool, error)
	List(ctx context.Context, opts ListOptions) ([]Event, error)
}
