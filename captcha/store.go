package captcha

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreUnavailable wraps backend failures of a Store.
	ErrStoreUnavailable = errors.New("captcha store unavailable")
	// ErrInvalidID is returned when an id could not be minted.
	ErrInvalidID = errors.New("captcha id generation failed")
	// ErrRender is returned when an image challenge could not be rendered.
	ErrRender = errors.New("captcha render failed")
)

// Entry is what a Store keeps for a pending challenge.
type Entry struct {
	Answer        string
	CaseSensitive bool
	ExpiresAt     time.Time
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Store holds pending challenges keyed by id.
//
// Put overwrites any entry under id and stamps it with now+ttl.
// TakeIfValid removes and returns the entry whether or not it has expired;
// concurrent callers racing on one id see it at most once.
type Store interface {
	Put(ctx context.Context, id string, entry Entry, ttl time.Duration) error
	TakeIfValid(ctx context.Context, id string) (Entry, bool, error)
}
