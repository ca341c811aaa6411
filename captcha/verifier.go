package captcha

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Verifier checks answers against challenges held in a Store.
type Verifier struct {
	store Store
	now   func() time.Time
	log   *zap.Logger
}

func NewVerifier(store Store, log *zap.Logger) *Verifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Verifier{store: store, now: time.Now, log: log}
}

// Verify reports whether answer solves the challenge id. The challenge is
// consumed by the first attempt whatever its outcome. Unknown, expired and
// wrong answers are indistinguishable to the caller, and store failures count
// as invalid. When the feature is disabled every attempt passes.
func (v *Verifier) Verify(ctx context.Context, id, answer string, settings Settings) bool {
	if !settings.Enabled {
		return true
	}
	if id == "" {
		return false
	}
	entry, ok, err := v.store.TakeIfValid(ctx, id)
	if err != nil {
		v.log.Warn("captcha store take failed, rejecting", zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if entry.Expired(v.now()) {
		return false
	}
	return Match(entry, answer)
}

// Match compares a candidate answer with a stored entry under its case policy.
func Match(entry Entry, answer string) bool {
	if entry.CaseSensitive {
		return answer == entry.Answer
	}
	return strings.ToUpper(strings.TrimSpace(answer)) == strings.ToUpper(entry.Answer)
}
