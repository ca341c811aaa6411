package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultKeyPrefix = "captcha:"
	redisOpTimeout   = 2 * time.Second
)

// getDelScript is used when GETDEL is unavailable (Redis < 6.2).
const getDelScript = `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`

// RedisStore keeps challenges in Redis so any instance can verify a challenge
// generated by another one.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// redisRecord is the persisted layout: {answer, expiry, case_sensitive}.
type redisRecord struct {
	Answer        string `json:"answer"`
	Expiry        int64  `json:"expiry"`
	CaseSensitive bool   `json:"case_sensitive"`
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func (s *RedisStore) Put(ctx context.Context, id string, entry Entry, ttl time.Duration) error {
	b, err := json.Marshal(redisRecord{
		Answer:        entry.Answer,
		Expiry:        ceilUnix(s.now().Add(ttl)),
		CaseSensitive: entry.CaseSensitive,
	})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	if err := s.rdb.Set(ctx, s.key(id), b, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) TakeIfValid(ctx context.Context, id string) (Entry, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, redisOpTimeout)
	defer cancel()
	key := s.key(id)

	raw, err := s.rdb.GetDel(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		// GETDEL needs Redis >= 6.2; the script is atomic on older servers too.
		res, evalErr := s.rdb.Eval(ctx, getDelScript, []string{key}).Result()
		if errors.Is(evalErr, redis.Nil) {
			return Entry{}, false, nil
		}
		if evalErr != nil {
			return Entry{}, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, evalErr)
		}
		str, ok := res.(string)
		if !ok {
			return Entry{}, false, nil
		}
		raw = []byte(str)
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		// The key is already gone; a corrupt value can never validate.
		return Entry{}, false, nil
	}
	return Entry{
		Answer:        rec.Answer,
		CaseSensitive: rec.CaseSensitive,
		ExpiresAt:     time.Unix(rec.Expiry, 0),
	}, true, nil
}

// ceilUnix rounds up to whole seconds so the stored expiry never precedes
// the real one.
func ceilUnix(t time.Time) int64 {
	sec := t.Unix()
	if t.Nanosecond() > 0 {
		sec++
	}
	return sec
}
