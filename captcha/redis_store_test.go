package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStore(rdb, "")
	return store, mr, rdb, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func TestRedisStoreLayout(t *testing.T) {
	store, mr, rdb, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()
	base := time.Unix(1_800_000_000, 0)
	store.now = func() time.Time { return base }

	if err := store.Put(ctx, "abc", Entry{Answer: "XK3P", CaseSensitive: true}, 300*time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	if ttl := mr.TTL("captcha:abc"); ttl != 300*time.Second {
		t.Fatalf("expected native ttl 300s, got %v", ttl)
	}
	raw, err := rdb.Get(ctx, "captcha:abc").Bytes()
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(raw, &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["answer"] != "XK3P" || rec["case_sensitive"] != true || rec["expiry"] != float64(base.Unix()+300) {
		t.Fatalf("unexpected persisted value %s", raw)
	}
}

func TestRedisStoreTakeOnce(t *testing.T) {
	store, mr, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Put(ctx, "id", Entry{Answer: "42"}, time.Minute)
	e, ok, err := store.TakeIfValid(ctx, "id")
	if err != nil || !ok || e.Answer != "42" || e.CaseSensitive {
		t.Fatalf("first take: %+v ok=%v err=%v", e, ok, err)
	}
	if mr.Exists("captcha:id") {
		t.Fatalf("key must be deleted by take")
	}
	if _, ok, err := store.TakeIfValid(ctx, "id"); ok || err != nil {
		t.Fatalf("second take: ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreNativeTTLEvicts(t *testing.T) {
	store, mr, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()

	_ = store.Put(ctx, "id", Entry{Answer: "42"}, time.Minute)
	mr.FastForward(2 * time.Minute)
	if _, ok, err := store.TakeIfValid(ctx, "id"); ok || err != nil {
		t.Fatalf("expected evicted entry, ok=%v err=%v", ok, err)
	}
}

func TestRedisStoreCrossInstance(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	defer mr.Close()
	a := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	settings := enabledSettings(TypeMath, DifficultyEasy)
	gen := NewGenerator(NewRedisStore(a, ""))
	gen.intn = scripted(2, 6, 0)
	ver := NewVerifier(NewRedisStore(b, ""), nil)

	ch, err := gen.Generate(ctx, settings)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !ver.Verify(ctx, ch.ID, "10", settings) {
		t.Fatalf("instance B could not verify a challenge issued by instance A")
	}
	if ver.Verify(ctx, ch.ID, "10", settings) {
		t.Fatalf("replay accepted")
	}
}

func TestRedisStoreConcurrentTake(t *testing.T) {
	store, _, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()
	_ = store.Put(ctx, "race", Entry{Answer: "1"}, time.Minute)

	var hits int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := store.TakeIfValid(ctx, "race"); ok {
				atomic.AddInt32(&hits, 1)
			}
		}()
	}
	wg.Wait()
	if hits != 1 {
		t.Fatalf("expected exactly one take to succeed, got %d", hits)
	}
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, mr, _, done := newRedisStoreTest(t)
	defer done()
	mr.Close()
	ctx := context.Background()

	if err := store.Put(ctx, "id", Entry{Answer: "1"}, time.Minute); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on put, got %v", err)
	}
	if _, ok, err := store.TakeIfValid(ctx, "id"); ok || !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable on take, got ok=%v err=%v", ok, err)
	}

	v := NewVerifier(store, nil)
	if v.Verify(ctx, "id", "1", enabledSettings(TypeMath, DifficultyEasy)) {
		t.Fatalf("verification must fail closed when redis is down")
	}
}

func TestRedisStoreSubSecondExpiry(t *testing.T) {
	store, _, _, done := newRedisStoreTest(t)
	defer done()
	ctx := context.Background()
	base := time.Unix(1_800_000_000, 900_000_000)
	store.now = func() time.Time { return base }
	v := NewVerifier(store, nil)
	v.now = func() time.Time { return base.Add(59*time.Second + 500*time.Millisecond) }
	s := DefaultSettings()
	s.Enabled = true

	if err := store.Put(ctx, "late", Entry{Answer: "42"}, 60*time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	if !v.Verify(ctx, "late", "42", s) {
		t.Fatal("challenge rejected half a second before it expires")
	}

	if err := store.Put(ctx, "gone", Entry{Answer: "42"}, 60*time.Second); err != nil {
		t.Fatalf("put: %v", err)
	}
	v.now = func() time.Time { return base.Add(62 * time.Second) }
	if v.Verify(ctx, "gone", "42", s) {
		t.Fatal("challenge accepted after expiry")
	}
}
