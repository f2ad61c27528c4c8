package user

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"

	applog "github.com/janisto/echo-identity/internal/platform/logging"
	"github.com/janisto/echo-identity/internal/platform/metrics"
)

const cacheNamespace = "user"

// DefaultCacheTTL bounds how long a cached user may be served without a store read.
const DefaultCacheTTL = 5 * time.Minute

// cacheEncMode writes timestamps as RFC 3339 strings with full precision; the
// library default truncates them to whole Unix seconds.
var cacheEncMode = mustEncMode(cbor.EncOptions{Time: cbor.TimeRFC3339Nano})

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	em, err := opts.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// CachedStore is a Redis read-through, write-through cache in front of another Store.
//
// Redis failures are logged and the wrapped store is used instead; they never
// fail an operation. Writes always go to the wrapped store first.
type CachedStore struct {
	next Store
	rdb  redis.UniversalClient
	ttl  time.Duration
}

// NewCachedStore wraps next with a Redis cache. A non-positive ttl uses DefaultCacheTTL.
func NewCachedStore(next Store, rdb redis.UniversalClient, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{next: next, rdb: rdb, ttl: ttl}
}

func (s *CachedStore) Get(ctx context.Context, id string) (*User, error) {
	if u, ok := s.lookup(ctx, id); ok {
		return u, nil
	}

	u, err := s.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, u)
	return u, nil
}

func (s *CachedStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.next.ExistsByEmail(ctx, email)
}

func (s *CachedStore) Upsert(ctx context.Context, u *User) (*User, error) {
	saved, err := s.next.Upsert(ctx, u)
	if err != nil {
		// The write may or may not have landed; drop the entry rather than serve a stale one.
		s.forget(ctx, u.ID)
		return nil, err
	}
	s.remember(ctx, saved)
	return saved, nil
}

func (s *CachedStore) lookup(ctx context.Context, id string) (*User, bool) {
	b, err := s.rdb.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.ObserveCacheLookup("miss")
		} else {
			metrics.ObserveCacheLookup("error")
			applog.LogWarn(ctx, "user cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}

	doc, err := decodeCached(b)
	if err != nil {
		metrics.ObserveCacheLookup("error")
		applog.LogWarn(ctx, "user cache entry undecodable", slog.String("error", err.Error()))
		s.forget(ctx, id)
		return nil, false
	}
	metrics.ObserveCacheLookup("hit")
	return doc.toUser(), true
}

func (s *CachedStore) remember(ctx context.Context, u *User) {
	b, err := encodeCached(u)
	if err != nil {
		applog.LogWarn(ctx, "user cache encode failed", slog.String("error", err.Error()))
		return
	}
	if err := s.rdb.Set(ctx, cacheKey(u.ID), b, s.ttl).Err(); err != nil {
		applog.LogWarn(ctx, "user cache write failed", slog.String("error", err.Error()))
	}
}

func (s *CachedStore) forget(ctx context.Context, id string) {
	if err := s.rdb.Del(ctx, cacheKey(id)).Err(); err != nil {
		applog.LogWarn(ctx, "user cache delete failed", slog.String("error", err.Error()))
	}
}

func encodeCached(u *User) ([]byte, error) {
	return cacheEncMode.Marshal(toDocument(u))
}

func decodeCached(b []byte) (userDocument, error) {
	var doc userDocument
	err := cbor.Unmarshal(b, &doc)
	return doc, err
}

func cacheKey(id string) string {
	return cacheNamespace + ":" + id
}

var _ Store = (*CachedStore)(nil)
