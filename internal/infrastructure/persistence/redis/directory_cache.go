package redis

import (
	"context"
	"errors"
	"time"

	"github.com/classroll/classroll/internal/domain/classroom"
	"github.com/classroll/classroll/internal/domain/school"
	"github.com/classroll/classroll/internal/domain/shared"
	"github.com/classroll/classroll/internal/domain/student"
	"github.com/classroll/classroll/pkg/circuitbreaker"
)

// DirectoryCache implements school.DirectoryCache on top of Cache.
type DirectoryCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

var _ school.DirectoryCache = (*DirectoryCache)(nil)

// NewDirectoryCache creates a DirectoryCache. A non-positive ttl means
// TTLDirectory.
func NewDirectoryCache(cache *Cache, ttl time.Duration) *DirectoryCache {
	if ttl <= 0 {
		ttl = TTLDirectory
	}
	return &DirectoryCache{cache: cache, ttl: ttl}
}

// WithBreaker routes reads and writes through cb. While the circuit is open
// they fail fast with circuitbreaker.ErrCircuitOpen, which callers treat as
// a miss. Invalidations always reach Redis.
func (d *DirectoryCache) WithBreaker(cb *circuitbreaker.CircuitBreaker) *DirectoryCache {
	d.breaker = cb
	return d
}

// IsMiss reports whether err means "not cached" rather than "Redis is broken".
// A corrupt entry is a miss too: the next Set overwrites it.
func IsMiss(err error) bool {
	return errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrCacheSerialization)
}

func (d *DirectoryCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if d.breaker == nil {
		return fn(ctx)
	}
	return d.breaker.Execute(ctx, fn)
}

// GetClassrooms returns the cached classroom directory and its generation.
func (d *DirectoryCache) GetClassrooms(ctx context.Context) ([]classroom.Summary, int64, error) {
	var (
		list []classroom.Summary
		gen  int64
	)
	err := d.guard(ctx, func(ctx context.Context) error {
		var err error
		gen, err = d.cache.GetWithGeneration(ctx, KeyClassrooms, GenerationKey(KeyClassrooms), &list)
		return err
	})
	if err != nil {
		return nil, gen, err
	}
	return list, gen, nil
}

// SetClassrooms caches the classroom directory unless it was invalidated
// after gen was read.
func (d *DirectoryCache) SetClassrooms(ctx context.Context, gen int64, list []classroom.Summary) error {
	if list == nil {
		list = []classroom.Summary{}
	}
	return d.guard(ctx, func(ctx context.Context) error {
		_, err := d.cache.SetIfGeneration(ctx, KeyClassrooms, GenerationKey(KeyClassrooms), gen, list, d.ttl)
		return err
	})
}

// GetRoster returns a cached classroom roster and its generation.
func (d *DirectoryCache) GetRoster(ctx context.Context, classroomID shared.ID) ([]*student.Student, int64, error) {
	key := RosterKey(classroomID.Int64())
	var (
		roster []*student.Student
		gen    int64
	)
	err := d.guard(ctx, func(ctx context.Context) error {
		var err error
		gen, err = d.cache.GetWithGeneration(ctx, key, GenerationKey(key), &roster)
		return err
	})
	if err != nil {
		return nil, gen, err
	}
	return roster, gen, nil
}

// SetRoster caches a classroom roster unless it was invalidated after gen
// was read.
func (d *DirectoryCache) SetRoster(ctx context.Context, classroomID shared.ID, gen int64, roster []*student.Student) error {
	if roster == nil {
		roster = []*student.Student{}
	}
	key := RosterKey(classroomID.Int64())
	return d.guard(ctx, func(ctx context.Context) error {
		_, err := d.cache.SetIfGeneration(ctx, key, GenerationKey(key), gen, roster, d.ttl)
		return err
	})
}

// Invalidate advances the generation of the directory and of the roster of
// classroomID, if valid, and drops both entries.
func (d *DirectoryCache) Invalidate(ctx context.Context, classroomID shared.ID) error {
	keys := []string{KeyClassrooms}
	if classroomID.IsValid() {
		keys = append(keys, RosterKey(classroomID.Int64()))
	}
	gens := make([]string, len(keys))
	for i, k := range keys {
		gens[i] = GenerationKey(k)
	}
	return d.cache.Bump(ctx, gens, keys...)
}

// InvalidateAll advances every known generation and drops every cached
// roster and the directory. The server calls it at boot so nothing cached
// against an older schema or a previous process survives.
func (d *DirectoryCache) InvalidateAll(ctx context.Context) error {
	gens, err := d.cache.Keys(ctx, PrefixGeneration+"*")
	if err != nil {
		return err
	}
	if !containsKey(gens, GenerationKey(KeyClassrooms)) {
		gens = append(gens, GenerationKey(KeyClassrooms))
	}
	if err := d.cache.Bump(ctx, gens, KeyClassrooms); err != nil {
		return err
	}
	return d.cache.DeleteByPattern(ctx, PrefixRoster+"*")
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
