package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/wichananm65/park-shop-backend/internal/apperror"
)

var (
	ErrCacheMiss  = errors.New("cart not found in cache")
	ErrCacheStale = errors.New("cart invalidated since read")
)

// Cache holds serialized carts keyed by user. Every Delete bumps a per-user
// generation; Set only stores lines read under the current generation.
type Cache interface {
	Get(ctx context.Context, userID int) ([]Line, error)
	Generation(ctx context.Context, userID int) (int64, error)
	Set(ctx context.Context, userID int, gen int64, lines []Line) error
	Delete(ctx context.Context, userID int) error
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 15 * time.Minute,
		genTTL:  24 * time.Hour,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
	genTTL  time.Duration
}

func (r *RedisCache) Get(ctx context.Context, userID int) ([]Line, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []Line
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return lines, nil
}

func (r *RedisCache) Generation(ctx context.Context, userID int) (int64, error) {
	gen, err := r.client.Get(ctx, genKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get generation failed: %w", err)
	}
	return gen, nil
}

// Set writes lines only while the generation still equals gen. The
// generation key is watched, so a Delete racing the write aborts it.
func (r *RedisCache) Set(ctx context.Context, userID int, gen int64, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	ttl := r.baseTTL + time.Duration(rand.Intn(5))*time.Minute

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey(userID)).Int64()
		if errors.Is(err, redis.Nil) {
			current, err = 0, nil
		}
		if err != nil {
			return err
		}
		if current != gen {
			return ErrCacheStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(userID), data, ttl)
			return nil
		})
		return err
	}, genKey(userID))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrCacheStale), errors.Is(err, redis.TxFailedErr):
		return ErrCacheStale
	default:
		return fmt.Errorf("redis set failed: %w", err)
	}
}

func (r *RedisCache) Delete(ctx context.Context, userID int) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(userID))
		pipe.Expire(ctx, genKey(userID), r.genTTL)
		pipe.Del(ctx, cacheKey(userID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID int) string {
	return "cart:" + strconv.Itoa(userID)
}

func genKey(userID int) string {
	return "cart:gen:" + strconv.Itoa(userID)
}

const defaultFillTimeout = 5 * time.Second

// CachedRepository serves GetCart from the cache and drops the cached cart
// after every mutation. Cache failures are logged and never fail a request.
type CachedRepository struct {
	next        Repository
	cache       Cache
	group       singleflight.Group
	fillTimeout time.Duration
}

func NewCachedRepository(next Repository, cache Cache) *CachedRepository {
	return &CachedRepository{next: next, cache: cache, fillTimeout: defaultFillTimeout}
}

func (r *CachedRepository) GetCart(ctx context.Context, userID int) ([]Line, error) {
	lines, err := r.cache.Get(ctx, userID)
	if err == nil {
		return lines, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		log.Warnw("cart cache read failed", "userId", userID, "error", err)
	}

	// the shared read outlives any single caller's cancellation
	ch := r.group.DoChan(cacheKey(userID), func() (any, error) {
		fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fillTimeout)
		defer cancel()
		return r.fill(fillCtx, userID)
	})
	select {
	case <-ctx.Done():
		return nil, apperror.Persistence("load cart", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		shared := res.Val.([]Line)
		return append(make([]Line, 0, len(shared)), shared...), nil
	}
}

func (r *CachedRepository) fill(ctx context.Context, userID int) ([]Line, error) {
	gen, genErr := r.cache.Generation(ctx, userID)
	lines, err := r.next.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if genErr != nil {
		log.Warnw("cart cache generation read failed", "userId", userID, "error", genErr)
		return lines, nil
	}
	err = r.cache.Set(ctx, userID, gen, lines)
	switch {
	case errors.Is(err, ErrCacheStale):
		log.Debugw("cart cache fill skipped", "userId", userID)
	case err != nil:
		log.Warnw("cart cache write failed", "userId", userID, "error", err)
	}
	return lines, nil
}

func (r *CachedRepository) Upsert(ctx context.Context, userID, productID, qty int) error {
	defer r.Invalidate(ctx, userID)
	return r.next.Upsert(ctx, userID, productID, qty)
}

func (r *CachedRepository) SetQuantity(ctx context.Context, userID, productID, qty int) error {
	defer r.Invalidate(ctx, userID)
	return r.next.SetQuantity(ctx, userID, productID, qty)
}

func (r *CachedRepository) Remove(ctx context.Context, userID, productID int) error {
	defer r.Invalidate(ctx, userID)
	return r.next.Remove(ctx, userID, productID)
}

func (r *CachedRepository) Clear(ctx context.Context, userID int) error {
	defer r.Invalidate(ctx, userID)
	return r.next.Clear(ctx, userID)
}

// Invalidate drops the cached cart of userID. Checkout calls it after commit.
func (r *CachedRepository) Invalidate(ctx context.Context, userID int) {
	r.group.Forget(cacheKey(userID))
	if err := r.cache.Delete(ctx, userID); err != nil {
		log.Warnw("cart cache invalidation failed", "userId", userID, "error", err)
	}
}
