package chain

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CachedReader memoizes token metadata in Redis. Symbol, name and decimals
// do not change after deployment, so cached values are valid at any block.
//
// Key schema:
//
//	<prefix>:token:{address}:{field} - string value
type CachedReader struct {
	inner  Reader
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger zerolog.Logger
}

var _ Reader = (*CachedReader)(nil)

func NewCachedReader(inner Reader, rdb *redis.Client, prefix string, ttl time.Duration, logger zerolog.Logger) *CachedReader {
	return &CachedReader{
		inner:  inner,
		rdb:    rdb,
		ttl:    ttl,
		prefix: prefix,
		logger: logger.With().Str("component", "metadata-cache").Logger(),
	}
}

func (c *CachedReader) At(ctx context.Context, blockNumber uint64) Accessor {
	return &cachedView{Accessor: c.inner.At(ctx, blockNumber), ctx: ctx, c: c}
}

func (c *CachedReader) key(token, field string) string {
	return c.prefix + ":token:" + token + ":" + field
}

type cachedView struct {
	Accessor
	ctx context.Context
	c   *CachedReader
}

func (v *cachedView) lookup(token, field string) (string, bool) {
	s, err := v.c.rdb.Get(v.ctx, v.c.key(token, field)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			v.c.logger.Warn().Err(err).Str("token", token).Str("field", field).Msg("Metadata cache read failed")
		}
		return "", false
	}
	return s, true
}

func (v *cachedView) store(token, field, value string) {
	if err := v.c.rdb.Set(v.ctx, v.c.key(token, field), value, v.c.ttl).Err(); err != nil {
		v.c.logger.Warn().Err(err).Str("token", token).Str("field", field).Msg("Metadata cache write failed")
	}
}

func (v *cachedView) Symbol(token string) (string, error) {
	return v.text(token, "symbol", v.Accessor.Symbol)
}

func (v *cachedView) Name(token string) (string, error) {
	return v.text(token, "name", v.Accessor.Name)
}

func (v *cachedView) text(token, field string, read func(string) (string, error)) (string, error) {
	if s, ok := v.lookup(token, field); ok {
		return s, nil
	}
	s, err := read(token)
	if err != nil {
		return "", err
	}
	v.store(token, field, s)
	return s, nil
}

func (v *cachedView) Decimals(token string) (int32, error) {
	if s, ok := v.lookup(token, "decimals"); ok {
		if d, err := strconv.ParseInt(s, 10, 32); err == nil {
			return int32(d), nil
		}
	}
	d, err := v.Accessor.Decimals(token)
	if err != nil {
		return 0, err
	}
	v.store(token, "decimals", strconv.FormatInt(int64(d), 10))
	return d, nil
}
