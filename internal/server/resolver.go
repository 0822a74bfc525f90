package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"callbook/internal/database"
	"callbook/internal/models"
	"callbook/internal/normalize"
)

// Resolver maps a dialed number to the restaurant the call was for.
// Lookups hit sqlite; an optional Redis cache sits in front because the
// same dialed number is resolved on every webhook event of a call.
type Resolver struct {
	db     *database.DB
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewResolver creates a resolver over the restaurants table.
func NewResolver(db *database.DB, logger zerolog.Logger) *Resolver {
	return &Resolver{
		db:     db,
		logger: logger.With().Str("component", "resolver").Logger(),
	}
}

// UseRedisCache configures optional Redis caching for lookups.
func (r *Resolver) UseRedisCache(client *redis.Client, ttl time.Duration) {
	r.redis = client
	r.ttl = ttl
}

// ByDialedNumber returns the restaurant registered under the dialed
// number, or nil when the number is unknown.
func (r *Resolver) ByDialedNumber(ctx context.Context, dialedNumber string) (*models.Restaurant, error) {
	digits := normalize.CleanPhone(dialedNumber)
	if digits == "" {
		return nil, nil
	}

	cacheKey := fmt.Sprintf("restaurant:phone:%s", digits)
	var cached models.Restaurant
	if r.readCache(ctx, cacheKey, &cached) {
		return &cached, nil
	}

	restaurant, err := r.db.GetRestaurantByPhone(ctx, digits)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		r.logger.Warn().Str("dialed_number", digits).Msg("unknown dialed number")
		return nil, nil
	}

	r.writeCache(ctx, cacheKey, restaurant)
	return restaurant, nil
}

func (r *Resolver) readCache(ctx context.Context, key string, out any) bool {
	if r.redis == nil {
		return false
	}
	data, err := r.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (r *Resolver) writeCache(ctx context.Context, key string, v any) {
	if r.redis == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.redis.Set(ctx, key, data, r.ttl).Err(); err != nil {
		r.logger.Debug().Err(err).Str("key", key).Msg("cache write failed")
	}
}
