package serving

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/synaptica-ai/dependability/pkg/common/models"
	"github.com/synaptica-ai/dependability/pkg/vitals"
)

const cachePrefix = "dependability:result:"

// ResultCache stores responses keyed by artifact version, model and the
// resolved input record. Identical inputs always classify identically, so
// entries never need invalidating within one version.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) Get(ctx context.Context, key string) (*models.PredictionResponse, bool, error) {
	raw, err := c.client.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var resp models.PredictionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false, err
	}
	return &resp, true, nil
}

func (c *ResultCache) Set(ctx context.Context, key string, resp models.PredictionResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cachePrefix+key, raw, c.ttl).Err()
}

// CacheKey renders the inputs that fully determine a prediction.
func CacheKey(version, model string, rec vitals.Record) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return strings.Join([]string{
		version,
		model,
		f(rec.HeartRate),
		f(rec.SpO2),
		f(rec.Temperature),
		string(rec.CurrentPosture),
		f(rec.LeftPct),
		f(rec.RightPct),
		f(rec.SupinePct),
	}, "|")
}
