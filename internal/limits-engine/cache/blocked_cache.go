package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache guarda el set de números bloqueados por sorteo en Redis, como
// camino rápido para la consulta de pre-venta de los terminales.
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func keyBlocked(drawID int64) string { return fmt.Sprintf("limits:draw:%d:blocked", drawID) }

func (c *Cache) GetBlocked(ctx context.Context, drawID int64) ([]string, bool, error) {
	b, err := c.R.Get(ctx, keyBlocked(drawID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var numbers []string
	if err := json.Unmarshal(b, &numbers); err != nil {
		return nil, false, err
	}
	return numbers, true, nil
}

func (c *Cache) SetBlocked(ctx context.Context, drawID int64, numbers []string, ttl time.Duration) error {
	b, _ := json.Marshal(numbers)
	return c.R.Set(ctx, keyBlocked(drawID), b, ttl).Err()
}
