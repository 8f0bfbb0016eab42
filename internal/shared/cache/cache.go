package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis abre el cliente y verifica la conexión con un ping;
// un Redis caído se detecta al arrancar y no a mitad de una venta.
func ConnectRedis(addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}
