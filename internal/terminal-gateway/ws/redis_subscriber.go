package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/lotonet/banca-limits-engine/pkg/contracts/events"
)

// StartRedisSubscriber levanta una goroutine que escucha el canal
// Redis Pub/Sub por donde el motor publica cada cambio de capacidad
// y repasa las actualizaciones a los terminales conectados vía Hub.
// El canal viene de la config, el mismo que usa el publisher del motor.
func StartRedisSubscriber(ctx context.Context, r *redis.Client, hub *Hub, channel string) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg := <-ch:
				if msg == nil {
					continue
				}
				var upd events.LimitUpdate
				if err := json.Unmarshal([]byte(msg.Payload), &upd); err != nil {
					log.Printf("ws subscriber unmarshal error: %v", err)
					continue
				}
				hub.Broadcast(upd)
			}
		}
	}()
}
