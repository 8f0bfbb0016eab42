package producer

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/lotonet/banca-limits-engine/internal/limits-engine/pubsub"
	"github.com/lotonet/banca-limits-engine/pkg/contracts/events"
)

// Publisher implementa la capacidad de publicación del coordinador:
// auditoría por Kafka y fan-out en tiempo real por Redis Pub/Sub
// (los limit updates van por ambos caminos).
type Publisher struct {
	AdmittedWriter  *kafka.Writer
	CancelledWriter *kafka.Writer
	UpdatesWriter   *kafka.Writer
	Broadcaster     *pubsub.RedisBroadcaster
	Channel         string
}

func (p *Publisher) PublishTicketAdmitted(ctx context.Context, e events.TicketAdmitted) error {
	b, _ := json.Marshal(e)
	return p.AdmittedWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.TicketID), Value: b})
}

func (p *Publisher) PublishTicketCancelled(ctx context.Context, e events.TicketCancelled) error {
	b, _ := json.Marshal(e)
	return p.CancelledWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.TicketID), Value: b})
}

// PublishLimitUpdate difunde primero por Redis (lo que ven los
// terminales) y después deja rastro en Kafka; si Kafka falla el update
// ya salió, la auditoría se reconcilia por refresh periódico.
func (p *Publisher) PublishLimitUpdate(ctx context.Context, e events.LimitUpdate) error {
	b, _ := json.Marshal(e)

	if err := p.Broadcaster.Publish(ctx, p.Channel, b); err != nil {
		return err
	}
	if p.UpdatesWriter != nil {
		return p.UpdatesWriter.WriteMessages(ctx, kafka.Message{Key: []byte(e.Number), Value: b})
	}
	return nil
}
