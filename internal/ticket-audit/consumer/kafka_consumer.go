package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/lotonet/banca-limits-engine/internal/ticket-audit/repository"
	"github.com/lotonet/banca-limits-engine/pkg/contracts/events"
)

// Processor consume los eventos de admisión y anulación de tickets y
// los persiste en Postgres. Callbacks de métricas por etapa.
type Processor struct {
	Log          *zap.Logger
	Repo         *repository.PostgresRepo
	Reader       *kafka.Reader // ticket_admitted
	CancelReader *kafka.Reader // ticket_cancelled
	DLQ          *kafka.Writer // opcional

	OnConsumed  func()       // métricas (counter++)
	OnPersist   func()       // métricas
	OnCancelled func()       // métricas
	OnError     func(string) // métricas por fase
}

// Run es el loop de consumo de tickets admitidos.
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		var ev events.TicketAdmitted
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			continue
		}

		if err := p.persistAdmitted(ctx, ev); err != nil {
			p.Log.Error("persist ticket failed", zap.String("ticketId", ev.TicketID), zap.Error(err))
			if p.OnError != nil {
				p.OnError("db")
			}
			p.toDLQ(ctx, m)
			continue
		}
		if p.OnPersist != nil {
			p.OnPersist()
		}
	}
}

// persistAdmitted inserta el ticket y acumula el consumo de cada
// límite aplicado. Reintenta una vez antes de rendirse.
func (p *Processor) persistAdmitted(ctx context.Context, ev events.TicketAdmitted) error {
	err := p.Repo.InsertTicket(ctx, ev)
	if err != nil {
		time.Sleep(300 * time.Millisecond)
		if err = p.Repo.InsertTicket(ctx, ev); err != nil {
			return err
		}
	}

	for _, ln := range ev.Lines {
		if ln.AdmittedCents <= 0 {
			continue
		}
		for _, limitID := range ln.AppliedLimitIDs {
			if err := p.Repo.ApplyConsumption(ctx, limitID, ev.Ts, ln.AdmittedCents); err != nil {
				return err
			}
			if err := p.Repo.InsertConsumptionHistory(ctx, ev.TicketID, limitID, ln.AdmittedCents, ev.Ts); err != nil {
				p.Log.Warn("history insert failed", zap.Int64("limitId", limitID), zap.Error(err))
			}
		}
	}
	return nil
}

// RunCancellations es el loop de consumo de anulaciones.
func (p *Processor) RunCancellations(ctx context.Context) error {
	for {
		m, err := p.CancelReader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			if p.OnError != nil {
				p.OnError("read")
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		var ev events.TicketCancelled
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			p.Log.Warn("invalid message", zap.Error(err))
			if p.OnError != nil {
				p.OnError("decode")
			}
			continue
		}

		lines, err := p.Repo.MarkCancelled(ctx, ev.TicketID, ev.Ts)
		if err != nil {
			p.Log.Error("cancel ticket failed", zap.String("ticketId", ev.TicketID), zap.Error(err))
			if p.OnError != nil {
				p.OnError("db")
			}
			continue
		}
		// Revierte el consumo de cada línea admitida.
		for _, ln := range lines {
			for _, limitID := range ln.AppliedLimitIDs {
				if err := p.Repo.ApplyConsumption(ctx, limitID, ln.DrawDate, -ln.AdmittedCents); err != nil {
					p.Log.Warn("consumption reversal failed", zap.Int64("limitId", limitID), zap.Error(err))
				} else {
					_ = p.Repo.InsertConsumptionHistory(ctx, ev.TicketID, limitID, -ln.AdmittedCents, ev.Ts)
				}
			}
		}
		if p.OnCancelled != nil {
			p.OnCancelled()
		}
	}
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	if err := p.DLQ.WriteMessages(ctx, kafka.Message{Key: m.Key, Value: m.Value}); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
	}
}
