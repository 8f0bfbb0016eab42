package coordinator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lotonet/banca-limits-engine/internal/limits-engine/expander"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/resolver"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/store"
	"github.com/lotonet/banca-limits-engine/pkg/contracts/events"
)

// Mode es la política de admisión a nivel ticket. Viene de configuración
// externa, nunca la decide el coordinador.
type Mode string

const (
	ModeStrict     Mode = "strict"      // cualquier rechazo aborta el ticket completo
	ModeBestEffort Mode = "best_effort" // cada línea se compromete por separado
)

// StatusExpansionFailed marca líneas cuya notación corta no produjo
// números (error de digitación, corregible por el usuario).
const StatusExpansionFailed = "EXPANSION_FAILED"

// LineInput es una entrada de jugada tal como llega del terminal.
type LineInput struct {
	RawInput      string
	Generator     expander.Generator
	SequenceStart string
	SequenceEnd   string
	AmountCents   int64
	BetType       string
}

// DrawSelection agrupa las líneas jugadas a un sorteo.
type DrawSelection struct {
	DrawID int64
	Lines  []LineInput
}

// TicketRequest es un ticket propuesto completo.
type TicketRequest struct {
	Banca          store.BancaContext
	DrawSelections []DrawSelection
}

// LineResult es el resultado estructurado por línea expandida.
type LineResult struct {
	RawInput       string          `json:"raw_input"`
	Number         string          `json:"number"`
	DrawID         int64           `json:"draw_id"`
	BetType        string          `json:"bet_type"`
	Status         string          `json:"status"` // ADMITTED | PARTIAL | REJECTED | EXPANSION_FAILED
	Reason         resolver.Reason `json:"reason,omitempty"`
	RequestedCents int64           `json:"requested_cents"`
	AdmittedCents  int64           `json:"admitted_cents"`
	Remaining      int64           `json:"remaining"` // -1 = sin límite
	IsBlocked      bool            `json:"is_blocked"`
}

// TicketResult agrega las decisiones de todas las líneas.
type TicketResult struct {
	TicketID string       `json:"ticket_id"`
	Status   string       `json:"status"` // ADMITTED | PARTIAL | REJECTED
	Lines    []LineResult `json:"lines"`
}

// CancelLine identifica una línea admitida a anular.
type CancelLine struct {
	Number          string
	BetType         string
	DrawID          int64
	AdmittedCents   int64
	AppliedLimitIDs []int64
}

// CancelRequest anula un ticket completo (void).
type CancelRequest struct {
	TicketID string
	Banca    store.BancaContext
	Lines    []CancelLine
}

// Publisher es la capacidad de publicación que el coordinador necesita;
// el transporte concreto (Redis Pub/Sub, Kafka) vive en adaptadores.
type Publisher interface {
	PublishLimitUpdate(ctx context.Context, ev events.LimitUpdate) error
	PublishTicketAdmitted(ctx context.Context, ev events.TicketAdmitted) error
	PublishTicketCancelled(ctx context.Context, ev events.TicketCancelled) error
}

// Coordinator orquesta expansión y resolución para un ticket multi-línea.
// Los resultados de negocio (rechazos, parciales, expansiones fallidas)
// son valores; solo fallas de infraestructura suben como error.
type Coordinator struct {
	Resolver  *resolver.Resolver
	Log       *zap.Logger
	Mode      Mode
	Publisher Publisher // opcional

	OnLineAdmitted func()              // métricas
	OnLineRejected func(reason string) // métricas
	OnTicket       func(status string) // métricas
}

// registro interno de una línea comprometida, para rollback y eventos
type committedLine struct {
	line     resolver.BetLine
	decision resolver.Decision
	rawInput string
}

// SubmitTicket expande cada entrada por sorteo, resuelve línea a línea y
// agrega la decisión a nivel ticket según el modo activo.
//
// strict: el primer rechazo revierte todo lo comprometido (efecto neto
// cero sobre los límites) y el ticket sale REJECTED. best_effort: las
// líneas admitidas quedan firmes y las rechazadas se reportan una a una.
// Un timeout en strict revierte; en best_effort lo ya comprometido queda.
func (c *Coordinator) SubmitTicket(ctx context.Context, req TicketRequest) (TicketResult, error) {
	res := TicketResult{TicketID: uuid.New().String()}
	var committed []committedLine

	for _, sel := range req.DrawSelections {
		for _, in := range sel.Lines {
			if err := ctx.Err(); err != nil {
				return c.abort(ctx, res, committed, req.Banca.BancaID, err)
			}

			numbers := expander.Expand(expander.Input{
				RawInput:      in.RawInput,
				Generator:     in.Generator,
				SequenceStart: in.SequenceStart,
				SequenceEnd:   in.SequenceEnd,
			})
			if len(numbers) == 0 {
				res.Lines = append(res.Lines, LineResult{
					RawInput:       in.RawInput,
					DrawID:         sel.DrawID,
					BetType:        in.BetType,
					Status:         StatusExpansionFailed,
					RequestedCents: in.AmountCents,
				})
				c.countRejected(StatusExpansionFailed)
				if c.Mode == ModeStrict {
					return c.rejectAll(ctx, res, committed)
				}
				continue
			}

			for _, num := range numbers {
				if err := ctx.Err(); err != nil {
					return c.abort(ctx, res, committed, req.Banca.BancaID, err)
				}

				line := resolver.BetLine{
					Number:  num,
					Amount:  in.AmountCents,
					BetType: in.BetType,
					DrawID:  sel.DrawID,
				}
				d, err := c.Resolver.ResolveAndCommit(ctx, line, req.Banca)
				if err != nil {
					// falla de consistencia/infraestructura: fatal para este
					// ticket, sin corromper el estado de otros
					return c.abort(ctx, res, committed, req.Banca.BancaID, err)
				}

				res.Lines = append(res.Lines, lineResult(in.RawInput, line, d))

				switch d.Status {
				case resolver.StatusAdmitted, resolver.StatusPartiallyAdmitted:
					committed = append(committed, committedLine{line: line, decision: d, rawInput: in.RawInput})
					if c.OnLineAdmitted != nil {
						c.OnLineAdmitted()
					}
				case resolver.StatusRejected:
					c.countRejected(string(d.Reason))
					if c.Mode == ModeStrict {
						return c.rejectAll(ctx, res, committed)
					}
				}
			}
		}
	}

	res.Status = aggregate(res.Lines)
	if c.OnTicket != nil {
		c.OnTicket(res.Status)
	}
	if len(committed) > 0 {
		c.publishAdmission(res.TicketID, req.Banca.BancaID, committed)
	}
	return res, nil
}

// CancelTicket aplica los deltas inversos de un ticket admitido y
// publica los nuevos remaining.
func (c *Coordinator) CancelTicket(ctx context.Context, req CancelRequest) {
	for _, cl := range req.Lines {
		line := resolver.BetLine{Number: cl.Number, Amount: cl.AdmittedCents, BetType: cl.BetType, DrawID: cl.DrawID}
		c.Resolver.Cancel(ctx, line, cl.AppliedLimitIDs, cl.AdmittedCents)
		c.publishUpdateFor(line, req.Banca)
	}

	if c.Publisher != nil {
		c.async(func(ctx context.Context) {
			if err := c.Publisher.PublishTicketCancelled(ctx, events.TicketCancelled{
				TicketID: req.TicketID,
				BancaID:  req.Banca.BancaID,
				Ts:       time.Now(),
			}); err != nil {
				c.warn("publish ticket cancelled failed", err)
			}
		})
	}
}

// rejectAll revierte lo comprometido y marca el ticket rechazado (strict).
func (c *Coordinator) rejectAll(ctx context.Context, res TicketResult, committed []committedLine) (TicketResult, error) {
	c.rollback(ctx, committed)
	res.Status = "REJECTED"
	if c.OnTicket != nil {
		c.OnTicket(res.Status)
	}
	return res, nil
}

// abort maneja timeout o falla de infraestructura a mitad de ticket.
func (c *Coordinator) abort(ctx context.Context, res TicketResult, committed []committedLine, bancaID int64, err error) (TicketResult, error) {
	if c.Mode == ModeStrict {
		// en strict nada puede quedar a medias
		c.rollback(ctx, committed)
		res.Status = "REJECTED"
		return res, err
	}
	// en best_effort las líneas ya firmes quedan; se publican igual
	res.Status = aggregate(res.Lines)
	if len(committed) > 0 {
		c.publishAdmission(res.TicketID, bancaID, committed)
	}
	return res, err
}

func (c *Coordinator) rollback(ctx context.Context, committed []committedLine) {
	for i := len(committed) - 1; i >= 0; i-- {
		cl := committed[i]
		c.Resolver.Cancel(ctx, cl.line, cl.decision.AppliedLimitIDs, cl.decision.AdmittedAmount)
	}
}

// publishAdmission emite los remaining nuevos hacia los terminales y el
// evento de auditoría. Best-effort y fuera del camino de admisión: una
// falla de publicación jamás revierte una jugada admitida.
func (c *Coordinator) publishAdmission(ticketID string, bancaID int64, committed []committedLine) {
	if c.Publisher == nil {
		return
	}

	ev := events.TicketAdmitted{TicketID: ticketID, BancaID: bancaID, Ts: time.Now()}
	for _, cl := range committed {
		status := "ADMITTED"
		if cl.decision.Status == resolver.StatusPartiallyAdmitted {
			status = "PARTIAL"
		}
		ev.Lines = append(ev.Lines, events.TicketLine{
			Number:          cl.line.Number,
			BetType:         cl.line.BetType,
			DrawID:          cl.line.DrawID,
			RequestedCents:  cl.decision.RequestedAmount,
			AdmittedCents:   cl.decision.AdmittedAmount,
			Status:          status,
			AppliedLimitIDs: cl.decision.AppliedLimitIDs,
		})
	}

	updates := make([]events.LimitUpdate, 0, len(committed))
	for _, cl := range committed {
		updates = append(updates, events.LimitUpdate{
			DrawID:    cl.line.DrawID,
			Number:    cl.line.Number,
			BetType:   cl.line.BetType,
			Remaining: cl.decision.BindingRemaining,
			IsBlocked: cl.decision.IsBlocked,
			TsUnixMs:  time.Now().UnixMilli(),
		})
	}

	c.async(func(ctx context.Context) {
		if err := c.Publisher.PublishTicketAdmitted(ctx, ev); err != nil {
			c.warn("publish ticket admitted failed", err)
		}
		for _, upd := range updates {
			if err := c.Publisher.PublishLimitUpdate(ctx, upd); err != nil {
				c.warn("publish limit update failed", err)
			}
		}
	})
}

// publishUpdateFor relee el estado vigente de la clave y lo difunde
// (usado tras anulaciones, donde no hay decisión de commit).
func (c *Coordinator) publishUpdateFor(line resolver.BetLine, bctx store.BancaContext) {
	if c.Publisher == nil {
		return
	}
	d := c.Resolver.Resolve(context.Background(), resolver.BetLine{
		Number: line.Number, Amount: 0, BetType: line.BetType, DrawID: line.DrawID,
	}, bctx)

	upd := events.LimitUpdate{
		DrawID:    line.DrawID,
		Number:    line.Number,
		BetType:   line.BetType,
		Remaining: d.BindingRemaining,
		IsBlocked: d.IsBlocked,
		TsUnixMs:  time.Now().UnixMilli(),
	}
	c.async(func(ctx context.Context) {
		if err := c.Publisher.PublishLimitUpdate(ctx, upd); err != nil {
			c.warn("publish limit update failed", err)
		}
	})
}

func (c *Coordinator) async(fn func(ctx context.Context)) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		fn(ctx)
	}()
}

func (c *Coordinator) countRejected(reason string) {
	if c.OnLineRejected != nil {
		c.OnLineRejected(reason)
	}
}

func (c *Coordinator) warn(msg string, err error) {
	if c.Log != nil {
		c.Log.Warn(msg, zap.Error(err))
	}
}

func lineResult(raw string, line resolver.BetLine, d resolver.Decision) LineResult {
	return LineResult{
		RawInput:       raw,
		Number:         line.Number,
		DrawID:         line.DrawID,
		BetType:        line.BetType,
		Status:         string(d.Status),
		Reason:         d.Reason,
		RequestedCents: d.RequestedAmount,
		AdmittedCents:  d.AdmittedAmount,
		Remaining:      d.BindingRemaining,
		IsBlocked:      d.IsBlocked,
	}
}

func aggregate(lines []LineResult) string {
	admitted, failed := 0, 0
	for _, l := range lines {
		switch l.Status {
		case string(resolver.StatusAdmitted):
			admitted++
		case string(resolver.StatusPartiallyAdmitted):
			admitted++
			failed++ // parcial cuenta como admisión recortada
		default:
			failed++
		}
	}
	switch {
	case admitted > 0 && failed == 0:
		return "ADMITTED"
	case admitted > 0:
		return "PARTIAL"
	default:
		return "REJECTED"
	}
}
