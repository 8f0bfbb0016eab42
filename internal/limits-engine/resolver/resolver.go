package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lotonet/banca-limits-engine/internal/limits-engine/store"
)

// Status es la decisión de admisión para una línea.
type Status string

const (
	StatusAdmitted          Status = "ADMITTED"
	StatusPartiallyAdmitted Status = "PARTIAL"
	StatusRejected          Status = "REJECTED"
)

// Reason distingue los rechazos y recortes de negocio (resultados
// esperados, no errores).
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNumberBlocked  Reason = "NUMBER_BLOCKED"
	ReasonLimitExhausted Reason = "LIMIT_EXHAUSTED"
)

// BetLine es una jugada concreta ya expandida, inmutable una vez admitida.
type BetLine struct {
	Number  string
	Amount  int64 // centavos
	BetType string
	DrawID  int64
}

// Decision es el resultado de evaluar una línea contra todos los límites
// aplicables. Unlimited indica que ningún límite alcanza al número.
type Decision struct {
	Status           Status
	Reason           Reason
	RequestedAmount  int64
	AdmittedAmount   int64
	AppliedLimitIDs  []int64 // límites descontados (vacío en rechazo/preview)
	BindingRemaining int64   // remaining del scope vinculante tras el commit; -1 si Unlimited
	IsBlocked        bool
	Unlimited        bool
}

// commitAttempts acota el reintento cuando un límite general compartido
// entre números fue consumido por otra clave durante el cálculo.
const commitAttempts = 5

// Resolver evalúa líneas contra el LimitStore en orden del scope más
// restrictivo al menos; el mínimo de los remaining manda (techo de techos).
type Resolver struct {
	Store        *store.Store
	Log          *zap.Logger
	AllowPartial bool // la casa recorta la exposición en vez de rechazar
}

// Resolve calcula la decisión sin mutar estado (preview para la UI).
func (r *Resolver) Resolve(ctx context.Context, line BetLine, bctx store.BancaContext) Decision {
	limits := r.Store.Get(line.DrawID, line.Number, line.BetType, bctx)
	return r.decide(line, limits)
}

// ResolveAndCommit decide y, si admite, descuenta el monto admitido de
// TODOS los límites aplicables (no solo el vinculante): la exposición
// agregada de cada scope debe reflejar la jugada.
//
// La sección crítica va bajo el lock de clave (drawId, number): el
// check-and-decrement es atómico por número. Un límite general puede ser
// consumido en paralelo desde otro número; si eso invalida el mínimo
// calculado, se revierte lo aplicado y se recalcula.
func (r *Resolver) ResolveAndCommit(ctx context.Context, line BetLine, bctx store.BancaContext) (Decision, error) {
	unlock := r.Store.LockKey(line.DrawID, line.Number)
	defer unlock()

	for attempt := 0; attempt < commitAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Decision{}, err
		}

		limits := r.Store.Get(line.DrawID, line.Number, line.BetType, bctx)
		d := r.decide(line, limits)
		if d.Status == StatusRejected || d.Unlimited {
			return d, nil
		}

		applied, conflict, err := r.applyAll(limits, d.AdmittedAmount)
		if err != nil {
			return Decision{}, err
		}
		if conflict {
			continue // otro número consumió un límite general; recalcular
		}

		d.AppliedLimitIDs = applied
		d.BindingRemaining, d.IsBlocked = r.bindingState(applied)
		return d, nil
	}

	return Decision{}, fmt.Errorf("commit line %s draw %d: %w", line.Number, line.DrawID, store.ErrInvariantViolation)
}

// Cancel aplica los deltas inversos de una línea admitida; el store
// recorta al techo, así que la anulación restaura exactamente el estado
// previo mientras no haya habido resync de la regla.
func (r *Resolver) Cancel(ctx context.Context, line BetLine, appliedLimitIDs []int64, amount int64) {
	unlock := r.Store.LockKey(line.DrawID, line.Number)
	defer unlock()

	for _, id := range appliedLimitIDs {
		if _, err := r.Store.ApplyDelta(id, amount); err != nil {
			// no corrompe otras jugadas; queda para investigación del operador
			r.warn("cancel delta failed", line, id, err)
		}
	}
}

func (r *Resolver) decide(line BetLine, limits []store.Limit) Decision {
	d := Decision{RequestedAmount: line.Amount}

	if len(limits) == 0 {
		// sin límite aplicable: se admite cualquier monto
		d.Status = StatusAdmitted
		d.AdmittedAmount = line.Amount
		d.BindingRemaining = -1
		d.Unlimited = true
		return d
	}

	maxAdmissible := limits[0].Remaining
	for _, l := range limits {
		if l.IsBlocked {
			d.Status = StatusRejected
			d.Reason = ReasonNumberBlocked
			d.IsBlocked = true
			return d
		}
		if l.Remaining < maxAdmissible {
			maxAdmissible = l.Remaining
		}
	}

	d.BindingRemaining = maxAdmissible
	switch {
	case maxAdmissible >= line.Amount:
		d.Status = StatusAdmitted
		d.AdmittedAmount = line.Amount
	case maxAdmissible > 0 && r.AllowPartial:
		d.Status = StatusPartiallyAdmitted
		d.Reason = ReasonLimitExhausted // el recorte viene de un límite al tope
		d.AdmittedAmount = maxAdmissible
	default:
		d.Status = StatusRejected
		d.Reason = ReasonLimitExhausted
	}
	return d
}

// applyAll descuenta amount de cada límite; ante un conflicto de
// concurrencia revierte lo ya aplicado y pide recalcular.
func (r *Resolver) applyAll(limits []store.Limit, amount int64) (applied []int64, conflict bool, err error) {
	for _, l := range limits {
		if _, derr := r.Store.ApplyDelta(l.LimitID, -amount); derr != nil {
			// rollback de los deltas ya aplicados
			for _, id := range applied {
				if _, rerr := r.Store.ApplyDelta(id, amount); rerr != nil {
					return nil, false, fmt.Errorf("rollback limit %d: %w", id, rerr)
				}
			}
			if derr == store.ErrInvariantViolation {
				return nil, true, nil
			}
			return nil, false, derr
		}
		applied = append(applied, l.LimitID)
	}
	return applied, false, nil
}

// bindingState lee el remaining mínimo posterior al commit entre los
// límites descontados; ese es el valor que ven los terminales.
func (r *Resolver) bindingState(applied []int64) (remaining int64, blocked bool) {
	remaining = -1
	for _, id := range applied {
		l, ok := r.Store.Snapshot(id)
		if !ok {
			continue
		}
		if remaining == -1 || l.Remaining < remaining {
			remaining = l.Remaining
			blocked = l.IsBlocked
		}
	}
	return remaining, blocked
}

func (r *Resolver) warn(msg string, line BetLine, limitID int64, err error) {
	if r.Log == nil {
		return
	}
	r.Log.Warn(msg,
		zap.String("number", line.Number),
		zap.Int64("drawId", line.DrawID),
		zap.Int64("limitId", limitID),
		zap.Error(err),
	)
}
