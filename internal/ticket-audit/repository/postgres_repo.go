package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/lotonet/banca-limits-engine/pkg/contracts/events"
)

// PostgresRepo persiste tickets admitidos y el consumo acumulado por
// límite. El motor decide en memoria; esta tabla es la fuente para
// reconstruir el estado al reiniciar y para los reportes de la banca.
type PostgresRepo struct {
	DB *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{DB: db}
}

// InsertTicket persiste el ticket y sus líneas expandidas.
// ON CONFLICT por si el worker reprocesa el mismo evento.
func (r *PostgresRepo) InsertTicket(ctx context.Context, e events.TicketAdmitted) error {
	const qt = `
		INSERT INTO tickets (id, banca_id, status, created_at)
		VALUES ($1,$2,'ADMITTED',$3)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.DB.ExecContext(ctx, qt, e.TicketID, e.BancaID, e.Ts)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil // evento duplicado, las líneas ya están
	}

	const ql = `
		INSERT INTO ticket_lines
		  (ticket_id, draw_id, number, bet_type, requested_cents, admitted_cents, status, applied_limit_ids)
		VALUES
		  ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	for _, ln := range e.Lines {
		if _, err := r.DB.ExecContext(ctx, ql,
			e.TicketID, ln.DrawID, ln.Number, ln.BetType,
			ln.RequestedCents, ln.AdmittedCents, ln.Status,
			pq.Array(ln.AppliedLimitIDs),
		); err != nil {
			return err
		}
	}
	return nil
}

// ApplyConsumption acumula el delta sobre el consumo del día para un
// límite. El upsert por (limit_id, draw_date) mantiene una fila por
// límite y fecha de sorteo.
func (r *PostgresRepo) ApplyConsumption(ctx context.Context, limitID int64, drawDate time.Time, delta int64) error {
	const q = `
		INSERT INTO limit_consumptions (limit_rule_id, draw_date, amount_cents, updated_at)
		VALUES ($1,$2,$3,NOW())
		ON CONFLICT (limit_rule_id, draw_date) DO UPDATE SET
		  amount_cents = limit_consumptions.amount_cents + EXCLUDED.amount_cents,
		  updated_at   = NOW()
	`
	_, err := r.DB.ExecContext(ctx, q, limitID, drawDate.Format("2006-01-02"), delta)
	return err
}

// InsertConsumptionHistory deja traza de cada delta aplicado.
func (r *PostgresRepo) InsertConsumptionHistory(ctx context.Context, ticketID string, limitID, delta int64, ts time.Time) error {
	const q = `
		INSERT INTO limit_consumption_history (ticket_id, limit_rule_id, delta_cents, created_at)
		VALUES ($1,$2,$3,$4)
	`
	_, err := r.DB.ExecContext(ctx, q, ticketID, limitID, delta, ts)
	return err
}

// CancelledLine es lo mínimo que hace falta para revertir el consumo
// de una línea al anular el ticket.
type CancelledLine struct {
	AdmittedCents   int64
	DrawDate        time.Time
	AppliedLimitIDs []int64
}

// MarkCancelled cambia el estado del ticket y devuelve sus líneas
// admitidas para revertir el consumo. Devuelve nil si el ticket ya
// estaba anulado (evento duplicado).
func (r *PostgresRepo) MarkCancelled(ctx context.Context, ticketID string, ts time.Time) ([]CancelledLine, error) {
	const qu = `
		UPDATE tickets SET status='CANCELLED', cancelled_at=$2
		WHERE id=$1 AND status <> 'CANCELLED'
	`
	res, err := r.DB.ExecContext(ctx, qu, ticketID, ts)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	const ql = `
		SELECT l.admitted_cents, t.created_at, l.applied_limit_ids
		FROM ticket_lines l
		JOIN tickets t ON t.id = l.ticket_id
		WHERE l.ticket_id = $1 AND l.admitted_cents > 0
	`
	rows, err := r.DB.QueryContext(ctx, ql, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []CancelledLine
	for rows.Next() {
		var ln CancelledLine
		var ids pq.Int64Array
		if err := rows.Scan(&ln.AdmittedCents, &ln.DrawDate, &ids); err != nil {
			return nil, err
		}
		ln.AppliedLimitIDs = ids
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}
