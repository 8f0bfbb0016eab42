package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lotonet/banca-limits-engine/internal/limits-engine/store"
)

// Postgres lee la configuración de límites persistida. El engine nunca
// crea ni borra reglas (eso es del backoffice); solo las carga y les
// descuenta capacidad en memoria.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// LoadActiveLimits arma el estado inicial del store para un día de
// venta: reglas activas del día con remaining = techo - consumo ya
// persistido por el ticket-audit-worker.
func (p *Postgres) LoadActiveLimits(ctx context.Context, day time.Time) ([]store.Limit, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT lr.limit_rule_id, lr.limit_type, lr.max_amount_cents,
		       COALESCE(lr.draw_id, 0), COALESCE(lr.banca_id, 0), COALESCE(lr.zone_id, 0),
		       COALESCE(lr.group_id, 0), COALESCE(lr.external_group_id, 0),
		       COALESCE(lr.bet_type, ''), COALESCE(lr.bet_number, ''), COALESCE(lr.days_of_week, 0),
		       COALESCE(SUM(lc.amount_cents), 0) AS consumed
		FROM limit_rules lr
		LEFT JOIN limit_consumptions lc
		       ON lc.limit_rule_id = lr.limit_rule_id AND lc.draw_date = $1
		WHERE lr.is_active
		GROUP BY lr.limit_rule_id`, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("query limit rules: %w", err)
	}
	defer rows.Close()

	var out []store.Limit
	for rows.Next() {
		var (
			l        store.Limit
			ltype    int
			consumed int64
		)
		if err := rows.Scan(&l.LimitID, &ltype, &l.Amount,
			&l.DrawID, &l.BancaID, &l.ZoneID,
			&l.GroupID, &l.ExternalGroupID,
			&l.BetType, &l.Number, &l.DaysOfWeek,
			&consumed); err != nil {
			return nil, fmt.Errorf("scan limit rule: %w", err)
		}
		l.Type = store.LimitType(ltype)
		l.Remaining = l.Amount - consumed
		out = append(out, l)
	}
	return out, rows.Err()
}

// LoadLimit relee una sola regla (resync tras edición en el backoffice).
func (p *Postgres) LoadLimit(ctx context.Context, limitID int64, day time.Time) (store.Limit, error) {
	var (
		l        store.Limit
		ltype    int
		consumed int64
	)
	err := p.db.QueryRowContext(ctx, `
		SELECT lr.limit_rule_id, lr.limit_type, lr.max_amount_cents,
		       COALESCE(lr.draw_id, 0), COALESCE(lr.banca_id, 0), COALESCE(lr.zone_id, 0),
		       COALESCE(lr.group_id, 0), COALESCE(lr.external_group_id, 0),
		       COALESCE(lr.bet_type, ''), COALESCE(lr.bet_number, ''), COALESCE(lr.days_of_week, 0),
		       COALESCE(SUM(lc.amount_cents), 0) AS consumed
		FROM limit_rules lr
		LEFT JOIN limit_consumptions lc
		       ON lc.limit_rule_id = lr.limit_rule_id AND lc.draw_date = $2
		WHERE lr.limit_rule_id = $1 AND lr.is_active
		GROUP BY lr.limit_rule_id`, limitID, day.Format("2006-01-02")).
		Scan(&l.LimitID, &ltype, &l.Amount,
			&l.DrawID, &l.BancaID, &l.ZoneID,
			&l.GroupID, &l.ExternalGroupID,
			&l.BetType, &l.Number, &l.DaysOfWeek,
			&consumed)
	if err != nil {
		return store.Limit{}, err
	}
	l.Type = store.LimitType(ltype)
	l.Remaining = l.Amount - consumed
	return l, nil
}
