package events

// Evento publicado después de cada delta aplicado sobre un límite.
// remaining es la capacidad restante del scope vinculante para el número.
type LimitUpdate struct {
	DrawID    int64  `json:"draw_id"`
	Number    string `json:"number"`
	BetType   string `json:"bet_type"`
	Remaining int64  `json:"remaining"` // centavos; -1 = sin límite
	IsBlocked bool   `json:"is_blocked"`
	TsUnixMs  int64  `json:"ts_unix_ms"`
}
