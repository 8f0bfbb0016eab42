package dto

import "github.com/lotonet/banca-limits-engine/internal/limits-engine/coordinator"

type SubmitTicketResponse struct {
	TicketID string                   `json:"ticket_id"`
	Status   string                   `json:"status"`
	Lines    []coordinator.LineResult `json:"lines"`
}

// LimitView es la vista de un límite para la UI de pre-venta.
type LimitView struct {
	LimitID   int64  `json:"limit_id"`
	Type      string `json:"type"`
	Amount    int64  `json:"amount_cents"`
	Remaining int64  `json:"remaining_cents"`
	IsBlocked bool   `json:"is_blocked"`
	Number    string `json:"number,omitempty"`
	BetType   string `json:"bet_type,omitempty"`
}

type BlockedNumbersResponse struct {
	DrawID  int64    `json:"draw_id"`
	Numbers []string `json:"numbers"`
}
