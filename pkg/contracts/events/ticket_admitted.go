package events

import "time"

// Línea individual de un ticket admitido (ya expandida por el generador).
type TicketLine struct {
	Number          string  `json:"number"`
	BetType         string  `json:"bet_type"`
	DrawID          int64   `json:"draw_id"`
	RequestedCents  int64   `json:"requested_cents"`
	AdmittedCents   int64   `json:"admitted_cents"`
	Status          string  `json:"status"` // "ADMITTED" | "PARTIAL"
	AppliedLimitIDs []int64 `json:"applied_limit_ids,omitempty"`
}

// Evento emitido por el limits-engine cuando un ticket es admitido
// (total o parcialmente). Consumido por el ticket-audit-worker.
type TicketAdmitted struct {
	TicketID string       `json:"ticket_id"`
	BancaID  int64        `json:"banca_id"`
	Lines    []TicketLine `json:"lines"`
	Ts       time.Time    `json:"ts"`
}

// Evento emitido al anular un ticket; los deltas inversos ya fueron aplicados.
type TicketCancelled struct {
	TicketID string    `json:"ticket_id"`
	BancaID  int64     `json:"banca_id"`
	Ts       time.Time `json:"ts"`
}
