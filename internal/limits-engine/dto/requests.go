package dto

// SubmitTicketRequest es el payload del terminal: una banca, uno o más
// sorteos y las jugadas en notación corta por sorteo.
type SubmitTicketRequest struct {
	BancaID         int64           `json:"banca_id"`
	ZoneID          int64           `json:"zone_id,omitempty"`
	GroupID         int64           `json:"group_id,omitempty"`
	ExternalGroupID int64           `json:"external_group_id,omitempty"`
	DrawSelections  []DrawSelection `json:"draw_selections"`
}

type DrawSelection struct {
	DrawID int64       `json:"draw_id"`
	Lines  []LineInput `json:"lines"`
}

type LineInput struct {
	RawInput      string `json:"raw_input"`
	Generator     string `json:"generator"` // none|combinations|sequence_pairs|plus_100|sequence
	SequenceStart string `json:"sequence_start,omitempty"`
	SequenceEnd   string `json:"sequence_end,omitempty"`
	AmountCents   int64  `json:"amount_cents"`
	BetType       string `json:"bet_type"`
}

// CancelTicketRequest anula un ticket previamente admitido.
type CancelTicketRequest struct {
	BancaID int64        `json:"banca_id"`
	Lines   []CancelLine `json:"lines"`
}

type CancelLine struct {
	Number          string  `json:"number"`
	BetType         string  `json:"bet_type"`
	DrawID          int64   `json:"draw_id"`
	AdmittedCents   int64   `json:"admitted_cents"`
	AppliedLimitIDs []int64 `json:"applied_limit_ids"`
}
