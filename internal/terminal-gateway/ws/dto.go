package ws

// ClientMsg es un mensaje recibido del terminal por WebSocket.
// Type: subscribe | unsubscribe | ping
// DrawID: requerido en subscribe/unsubscribe
type ClientMsg struct {
	Type   string `json:"type"`    // subscribe | unsubscribe | ping
	DrawID int64  `json:"draw_id"` // requerido en subscribe/unsubscribe
}
