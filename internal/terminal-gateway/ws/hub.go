package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lotonet/banca-limits-engine/pkg/contracts/events"
)

// Hub administra las conexiones WebSocket de los terminales y sus
// suscripciones por sorteo. Cada terminal se suscribe a los sorteos
// que tiene abiertos en pantalla y recibe los cambios de límite en
// cuanto ocurren.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// drawID -> conjunto de conexiones suscritas
	subs map[int64]map[*websocket.Conn]struct{}
}

// NewHub crea un Hub con política de origen configurable (CORS).
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[int64]map[*websocket.Conn]struct{}),
	}
}

// HandleWS maneja el ciclo de vida de una conexión de terminal.
// Soporta subscribe/unsubscribe por sorteo y responde a pings.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.DrawID <= 0 {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.DrawID]; !ok {
				h.subs[msg.DrawID] = make(map[*websocket.Conn]struct{})
			}
			h.subs[msg.DrawID][conn] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			if m, ok := h.subs[msg.DrawID]; ok {
				delete(m, conn)
				if len(m) == 0 {
					delete(h.subs, msg.DrawID)
				}
			}
			h.mu.Unlock()
		case "ping":
			_ = conn.WriteJSON(map[string]string{"type": "pong"})
		}
	}
	// Al desconectar, quita la conexión de todas las suscripciones.
	h.mu.Lock()
	for _, set := range h.subs {
		delete(set, conn)
	}
	h.mu.Unlock()
}

// Broadcast envía un cambio de límite a todos los terminales suscritos
// al sorteo correspondiente. Un write fallido no interrumpe el resto;
// la conexión muerta se limpia cuando su read loop termina.
func (h *Hub) Broadcast(upd events.LimitUpdate) {
	// Copia del set bajo el lock: el map interno puede mutar por un
	// subscribe/unsubscribe concurrente mientras se escribe.
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.subs[upd.DrawID]))
	for c := range h.subs[upd.DrawID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	if len(conns) == 0 {
		return
	}

	b, _ := json.Marshal(upd)
	for _, c := range conns {
		_ = c.WriteMessage(websocket.TextMessage, b)
	}
}

// Subscribers devuelve cuántas conexiones están suscritas a un sorteo.
func (h *Hub) Subscribers(drawID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[drawID])
}
