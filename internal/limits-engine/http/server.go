package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lotonet/banca-limits-engine/internal/limits-engine/cache"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/coordinator"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/dto"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/expander"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/repo"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/store"
)

// Server expone la API de admisión y las consultas de pre-venta que la
// UI usa para mostrar capacidad restante antes de enviar el ticket.
type Server struct {
	log   *zap.Logger
	coord *coordinator.Coordinator
	st    *store.Store
	cache *cache.Cache   // opcional: camino rápido del set de bloqueados
	repo  *repo.Postgres // opcional: resync de reglas desde el backoffice
}

func NewServer(log *zap.Logger, c *coordinator.Coordinator, st *store.Store, bc *cache.Cache, rp *repo.Postgres) *Server {
	return &Server{log: log, coord: c, st: st, cache: bc, repo: rp}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/tickets", s.submitTicket)
	r.Post("/tickets/{id}/cancel", s.cancelTicket)
	r.Get("/v1/draws/{drawID}/blocked-numbers", s.getBlockedNumbers)
	r.Get("/v1/draws/{drawID}/numbers/{number}/limits", s.getLimitsForNumber)
	r.Post("/v1/limits/{limitID}/resync", s.resyncLimit)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var validGenerators = map[string]expander.Generator{
	"":               expander.GenNone,
	"none":           expander.GenNone,
	"combinations":   expander.GenCombinations,
	"sequence_pairs": expander.GenSequencePairs,
	"plus_100":       expander.GenPlus100,
	"sequence":       expander.GenSequence,
}

func (s *Server) submitTicket(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.BancaID <= 0 || len(req.DrawSelections) == 0 {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	treq := coordinator.TicketRequest{
		Banca: store.BancaContext{
			BancaID:         req.BancaID,
			ZoneID:          req.ZoneID,
			GroupID:         req.GroupID,
			ExternalGroupID: req.ExternalGroupID,
		},
	}
	for _, sel := range req.DrawSelections {
		if sel.DrawID <= 0 || len(sel.Lines) == 0 {
			http.Error(w, "invalid draw selection", http.StatusBadRequest)
			return
		}
		cs := coordinator.DrawSelection{DrawID: sel.DrawID}
		for _, ln := range sel.Lines {
			gen, ok := validGenerators[ln.Generator]
			if !ok || ln.AmountCents <= 0 || !store.KnownBetType(ln.BetType) {
				http.Error(w, "invalid line", http.StatusBadRequest)
				return
			}
			cs.Lines = append(cs.Lines, coordinator.LineInput{
				RawInput:      ln.RawInput,
				Generator:     gen,
				SequenceStart: ln.SequenceStart,
				SequenceEnd:   ln.SequenceEnd,
				AmountCents:   ln.AmountCents,
				BetType:       ln.BetType,
			})
		}
		treq.DrawSelections = append(treq.DrawSelections, cs)
	}

	res, err := s.coord.SubmitTicket(r.Context(), treq)
	if err != nil {
		// falla de consistencia o timeout: fatal solo para este ticket
		s.log.Error("ticket submission failed", zap.Error(err))
		http.Error(w, "submission failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, dto.SubmitTicketResponse{
		TicketID: res.TicketID,
		Status:   res.Status,
		Lines:    res.Lines,
	})
}

func (s *Server) cancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	if ticketID == "" {
		http.Error(w, "ticketId required", http.StatusBadRequest)
		return
	}

	var req dto.CancelTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if len(req.Lines) == 0 {
		http.Error(w, "no lines to cancel", http.StatusBadRequest)
		return
	}

	creq := coordinator.CancelRequest{
		TicketID: ticketID,
		Banca:    store.BancaContext{BancaID: req.BancaID},
	}
	for _, ln := range req.Lines {
		creq.Lines = append(creq.Lines, coordinator.CancelLine{
			Number:          ln.Number,
			BetType:         ln.BetType,
			DrawID:          ln.DrawID,
			AdmittedCents:   ln.AdmittedCents,
			AppliedLimitIDs: ln.AppliedLimitIDs,
		})
	}
	s.coord.CancelTicket(r.Context(), creq)

	writeJSON(w, http.StatusOK, map[string]string{"ticket_id": ticketID, "status": "CANCELLED"})
}

func (s *Server) getBlockedNumbers(w http.ResponseWriter, r *http.Request) {
	drawID, err := strconv.ParseInt(chi.URLParam(r, "drawID"), 10, 64)
	if err != nil || drawID <= 0 {
		http.Error(w, "invalid drawId", http.StatusBadRequest)
		return
	}

	// Con membresía el set se filtra por scope y no pasa por el cache:
	// la vista de una banca no puede servirse a otra.
	bctx := store.BancaContext{
		BancaID:         queryInt64(r, "bancaId"),
		ZoneID:          queryInt64(r, "zoneId"),
		GroupID:         queryInt64(r, "groupId"),
		ExternalGroupID: queryInt64(r, "externalGroupId"),
	}
	if bctx != (store.BancaContext{}) {
		numbers := s.st.BlockedNumbersFor(drawID, bctx)
		writeJSON(w, http.StatusOK, dto.BlockedNumbersResponse{DrawID: drawID, Numbers: numbers})
		return
	}

	if s.cache != nil {
		if numbers, ok, _ := s.cache.GetBlocked(r.Context(), drawID); ok {
			writeJSON(w, http.StatusOK, dto.BlockedNumbersResponse{DrawID: drawID, Numbers: numbers})
			return
		}
	}

	numbers := s.st.RefreshBlockedSet(drawID)
	if s.cache != nil {
		_ = s.cache.SetBlocked(r.Context(), drawID, numbers, 5*time.Second)
	}
	writeJSON(w, http.StatusOK, dto.BlockedNumbersResponse{DrawID: drawID, Numbers: numbers})
}

func (s *Server) getLimitsForNumber(w http.ResponseWriter, r *http.Request) {
	drawID, err := strconv.ParseInt(chi.URLParam(r, "drawID"), 10, 64)
	if err != nil || drawID <= 0 {
		http.Error(w, "invalid drawId", http.StatusBadRequest)
		return
	}
	number := chi.URLParam(r, "number")
	betType := r.URL.Query().Get("betType")

	bctx := store.BancaContext{
		BancaID:         queryInt64(r, "bancaId"),
		ZoneID:          queryInt64(r, "zoneId"),
		GroupID:         queryInt64(r, "groupId"),
		ExternalGroupID: queryInt64(r, "externalGroupId"),
	}

	limits := s.st.Get(drawID, number, betType, bctx)
	views := make([]dto.LimitView, 0, len(limits))
	for _, l := range limits {
		views = append(views, dto.LimitView{
			LimitID:   l.LimitID,
			Type:      l.Type.String(),
			Amount:    l.Amount,
			Remaining: l.Remaining,
			IsBlocked: l.IsBlocked,
			Number:    l.Number,
			BetType:   l.BetType,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

// resyncLimit relee una regla desde Postgres y la reemplaza en el
// store. El backoffice lo invoca tras editar o activar un límite.
func (s *Server) resyncLimit(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		http.Error(w, "resync not available", http.StatusNotImplemented)
		return
	}
	limitID, err := strconv.ParseInt(chi.URLParam(r, "limitID"), 10, 64)
	if err != nil || limitID <= 0 {
		http.Error(w, "invalid limitId", http.StatusBadRequest)
		return
	}

	l, err := s.repo.LoadLimit(r.Context(), limitID, time.Now())
	if err != nil {
		s.log.Warn("limit resync failed", zap.Int64("limitId", limitID), zap.Error(err))
		http.Error(w, "limit not found", http.StatusNotFound)
		return
	}
	s.st.Upsert(l)
	if cur, ok := s.st.Snapshot(l.LimitID); ok {
		l = cur // valores ya normalizados por el store
	}

	writeJSON(w, http.StatusOK, dto.LimitView{
		LimitID:   l.LimitID,
		Type:      l.Type.String(),
		Amount:    l.Amount,
		Remaining: l.Remaining,
		IsBlocked: l.IsBlocked,
		Number:    l.Number,
		BetType:   l.BetType,
	})
}

func queryInt64(r *http.Request, key string) int64 {
	v, _ := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v
}
