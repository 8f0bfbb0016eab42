package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/lotonet/banca-limits-engine/internal/limits-engine/coordinator"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/dto"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/resolver"
	"github.com/lotonet/banca-limits-engine/internal/limits-engine/store"
)

func newTestServer(t *testing.T, limits []store.Limit) (*Server, *store.Store) {
	t.Helper()
	st := store.New()
	st.Load(limits)
	res := &resolver.Resolver{Store: st, Log: zap.NewNop(), AllowPartial: true}
	coord := &coordinator.Coordinator{
		Resolver: res,
		Log:      zap.NewNop(),
		Mode:     coordinator.ModeBestEffort,
	}
	return NewServer(zap.NewNop(), coord, st, nil, nil), st
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitTicketValidation(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	h := srv.Router()

	cases := []struct {
		name string
		body dto.SubmitTicketRequest
	}{
		{"sin banca", dto.SubmitTicketRequest{
			DrawSelections: []dto.DrawSelection{{DrawID: 1, Lines: []dto.LineInput{{RawInput: "45", AmountCents: 100, BetType: "directo"}}}},
		}},
		{"sin sorteos", dto.SubmitTicketRequest{BancaID: 1}},
		{"monto cero", dto.SubmitTicketRequest{
			BancaID:        1,
			DrawSelections: []dto.DrawSelection{{DrawID: 1, Lines: []dto.LineInput{{RawInput: "45", AmountCents: 0, BetType: "directo"}}}},
		}},
		{"generador desconocido", dto.SubmitTicketRequest{
			BancaID:        1,
			DrawSelections: []dto.DrawSelection{{DrawID: 1, Lines: []dto.LineInput{{RawInput: "45", Generator: "fibonacci", AmountCents: 100, BetType: "directo"}}}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if rec := postJSON(t, h, "/tickets", tc.body); rec.Code != http.StatusBadRequest {
				t.Fatalf("esperaba 400, recibió %d", rec.Code)
			}
		})
	}
}

func TestSubmitTicketAdmitsAndDecrements(t *testing.T) {
	srv, st := newTestServer(t, []store.Limit{
		{LimitID: 1, Type: store.Absolute, DrawID: 9, Number: "45", Amount: 10000, Remaining: 10000},
	})
	h := srv.Router()

	rec := postJSON(t, h, "/tickets", dto.SubmitTicketRequest{
		BancaID: 7,
		DrawSelections: []dto.DrawSelection{{
			DrawID: 9,
			Lines:  []dto.LineInput{{RawInput: "45", AmountCents: 6000, BetType: "directo"}},
		}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("esperaba 200, recibió %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.SubmitTicketResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ADMITTED" || resp.TicketID == "" {
		t.Fatalf("respuesta inesperada: %+v", resp)
	}
	if len(resp.Lines) != 1 || resp.Lines[0].AdmittedCents != 6000 {
		t.Fatalf("líneas inesperadas: %+v", resp.Lines)
	}

	l, _ := st.Snapshot(1)
	if l.Remaining != 4000 {
		t.Fatalf("remaining esperado 4000, quedó %d", l.Remaining)
	}
}

func TestGetBlockedNumbers(t *testing.T) {
	srv, _ := newTestServer(t, []store.Limit{
		{LimitID: 1, Type: store.Absolute, DrawID: 3, Number: "88", Amount: 500, Remaining: 0},
		{LimitID: 2, Type: store.Absolute, DrawID: 3, Number: "12", Amount: 500, Remaining: 100},
	})
	h := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/draws/3/blocked-numbers", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("esperaba 200, recibió %d", rec.Code)
	}

	var resp dto.BlockedNumbersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.DrawID != 3 || len(resp.Numbers) != 1 || resp.Numbers[0] != "88" {
		t.Fatalf("bloqueados inesperados: %+v", resp)
	}
}

func TestGetBlockedNumbersConMembresia(t *testing.T) {
	srv, _ := newTestServer(t, []store.Limit{
		{LimitID: 1, Type: store.ByNumberForBettingPool, DrawID: 3, BancaID: 5, Number: "45", Amount: 500, Remaining: 0},
		{LimitID: 2, Type: store.ByNumberForBettingPool, DrawID: 3, BancaID: 9, Number: "88", Amount: 500, Remaining: 0},
		{LimitID: 3, Type: store.Absolute, DrawID: 3, Number: "12", Amount: 500, Remaining: 0},
	})
	h := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/draws/3/blocked-numbers?bancaId=5", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("esperaba 200, recibió %d", rec.Code)
	}

	var resp dto.BlockedNumbersResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// La línea agotada de la banca 9 no aparece para la banca 5.
	if len(resp.Numbers) != 2 || resp.Numbers[0] != "12" || resp.Numbers[1] != "45" {
		t.Fatalf("bloqueados para banca 5 = %v, want [12 45]", resp.Numbers)
	}
}

func TestGetLimitsForNumber(t *testing.T) {
	srv, _ := newTestServer(t, []store.Limit{
		{LimitID: 1, Type: store.Absolute, DrawID: 3, Number: "45", Amount: 2000, Remaining: 1500},
		{LimitID: 2, Type: store.GeneralForBettingPool, DrawID: 3, BancaID: 7, Amount: 9000, Remaining: 9000},
		{LimitID: 3, Type: store.Absolute, DrawID: 3, Number: "99", Amount: 2000, Remaining: 2000},
	})
	h := srv.Router()

	req := httptest.NewRequest(http.MethodGet, "/v1/draws/3/numbers/45/limits?bancaId=7", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("esperaba 200, recibió %d", rec.Code)
	}

	var views []dto.LimitView
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("esperaba 2 límites aplicables, recibió %d: %+v", len(views), views)
	}
	if views[0].Number != "45" {
		t.Fatalf("el límite por número va primero: %+v", views)
	}
}
