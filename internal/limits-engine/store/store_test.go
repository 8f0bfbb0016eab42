package store

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func newTestStore(limits ...Limit) *Store {
	s := New()
	s.Load(limits)
	// miércoles fijo para que los bitmask de día sean deterministas
	s.now = func() time.Time { return time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC) }
	return s
}

func TestApplyDeltaTransitions(t *testing.T) {
	s := newTestStore(Limit{
		LimitID: 1, Type: ByNumberForBettingPool, Amount: 100, Remaining: 100,
		DrawID: 7, BancaID: 3, Number: "45",
	})

	after, err := s.ApplyDelta(1, -60)
	if err != nil {
		t.Fatalf("delta -60: %v", err)
	}
	if after.Remaining != 40 || after.IsBlocked {
		t.Fatalf("tras -60: remaining=%d blocked=%v", after.Remaining, after.IsBlocked)
	}

	after, err = s.ApplyDelta(1, -40)
	if err != nil {
		t.Fatalf("delta -40: %v", err)
	}
	if after.Remaining != 0 || !after.IsBlocked {
		t.Fatalf("al agotar: remaining=%d blocked=%v", after.Remaining, after.IsBlocked)
	}

	// la anulación desbloquea
	after, err = s.ApplyDelta(1, 40)
	if err != nil {
		t.Fatalf("delta +40: %v", err)
	}
	if after.Remaining != 40 || after.IsBlocked {
		t.Fatalf("tras anular: remaining=%d blocked=%v", after.Remaining, after.IsBlocked)
	}
}

func TestApplyDeltaErrors(t *testing.T) {
	s := newTestStore(Limit{LimitID: 1, Type: Absolute, Amount: 50, Remaining: 50, DrawID: 1})

	if _, err := s.ApplyDelta(99, -1); !errors.Is(err, ErrLimitNotFound) {
		t.Errorf("limitId desconocido: err = %v", err)
	}

	if _, err := s.ApplyDelta(1, -51); !errors.Is(err, ErrInvariantViolation) {
		t.Errorf("decremento mayor que remaining: err = %v", err)
	}
	if lim, _ := s.Snapshot(1); lim.Remaining != 50 {
		t.Errorf("un delta rechazado no debe mutar: remaining=%d", lim.Remaining)
	}

	// incremento por encima del techo se recorta, no falla
	if after, err := s.ApplyDelta(1, 30); err != nil || after.Remaining != 50 {
		t.Errorf("incremento recortado: remaining=%d err=%v", after.Remaining, err)
	}
}

// Propiedad: bajo cualquier secuencia de deltas aleatorios el remaining
// queda siempre dentro de [0, amount].
func TestApplyDeltaInvariantRandomSequence(t *testing.T) {
	const amount = 1000
	s := newTestStore(Limit{LimitID: 1, Type: Absolute, Amount: amount, Remaining: amount, DrawID: 1})

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5000; i++ {
		delta := rng.Int63n(2*amount) - amount
		after, err := s.ApplyDelta(1, delta)
		if err != nil {
			if !errors.Is(err, ErrInvariantViolation) {
				t.Fatalf("iteracion %d: error inesperado %v", i, err)
			}
			continue
		}
		if after.Remaining < 0 || after.Remaining > amount {
			t.Fatalf("iteracion %d: remaining %d fuera de [0,%d]", i, after.Remaining, amount)
		}
		if (after.Remaining == 0) != after.IsBlocked {
			t.Fatalf("iteracion %d: isBlocked inconsistente (remaining=%d)", i, after.Remaining)
		}
	}
}

func TestGetFiltersScopeMembership(t *testing.T) {
	s := newTestStore(
		Limit{LimitID: 1, Type: Absolute, Amount: 900, Remaining: 900, DrawID: 7},
		Limit{LimitID: 2, Type: GeneralForBettingPool, Amount: 500, Remaining: 500, DrawID: 7, BancaID: 3},
		Limit{LimitID: 3, Type: ByNumberForBettingPool, Amount: 100, Remaining: 100, DrawID: 7, BancaID: 3, Number: "45"},
		Limit{LimitID: 4, Type: GeneralForBettingPool, Amount: 500, Remaining: 500, DrawID: 7, BancaID: 8},
		Limit{LimitID: 5, Type: GeneralForZone, Amount: 700, Remaining: 700, DrawID: 7, ZoneID: 2},
		Limit{LimitID: 6, Type: ByNumberForBettingPool, Amount: 100, Remaining: 100, DrawID: 7, BancaID: 3, Number: "88"},
		Limit{LimitID: 7, Type: Absolute, Amount: 900, Remaining: 900, DrawID: 9},
	)

	bctx := BancaContext{BancaID: 3, ZoneID: 2}
	got := s.Get(7, "45", "directo", bctx)

	ids := make(map[int64]bool)
	for _, l := range got {
		ids[l.LimitID] = true
	}
	for _, want := range []int64{1, 2, 3, 5} {
		if !ids[want] {
			t.Errorf("falta limite %d en %v", want, ids)
		}
	}
	for _, not := range []int64{4, 6, 7} {
		if ids[not] {
			t.Errorf("limite %d no aplica y fue retornado", not)
		}
	}

	// por número se consulta primero
	if len(got) == 0 || got[0].LimitID != 3 {
		t.Errorf("el limite por numero debe ir primero, orden: %v", got)
	}
}

func TestGetFiltersBetTypeAndDay(t *testing.T) {
	s := newTestStore(
		Limit{LimitID: 1, Type: Absolute, Amount: 100, Remaining: 100, DrawID: 7, BetType: "pale"},
		Limit{LimitID: 2, Type: Absolute, Amount: 100, Remaining: 100, DrawID: 7, DaysOfWeek: 32}, // solo sábado
		Limit{LimitID: 3, Type: Absolute, Amount: 100, Remaining: 100, DrawID: 7, DaysOfWeek: 4}, // miércoles
	)

	got := s.Get(7, "45", "directo", BancaContext{BancaID: 1})
	if len(got) != 1 || got[0].LimitID != 3 {
		t.Fatalf("esperaba solo el limite 3 (miercoles), hubo %v", got)
	}
}

func TestRefreshBlockedSet(t *testing.T) {
	s := newTestStore(
		Limit{LimitID: 1, Type: ByNumberForBettingPool, Amount: 100, Remaining: 0, DrawID: 7, BancaID: 3, Number: "45"},
		Limit{LimitID: 2, Type: ByNumberForZone, Amount: 100, Remaining: 0, DrawID: 7, ZoneID: 2, Number: "88"},
		Limit{LimitID: 3, Type: ByNumberForBettingPool, Amount: 100, Remaining: 20, DrawID: 7, BancaID: 3, Number: "12"},
		Limit{LimitID: 4, Type: GeneralForBettingPool, Amount: 100, Remaining: 0, DrawID: 7, BancaID: 3},
		Limit{LimitID: 5, Type: ByNumberForBettingPool, Amount: 100, Remaining: 0, DrawID: 9, BancaID: 3, Number: "99"},
	)

	got := s.RefreshBlockedSet(7)
	want := []string{"45", "88"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("RefreshBlockedSet(7) = %v, want %v", got, want)
	}
}

func TestBlockedNumbersForFiltraMembresia(t *testing.T) {
	s := newTestStore(
		Limit{LimitID: 1, Type: ByNumberForBettingPool, Amount: 100, Remaining: 0, DrawID: 7, BancaID: 3, Number: "45"},
		Limit{LimitID: 2, Type: ByNumberForBettingPool, Amount: 100, Remaining: 0, DrawID: 7, BancaID: 8, Number: "88"},
		Limit{LimitID: 3, Type: ByNumberForZone, Amount: 100, Remaining: 0, DrawID: 7, ZoneID: 2, Number: "21"},
		Limit{LimitID: 4, Type: Absolute, Amount: 100, Remaining: 0, DrawID: 7, Number: "77"},
	)

	// La banca 3 (zona 2) ve su línea, la de su zona y la absoluta;
	// la línea agotada de la banca 8 no le bloquea nada.
	got := s.BlockedNumbersFor(7, BancaContext{BancaID: 3, ZoneID: 2})
	want := []string{"21", "45", "77"}
	if len(got) != len(want) {
		t.Fatalf("BlockedNumbersFor(banca 3) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("BlockedNumbersFor(banca 3) = %v, want %v", got, want)
		}
	}

	// La banca 8 (sin zona) solo ve su línea y la absoluta.
	got = s.BlockedNumbersFor(7, BancaContext{BancaID: 8})
	if len(got) != 2 || got[0] != "77" || got[1] != "88" {
		t.Fatalf("BlockedNumbersFor(banca 8) = %v, want [77 88]", got)
	}
}

func TestUpsertReplacesRule(t *testing.T) {
	s := newTestStore(Limit{LimitID: 1, Type: Absolute, Amount: 100, Remaining: 40, DrawID: 7})

	s.Upsert(Limit{LimitID: 1, Type: Absolute, Amount: 200, Remaining: 200, DrawID: 7})
	if lim, ok := s.Snapshot(1); !ok || lim.Amount != 200 || lim.Remaining != 200 {
		t.Fatalf("upsert no reemplazo la regla: %+v", lim)
	}

	s.Upsert(Limit{LimitID: 2, Type: Absolute, Amount: 50, Remaining: 80, DrawID: 7})
	if lim, _ := s.Snapshot(2); lim.Remaining != 50 {
		t.Fatalf("normalize debe recortar remaining al techo: %+v", lim)
	}
}
