package store

import (
	"errors"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"time"
)

var (
	ErrLimitNotFound      = errors.New("limit not found")
	ErrInvariantViolation = errors.New("limit invariant violation")
)

const keyShards = 64

// Store es la representación autoritativa en memoria de los límites
// activos. Ciclo de vida explícito: se construye en el main, se puebla
// con Load desde la configuración persistida y muere con el proceso.
//
// Disciplina de concurrencia: las mutaciones de una misma clave
// (drawId, number) se serializan con un lock sharded por clave; cada
// registro tiene además su propio mutex para que un límite general
// compartido entre números nunca quede por debajo de cero.
type Store struct {
	mu     sync.RWMutex
	byID   map[int64]*entry
	byDraw map[int64][]*entry

	keyLocks [keyShards]sync.Mutex

	now func() time.Time

	// OnChange se invoca con el estado posterior a cada delta aplicado.
	// Usado para invalidar el set de bloqueados; debe ser rápido.
	OnChange func(Limit)
}

type entry struct {
	mu sync.Mutex
	l  Limit
}

func New() *Store {
	return &Store{
		byID:   make(map[int64]*entry),
		byDraw: make(map[int64][]*entry),
		now:    time.Now,
	}
}

// Load puebla el store desde la configuración persistida. Reemplaza
// cualquier contenido previo; pensado para arranque y resync.
func (s *Store) Load(limits []Limit) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[int64]*entry, len(limits))
	s.byDraw = make(map[int64][]*entry)
	for _, l := range limits {
		l.normalize()
		e := &entry{l: l}
		s.byID[l.LimitID] = e
		s.byDraw[l.DrawID] = append(s.byDraw[l.DrawID], e)
	}
}

// Upsert inserta o reemplaza un límite individual (resync de una regla
// editada en el backoffice). El remaining entrante manda.
func (s *Store) Upsert(l Limit) {
	l.normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byID[l.LimitID]; ok {
		e.mu.Lock()
		old := e.l.DrawID
		e.l = l
		e.mu.Unlock()
		if old != l.DrawID {
			s.removeFromDraw(old, e)
			s.byDraw[l.DrawID] = append(s.byDraw[l.DrawID], e)
		}
		return
	}
	e := &entry{l: l}
	s.byID[l.LimitID] = e
	s.byDraw[l.DrawID] = append(s.byDraw[l.DrawID], e)
}

func (s *Store) removeFromDraw(drawID int64, e *entry) {
	list := s.byDraw[drawID]
	for i, x := range list {
		if x == e {
			s.byDraw[drawID] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

// Get retorna una copia de cada límite aplicable a (draw, número, tipo)
// para la membresía dada, ordenados del más restrictivo al menos
// (por número antes que general). Nunca muta estado.
func (s *Store) Get(drawID int64, number, betType string, bctx BancaContext) []Limit {
	day := s.now().Weekday()

	s.mu.RLock()
	candidates := s.byDraw[drawID]
	s.mu.RUnlock()

	var out []Limit
	for _, e := range candidates {
		e.mu.Lock()
		if e.l.appliesTo(number, betType, bctx, day) {
			out = append(out, e.l)
		}
		e.mu.Unlock()
	}

	sort.SliceStable(out, func(i, j int) bool {
		bi, bj := out[i].Number != "", out[j].Number != ""
		if bi != bj {
			return bi // por número primero
		}
		return restrictiveness[out[i].Type] < restrictiveness[out[j].Type]
	})
	return out
}

// ApplyDelta ajusta atómicamente el remaining de un límite y retorna el
// estado posterior. Incrementos (anulaciones) se recortan al techo;
// un decremento mayor que el remaining es un bug del caller (debió
// pre-chequear vía resolver) y retorna ErrInvariantViolation sin mutar.
func (s *Store) ApplyDelta(limitID, delta int64) (Limit, error) {
	s.mu.RLock()
	e, ok := s.byID[limitID]
	s.mu.RUnlock()
	if !ok {
		return Limit{}, ErrLimitNotFound
	}

	e.mu.Lock()
	next := e.l.Remaining + delta
	if next < 0 {
		e.mu.Unlock()
		return Limit{}, ErrInvariantViolation
	}
	if next > e.l.Amount {
		next = e.l.Amount // recorte en anulación
	}
	e.l.Remaining = next
	e.l.IsBlocked = next == 0
	after := e.l
	e.mu.Unlock()

	if s.OnChange != nil {
		s.OnChange(after)
	}
	return after, nil
}

// Snapshot retorna una copia del límite, si existe.
func (s *Store) Snapshot(limitID int64) (Limit, bool) {
	s.mu.RLock()
	e, ok := s.byID[limitID]
	s.mu.RUnlock()
	if !ok {
		return Limit{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.l, true
}

// LockKey serializa la sección crítica de admisión para la clave
// (drawId, number). Retorna el unlock; claves distintas caen en shards
// distintos y no se bloquean entre sí.
func (s *Store) LockKey(drawID int64, number string) func() {
	mu := &s.keyLocks[keyShard(drawID, number)]
	mu.Lock()
	return mu.Unlock
}

func keyShard(drawID int64, number string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(drawID, 10)))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(number))
	return int(h.Sum32() % keyShards)
}

// RefreshBlockedSet recalcula el set de números bloqueados del sorteo
// recorriendo los límites por número con remaining agotado. Un límite
// general agotado no es enumerable como números y se atrapa en el
// resolver al momento de la jugada.
func (s *Store) RefreshBlockedSet(drawID int64) []string {
	s.mu.RLock()
	candidates := s.byDraw[drawID]
	s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, e := range candidates {
		e.mu.Lock()
		if e.l.Number != "" && e.l.Remaining == 0 {
			if _, ok := seen[e.l.Number]; !ok {
				seen[e.l.Number] = struct{}{}
				out = append(out, e.l.Number)
			}
		}
		e.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

// BlockedNumbersFor es la variante con membresía: solo enumera los
// límites por número agotados que alcanzan a esa banca, así una línea
// agotada de la banca A no aparece bloqueada para la banca B.
func (s *Store) BlockedNumbersFor(drawID int64, bctx BancaContext) []string {
	day := s.now().Weekday()

	s.mu.RLock()
	candidates := s.byDraw[drawID]
	s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []string
	for _, e := range candidates {
		e.mu.Lock()
		if e.l.Number != "" && e.l.Remaining == 0 &&
			e.l.appliesTo(e.l.Number, e.l.BetType, bctx, day) {
			if _, ok := seen[e.l.Number]; !ok {
				seen[e.l.Number] = struct{}{}
				out = append(out, e.l.Number)
			}
		}
		e.mu.Unlock()
	}
	sort.Strings(out)
	return out
}

// normalize fuerza los invariantes del registro al entrar al store.
func (l *Limit) normalize() {
	if l.Amount < 0 {
		l.Amount = 0
	}
	if l.Remaining < 0 {
		l.Remaining = 0
	}
	if l.Remaining > l.Amount {
		l.Remaining = l.Amount
	}
	l.IsBlocked = l.Remaining == 0
}
