package store

import "time"

// LimitType discrimina los diez alcances de límite. Los valores numéricos
// coinciden con los del backoffice administrativo que crea las reglas.
type LimitType int

const (
	GeneralForGroup          LimitType = 1
	ByNumberForGroup         LimitType = 2
	GeneralForBettingPool    LimitType = 3
	ByNumberForBettingPool   LimitType = 4 // "línea"
	LocalForBettingPool      LimitType = 5
	GeneralForZone           LimitType = 6
	ByNumberForZone          LimitType = 7
	GeneralForExternalGroup  LimitType = 8
	ByNumberForExternalGroup LimitType = 9
	Absolute                 LimitType = 10
)

var limitTypeNames = map[LimitType]string{
	GeneralForGroup:          "general_grupo",
	ByNumberForGroup:         "por_numero_grupo",
	GeneralForBettingPool:    "general_banca",
	ByNumberForBettingPool:   "por_numero_banca",
	LocalForBettingPool:      "local_banca",
	GeneralForZone:           "general_zona",
	ByNumberForZone:          "por_numero_zona",
	GeneralForExternalGroup:  "general_grupo_externo",
	ByNumberForExternalGroup: "por_numero_grupo_externo",
	Absolute:                 "absoluto",
}

func (t LimitType) String() string {
	if n, ok := limitTypeNames[t]; ok {
		return n
	}
	return "desconocido"
}

// restrictiveness ordena los tipos de más a menos restrictivo para la
// consulta. El descuento es uniforme, así que el orden solo determina
// qué scope se reporta como vinculante ante empate de remaining.
var restrictiveness = map[LimitType]int{
	Absolute:                 0,
	GeneralForGroup:          1,
	ByNumberForGroup:         2,
	GeneralForBettingPool:    3,
	ByNumberForBettingPool:   4,
	LocalForBettingPool:      5,
	GeneralForZone:           6,
	ByNumberForZone:          7,
	GeneralForExternalGroup:  8,
	ByNumberForExternalGroup: 9,
}

// Limit es un registro de límite en memoria. Montos en centavos.
// Number vacío = límite general del scope (aplica a todos los números);
// Number fijado = límite "por número", consultado primero y vinculante
// para ese número. DaysOfWeek es un bitmask lunes=1..domingo=64; 0 = todos.
type Limit struct {
	LimitID   int64
	Type      LimitType
	Amount    int64 // techo, >= 0
	Remaining int64 // 0 <= Remaining <= Amount
	IsBlocked bool  // Remaining == 0 => true

	DrawID          int64
	BancaID         int64
	ZoneID          int64
	GroupID         int64
	ExternalGroupID int64
	BetType         string // "" = todos los tipos de jugada
	Number          string
	DaysOfWeek      int
}

// BancaContext es la membresía organizacional de la banca vendedora;
// filtra qué scopes de límite le aplican.
type BancaContext struct {
	BancaID         int64
	ZoneID          int64
	GroupID         int64
	ExternalGroupID int64
}

func (l *Limit) isByNumber() bool {
	switch l.Type {
	case ByNumberForGroup, ByNumberForBettingPool, ByNumberForZone, ByNumberForExternalGroup:
		return true
	}
	return false
}

// appliesTo decide si el límite alcanza a la jugada (número, tipo,
// membresía y día de la semana).
func (l *Limit) appliesTo(number, betType string, bctx BancaContext, day time.Weekday) bool {
	if l.BetType != "" && l.BetType != betType {
		return false
	}
	if l.Number != "" && l.Number != number {
		return false
	}
	if l.isByNumber() && l.Number == "" {
		return false // regla por número sin número: mal configurada
	}
	if l.DaysOfWeek != 0 && l.DaysOfWeek&weekdayBit(day) == 0 {
		return false
	}

	switch l.Type {
	case Absolute:
		return true
	case GeneralForGroup, ByNumberForGroup:
		return bctx.GroupID != 0 && l.GroupID == bctx.GroupID
	case GeneralForBettingPool, ByNumberForBettingPool, LocalForBettingPool:
		return bctx.BancaID != 0 && l.BancaID == bctx.BancaID
	case GeneralForZone, ByNumberForZone:
		return bctx.ZoneID != 0 && l.ZoneID == bctx.ZoneID
	case GeneralForExternalGroup, ByNumberForExternalGroup:
		return bctx.ExternalGroupID != 0 && l.ExternalGroupID == bctx.ExternalGroupID
	}
	return false
}

// weekdayBit traduce time.Weekday al bitmask del backoffice (lunes=1).
func weekdayBit(d time.Weekday) int {
	switch d {
	case time.Monday:
		return 1
	case time.Tuesday:
		return 2
	case time.Wednesday:
		return 4
	case time.Thursday:
		return 8
	case time.Friday:
		return 16
	case time.Saturday:
		return 32
	default: // domingo
		return 64
	}
}
