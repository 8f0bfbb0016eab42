package store

// Catálogo de tipos de jugada que el backoffice reconoce. Un límite con
// BetType vacío aplica a todos.
const (
	BetDirecto       = "directo"
	BetPale          = "pale"
	BetTripleta      = "tripleta"
	BetCash3Straight = "cash3_straight"
	BetCash3Box      = "cash3_box"
	BetPlay4Straight = "play4_straight"
	BetPlay4Box      = "play4_box"
	BetSuperPale     = "super_pale"
	BetPickTwo       = "pick_two"
)

var knownBetTypes = map[string]struct{}{
	BetDirecto:       {},
	BetPale:          {},
	BetTripleta:      {},
	BetCash3Straight: {},
	BetCash3Box:      {},
	BetPlay4Straight: {},
	BetPlay4Box:      {},
	BetSuperPale:     {},
	BetPickTwo:       {},
}

// KnownBetType reporta si el tipo de jugada existe en el catálogo.
func KnownBetType(betType string) bool {
	_, ok := knownBetTypes[betType]
	return ok
}
