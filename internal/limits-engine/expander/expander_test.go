package expander

import (
	"sort"
	"testing"
)

func sorted(s []string) []string {
	c := append([]string(nil), s...)
	sort.Strings(c)
	return c
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestExpandCombinations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"tres digitos distintos", "123q", []string{"123", "132", "213", "231", "312", "321"}},
		{"sufijo punto", "47.", []string{"47", "74"}},
		{"digitos repetidos colapsan", "112q", []string{"112", "121", "211"}},
		{"todos iguales", "333q", []string{"333"}},
		{"no numerico", "12aq", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(Input{RawInput: tt.in, Generator: GenCombinations})
			if !equal(sorted(got), sorted(tt.want)) {
				t.Errorf("Expand(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestExpandCombinationsDeterministic(t *testing.T) {
	a := Expand(Input{RawInput: "4312q", Generator: GenCombinations})
	b := Expand(Input{RawInput: "4312q", Generator: GenCombinations})
	if !equal(a, b) {
		t.Fatalf("misma entrada produjo ordenes distintos: %v vs %v", a, b)
	}
	if len(a) != 24 {
		t.Fatalf("esperaba 24 permutaciones, hubo %d", len(a))
	}
	seen := map[string]struct{}{}
	for _, p := range a {
		if _, dup := seen[p]; dup {
			t.Fatalf("permutacion duplicada %q", p)
		}
		seen[p] = struct{}{}
		if len(p) != 4 {
			t.Fatalf("permutacion con ancho incorrecto: %q", p)
		}
	}
}

func TestExpandSequencePairs(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		want       []string
	}{
		{"rango normal", "33", "66", []string{"33", "44", "55", "66"}},
		{"un solo par", "55", "55", []string{"55"}},
		{"rango completo", "00", "99", []string{"00", "11", "22", "33", "44", "55", "66", "77", "88", "99"}},
		{"par no repetido", "34", "66", nil},
		{"borde final no repetido", "33", "65", nil},
		{"start mayor que end", "66", "33", nil},
		{"ancho invalido", "333", "666", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(Input{Generator: GenSequencePairs, SequenceStart: tt.start, SequenceEnd: tt.end})
			if !equal(got, tt.want) {
				t.Errorf("sequencePairs(%q,%q) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestExpandSequencePairsFromRaw(t *testing.T) {
	got := Expand(Input{RawInput: "33d66", Generator: GenSequencePairs})
	want := []string{"33", "44", "55", "66"}
	if !equal(got, want) {
		t.Errorf("Expand(33d66) = %v, want %v", got, want)
	}
}

func TestExpandPlus100(t *testing.T) {
	got := Expand(Input{RawInput: "123-10", Generator: GenPlus100})
	want := []string{"123", "223", "323", "423", "523", "623", "723", "823", "923"}
	if !equal(got, want) {
		t.Errorf("Expand(123-10) = %v, want %v", got, want)
	}
	for _, n := range got {
		if n[1:] != "23" {
			t.Errorf("numero %q no conserva las dos ultimas cifras", n)
		}
	}

	if out := Expand(Input{RawInput: "12-10", Generator: GenPlus100}); out != nil {
		t.Errorf("base de 2 cifras deberia producir vacio, produjo %v", out)
	}
}

func TestExpandSequence(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
		wantLen    int
		first      string
		last       string
	}{
		{"rango corto", "345", "348", 4, "345", "348"},
		{"con ceros a la izquierda", "007", "012", 6, "007", "012"},
		{"un solo valor", "500", "500", 1, "500", "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Expand(Input{Generator: GenSequence, SequenceStart: tt.start, SequenceEnd: tt.end})
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d (%v)", len(got), tt.wantLen, got)
			}
			if got[0] != tt.first || got[len(got)-1] != tt.last {
				t.Errorf("bordes = %q..%q, want %q..%q", got[0], got[len(got)-1], tt.first, tt.last)
			}
			for _, n := range got {
				if len(n) != len(tt.start) {
					t.Errorf("valor %q sin relleno al ancho %d", n, len(tt.start))
				}
			}
		})
	}

	invalid := []struct {
		name       string
		start, end string
	}{
		{"start mayor que end", "348", "345"},
		{"anchos distintos", "34", "345"},
		{"no numerico", "3a5", "348"},
		{"rango sobre el tope", "0000", "1000"},
		{"rango completo de 7 cifras", "0000000", "9999999"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expand(Input{Generator: GenSequence, SequenceStart: tt.start, SequenceEnd: tt.end}); got != nil {
				t.Errorf("esperaba vacio, hubo %v", got)
			}
		})
	}
}

// Una sola línea no puede materializar expansiones gigantes: el rango
// más ancho admisible queda en el tope y uno más ya produce vacío.
func TestExpandCardinalidadAcotada(t *testing.T) {
	got := Expand(Input{Generator: GenSequence, SequenceStart: "000", SequenceEnd: "999"})
	if len(got) != 1000 {
		t.Fatalf("rango en el tope: len = %d, want 1000", len(got))
	}

	if out := Expand(Input{Generator: GenSequence, SequenceStart: "00000", SequenceEnd: "99999"}); out != nil {
		t.Fatalf("rango de 100000 valores deberia producir vacio, produjo %d", len(out))
	}

	if out := Expand(Input{RawInput: "1234567q", Generator: GenCombinations}); out != nil {
		t.Fatalf("7 digitos (5040 permutaciones) deberia producir vacio, produjo %d", len(out))
	}
}

func TestExpandNoneStripsModifiers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"45", "45"},
		{"45F", "45"},
		{"123B+", "123"},
		{"4512q", "4512"},
		{"88.", "88"},
		{" 45 ", "45"},
	}
	for _, tt := range tests {
		got := Expand(Input{RawInput: tt.in, Generator: GenNone})
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("Expand(%q) = %v, want [%q]", tt.in, got, tt.want)
		}
	}

	if got := Expand(Input{RawInput: "", Generator: GenNone}); got != nil {
		t.Errorf("entrada vacia deberia producir vacio, produjo %v", got)
	}
}
