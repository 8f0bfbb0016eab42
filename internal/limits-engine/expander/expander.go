package expander

import (
	"strconv"
	"strings"
)

// Generator identifica la notación corta usada por el terminal para
// expandir una entrada en varios números concretos.
type Generator string

const (
	GenNone          Generator = "none"
	GenCombinations  Generator = "combinations"   // sufijo "q" o "."
	GenSequencePairs Generator = "sequence_pairs" // ej: "33d66"
	GenPlus100       Generator = "plus_100"       // ej: "123-10"
	GenSequence      Generator = "sequence"       // ej: "345+348"
)

// Input es una entrada de jugada tal como la detecta el terminal:
// el texto crudo más el generador y, si aplica, los bordes de secuencia.
type Input struct {
	RawInput      string
	Generator     Generator
	SequenceStart string
	SequenceEnd   string
}

// maxMembers acota la cardinalidad de cualquier expansión. Las
// notaciones reales producen decenas de números; un rango que supera
// el tope se trata como error de digitación, igual que una entrada
// malformada.
const maxMembers = 1000

// Expand retorna los números concretos que produce la entrada.
// Entradas malformadas producen un slice vacío, nunca error: el caller
// las reporta como error de digitación corregible por el usuario.
func Expand(in Input) []string {
	switch in.Generator {
	case GenCombinations:
		return combinations(clean(in.RawInput))
	case GenSequencePairs:
		start, end := in.SequenceStart, in.SequenceEnd
		if start == "" && end == "" {
			start, end = splitOn(in.RawInput, "d")
		}
		return sequencePairs(start, end)
	case GenPlus100:
		return plus100(strings.TrimSuffix(strings.TrimSpace(in.RawInput), "-10"))
	case GenSequence:
		start, end := in.SequenceStart, in.SequenceEnd
		if start == "" && end == "" {
			start, end = splitOn(in.RawInput, "+")
		}
		return sequence(start, end)
	default:
		n := clean(in.RawInput)
		if !allDigits(n) || n == "" {
			return nil
		}
		return []string{n}
	}
}

// clean descarta los modificadores de cola (+ - F B q .) y un eventual
// sufijo de un dígito pegado a un modificador (ej: "45F1").
func clean(raw string) string {
	s := strings.TrimSpace(raw)
	if n := len(s); n >= 2 && isDigit(s[n-1]) && isModifier(s[n-2]) {
		s = s[:n-1]
	}
	for len(s) > 0 && isModifier(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return s
}

// combinations genera todas las permutaciones distintas de los dígitos.
// Dígitos repetidos colapsan solos porque las cadenas coinciden; el orden
// de generación es estable para una misma entrada.
func combinations(digits string) []string {
	if digits == "" || !allDigits(digits) {
		return nil
	}
	if len(digits) > 6 { // 6! = 720, el último factorial bajo el tope
		return nil
	}

	var (
		out  []string
		seen = make(map[string]struct{})
		used = make([]bool, len(digits))
		buf  = make([]byte, 0, len(digits))
	)
	var walk func()
	walk = func() {
		if len(buf) == len(digits) {
			p := string(buf)
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
			return
		}
		for i := 0; i < len(digits); i++ {
			if used[i] {
				continue
			}
			used[i] = true
			buf = append(buf, digits[i])
			walk()
			buf = buf[:len(buf)-1]
			used[i] = false
		}
	}
	walk()
	return out
}

// sequencePairs expande pares repetidos inclusivos: "33".."66" => 33,44,55,66.
// Exige que ambos bordes sean pares de dígitos idénticos.
func sequencePairs(start, end string) []string {
	if len(start) != 2 || len(end) != 2 || !allDigits(start) || !allDigits(end) {
		return nil
	}
	if start[0] != start[1] || end[0] != end[1] {
		return nil
	}
	if start[0] > end[0] {
		return nil
	}

	var out []string
	for d := start[0]; d <= end[0]; d++ {
		out = append(out, string([]byte{d, d}))
	}
	return out
}

// plus100 sustituye el dígito inicial de una base de 3 cifras por 1..9
// manteniendo las dos últimas fijas: "123" => 123,223,...,923.
func plus100(base string) []string {
	if len(base) != 3 || !allDigits(base) {
		return nil
	}
	out := make([]string, 0, 9)
	for d := byte('1'); d <= '9'; d++ {
		out = append(out, string(d)+base[1:])
	}
	return out
}

// sequence expande el rango entero inclusivo [start, end], cada valor
// rellenado con ceros al ancho original. Ambos bordes deben tener el
// mismo ancho y start <= end.
func sequence(start, end string) []string {
	if start == "" || len(start) != len(end) || len(start) > 9 {
		return nil
	}
	if !allDigits(start) || !allDigits(end) {
		return nil
	}

	lo, err := strconv.ParseInt(start, 10, 64)
	if err != nil {
		return nil
	}
	hi, err := strconv.ParseInt(end, 10, 64)
	if err != nil || lo > hi {
		return nil
	}
	if hi-lo+1 > maxMembers {
		return nil
	}

	width := len(start)
	out := make([]string, 0, hi-lo+1)
	for v := lo; v <= hi; v++ {
		s := strconv.FormatInt(v, 10)
		for len(s) < width {
			s = "0" + s
		}
		out = append(out, s)
	}
	return out
}

func splitOn(raw, sep string) (string, string) {
	parts := strings.Split(strings.TrimSpace(raw), sep)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

func isModifier(c byte) bool {
	switch c {
	case '+', '-', 'F', 'B', 'q', '.':
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return len(s) > 0
}
