package selection

import "strings"

// nearDuplicateThreshold — порог схожести, после которого текст
// считается почти-дубликатом недавней публикации.
const nearDuplicateThreshold = 0.9

// NearDuplicate ищет среди recent текст, почти совпадающий с text.
// Проверка советующая: worker логирует совпадение, но публикацию
// не блокирует. Возвращает найденный текст и коэффициент схожести.
func NearDuplicate(text string, recent []string) (string, float64, bool) {
	best := 0.0
	match := ""
	for _, r := range recent {
		if s := Similarity(text, r); s > best {
			best, match = s, r
		}
	}
	if best > nearDuplicateThreshold {
		return match, best, true
	}
	return "", best, false
}

// Similarity возвращает коэффициент Сёренсена-Дайса по биграммам [0..1].
// Тексты нормализуются: нижний регистр, схлопнутые пробелы.
func Similarity(a, b string) float64 {
	na, nb := normalizeText(a), normalizeText(b)
	if na == nb {
		if na == "" {
			return 0
		}
		return 1
	}

	ba, bb := bigrams(na), bigrams(nb)
	if len(ba) == 0 || len(bb) == 0 {
		return 0
	}

	shared, total := 0, 0
	for g, ca := range ba {
		total += ca
		if cb, ok := bb[g]; ok {
			shared += min(ca, cb)
		}
	}
	for _, cb := range bb {
		total += cb
	}
	return 2 * float64(shared) / float64(total)
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// bigrams строит мультимножество биграмм по рунам (не байтам:
// тексты бывают не только ASCII).
func bigrams(s string) map[string]int {
	r := []rune(s)
	m := make(map[string]int, len(r))
	for i := 0; i+1 < len(r); i++ {
		m[string(r[i:i+2])]++
	}
	return m
}
