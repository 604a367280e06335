package selection

import "testing"

func TestNearDuplicate_ExactAfterNormalization(t *testing.T) {
	recent := []string{
		"Подборка советов на неделю",
		"Скидка 20% только сегодня!",
	}

	match, score, ok := NearDuplicate("  скидка 20%   ТОЛЬКО сегодня!  ", recent)
	if !ok {
		t.Fatal("normalized-equal text should be flagged")
	}
	if score != 1 {
		t.Errorf("expected score 1, got %v", score)
	}
	if match != recent[1] {
		t.Errorf("unexpected match: %q", match)
	}
}

func TestNearDuplicate_SmallEdit(t *testing.T) {
	recent := []string{"Наш магазин открыт каждый день с девяти утра до восьми вечера"}

	_, score, ok := NearDuplicate("Наш магазин открыт каждый день с девяти утра до 8 вечера", recent)
	if !ok {
		t.Errorf("near-identical text should be flagged, score %v", score)
	}
}

func TestNearDuplicate_Unrelated(t *testing.T) {
	recent := []string{"Скидка 20% только сегодня!"}

	if _, score, ok := NearDuplicate("Завтра выходной, магазин закрыт", recent); ok {
		t.Errorf("unrelated text flagged as duplicate, score %v", score)
	}
}

func TestNearDuplicate_EmptyRecent(t *testing.T) {
	if _, _, ok := NearDuplicate("любой текст", nil); ok {
		t.Error("empty history cannot contain duplicates")
	}
}

func TestSimilarity(t *testing.T) {
	if s := Similarity("", ""); s != 0 {
		t.Errorf("empty strings: expected 0, got %v", s)
	}
	if s := Similarity("abc", "abc"); s != 1 {
		t.Errorf("identical: expected 1, got %v", s)
	}
	if s := Similarity("abc", "xyz"); s != 0 {
		t.Errorf("disjoint: expected 0, got %v", s)
	}

	s := Similarity("ночная распродажа", "ночная распродажа!")
	if s <= 0.9 {
		t.Errorf("one-char suffix: expected > 0.9, got %v", s)
	}
}
