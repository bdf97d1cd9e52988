package validate

import (
	"strings"
	"testing"
)

func TestName_Valid(t *testing.T) {
	got, fe := Name("full_name", "  Sara Ahmed  ")
	if fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if got != "Sara Ahmed" {
		t.Errorf("expected trimmed name, got %q", got)
	}
}

func TestName_ArabicPreserved(t *testing.T) {
	raw := "محمد عبد الرحمن"
	got, fe := Name("full_name", raw)
	if fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if got != raw {
		t.Errorf("arabic name altered: got %q", got)
	}
}

func TestName_Empty(t *testing.T) {
	_, fe := Name("full_name", "   ")
	if fe == nil {
		t.Fatal("expected error for blank name")
	}
	if fe.Rule != "required" {
		t.Errorf("expected rule required, got %s", fe.Rule)
	}
	if fe.Field != "full_name" {
		t.Errorf("expected field full_name, got %s", fe.Field)
	}
}

func TestName_ControlCharsStripped(t *testing.T) {
	got, fe := Name("full_name", "John\x00\x1fDoe")
	if fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if got != "JohnDoe" {
		t.Errorf("expected control chars stripped, got %q", got)
	}
}

func TestName_TooLong(t *testing.T) {
	_, fe := Name("full_name", strings.Repeat("a", MaxNameLen+1))
	if fe == nil {
		t.Fatal("expected error for oversized name")
	}
	if fe.Rule != "max_length" {
		t.Errorf("expected rule max_length, got %s", fe.Rule)
	}
}

func TestAge(t *testing.T) {
	cases := []struct {
		age  int
		ok   bool
	}{
		{0, true},
		{35, true},
		{120, true},
		{-1, false},
		{121, false},
	}
	for _, tc := range cases {
		fe := Age("age", tc.age, 0, 120)
		if tc.ok && fe != nil {
			t.Errorf("age %d: unexpected error: %v", tc.age, fe)
		}
		if !tc.ok && fe == nil {
			t.Errorf("age %d: expected error", tc.age)
		}
	}
}

func TestPhone_Normalized(t *testing.T) {
	got, fe := Phone("phone", "+20 (100) 123-4567")
	if fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if got != "+201001234567" {
		t.Errorf("expected separators stripped, got %q", got)
	}
}

func TestPhone_Invalid(t *testing.T) {
	for _, raw := range []string{"", "abc", "0123456789", "+1 23", "123456789012345678"} {
		if _, fe := Phone("phone", raw); fe == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestHeight(t *testing.T) {
	if fe := Height("height_cm", 170); fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if fe := Height("height_cm", 0); fe == nil || fe.Rule != "positive" {
		t.Errorf("expected positive rule for zero height, got %v", fe)
	}
	if fe := Height("height_cm", 20); fe == nil || fe.Rule != "range" {
		t.Errorf("expected range rule for 20cm, got %v", fe)
	}
	if fe := Height("height_cm", 260); fe == nil {
		t.Error("expected error for 260cm")
	}
}

func TestWeight(t *testing.T) {
	if fe := Weight("weight_kg", 70); fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if fe := Weight("weight_kg", -5); fe == nil || fe.Rule != "positive" {
		t.Errorf("expected positive rule for negative weight, got %v", fe)
	}
	if fe := Weight("weight_kg", 0.5); fe == nil {
		t.Error("expected error for 0.5kg")
	}
	if fe := Weight("weight_kg", 600); fe == nil {
		t.Error("expected error for 600kg")
	}
}

func TestPercentage(t *testing.T) {
	for _, v := range []float64{0, 50, 100} {
		if fe := Percentage("body_fat_pct", v); fe != nil {
			t.Errorf("%v: unexpected error: %v", v, fe)
		}
	}
	for _, v := range []float64{-0.1, 100.1} {
		if fe := Percentage("body_fat_pct", v); fe == nil {
			t.Errorf("%v: expected error", v)
		}
	}
}

func TestPharmacyID(t *testing.T) {
	got, fe := PharmacyID("pharmacy_id", " 00042 ")
	if fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if got != "00042" {
		t.Errorf("expected trimmed id, got %q", got)
	}
	for _, raw := range []string{"", "1234", "123456", "12a45", "ABCDE"} {
		if _, fe := PharmacyID("pharmacy_id", raw); fe == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestLanguage(t *testing.T) {
	got, fe := Language("preferred_language", " AR ")
	if fe != nil {
		t.Fatalf("unexpected error: %v", fe)
	}
	if got != "ar" {
		t.Errorf("expected ar, got %q", got)
	}
	if _, fe := Language("preferred_language", "fr"); fe == nil {
		t.Error("expected error for unsupported language")
	}
}

func TestContainsArabic(t *testing.T) {
	if !ContainsArabic("أهلا") {
		t.Error("expected arabic detection for أهلا")
	}
	if ContainsArabic("hello") {
		t.Error("expected no arabic in hello")
	}
	if !ContainsArabic("mixed نص text") {
		t.Error("expected arabic detection in mixed text")
	}
}

func TestErrors_Aggregate(t *testing.T) {
	var errs Errors
	if errs.OrNil() != nil {
		t.Error("empty Errors should be nil")
	}
	_, fe := Name("full_name", "")
	errs = append(errs, fe)
	errs = append(errs, Age("age", 300, 0, 120))
	if errs.OrNil() == nil {
		t.Fatal("expected aggregate error")
	}
	if !errs.Has("age") || !errs.Has("full_name") {
		t.Error("expected both fields recorded")
	}
	if errs.Has("phone") {
		t.Error("unexpected phone field")
	}
	msg := errs.Error()
	if !strings.Contains(msg, "full_name") || !strings.Contains(msg, "age") {
		t.Errorf("aggregate message missing fields: %s", msg)
	}
}
