package stats

import (
	"testing"
)

func TestPredefinedMeasures(t *testing.T) {
	if len(PredefinedMeasures) != 9 {
		t.Fatalf("expected 9 predefined measures, got %d", len(PredefinedMeasures))
	}

	expectedIDs := []string{
		"client-count",
		"clients-by-goal",
		"measurement-volume",
		"plan-compliance",
		"registrations-by-month",
		"clients-by-sex",
		"clients-by-age-band",
		"bmi-by-category",
		"followups-due",
	}

	for i, expectedID := range expectedIDs {
		if PredefinedMeasures[i].ID != expectedID {
			t.Errorf("expected measure[%d].ID = %s, got %s", i, expectedID, PredefinedMeasures[i].ID)
		}
	}
}

func TestPredefinedMeasures_Complete(t *testing.T) {
	for _, m := range PredefinedMeasures {
		if m.SQL == "" {
			t.Errorf("measure %s has empty SQL", m.ID)
		}
		if m.Name == "" {
			t.Errorf("measure %s has empty name", m.ID)
		}
		if m.Description == "" {
			t.Errorf("measure %s has empty description", m.ID)
		}
	}
}

func TestPredefinedMeasures_ParamsHaveDefaults(t *testing.T) {
	// A declared parameter without a default would bind an empty string.
	for _, m := range PredefinedMeasures {
		for _, p := range m.Parameters {
			if _, ok := paramDefaults[p]; !ok {
				t.Errorf("measure %s: parameter %s has no default", m.ID, p)
			}
		}
	}
}

func TestFindMeasure_Exists(t *testing.T) {
	m := FindMeasure("client-count")
	if m == nil {
		t.Fatal("expected to find client-count measure")
	}
	if m.Name != "Client Count" {
		t.Errorf("expected 'Client Count', got %s", m.Name)
	}
}

func TestFindMeasure_NotFound(t *testing.T) {
	if m := FindMeasure("nonexistent"); m != nil {
		t.Error("expected nil for nonexistent measure")
	}
}

func TestFindMeasure_AllPredefined(t *testing.T) {
	for _, def := range PredefinedMeasures {
		found := FindMeasure(def.ID)
		if found == nil {
			t.Errorf("expected to find measure %s", def.ID)
			continue
		}
		if found.ID != def.ID {
			t.Errorf("ID mismatch: expected %s, got %s", def.ID, found.ID)
		}
	}
}

func TestMeasurementVolume_Parameterized(t *testing.T) {
	m := FindMeasure("measurement-volume")
	if m == nil {
		t.Fatal("expected measurement-volume measure")
	}
	if len(m.Parameters) != 1 || m.Parameters[0] != "days" {
		t.Errorf("expected the days parameter, got %v", m.Parameters)
	}
}

func TestFollowupsDue_Parameterized(t *testing.T) {
	m := FindMeasure("followups-due")
	if m == nil {
		t.Fatal("expected followups-due measure")
	}
	if len(m.Parameters) != 1 || m.Parameters[0] != "window_days" {
		t.Errorf("expected the window_days parameter, got %v", m.Parameters)
	}
}

func TestNewHandler(t *testing.T) {
	if h := NewHandler(nil); h == nil {
		t.Fatal("expected non-nil handler")
	}
}
