package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nutrirec/nutrirec/internal/domain/assessment"
)

type mockClientSource struct {
	recs map[uuid.UUID]*ClientRecord
}

func (m *mockClientSource) Record(_ context.Context, clientID uuid.UUID) (*ClientRecord, error) {
	r, ok := m.recs[clientID]
	if !ok {
		return nil, ErrClientNotFound
	}
	return r, nil
}

type mockAssessor struct {
	a *assessment.Assessment
}

func (m *mockAssessor) Assess(_ context.Context, _ uuid.UUID) (*assessment.Assessment, error) {
	return m.a, nil
}

type mockMeasurementSource struct {
	rows []MeasurementRow
}

func (m *mockMeasurementSource) History(_ context.Context, _ uuid.UUID) ([]MeasurementRow, error) {
	return m.rows, nil
}

type mockPlanSource struct {
	days    []PlanDay
	percent float64
	scored  int
}

func (m *mockPlanSource) RecentPlans(_ context.Context, _ uuid.UUID, _ int) ([]PlanDay, error) {
	return m.days, nil
}

func (m *mockPlanSource) ComplianceRate(_ context.Context, _ uuid.UUID, _ int) (float64, int, error) {
	return m.percent, m.scored, nil
}

type mockFollowUpSource struct {
	info *FollowUpInfo
}

func (m *mockFollowUpSource) ForClient(_ context.Context, _ uuid.UUID, _ time.Time) (*FollowUpInfo, error) {
	return m.info, nil
}

type mockNoteSource struct {
	notes []NoteEntry
}

func (m *mockNoteSource) RecentNotes(_ context.Context, _ uuid.UUID, _ int) ([]NoteEntry, error) {
	return m.notes, nil
}

type fixture struct {
	clients  *mockClientSource
	assessor *mockAssessor
	meas     *mockMeasurementSource
	plans    *mockPlanSource
	fups     *mockFollowUpSource
	notes    *mockNoteSource
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// engineAssessment derives the assessment the same way the metrics service
// does, so tests can compare tree values against real engine outputs.
func engineAssessment(clientID uuid.UUID, rows []MeasurementRow) *assessment.Assessment {
	samples := toSamples(rows)
	bands := assessment.DefaultBands()
	a := &assessment.Assessment{
		ClientID:         clientID,
		GeneratedAt:      time.Now().UTC(),
		MeasurementCount: len(rows),
		Trend:            assessment.WeightTrend(samples, 0.5),
		Shape:            assessment.HistoryShape(samples, 0.5),
	}
	if len(rows) == 0 {
		return a
	}
	last := rows[len(rows)-1]
	bmi, err := assessment.ComputeBMI(last.HeightCm, last.WeightKg)
	if err != nil {
		panic(err)
	}
	a.BMI = bmi
	a.Category = bands.Categorize(bmi)
	a.DetailedCategory = bands.CategorizeDetailed(bmi)
	a.Suggestion = assessment.SuggestDietAdjustment(a.Category, a.Trend.Direction, assessment.GoalLoss)
	return a
}

func newFixture() (*Service, *fixture, uuid.UUID) {
	clientID := uuid.New()

	rows := []MeasurementRow{
		{TakenAt: date(2025, 1, 1), HeightCm: 170, WeightKg: 80, BMI: 27.7},
		{TakenAt: date(2025, 1, 10), HeightCm: 170, WeightKg: 78, BMI: 27.0},
	}
	score := 8
	f := &fixture{
		clients: &mockClientSource{recs: map[uuid.UUID]*ClientRecord{
			clientID: {
				ClientID:     clientID,
				PharmacyID:   "10423",
				FullName:     "منى حسن",
				Age:          34,
				Sex:          "female",
				Phone:        "+201001234567",
				Language:     "ar",
				Goal:         "loss",
				VisitCount:   6,
				RegisteredAt: date(2024, 11, 1),
			},
		}},
		assessor: &mockAssessor{a: engineAssessment(clientID, rows)},
		meas:     &mockMeasurementSource{rows: rows},
		plans: &mockPlanSource{
			days: []PlanDay{
				{Date: date(2025, 1, 9), Breakfast: "فول وطعمية", Lunch: "فراخ مشوية", WaterLiters: 2.0, ComplianceScore: &score},
				{Date: date(2025, 1, 10), Breakfast: "شوفان بالحليب", Dinner: "سلطة تونة", WaterLiters: 1.5},
			},
			percent: 66.7,
			scored:  3,
		},
		fups: &mockFollowUpSource{info: &FollowUpInfo{
			DueDate:   date(2025, 1, 31),
			Status:    "overdue",
			DaysUntil: -5,
		}},
		notes: &mockNoteSource{notes: []NoteEntry{
			{AuthorName: "د. سارة", Body: "تلتزم بالخطة بشكل جيد", CreatedAt: date(2025, 1, 10)},
		}},
	}
	svc := NewService(f.clients, f.assessor, f.meas, f.plans, f.fups, f.notes, Options{})
	return svc, f, clientID
}

func findSection(t *testing.T, doc *Document, label string) *Node {
	t.Helper()
	for _, s := range doc.Sections {
		if s.Label == label {
			return s
		}
	}
	t.Fatalf("section %q not found", label)
	return nil
}

func findChild(t *testing.T, n *Node, label string) *Node {
	t.Helper()
	for _, c := range n.Children {
		if c.Label == label {
			return c
		}
	}
	t.Fatalf("node %q not found under %q", label, n.Label)
	return nil
}

func walk(n *Node, fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		walk(c, fn)
	}
}

func TestBuild_ClientProfile(t *testing.T) {
	svc, _, clientID := newFixture()

	doc, err := svc.Build(context.Background(), clientID, TypeClientProfile, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Type != TypeClientProfile {
		t.Errorf("expected type %s, got %s", TypeClientProfile, doc.Type)
	}
	if doc.Title != "ملف العميل" {
		t.Errorf("expected Arabic title, got %q", doc.Title)
	}
	if doc.Lang != "ar" || doc.Dir != DirRTL {
		t.Errorf("expected ar/rtl document, got %s/%s", doc.Lang, doc.Dir)
	}

	want := []string{"client", "metrics", "history", "meal_plans", "notes"}
	if len(doc.Sections) != len(want) {
		t.Fatalf("expected %d sections, got %d", len(want), len(doc.Sections))
	}
	for i, label := range want {
		if doc.Sections[i].Label != label {
			t.Errorf("section %d: expected %q, got %q", i, label, doc.Sections[i].Label)
		}
	}

	header := findSection(t, doc, "client")
	name := findChild(t, header, "full_name")
	if name.Text != "منى حسن" || name.Dir != DirRTL {
		t.Errorf("expected rtl Arabic name, got %q dir %s", name.Text, name.Dir)
	}
	pid := findChild(t, header, "pharmacy_id")
	if pid.Text != "10423" || pid.Dir != DirLTR {
		t.Errorf("expected ltr pharmacy id, got %q dir %s", pid.Text, pid.Dir)
	}
	rd := findChild(t, header, "report_date")
	if rd.Text != "2025-02-01" || rd.Dir != DirLTR {
		t.Errorf("expected report date 2025-02-01 ltr, got %q dir %s", rd.Text, rd.Dir)
	}
}

func TestBuild_MetricsMatchEngine(t *testing.T) {
	svc, _, clientID := newFixture()

	doc, err := svc.Build(context.Background(), clientID, TypeClientProfile, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics := findSection(t, doc, "metrics")

	wantBMI, err := assessment.ComputeBMI(170, 78)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bmi := findChild(t, metrics, "bmi")
	if bmi.Value == nil || *bmi.Value != wantBMI {
		t.Fatalf("expected bmi node to carry %v exactly, got %v", wantBMI, bmi.Value)
	}

	samples := []assessment.Sample{
		{TakenAt: date(2025, 1, 1), HeightCm: 170, WeightKg: 80},
		{TakenAt: date(2025, 1, 10), HeightCm: 170, WeightKg: 78},
	}
	wantTrend := assessment.WeightTrend(samples, 0.5)
	if got := findChild(t, metrics, "trend").Text; got != string(wantTrend.Direction) {
		t.Errorf("expected trend %s, got %s", wantTrend.Direction, got)
	}
	delta := findChild(t, metrics, "change_kg")
	if delta.Value == nil || *delta.Value != wantTrend.DeltaKg {
		t.Errorf("expected change %v, got %v", wantTrend.DeltaKg, delta.Value)
	}
	count := findChild(t, metrics, "measurement_count")
	if count.Value == nil || *count.Value != 2 {
		t.Errorf("expected measurement count 2, got %v", count.Value)
	}
}

func TestBuild_DietProgress(t *testing.T) {
	svc, _, clientID := newFixture()

	doc, err := svc.Build(context.Background(), clientID, TypeDietProgress, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progress := findSection(t, doc, "progress")
	if v := findChild(t, progress, "change_kg").Value; v == nil || *v != -2.0 {
		t.Errorf("expected change -2.0, got %v", v)
	}
	if v := findChild(t, progress, "change_percent").Value; v == nil || *v != -2.5 {
		t.Errorf("expected change percent -2.5, got %v", v)
	}
	if v := findChild(t, progress, "bmi_change").Value; v == nil || *v != -0.7 {
		t.Errorf("expected bmi change -0.7, got %v", v)
	}
	if v := findChild(t, progress, "span_days").Value; v == nil || *v != 9 {
		t.Errorf("expected span 9 days, got %v", v)
	}
	if v := findChild(t, progress, "avg_weekly_kg").Value; v == nil || *v != -1.6 {
		t.Errorf("expected -1.6 per week, got %v", v)
	}

	history := findSection(t, doc, "history")
	tbl := findChild(t, history, "measurements")
	// Header row plus one row per measurement, oldest first.
	if len(tbl.Children) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Children))
	}
	first := tbl.Children[1].Children[0]
	second := tbl.Children[2].Children[0]
	if first.Text != "2025-01-01" || second.Text != "2025-01-10" {
		t.Errorf("expected rows oldest first, got %q then %q", first.Text, second.Text)
	}
}

func TestBuild_HistoryCapped(t *testing.T) {
	svc, f, clientID := newFixture()

	// Twelve weekly entries; the default cap keeps the ten most recent in
	// the table while the change summary still spans the whole history.
	var rows []MeasurementRow
	for i := 0; i < 12; i++ {
		w := 85 - float64(i)
		rows = append(rows, MeasurementRow{
			TakenAt:  date(2025, 1, 1).AddDate(0, 0, 7*i),
			HeightCm: 170,
			WeightKg: w,
			BMI:      w / (1.7 * 1.7),
		})
	}
	f.meas.rows = rows
	f.assessor.a = engineAssessment(clientID, rows)

	doc, err := svc.Build(context.Background(), clientID, TypeDietProgress, date(2025, 4, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tbl := findChild(t, findSection(t, doc, "history"), "measurements")
	if len(tbl.Children) != 11 {
		t.Fatalf("expected header plus 10 capped rows, got %d", len(tbl.Children))
	}
	if got := tbl.Children[1].Children[0].Text; got != "2025-01-15" {
		t.Errorf("expected oldest shown row 2025-01-15, got %q", got)
	}
	// 11 weeks between first and last entry.
	if v := findChild(t, findSection(t, doc, "progress"), "span_days").Value; v == nil || *v != 77 {
		t.Errorf("expected span 77 days over the full history, got %v", v)
	}
}

func TestBuild_DietProgress_SingleMeasurement(t *testing.T) {
	svc, f, clientID := newFixture()
	f.meas.rows = f.meas.rows[:1]
	f.assessor.a = engineAssessment(clientID, f.meas.rows)

	doc, err := svc.Build(context.Background(), clientID, TypeDietProgress, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	progress := findSection(t, doc, "progress")
	if got := findChild(t, progress, "status").Text; got != "insufficient_history" {
		t.Errorf("expected insufficient_history, got %q", got)
	}
}

func TestBuild_FollowUp(t *testing.T) {
	svc, _, clientID := newFixture()

	doc, err := svc.Build(context.Background(), clientID, TypeFollowUp, date(2025, 2, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sec := findSection(t, doc, "follow_up")
	due := findChild(t, sec, "due_date")
	if due.Text != "2025-01-31" || due.Dir != DirLTR {
		t.Errorf("expected due date 2025-01-31 ltr, got %q dir %s", due.Text, due.Dir)
	}
	if got := findChild(t, sec, "status").Text; got != "overdue" {
		t.Errorf("expected overdue, got %q", got)
	}
	if v := findChild(t, sec, "days_until").Value; v == nil || *v != -5 {
		t.Errorf("expected days until -5, got %v", v)
	}
}

func TestBuild_NutritionSummary(t *testing.T) {
	svc, _, clientID := newFixture()

	doc, err := svc.Build(context.Background(), clientID, TypeNutritionSummary, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary := findSection(t, doc, "summary")
	if v := findChild(t, summary, "days_planned").Value; v == nil || *v != 2 {
		t.Errorf("expected 2 days planned, got %v", v)
	}
	// (2.0 + 1.5) / 2 rounded to one decimal.
	if v := findChild(t, summary, "water_avg_liters").Value; v == nil || *v != 1.8 {
		t.Errorf("expected water average 1.8, got %v", v)
	}
	if v := findChild(t, summary, "compliance_percent").Value; v == nil || *v != 66.7 {
		t.Errorf("expected compliance 66.7, got %v", v)
	}
	if v := findChild(t, summary, "days_scored").Value; v == nil || *v != 3 {
		t.Errorf("expected 3 scored days, got %v", v)
	}

	plans := findSection(t, doc, "meal_plans")
	tbl := findChild(t, plans, "plans")
	if len(tbl.Children) != 3 {
		t.Fatalf("expected header and 2 plan rows, got %d", len(tbl.Children))
	}
	breakfast := tbl.Children[1].Children[1]
	if breakfast.Text != "فول وطعمية" || breakfast.Dir != DirRTL {
		t.Errorf("expected rtl Arabic breakfast, got %q dir %s", breakfast.Text, breakfast.Dir)
	}
	// Unscored day: empty cell, no numeric value.
	unscored := tbl.Children[2].Children[8]
	if unscored.Text != "" || unscored.Value != nil {
		t.Errorf("expected empty score cell, got %q value %v", unscored.Text, unscored.Value)
	}
}

func TestBuild_NumbersAlwaysLTR(t *testing.T) {
	svc, _, clientID := newFixture()

	for _, typ := range []string{TypeClientProfile, TypeDietProgress, TypeFollowUp, TypeNutritionSummary} {
		doc, err := svc.Build(context.Background(), clientID, typ, date(2025, 2, 1))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", typ, err)
		}
		for _, sec := range doc.Sections {
			walk(sec, func(n *Node) {
				if n.Value != nil && n.Dir != DirLTR {
					t.Errorf("%s: numeric node %q has dir %s in an rtl document", typ, n.Label, n.Dir)
				}
			})
		}
	}
}

func TestBuild_EnglishClient(t *testing.T) {
	svc, f, clientID := newFixture()
	rec := f.clients.recs[clientID]
	rec.Language = "en"
	rec.FullName = "Mona Hassan"

	doc, err := svc.Build(context.Background(), clientID, TypeClientProfile, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Client Profile" {
		t.Errorf("expected English title, got %q", doc.Title)
	}
	if doc.Dir != DirLTR {
		t.Errorf("expected ltr document, got %s", doc.Dir)
	}
	name := findChild(t, findSection(t, doc, "client"), "full_name")
	if name.Dir != DirLTR {
		t.Errorf("expected ltr name, got %s", name.Dir)
	}
}

func TestBuild_EmptyHistory(t *testing.T) {
	svc, f, clientID := newFixture()
	f.meas.rows = nil
	f.assessor.a = engineAssessment(clientID, nil)

	doc, err := svc.Build(context.Background(), clientID, TypeClientProfile, date(2025, 2, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics := findSection(t, doc, "metrics")
	if v := findChild(t, metrics, "measurement_count").Value; v == nil || *v != 0 {
		t.Errorf("expected count 0, got %v", v)
	}
	if len(metrics.Children) != 1 {
		t.Errorf("expected metrics to hold only the count, got %d nodes", len(metrics.Children))
	}
	history := findSection(t, doc, "history")
	tbl := findChild(t, history, "measurements")
	if len(tbl.Children) != 1 {
		t.Errorf("expected only the header row, got %d", len(tbl.Children))
	}
}

func TestBuild_UnknownType(t *testing.T) {
	svc, _, clientID := newFixture()
	_, err := svc.Build(context.Background(), clientID, "invoice", date(2025, 2, 1))
	if !errors.Is(err, ErrUnknownReportType) {
		t.Errorf("expected ErrUnknownReportType, got %v", err)
	}
}

func TestBuild_UnknownClient(t *testing.T) {
	svc, _, _ := newFixture()
	_, err := svc.Build(context.Background(), uuid.New(), TypeClientProfile, date(2025, 2, 1))
	if !errors.Is(err, ErrClientNotFound) {
		t.Errorf("expected ErrClientNotFound, got %v", err)
	}
}
