package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/nutrirec/nutrirec/internal/domain/assessment"
)

var (
	ErrClientNotFound    = errors.New("client not found")
	ErrUnknownReportType = errors.New("unknown report type")
)

// Report types the engine can assemble.
const (
	TypeClientProfile    = "client_profile"
	TypeDietProgress     = "diet_progress"
	TypeFollowUp         = "follow_up"
	TypeNutritionSummary = "nutrition_summary"
)

var validReportTypes = map[string]bool{
	TypeClientProfile:    true,
	TypeDietProgress:     true,
	TypeFollowUp:         true,
	TypeNutritionSummary: true,
}

const (
	defaultPlanWindowDays = 7
	defaultHistoryLimit   = 10
	defaultNotesLimit     = 5

	// complianceWindowDays is the span the nutrition summary scores over.
	complianceWindowDays = 30
)

// Options tune how much of each client's record a report shows.
type Options struct {
	// PlanWindowDays is how many calendar days of meal plans to include.
	PlanWindowDays int
	// HistoryLimit caps the measurement table at the most recent rows.
	// Span math still covers the full history.
	HistoryLimit int
	// NotesLimit caps the notes table on the profile report.
	NotesLimit int
}

// titles holds the document title per report type and language. Titles are
// the one localized string the engine emits itself; everything else in the
// tree is either a label token or client data.
var titles = map[string]map[string]string{
	TypeClientProfile:    {"en": "Client Profile", "ar": "ملف العميل"},
	TypeDietProgress:     {"en": "Diet Progress", "ar": "تقدم النظام الغذائي"},
	TypeFollowUp:         {"en": "Follow-Up", "ar": "موعد المتابعة"},
	TypeNutritionSummary: {"en": "Nutrition Summary", "ar": "ملخص التغذية"},
}

func titleFor(reportType, lang string) string {
	byLang, ok := titles[reportType]
	if !ok {
		return reportType
	}
	if t, ok := byLang[lang]; ok {
		return t
	}
	return byLang["en"]
}

// ClientRecord is the slice of the client record a report header needs.
type ClientRecord struct {
	ClientID         uuid.UUID
	PharmacyID       string
	FullName         string
	Age              int
	Sex              string
	Phone            string
	Language         string
	HealthConditions string
	Goal             string
	TargetWeightKg   *float64
	VisitCount       int
	RegisteredAt     time.Time
}

// ClientSource resolves the client a report is about. Implementations
// return ErrClientNotFound for unknown or deleted clients.
type ClientSource interface {
	Record(ctx context.Context, clientID uuid.UUID) (*ClientRecord, error)
}

// Assessor supplies the derived metrics. The report embeds the assessment's
// numbers as-is and never recomputes them, so the tree always agrees with
// what the metrics endpoints return.
type Assessor interface {
	Assess(ctx context.Context, clientID uuid.UUID) (*assessment.Assessment, error)
}

// MeasurementRow is one line of the measurement history table.
type MeasurementRow struct {
	TakenAt    time.Time
	HeightCm   float64
	WeightKg   float64
	BMI        float64
	BodyFatPct *float64
	MusclePct  *float64
}

// MeasurementSource returns the full history ordered oldest first.
type MeasurementSource interface {
	History(ctx context.Context, clientID uuid.UUID) ([]MeasurementRow, error)
}

// PlanDay is one calendar day of the meal plan table. Slot strings are
// empty when that slot was not planned.
type PlanDay struct {
	Date            time.Time
	Breakfast       string
	MorningSnack    string
	Lunch           string
	AfternoonSnack  string
	Dinner          string
	EveningSnack    string
	WaterLiters     float64
	ComplianceScore *int
}

// PlanSource returns recent plans ordered oldest first, and the compliance
// rate over a window. Scored is how many plans in the window carried a
// score; percent is 0 when nothing was scored.
type PlanSource interface {
	RecentPlans(ctx context.Context, clientID uuid.UUID, days int) ([]PlanDay, error)
	ComplianceRate(ctx context.Context, clientID uuid.UUID, days int) (percent float64, scored int, err error)
}

// FollowUpInfo is the scheduling picture for one client.
type FollowUpInfo struct {
	DueDate   time.Time
	Status    string
	DaysUntil int
}

type FollowUpSource interface {
	ForClient(ctx context.Context, clientID uuid.UUID, today time.Time) (*FollowUpInfo, error)
}

// NoteEntry is one free-text note, newest first.
type NoteEntry struct {
	AuthorName string
	Body       string
	CreatedAt  time.Time
}

type NoteSource interface {
	RecentNotes(ctx context.Context, clientID uuid.UUID, limit int) ([]NoteEntry, error)
}

// Service assembles printable report documents from the other domains.
type Service struct {
	clients      ClientSource
	assessor     Assessor
	measurements MeasurementSource
	plans        PlanSource
	followups    FollowUpSource
	notes        NoteSource
	opts         Options
}

func NewService(clients ClientSource, assessor Assessor, measurements MeasurementSource, plans PlanSource, followups FollowUpSource, notes NoteSource, opts Options) *Service {
	if opts.PlanWindowDays <= 0 {
		opts.PlanWindowDays = defaultPlanWindowDays
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = defaultHistoryLimit
	}
	if opts.NotesLimit <= 0 {
		opts.NotesLimit = defaultNotesLimit
	}
	return &Service{
		clients:      clients,
		assessor:     assessor,
		measurements: measurements,
		plans:        plans,
		followups:    followups,
		notes:        notes,
		opts:         opts,
	}
}

// Build assembles the document for one client and report type. A zero
// today means the current date; the report date is always date-granular.
func (s *Service) Build(ctx context.Context, clientID uuid.UUID, reportType string, today time.Time) (*Document, error) {
	if !validReportTypes[reportType] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReportType, reportType)
	}

	rec, err := s.clients.Record(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load client: %w", err)
	}

	if today.IsZero() {
		today = time.Now().UTC()
	}
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	dir := DirForLang(rec.Language)
	doc := &Document{
		Type:        reportType,
		Title:       titleFor(reportType, rec.Language),
		Lang:        rec.Language,
		Dir:         dir,
		GeneratedAt: time.Now().UTC(),
	}
	doc.Sections = append(doc.Sections, headerSection(rec, today, dir))

	a, err := s.assessor.Assess(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrClientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("assess client: %w", err)
	}
	doc.Sections = append(doc.Sections, metricsSection(a))

	switch reportType {
	case TypeClientProfile:
		rows, err := s.measurements.History(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("load measurements: %w", err)
		}
		plans, err := s.plans.RecentPlans(ctx, clientID, s.opts.PlanWindowDays)
		if err != nil {
			return nil, fmt.Errorf("load meal plans: %w", err)
		}
		notes, err := s.notes.RecentNotes(ctx, clientID, s.opts.NotesLimit)
		if err != nil {
			return nil, fmt.Errorf("load notes: %w", err)
		}
		doc.Sections = append(doc.Sections, historySection(s.capHistory(rows)), plansSection(plans, dir), notesSection(notes, dir))

	case TypeDietProgress:
		rows, err := s.measurements.History(ctx, clientID)
		if err != nil {
			return nil, fmt.Errorf("load measurements: %w", err)
		}
		// The table shows recent rows; the change summary spans everything.
		doc.Sections = append(doc.Sections, progressSection(a, toSamples(rows)), historySection(s.capHistory(rows)))

	case TypeFollowUp:
		fu, err := s.followups.ForClient(ctx, clientID, today)
		if err != nil {
			if errors.Is(err, ErrClientNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("compute follow-up: %w", err)
		}
		doc.Sections = append(doc.Sections, followupSection(fu))

	case TypeNutritionSummary:
		plans, err := s.plans.RecentPlans(ctx, clientID, s.opts.PlanWindowDays)
		if err != nil {
			return nil, fmt.Errorf("load meal plans: %w", err)
		}
		percent, scored, err := s.plans.ComplianceRate(ctx, clientID, complianceWindowDays)
		if err != nil {
			return nil, fmt.Errorf("compute compliance: %w", err)
		}
		doc.Sections = append(doc.Sections, plansSection(plans, dir), summarySection(plans, percent, scored))
	}

	return doc, nil
}

func (s *Service) capHistory(rows []MeasurementRow) []MeasurementRow {
	if len(rows) > s.opts.HistoryLimit {
		return rows[len(rows)-s.opts.HistoryLimit:]
	}
	return rows
}

func toSamples(rows []MeasurementRow) []assessment.Sample {
	samples := make([]assessment.Sample, len(rows))
	for i, r := range rows {
		samples[i] = assessment.Sample{TakenAt: r.TakenAt, HeightCm: r.HeightCm, WeightKg: r.WeightKg}
	}
	return samples
}

// labelCell is a header cell: a token for the renderer to translate, no
// data.
func labelCell(label string) *Node {
	return &Node{Kind: KindCell, Label: label, Dir: DirLTR}
}

func headerSection(rec *ClientRecord, today time.Time, dir Dir) *Node {
	sec := NewSection("client", dir)
	sec.Add(
		NewField("full_name", rec.FullName, dir),
		NewField("pharmacy_id", rec.PharmacyID, DirLTR),
		NewNumberField("age", float64(rec.Age)),
		NewField("sex", rec.Sex, DirLTR),
	)
	if rec.Phone != "" {
		sec.Add(NewField("phone", rec.Phone, DirLTR))
	}
	sec.Add(NewField("goal", rec.Goal, DirLTR))
	if rec.TargetWeightKg != nil {
		sec.Add(NewNumberField("target_weight_kg", *rec.TargetWeightKg))
	}
	if rec.HealthConditions != "" {
		sec.Add(NewField("health_conditions", rec.HealthConditions, dir))
	}
	sec.Add(
		NewNumberField("visit_count", float64(rec.VisitCount)),
		NewDateField("registered_at", rec.RegisteredAt),
		NewDateField("report_date", today),
	)
	return sec
}

// metricsSection embeds the assessment values verbatim.
func metricsSection(a *assessment.Assessment) *Node {
	sec := NewSection("metrics", DirLTR)
	sec.Add(NewNumberField("measurement_count", float64(a.MeasurementCount)))
	if a.MeasurementCount == 0 {
		return sec
	}

	sec.Add(
		NewNumberField("bmi", a.BMI),
		NewField("category", string(a.DetailedCategory), DirLTR),
		NewField("trend", string(a.Trend.Direction), DirLTR),
	)
	if a.Trend.Direction != assessment.DirectionUnknown {
		sec.Add(
			NewNumberField("change_kg", a.Trend.DeltaKg),
			NewNumberField("change_percent", a.Trend.DeltaPercent),
		)
	}
	if a.Shape != assessment.ShapeUnknown {
		sec.Add(NewField("shape", string(a.Shape), DirLTR))
	}
	if a.Suggestion != "" {
		sec.Add(NewField("suggestion", a.Suggestion, DirLTR))
	}
	if a.BMR > 0 {
		sec.Add(NewNumberField("bmr", a.BMR))
	}
	if a.DailyCalories > 0 {
		sec.Add(NewNumberField("daily_calories", a.DailyCalories))
	}
	return sec
}

func historySection(rows []MeasurementRow) *Node {
	sec := NewSection("history", DirLTR)
	tbl := NewTable("measurements")
	tbl.AddRow(labelCell("date"), labelCell("height_cm"), labelCell("weight_kg"), labelCell("bmi"))
	for _, r := range rows {
		tbl.AddRow(
			NewDateCell(r.TakenAt),
			NewNumberCell(r.HeightCm),
			NewNumberCell(r.WeightKg),
			NewNumberCell(r.BMI),
		)
	}
	sec.Add(tbl)
	return sec
}

func progressSection(a *assessment.Assessment, samples []assessment.Sample) *Node {
	sec := NewSection("progress", DirLTR)
	change, err := assessment.HistoryChange(samples)
	if err != nil {
		sec.Add(NewField("status", "insufficient_history", DirLTR))
	} else {
		sec.Add(
			NewNumberField("change_kg", change.DeltaKg),
			NewNumberField("change_percent", change.DeltaPercent),
			NewNumberField("bmi_change", change.BMIDelta),
			NewNumberField("avg_weekly_kg", change.AvgWeeklyDeltaKg),
			NewNumberField("span_days", float64(change.SpanDays)),
		)
	}

	if p := a.Progress; p != nil {
		goal := NewSection("goal", DirLTR)
		goal.Add(
			NewNumberField("start_kg", p.StartKg),
			NewNumberField("current_kg", p.CurrentKg),
			NewNumberField("target_kg", p.TargetKg),
			NewNumberField("achieved_kg", p.AchievedKg),
			NewNumberField("remaining_kg", p.RemainingKg),
			NewNumberField("percent", p.Percent),
			NewField("achieved", strconv.FormatBool(p.Achieved), DirLTR),
		)
		sec.Add(goal)
	}
	return sec
}

func plansSection(plans []PlanDay, dir Dir) *Node {
	sec := NewSection("meal_plans", dir)
	tbl := NewTable("plans")
	tbl.AddRow(
		labelCell("date"), labelCell("breakfast"), labelCell("morning_snack"), labelCell("lunch"),
		labelCell("afternoon_snack"), labelCell("dinner"), labelCell("evening_snack"),
		labelCell("water_liters"), labelCell("score"),
	)
	for _, p := range plans {
		score := &Node{Kind: KindCell, Dir: DirLTR}
		if p.ComplianceScore != nil {
			score = NewNumberCell(float64(*p.ComplianceScore))
		}
		tbl.AddRow(
			NewDateCell(p.Date),
			NewCell(p.Breakfast, dir),
			NewCell(p.MorningSnack, dir),
			NewCell(p.Lunch, dir),
			NewCell(p.AfternoonSnack, dir),
			NewCell(p.Dinner, dir),
			NewCell(p.EveningSnack, dir),
			NewNumberCell(p.WaterLiters),
			score,
		)
	}
	sec.Add(tbl)
	return sec
}

func followupSection(fu *FollowUpInfo) *Node {
	sec := NewSection("follow_up", DirLTR)
	sec.Add(
		NewDateField("due_date", fu.DueDate),
		NewField("status", fu.Status, DirLTR),
		NewNumberField("days_until", float64(fu.DaysUntil)),
	)
	return sec
}

func summarySection(plans []PlanDay, percent float64, scored int) *Node {
	sec := NewSection("summary", DirLTR)
	sec.Add(NewNumberField("days_planned", float64(len(plans))))
	if len(plans) > 0 {
		var sum float64
		for _, p := range plans {
			sum += p.WaterLiters
		}
		avg := math.Round(sum/float64(len(plans))*10) / 10
		sec.Add(NewNumberField("water_avg_liters", avg))
	}
	sec.Add(
		NewNumberField("compliance_percent", percent),
		NewNumberField("days_scored", float64(scored)),
	)
	return sec
}

func notesSection(notes []NoteEntry, dir Dir) *Node {
	sec := NewSection("notes", dir)
	tbl := NewTable("notes")
	tbl.AddRow(labelCell("date"), labelCell("author"), labelCell("note"))
	for _, n := range notes {
		tbl.AddRow(NewDateCell(n.CreatedAt), NewCell(n.AuthorName, dir), NewCell(n.Body, dir))
	}
	sec.Add(tbl)
	return sec
}
