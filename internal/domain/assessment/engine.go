package assessment

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/nutrirec/nutrirec/internal/platform/validate"
)

// Errors returned by the calculation functions.
var (
	// ErrInvalidMeasurement means a non-positive height or weight reached a
	// calculation. The validation layer rejects these before storage, so
	// hitting this is a programming error in the caller, not bad user input.
	ErrInvalidMeasurement = errors.New("height and weight must be positive")

	// ErrInsufficientHistory is internal: WeightTrend reports direction
	// "unknown" instead of returning it, but services that must distinguish
	// an empty history can test for it explicitly.
	ErrInsufficientHistory = errors.New("at least two measurements are required")
)

// goalToleranceKg is the margin within which a target weight counts as
// reached.
const goalToleranceKg = 0.5

// activityMultipliers maps activity level tokens to their daily-calorie
// multiplier over BMR.
var activityMultipliers = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

// ValidActivityLevel reports whether the token has a known multiplier.
func ValidActivityLevel(level string) bool {
	_, ok := activityMultipliers[level]
	return ok
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputeBMI returns weight(kg) / height(m)^2 rounded to one decimal place.
func ComputeBMI(heightCm, weightKg float64) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, ErrInvalidMeasurement
	}
	m := heightCm / 100
	return round1(weightKg / (m * m)), nil
}

// WeightTrend compares the two most recent samples by timestamp. A delta
// smaller than stabilityKg in either direction counts as stable, so
// measurement noise is not reported as a trend. With fewer than two samples
// the direction is "unknown"; that is a legitimate empty state, not an
// error.
func WeightTrend(samples []Sample, stabilityKg float64) Trend {
	if len(samples) < 2 {
		return Trend{Direction: DirectionUnknown}
	}

	ordered := sortedByTime(samples)
	prev := ordered[len(ordered)-2]
	last := ordered[len(ordered)-1]

	delta := last.WeightKg - prev.WeightKg
	t := Trend{
		DeltaKg:      round1(delta),
		DeltaPercent: round1(delta / prev.WeightKg * 100),
	}
	switch {
	case math.Abs(delta) < stabilityKg:
		t.Direction = DirectionStable
	case delta < 0:
		t.Direction = DirectionLoss
	default:
		t.Direction = DirectionGain
	}
	return t
}

// HistoryShape classifies the weight curve over the last three samples.
// Strictly monotonic runs are "decreasing" or "increasing"; a net change
// below the stability threshold is "stable"; anything else is
// "fluctuating". With exactly two samples the shape mirrors the pairwise
// trend.
func HistoryShape(samples []Sample, stabilityKg float64) Shape {
	if len(samples) < 2 {
		return ShapeUnknown
	}

	ordered := sortedByTime(samples)
	if len(ordered) == 2 {
		switch WeightTrend(ordered, stabilityKg).Direction {
		case DirectionLoss:
			return ShapeDecreasing
		case DirectionGain:
			return ShapeIncreasing
		default:
			return ShapeStable
		}
	}

	last3 := ordered[len(ordered)-3:]
	w1, w2, w3 := last3[0].WeightKg, last3[1].WeightKg, last3[2].WeightKg
	switch {
	case w1 > w2 && w2 > w3:
		return ShapeDecreasing
	case w1 < w2 && w2 < w3:
		return ShapeIncreasing
	case math.Abs(w3-w1) < stabilityKg:
		return ShapeStable
	default:
		return ShapeFluctuating
	}
}

// OverallChange summarizes the full span of the history, first sample to
// last: total weight movement, its percentage, BMI movement, and the
// average change per week.
type OverallChange struct {
	DeltaKg          float64 `json:"delta_kg"`
	DeltaPercent     float64 `json:"delta_percent"`
	BMIDelta         float64 `json:"bmi_delta"`
	AvgWeeklyDeltaKg float64 `json:"avg_weekly_delta_kg"`
	SpanDays         int     `json:"span_days"`
}

// HistoryChange computes the span summary. BMI at each end uses that
// sample's own height. Fewer than two samples is ErrInsufficientHistory.
func HistoryChange(samples []Sample) (OverallChange, error) {
	if len(samples) < 2 {
		return OverallChange{}, ErrInsufficientHistory
	}

	ordered := sortedByTime(samples)
	first := ordered[0]
	last := ordered[len(ordered)-1]

	firstBMI, err := ComputeBMI(first.HeightCm, first.WeightKg)
	if err != nil {
		return OverallChange{}, err
	}
	lastBMI, err := ComputeBMI(last.HeightCm, last.WeightKg)
	if err != nil {
		return OverallChange{}, err
	}

	delta := last.WeightKg - first.WeightKg
	oc := OverallChange{
		DeltaKg:      round1(delta),
		DeltaPercent: round1(delta / first.WeightKg * 100),
		BMIDelta:     round1(lastBMI - firstBMI),
		SpanDays:     int(last.TakenAt.Sub(first.TakenAt).Hours() / 24),
	}
	if weeks := last.TakenAt.Sub(first.TakenAt).Hours() / (24 * 7); weeks > 0 {
		oc.AvgWeeklyDeltaKg = round1(delta / weeks)
	}
	return oc, nil
}

// sortedByTime returns a copy of the samples ordered by timestamp
// ascending. The input slice is never mutated.
func sortedByTime(samples []Sample) []Sample {
	ordered := make([]Sample, len(samples))
	copy(ordered, samples)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].TakenAt.Before(ordered[j].TakenAt)
	})
	return ordered
}

// SuggestDietAdjustment is a fixed rules table over the finite cross
// product of category, trend direction, and goal. Same inputs always yield
// the same token; there is no model behind it.
func SuggestDietAdjustment(category Category, direction Direction, goal Goal) string {
	switch category {
	case CategoryUnderweight:
		if goal == GoalLoss {
			return "review_goal"
		}
		if goal == GoalGain && direction == DirectionGain {
			return "maintain_plan"
		}
		return "increase_calories"

	case CategoryNormal:
		switch goal {
		case GoalLoss:
			if direction == DirectionLoss {
				return "maintain_plan"
			}
			return "reduce_calories"
		case GoalGain:
			if direction == DirectionGain {
				return "maintain_plan"
			}
			return "increase_calories"
		default: // maintain
			switch direction {
			case DirectionGain:
				return "reduce_calories"
			case DirectionLoss:
				return "increase_calories"
			case DirectionStable:
				return "maintain_plan"
			default:
				return "monitor"
			}
		}

	default: // overweight and the obese classes
		if goal == GoalGain {
			return "review_goal"
		}
		if goal == GoalLoss && direction == DirectionLoss {
			return "maintain_plan"
		}
		if direction == DirectionUnknown {
			return "monitor"
		}
		return "reduce_calories"
	}
}

// ComputeBMR returns the basal metabolic rate by the Mifflin-St Jeor
// equation: 10w + 6.25h - 5a, plus 5 for males or minus 161 otherwise.
// Rounded to one decimal.
func ComputeBMR(heightCm, weightKg float64, age int, sex string) (float64, error) {
	if heightCm <= 0 || weightKg <= 0 {
		return 0, ErrInvalidMeasurement
	}
	if age < 0 {
		return 0, fmt.Errorf("age must not be negative, got %d", age)
	}
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(age)
	if sex == "male" {
		bmr += 5
	} else {
		bmr -= 161
	}
	return round1(bmr), nil
}

// DailyCalories multiplies a BMR by the activity level multiplier.
func DailyCalories(bmr float64, activityLevel string) (float64, error) {
	mult, ok := activityMultipliers[activityLevel]
	if !ok {
		return 0, fmt.Errorf("unknown activity level: %q", activityLevel)
	}
	return round1(bmr * mult), nil
}

// ProgressToGoal measures movement from the starting weight toward the
// target. Percent is clamped to [0,100]; moving away from the target reads
// as zero progress, not negative.
func ProgressToGoal(startKg, currentKg, targetKg float64) Progress {
	p := Progress{
		StartKg:     startKg,
		CurrentKg:   currentKg,
		TargetKg:    targetKg,
		RemainingKg: round1(math.Abs(currentKg - targetKg)),
		Achieved:    math.Abs(currentKg-targetKg) <= goalToleranceKg,
	}

	total := math.Abs(startKg - targetKg)
	achieved := startKg - currentKg
	if targetKg > startKg {
		achieved = currentKg - startKg
	}
	p.AchievedKg = round1(achieved)

	if total == 0 {
		if p.Achieved {
			p.Percent = 100
		}
		return p
	}
	p.Percent = round1(math.Min(100, math.Max(0, achieved/total*100)))
	return p
}

// ValidateGoal is the cross-field check the generic validators cannot do:
// a loss goal needs a target below the current weight, a gain goal one
// above it.
func ValidateGoal(goal Goal, currentKg, targetKg float64) *validate.FieldError {
	if !validGoals[goal] {
		return &validate.FieldError{Field: "goal", Rule: "enum", Message: `goal must be "loss", "gain", or "maintain"`}
	}
	switch goal {
	case GoalLoss:
		if targetKg >= currentKg {
			return &validate.FieldError{Field: "target_weight_kg", Rule: "cross_field", Message: "target weight must be below current weight for a loss goal"}
		}
	case GoalGain:
		if targetKg <= currentKg {
			return &validate.FieldError{Field: "target_weight_kg", Rule: "cross_field", Message: "target weight must be above current weight for a gain goal"}
		}
	}
	return nil
}
