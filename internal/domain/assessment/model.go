package assessment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is a BMI band token. Tokens are language-neutral; the
// presentation layer translates them.
type Category string

const (
	CategoryUnderweight Category = "underweight"
	CategoryNormal      Category = "normal"
	CategoryOverweight  Category = "overweight"
	CategoryObese       Category = "obese"

	// Detailed obesity classes used by the clinical reports.
	CategoryObeseClass1 Category = "obese_class_1"
	CategoryObeseClass2 Category = "obese_class_2"
	CategoryObeseClass3 Category = "obese_class_3"
)

// Direction classifies the weight change between the two most recent
// measurements.
type Direction string

const (
	DirectionGain    Direction = "gain"
	DirectionLoss    Direction = "loss"
	DirectionStable  Direction = "stable"
	DirectionUnknown Direction = "unknown"
)

// Shape classifies the weight curve over the last three measurements.
type Shape string

const (
	ShapeDecreasing  Shape = "decreasing"
	ShapeIncreasing  Shape = "increasing"
	ShapeStable      Shape = "stable"
	ShapeFluctuating Shape = "fluctuating"
	ShapeUnknown     Shape = "unknown"
)

// Goal is the client's treatment goal.
type Goal string

const (
	GoalLoss     Goal = "loss"
	GoalGain     Goal = "gain"
	GoalMaintain Goal = "maintain"
)

var validGoals = map[Goal]bool{
	GoalLoss: true, GoalGain: true, GoalMaintain: true,
}

// Bands holds the BMI category boundaries. Each boundary is the exclusive
// upper edge of its band, so a BMI exactly on a boundary falls into the next
// band up: 18.5 is normal, 25.0 is overweight, 30.0 is obese.
type Bands struct {
	UnderweightMax float64 `json:"underweight_max"`
	NormalMax      float64 `json:"normal_max"`
	OverweightMax  float64 `json:"overweight_max"`
	ObeseClass1Max float64 `json:"obese_class_1_max"`
	ObeseClass2Max float64 `json:"obese_class_2_max"`
}

// DefaultBands returns the WHO adult BMI boundaries.
func DefaultBands() Bands {
	return Bands{
		UnderweightMax: 18.5,
		NormalMax:      25.0,
		OverweightMax:  30.0,
		ObeseClass1Max: 35.0,
		ObeseClass2Max: 40.0,
	}
}

// Validate checks that the boundaries are positive and strictly ascending.
func (b Bands) Validate() error {
	if b.UnderweightMax <= 0 {
		return fmt.Errorf("underweight boundary must be positive, got %v", b.UnderweightMax)
	}
	if b.NormalMax <= b.UnderweightMax || b.OverweightMax <= b.NormalMax ||
		b.ObeseClass1Max <= b.OverweightMax || b.ObeseClass2Max <= b.ObeseClass1Max {
		return fmt.Errorf("BMI boundaries must be strictly ascending")
	}
	return nil
}

// Categorize returns the four-band category for a BMI value. Bands are
// inclusive on the lower bound and exclusive on the upper bound; the obese
// band is unbounded above.
func (b Bands) Categorize(bmi float64) Category {
	switch {
	case bmi < b.UnderweightMax:
		return CategoryUnderweight
	case bmi < b.NormalMax:
		return CategoryNormal
	case bmi < b.OverweightMax:
		return CategoryOverweight
	default:
		return CategoryObese
	}
}

// CategorizeDetailed is Categorize with the obese band subdivided into the
// three clinical obesity classes.
func (b Bands) CategorizeDetailed(bmi float64) Category {
	if c := b.Categorize(bmi); c != CategoryObese {
		return c
	}
	switch {
	case bmi < b.ObeseClass1Max:
		return CategoryObeseClass1
	case bmi < b.ObeseClass2Max:
		return CategoryObeseClass2
	default:
		return CategoryObeseClass3
	}
}

// Sample is the slice of a measurement the engine computes over.
type Sample struct {
	TakenAt  time.Time `json:"taken_at"`
	HeightCm float64   `json:"height_cm"`
	WeightKg float64   `json:"weight_kg"`
}

// Trend describes the weight change between the two most recent samples.
type Trend struct {
	Direction    Direction `json:"direction"`
	DeltaKg      float64   `json:"delta_kg"`
	DeltaPercent float64   `json:"delta_percent"`
}

// Progress describes how far a client has moved from the starting weight
// toward the target weight.
type Progress struct {
	StartKg     float64 `json:"start_kg"`
	CurrentKg   float64 `json:"current_kg"`
	TargetKg    float64 `json:"target_kg"`
	AchievedKg  float64 `json:"achieved_kg"`
	RemainingKg float64 `json:"remaining_kg"`
	Percent     float64 `json:"percent"`
	Achieved    bool    `json:"achieved"`
}

// Assessment is the full derived picture for one client, assembled by the
// service from the measurement history and the client's profile.
type Assessment struct {
	ClientID         uuid.UUID `json:"client_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	MeasurementCount int       `json:"measurement_count"`
	BMI              float64   `json:"bmi,omitempty"`
	Category         Category  `json:"category,omitempty"`
	DetailedCategory Category  `json:"detailed_category,omitempty"`
	Trend            Trend     `json:"trend"`
	Shape            Shape     `json:"shape"`
	Suggestion       string    `json:"suggestion,omitempty"`
	BMR              float64   `json:"bmr,omitempty"`
	DailyCalories    float64   `json:"daily_calories,omitempty"`
	Progress         *Progress `json:"progress,omitempty"`
}
