package assessment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrClientNotFound is what the profile and sample sources return when the
// client id does not resolve.
var ErrClientNotFound = errors.New("client not found")

// Profile is the slice of the client record the assessment needs.
type Profile struct {
	ClientID       uuid.UUID
	Age            int
	Sex            string
	Goal           Goal
	TargetWeightKg *float64
	ActivityLevel  string
}

// ProfileSource resolves a client's profile. Implementations return
// ErrClientNotFound for unknown or deleted clients.
type ProfileSource interface {
	Profile(ctx context.Context, clientID uuid.UUID) (*Profile, error)
}

// SampleSource returns the client's full measurement history. Order does
// not matter; the engine sorts by timestamp.
type SampleSource interface {
	Samples(ctx context.Context, clientID uuid.UUID) ([]Sample, error)
}

// Options carries the tunable thresholds. Zero values fall back to the WHO
// bands and the 0.5 kg stability threshold.
type Options struct {
	Bands       Bands
	StabilityKg float64
}

type Service struct {
	profiles    ProfileSource
	samples     SampleSource
	bands       Bands
	stabilityKg float64
}

func NewService(profiles ProfileSource, samples SampleSource, opts Options) *Service {
	if opts.Bands == (Bands{}) {
		opts.Bands = DefaultBands()
	}
	if opts.StabilityKg == 0 {
		opts.StabilityKg = 0.5
	}
	return &Service{
		profiles:    profiles,
		samples:     samples,
		bands:       opts.Bands,
		stabilityKg: opts.StabilityKg,
	}
}

// Assess builds the full derived picture for one client: BMI and category
// from the latest measurement, trend and shape over the history, the diet
// suggestion, energy needs, and goal progress. Values come straight from
// the engine functions; nothing is re-rounded here.
func (s *Service) Assess(ctx context.Context, clientID uuid.UUID) (*Assessment, error) {
	profile, err := s.profiles.Profile(ctx, clientID)
	if err != nil {
		return nil, err
	}
	samples, err := s.samples.Samples(ctx, clientID)
	if err != nil {
		return nil, err
	}

	a := &Assessment{
		ClientID:         clientID,
		GeneratedAt:      time.Now(),
		MeasurementCount: len(samples),
		Trend:            WeightTrend(samples, s.stabilityKg),
		Shape:            HistoryShape(samples, s.stabilityKg),
	}
	if len(samples) == 0 {
		return a, nil
	}

	ordered := sortedByTime(samples)
	first := ordered[0]
	latest := ordered[len(ordered)-1]

	bmi, err := ComputeBMI(latest.HeightCm, latest.WeightKg)
	if err != nil {
		return nil, err
	}
	a.BMI = bmi
	a.Category = s.bands.Categorize(bmi)
	a.DetailedCategory = s.bands.CategorizeDetailed(bmi)
	a.Suggestion = SuggestDietAdjustment(a.Category, a.Trend.Direction, profile.Goal)

	bmr, err := ComputeBMR(latest.HeightCm, latest.WeightKg, profile.Age, profile.Sex)
	if err != nil {
		return nil, err
	}
	a.BMR = bmr
	if ValidActivityLevel(profile.ActivityLevel) {
		cal, err := DailyCalories(bmr, profile.ActivityLevel)
		if err != nil {
			return nil, err
		}
		a.DailyCalories = cal
	}

	if profile.TargetWeightKg != nil {
		p := ProgressToGoal(first.WeightKg, latest.WeightKg, *profile.TargetWeightKg)
		a.Progress = &p
	}

	return a, nil
}
