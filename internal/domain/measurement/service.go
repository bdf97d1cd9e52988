package measurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nutrirec/nutrirec/internal/domain/assessment"
	"github.com/nutrirec/nutrirec/internal/platform/validate"
)

var (
	ErrNotFound       = errors.New("measurement not found")
	ErrClientNotFound = errors.New("client not found")
)

// ClientDirectory is the slice of the client domain this service needs.
// The composition root wires the client service in behind it.
type ClientDirectory interface {
	ClientExists(ctx context.Context, id uuid.UUID) (bool, error)
	RecordVisit(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	repo    Repository
	clients ClientDirectory
}

func NewService(repo Repository, clients ClientDirectory) *Service {
	return &Service{repo: repo, clients: clients}
}

func (s *Service) validateMeasurement(m *Measurement) validate.Errors {
	var errs validate.Errors

	if err := validate.Height("height_cm", m.HeightCm); err != nil {
		errs = append(errs, err)
	}
	if err := validate.Weight("weight_kg", m.WeightKg); err != nil {
		errs = append(errs, err)
	}

	pcts := []struct {
		field string
		value *float64
	}{
		{"body_fat_pct", m.BodyFatPct},
		{"muscle_pct", m.MusclePct},
		{"water_pct", m.WaterPct},
		{"mineral_pct", m.MineralPct},
	}
	for _, p := range pcts {
		if p.value == nil {
			continue
		}
		if err := validate.Percentage(p.field, *p.value); err != nil {
			errs = append(errs, err)
		}
	}

	if m.BoneDensity != nil && *m.BoneDensity < 0 {
		errs = append(errs, &validate.FieldError{
			Field: "bone_density", Rule: "min", Message: "bone density must not be negative",
		})
	}

	if m.Notes != nil {
		clean := validate.Sanitize(*m.Notes)
		m.Notes = &clean
	}

	return errs
}

// Append validates the reading, derives BMI from this row's height and
// weight, stores it, and counts the visit. A BMI sent by the caller is
// discarded.
func (s *Service) Append(ctx context.Context, m *Measurement) error {
	if errs := s.validateMeasurement(m); errs.OrNil() != nil {
		return errs
	}

	ok, err := s.clients.ClientExists(ctx, m.ClientID)
	if err != nil {
		return fmt.Errorf("resolve client: %w", err)
	}
	if !ok {
		return ErrClientNotFound
	}

	if m.TakenAt.IsZero() {
		m.TakenAt = time.Now()
	}

	bmi, err := assessment.ComputeBMI(m.HeightCm, m.WeightKg)
	if err != nil {
		return fmt.Errorf("compute bmi: %w", err)
	}
	m.BMI = bmi

	if err := s.repo.Append(ctx, m); err != nil {
		return err
	}
	return s.clients.RecordVisit(ctx, m.ClientID)
}

// History returns the measurement history ascending, optionally limited to
// rows taken at or after since.
func (s *Service) History(ctx context.Context, clientID uuid.UUID, since *time.Time, limit, offset int) ([]*Measurement, int, error) {
	ok, err := s.clients.ClientExists(ctx, clientID)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve client: %w", err)
	}
	if !ok {
		return nil, 0, ErrClientNotFound
	}
	return s.repo.ListByClient(ctx, clientID, since, limit, offset)
}

// Latest returns the most recent measurement, the client's current state.
func (s *Service) Latest(ctx context.Context, clientID uuid.UUID) (*Measurement, error) {
	ok, err := s.clients.ClientExists(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("resolve client: %w", err)
	}
	if !ok {
		return nil, ErrClientNotFound
	}
	return s.repo.Latest(ctx, clientID)
}

func (s *Service) Count(ctx context.Context, clientID uuid.UUID) (int, error) {
	return s.repo.CountByClient(ctx, clientID)
}
