package mealplan

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/nutrirec/nutrirec/internal/platform/validate"
)

var (
	ErrNotFound       = errors.New("meal plan not found")
	ErrClientNotFound = errors.New("client not found")
)

// ClientDirectory resolves client existence; the composition root wires the
// client service in.
type ClientDirectory interface {
	ClientExists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	repo    Repository
	clients ClientDirectory
}

func NewService(repo Repository, clients ClientDirectory) *Service {
	return &Service{repo: repo, clients: clients}
}

// toDate strips the time-of-day so the (client, date) uniqueness works on
// calendar days regardless of the caller's clock or zone.
func toDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (s *Service) validatePlan(p *MealPlan) validate.Errors {
	var errs validate.Errors

	if p.PlanDate.IsZero() {
		errs = append(errs, &validate.FieldError{
			Field: "plan_date", Rule: "required", Message: "plan_date must be set",
		})
	}
	if p.WaterLiters < 0 {
		errs = append(errs, &validate.FieldError{
			Field: "water_liters", Rule: "min", Message: "water_liters must not be negative",
		})
	}
	if p.TotalCalories != nil && *p.TotalCalories < 0 {
		errs = append(errs, &validate.FieldError{
			Field: "total_calories", Rule: "min", Message: "total_calories must not be negative",
		})
	}
	if p.ComplianceScore != nil && (*p.ComplianceScore < 1 || *p.ComplianceScore > 10) {
		errs = append(errs, &validate.FieldError{
			Field: "compliance_score", Rule: "range", Message: "compliance_score must be between 1 and 10",
		})
	}

	for _, slot := range []**string{
		&p.Breakfast, &p.MorningSnack, &p.Lunch,
		&p.AfternoonSnack, &p.Dinner, &p.EveningSnack, &p.Notes,
	} {
		if *slot != nil {
			clean := validate.Sanitize(**slot)
			*slot = &clean
		}
	}

	return errs
}

// Upsert writes the day's plan, replacing any existing plan for the same
// client and calendar day.
func (s *Service) Upsert(ctx context.Context, p *MealPlan) error {
	if errs := s.validatePlan(p); errs.OrNil() != nil {
		return errs
	}

	ok, err := s.clients.ClientExists(ctx, p.ClientID)
	if err != nil {
		return fmt.Errorf("resolve client: %w", err)
	}
	if !ok {
		return ErrClientNotFound
	}

	p.PlanDate = toDate(p.PlanDate)
	return s.repo.Upsert(ctx, p)
}

func (s *Service) GetByDate(ctx context.Context, clientID uuid.UUID, date time.Time) (*MealPlan, error) {
	return s.repo.GetByClientAndDate(ctx, clientID, toDate(date))
}

// ListRange returns plans with dates in [from, to], ascending.
func (s *Service) ListRange(ctx context.Context, clientID uuid.UUID, from, to time.Time, limit, offset int) ([]*MealPlan, int, error) {
	ok, err := s.clients.ClientExists(ctx, clientID)
	if err != nil {
		return nil, 0, fmt.Errorf("resolve client: %w", err)
	}
	if !ok {
		return nil, 0, ErrClientNotFound
	}
	return s.repo.ListByClient(ctx, clientID, toDate(from), toDate(to), limit, offset)
}

// ListRecent returns the plans of the last `days` calendar days up to and
// including today, ascending.
func (s *Service) ListRecent(ctx context.Context, clientID uuid.UUID, days int) ([]*MealPlan, error) {
	if days <= 0 {
		days = 7
	}
	to := toDate(time.Now())
	from := to.AddDate(0, 0, -(days - 1))
	items, _, err := s.ListRange(ctx, clientID, from, to, days, 0)
	return items, err
}

func (s *Service) Delete(ctx context.Context, planID uuid.UUID) error {
	return s.repo.Delete(ctx, planID)
}

// ComplianceRate summarizes the window ending today. Only plans that carry
// a score enter the percentage.
func (s *Service) ComplianceRate(ctx context.Context, clientID uuid.UUID, days int) (*ComplianceSummary, error) {
	if days <= 0 {
		days = 30
	}
	to := toDate(time.Now())
	from := to.AddDate(0, 0, -(days - 1))

	plans, _, err := s.ListRange(ctx, clientID, from, to, days, 0)
	if err != nil {
		return nil, err
	}

	sum := &ComplianceSummary{From: from, To: to, Plans: len(plans)}
	for _, p := range plans {
		if !p.Scored() {
			continue
		}
		sum.Scored++
		if p.Followed() {
			sum.Followed++
		}
	}
	if sum.Scored > 0 {
		sum.Percent = math.Round(float64(sum.Followed)/float64(sum.Scored)*1000) / 10
	}
	return sum, nil
}
