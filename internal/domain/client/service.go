package client

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/nutrirec/nutrirec/internal/platform/validate"
)

var (
	ErrNotFound         = errors.New("client not found")
	ErrPharmacyIDTaken  = errors.New("pharmacy id already assigned")
	ErrIDSpaceExhausted = errors.New("pharmacy id space exhausted")
)

// Pharmacy IDs occupy the 5-digit range that needs no leading zeros, so the
// number printed on a client's card always matches the stored string.
const (
	pharmacyIDMin = 10000
	pharmacyIDMax = 99999

	randomIDAttempts = 100
)

const (
	StrategySequential = "sequential"
	StrategyRandom     = "random"
)

var validSexes = map[string]bool{
	"male":   true,
	"female": true,
}

var validGoals = map[string]bool{
	"loss":     true,
	"gain":     true,
	"maintain": true,
}

var validActivityLevels = map[string]bool{
	"sedentary":   true,
	"light":       true,
	"moderate":    true,
	"active":      true,
	"very_active": true,
}

// Clients registered without a follow-up cadence are seen monthly.
const defaultCadenceDays = 30

// Options carries the configurable bounds for client validation and the
// pharmacy ID allocation strategy.
type Options struct {
	IDStrategy string
	AgeMin     int
	AgeMax     int
}

type Service struct {
	clients ClientRepository
	notes   NoteRepository
	opts    Options
}

func NewService(clients ClientRepository, notes NoteRepository, opts Options) *Service {
	if opts.IDStrategy == "" {
		opts.IDStrategy = StrategySequential
	}
	if opts.AgeMin == 0 {
		opts.AgeMin = 1
	}
	if opts.AgeMax == 0 {
		opts.AgeMax = 120
	}
	return &Service{clients: clients, notes: notes, opts: opts}
}

func (s *Service) validateClient(c *Client) validate.Errors {
	var errs validate.Errors

	name, err := validate.Name("full_name", c.FullName)
	if err != nil {
		errs = append(errs, err)
	} else {
		c.FullName = name
	}

	if err := validate.Age("age", c.Age, s.opts.AgeMin, s.opts.AgeMax); err != nil {
		errs = append(errs, err)
	}

	c.Sex = strings.ToLower(strings.TrimSpace(c.Sex))
	if !validSexes[c.Sex] {
		errs = append(errs, &validate.FieldError{
			Field: "sex", Rule: "enum", Message: "sex must be male or female",
		})
	}

	if c.Phone != nil && *c.Phone != "" {
		phone, err := validate.Phone("phone", *c.Phone)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.Phone = &phone
		}
	}

	if c.Language == "" {
		c.Language = "ar"
	}
	lang, err := validate.Language("language", c.Language)
	if err != nil {
		errs = append(errs, err)
	} else {
		c.Language = lang
	}

	if c.Goal == "" {
		c.Goal = "maintain"
	}
	if !validGoals[c.Goal] {
		errs = append(errs, &validate.FieldError{
			Field: "goal", Rule: "enum", Message: "goal must be loss, gain or maintain",
		})
	}

	if c.TargetWeightKg != nil {
		if err := validate.Weight("target_weight_kg", *c.TargetWeightKg); err != nil {
			errs = append(errs, err)
		}
	}

	if c.ActivityLevel == "" {
		c.ActivityLevel = "moderate"
	}
	if !validActivityLevels[c.ActivityLevel] {
		errs = append(errs, &validate.FieldError{
			Field: "activity_level", Rule: "enum",
			Message: "activity_level must be sedentary, light, moderate, active or very_active",
		})
	}

	if c.CadenceDays == 0 {
		c.CadenceDays = defaultCadenceDays
	}
	if c.CadenceDays < 0 {
		errs = append(errs, &validate.FieldError{
			Field: "cadence_days", Rule: "min", Message: "cadence_days must not be negative",
		})
	}

	return errs
}

// CreateClient validates the client, allocates a pharmacy ID if none was
// supplied, and persists the record. A caller-supplied pharmacy ID must be
// well-formed and unassigned.
func (s *Service) CreateClient(ctx context.Context, c *Client) error {
	if errs := s.validateClient(c); errs.OrNil() != nil {
		return errs
	}

	if c.PharmacyID != "" {
		pid, ferr := validate.PharmacyID("pharmacy_id", c.PharmacyID)
		if ferr != nil {
			return validate.Errors{ferr}
		}
		c.PharmacyID = pid
		taken, err := s.clients.PharmacyIDExists(ctx, c.PharmacyID)
		if err != nil {
			return fmt.Errorf("check pharmacy id: %w", err)
		}
		if taken {
			return ErrPharmacyIDTaken
		}
	} else {
		pid, err := s.allocatePharmacyID(ctx)
		if err != nil {
			return err
		}
		c.PharmacyID = pid
	}

	return s.clients.Create(ctx, c)
}

func (s *Service) allocatePharmacyID(ctx context.Context) (string, error) {
	switch s.opts.IDStrategy {
	case StrategyRandom:
		for i := 0; i < randomIDAttempts; i++ {
			n := pharmacyIDMin + rand.Intn(pharmacyIDMax-pharmacyIDMin+1)
			pid := fmt.Sprintf("%05d", n)
			taken, err := s.clients.PharmacyIDExists(ctx, pid)
			if err != nil {
				return "", fmt.Errorf("check pharmacy id: %w", err)
			}
			if !taken {
				return pid, nil
			}
		}
		return "", fmt.Errorf("no free pharmacy id after %d random draws", randomIDAttempts)
	default:
		max, err := s.clients.MaxPharmacyID(ctx)
		if err != nil {
			return "", fmt.Errorf("query max pharmacy id: %w", err)
		}
		next := max + 1
		if next < pharmacyIDMin {
			next = pharmacyIDMin
		}
		if next > pharmacyIDMax {
			return "", ErrIDSpaceExhausted
		}
		return fmt.Sprintf("%05d", next), nil
	}
}

func (s *Service) GetClient(ctx context.Context, id uuid.UUID) (*Client, error) {
	return s.clients.GetByID(ctx, id)
}

func (s *Service) GetClientByPharmacyID(ctx context.Context, pharmacyID string) (*Client, error) {
	pid, ferr := validate.PharmacyID("pharmacy_id", pharmacyID)
	if ferr != nil {
		return nil, validate.Errors{ferr}
	}
	return s.clients.GetByPharmacyID(ctx, pid)
}

// UpdateClient applies profile changes. The pharmacy ID is immutable: a
// request carrying a different one is rejected rather than silently ignored.
func (s *Service) UpdateClient(ctx context.Context, c *Client) error {
	existing, err := s.clients.GetByID(ctx, c.ID)
	if err != nil {
		return err
	}

	if c.PharmacyID != "" && c.PharmacyID != existing.PharmacyID {
		return validate.Errors{{
			Field: "pharmacy_id", Rule: "immutable",
			Message: "pharmacy_id cannot be changed once assigned",
		}}
	}
	c.PharmacyID = existing.PharmacyID
	c.VisitCount = existing.VisitCount
	c.CreatedAt = existing.CreatedAt

	if errs := s.validateClient(c); errs.OrNil() != nil {
		return errs
	}

	return s.clients.Update(ctx, c)
}

func (s *Service) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return s.clients.SoftDelete(ctx, id)
}

func (s *Service) ListClients(ctx context.Context, limit, offset int) ([]*Client, int, error) {
	return s.clients.List(ctx, limit, offset)
}

func (s *Service) SearchClients(ctx context.Context, query string, limit, offset int) ([]*Client, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.clients.List(ctx, limit, offset)
	}
	return s.clients.Search(ctx, query, limit, offset)
}

// RecordVisit bumps the visit counter, typically when a measurement is taken.
func (s *Service) RecordVisit(ctx context.Context, id uuid.UUID) error {
	return s.clients.IncrementVisits(ctx, id)
}

func (s *Service) AddNote(ctx context.Context, n *Note) error {
	if _, err := s.clients.GetByID(ctx, n.ClientID); err != nil {
		return err
	}
	n.Body = validate.Sanitize(n.Body)
	if strings.TrimSpace(n.Body) == "" {
		return validate.Errors{{
			Field: "body", Rule: "required", Message: "note body must not be empty",
		}}
	}
	return s.notes.CreateNote(ctx, n)
}

func (s *Service) ListNotes(ctx context.Context, clientID uuid.UUID, limit, offset int) ([]*Note, int, error) {
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, 0, err
	}
	return s.notes.ListNotes(ctx, clientID, limit, offset)
}

func (s *Service) DeleteNote(ctx context.Context, clientID, noteID uuid.UUID) error {
	return s.notes.DeleteNote(ctx, clientID, noteID)
}
