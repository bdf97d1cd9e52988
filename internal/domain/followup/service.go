package followup

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrClientNotFound = errors.New("client not found")

// ClientInfo is the slice of the client record the scheduler needs.
// CadenceDays zero means the client has no personal cadence and the
// configured default applies.
type ClientInfo struct {
	ClientID    uuid.UUID
	PharmacyID  string
	FullName    string
	CadenceDays int
	CreatedAt   time.Time
}

// ClientSource lists active (non-deleted) clients. Implementations return
// ErrClientNotFound for unknown ids.
type ClientSource interface {
	ClientInfo(ctx context.Context, id uuid.UUID) (*ClientInfo, error)
	ActiveClients(ctx context.Context) ([]ClientInfo, error)
}

// LastEventSource reports when the client was last measured. ok is false
// when no measurement exists yet.
type LastEventSource interface {
	LastMeasuredAt(ctx context.Context, clientID uuid.UUID) (time.Time, bool, error)
}

// Options carries the scheduling defaults from configuration.
type Options struct {
	DefaultCadenceDays int
	WarningWindowDays  int
}

type Service struct {
	clients ClientSource
	events  LastEventSource
	opts    Options
}

func NewService(clients ClientSource, events LastEventSource, opts Options) *Service {
	if opts.DefaultCadenceDays == 0 {
		opts.DefaultCadenceDays = 30
	}
	if opts.WarningWindowDays == 0 {
		opts.WarningWindowDays = 3
	}
	return &Service{clients: clients, events: events, opts: opts}
}

func (s *Service) build(ctx context.Context, info *ClientInfo, today time.Time) (*FollowUp, error) {
	// The anchor is the latest measurement; a client never measured is
	// anchored to registration day.
	lastEvent, ok, err := s.events.LastMeasuredAt(ctx, info.ClientID)
	if err != nil {
		return nil, err
	}
	if !ok {
		lastEvent = info.CreatedAt
	}

	cadence := info.CadenceDays
	if cadence == 0 {
		cadence = s.opts.DefaultCadenceDays
	}

	due, err := NextFollowUpDate(lastEvent, cadence)
	if err != nil {
		return nil, err
	}

	return &FollowUp{
		ClientID:    info.ClientID,
		PharmacyID:  info.PharmacyID,
		FullName:    info.FullName,
		LastEvent:   lastEvent,
		DueDate:     due,
		Status:      Classify(due, today, s.opts.WarningWindowDays),
		DaysUntil:   DaysUntil(due, today),
		CadenceDays: cadence,
	}, nil
}

// ForClient computes one client's follow-up relative to the given reference
// day.
func (s *Service) ForClient(ctx context.Context, clientID uuid.UUID, today time.Time) (*FollowUp, error) {
	info, err := s.clients.ClientInfo(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, info, today)
}

// ListDue scans all active clients and returns those overdue or due soon,
// most urgent first.
func (s *Service) ListDue(ctx context.Context, today time.Time) ([]*FollowUp, error) {
	infos, err := s.clients.ActiveClients(ctx)
	if err != nil {
		return nil, err
	}

	var due []*FollowUp
	for i := range infos {
		f, err := s.build(ctx, &infos[i], today)
		if err != nil {
			return nil, err
		}
		if f.Status == StatusOverdue || f.Status == StatusDueSoon {
			due = append(due, f)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].DueDate.Before(due[j].DueDate)
	})
	return due, nil
}
