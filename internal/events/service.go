// Package events serves the event catalog and RSVP submission.
package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/membership"
	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/notify"
	"github.com/aether-community/backend/internal/store"
	"github.com/aether-community/backend/pkg/validation"
)

// ErrEventNotFound means no event has the requested code.
var ErrEventNotFound = errors.New("event not found")

// When values accepted by Filter.
const (
	WhenUpcoming = "upcoming"
	WhenPast     = "past"
	WhenAll      = "all"
)

// Filter narrows the event list. Empty fields match everything.
type Filter struct {
	When  string
	Type  string
	Focus string
}

// Valid reports whether f.When is a known value.
func (f Filter) Valid() bool {
	switch f.When {
	case "", WhenUpcoming, WhenPast, WhenAll:
		return true
	}
	return false
}

// RSVPInput is the RSVP form.
type RSVPInput struct {
	FullName     string `json:"full_name" binding:"required,min=2,max=120"`
	Email        string `json:"email" binding:"required,email"`
	MemberCode   string `json:"member_code" binding:"max=32"`
	CityCountry  string `json:"city_country" binding:"max=120"`
	Platform     string `json:"platform" binding:"max=60"`
	InterestNote string `json:"interest_note" binding:"max=1000"`
}

// Store is the data the events service reads and writes.
type Store interface {
	store.Events
	store.RSVPs
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	FindByCode(ctx context.Context, code string) (*models.Member, error)
}

// Confirmer sends RSVP confirmation emails.
type Confirmer interface {
	SendRSVPConfirmation(ctx context.Context, p notify.RSVPConfirmationEmail) error
}

// Service lists events and records RSVPs.
type Service struct {
	store     Store
	confirmer Confirmer
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates an events service.
func NewService(st Store, confirmer Confirmer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, confirmer: confirmer, logger: logger, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// List returns events matching f. Upcoming and all are ordered soonest
// first; past events are ordered most recent first.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Event, error) {
	all, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	now := s.now()
	out := make([]models.Event, 0, len(all))
	for _, e := range all {
		if !matchWhen(e, f.When, now) {
			continue
		}
		if f.Type != "" && !strings.EqualFold(e.Type, f.Type) {
			continue
		}
		if f.Focus != "" && !strings.EqualFold(e.Focus, f.Focus) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.When == WhenPast {
			return out[i].StartsAt.After(out[j].StartsAt)
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out, nil
}

func matchWhen(e models.Event, when string, now time.Time) bool {
	switch when {
	case WhenUpcoming:
		return !e.StartsAt.Before(now)
	case WhenPast:
		return e.StartsAt.Before(now)
	}
	return true
}

// Find returns the event with the given code.
func (s *Service) Find(ctx context.Context, code string) (*models.Event, error) {
	e, err := s.store.FindEvent(ctx, strings.TrimSpace(code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find event: %w", err)
	}
	return e, nil
}

// RSVP records a registration for the event and emails a confirmation with
// a calendar link. The RSVP is linked to a member when one matches the
// supplied code or email. A failed confirmation email does not fail the RSVP.
func (s *Service) RSVP(ctx context.Context, code string, in RSVPInput) (*models.RSVP, error) {
	in = normalize(in)
	if fields := validation.Validate(in); fields != nil {
		return nil, &membership.ValidationError{Fields: fields}
	}
	event, err := s.Find(ctx, code)
	if err != nil {
		return nil, err
	}

	platform := in.Platform
	if platform == "" {
		platform = event.Platform
	}
	r := &models.RSVP{
		EventCode:    event.Code,
		MemberCode:   s.resolveMember(ctx, in),
		FullName:     in.FullName,
		Email:        in.Email,
		CityCountry:  in.CityCountry,
		Platform:     platform,
		InterestNote: in.InterestNote,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateRSVP(ctx, r); err != nil {
		return nil, fmt.Errorf("create rsvp: %w", err)
	}
	s.logger.Info("rsvp recorded",
		zap.String("event_code", r.EventCode),
		zap.String("member_code", r.MemberCode),
	)

	if s.confirmer != nil {
		err := s.confirmer.SendRSVPConfirmation(ctx, notify.RSVPConfirmationEmail{
			To:           r.Email,
			Name:         r.FullName,
			EventTitle:   event.Title,
			StartsAt:     event.StartsAt,
			Platform:     r.Platform,
			Location:     event.Location,
			CalendarLink: calendarLink(event),
		})
		if err != nil {
			s.logger.Warn("rsvp confirmation not delivered", zap.String("rsvp_id", r.ID), zap.Error(err))
		}
	}
	return r, nil
}

// resolveMember returns the code of the member the RSVP belongs to, or "".
// Lookup failures leave the RSVP anonymous.
func (s *Service) resolveMember(ctx context.Context, in RSVPInput) string {
	if in.MemberCode != "" {
		m, err := s.store.FindByCode(ctx, in.MemberCode)
		if err == nil {
			return m.Code
		}
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("rsvp member lookup by code failed", zap.Error(err))
		}
	}
	m, err := s.store.FindByEmail(ctx, in.Email)
	if err == nil {
		return m.Code
	}
	if !errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("rsvp member lookup by email failed", zap.Error(err))
	}
	return ""
}

func calendarLink(e *models.Event) string {
	where := e.Location
	if where == "" {
		where = e.Platform
	}
	return notify.CalendarLink(e.Title, e.StartsAt, notify.DefaultEventLength, e.Description, where)
}

func normalize(in RSVPInput) RSVPInput {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = models.NormalizeEmail(in.Email)
	in.MemberCode = strings.ToUpper(strings.TrimSpace(in.MemberCode))
	in.CityCountry = strings.TrimSpace(in.CityCountry)
	in.Platform = strings.TrimSpace(in.Platform)
	in.InterestNote = strings.TrimSpace(in.InterestNote)
	return in
}
