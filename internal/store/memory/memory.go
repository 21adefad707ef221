// Package memory is an in-process record store used by tests and local
// development when no remote datastore is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/store"
)

// Store keeps all records in maps guarded by a single mutex.
type Store struct {
	mu        sync.Mutex
	members   map[string]*models.Member // by code
	events    map[string]models.Event   // by code
	rsvps     []models.RSVP
	resources []models.Resource
	updates   []models.UpdatePost
	support   []models.SupportRequest
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		members: make(map[string]*models.Member),
		events:  make(map[string]models.Event),
		now:     time.Now,
	}
}

// WithClock replaces the clock used to stamp created records.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) findByEmailLocked(email string) *models.Member {
	email = models.NormalizeEmail(email)
	for _, m := range s.members {
		if m.Email == email {
			return m
		}
	}
	return nil
}

// FindByEmail implements store.Members.
func (s *Store) FindByEmail(_ context.Context, email string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findByEmailLocked(email)
	if m == nil {
		return nil, store.ErrNotFound
	}
	return m.Clone(), nil
}

// FindByCode implements store.Members.
func (s *Store) FindByCode(_ context.Context, code string) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return m.Clone(), nil
}

// Create implements store.Members with upsert-on-email semantics.
func (s *Store) Create(_ context.Context, m *models.Member) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := m.Clone()
	rec.Email = models.NormalizeEmail(rec.Email)

	if existing := s.findByEmailLocked(rec.Email); existing != nil {
		if existing.EmailVerified {
			return nil, &store.StoreError{StatusCode: 422, Kind: store.KindBadRequest, Message: "email already belongs to a verified member"}
		}
		rec.Code = existing.Code
		rec.RecordID = existing.RecordID
		rec.CreatedAt = existing.CreatedAt
		s.members[rec.Code] = rec
		return rec.Clone(), nil
	}

	if rec.Code == "" {
		return nil, &store.StoreError{StatusCode: 422, Kind: store.KindBadRequest, Message: "member code is required"}
	}
	if _, taken := s.members[rec.Code]; taken {
		return nil, &store.StoreError{StatusCode: 422, Kind: store.KindBadRequest, Message: fmt.Sprintf("member code %s already taken", rec.Code)}
	}
	rec.RecordID = "rec" + uuid.NewString()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.members[rec.Code] = rec
	return rec.Clone(), nil
}

// Update implements store.Members.
func (s *Store) Update(_ context.Context, code string, u models.MemberUpdate) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	u.Apply(m)
	return m.Clone(), nil
}

// IssueToken implements store.Members.
func (s *Store) IssueToken(_ context.Context, email, token string, expires time.Time) (*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findByEmailLocked(email)
	if m == nil || !m.EmailVerified {
		return nil, store.ErrNotFound
	}
	m.LoginToken = token
	m.LoginTokenExpires = &expires
	return m.Clone(), nil
}

// ConsumeToken implements store.Members. The lookup and the write happen
// under one lock, so a token can be redeemed at most once.
func (s *Store) ConsumeToken(_ context.Context, token string, now time.Time) (*models.Member, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members {
		switch {
		case m.VerificationToken == token:
			if m.VerificationTokenExpires == nil || !m.VerificationTokenExpires.After(now) {
				return nil, store.ErrNotFound
			}
			activated := now
			m.EmailVerified = true
			m.ActivatedAt = &activated
			m.VerificationToken = ""
			m.VerificationTokenExpires = nil
			return m.Clone(), nil
		case m.LoginToken == token:
			if m.LoginTokenExpires == nil || !m.LoginTokenExpires.After(now) {
				return nil, store.ErrNotFound
			}
			m.LoginToken = ""
			m.LoginTokenExpires = nil
			return m.Clone(), nil
		}
	}
	return nil, store.ErrNotFound
}

// Members returns a snapshot of every stored member, ordered by code.
func (s *Store) Members() []models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Member, 0, len(s.members))
	for _, m := range s.members {
		out = append(out, *m.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// PutEvent adds or replaces an event.
func (s *Store) PutEvent(e models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.Code] = e
}

// ListEvents implements store.Events.
func (s *Store) ListEvents(_ context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// FindEvent implements store.Events.
func (s *Store) FindEvent(_ context.Context, code string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[code]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

// CreateRSVP implements store.RSVPs.
func (s *Store) CreateRSVP(_ context.Context, r *models.RSVP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = "rec" + uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.rsvps = append(s.rsvps, *r)
	return nil
}

// RSVPs returns every recorded RSVP in submission order.
func (s *Store) RSVPs() []models.RSVP {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.RSVP(nil), s.rsvps...)
}

// PutResource adds a knowledge resource.
func (s *Store) PutResource(r models.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = append(s.resources, r)
}

// ListResources implements store.Resources.
func (s *Store) ListResources(_ context.Context) ([]models.Resource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Resource(nil), s.resources...), nil
}

// PutUpdate adds a news post.
func (s *Store) PutUpdate(p models.UpdatePost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, p)
}

// ListUpdates implements store.Updates.
func (s *Store) ListUpdates(_ context.Context) ([]models.UpdatePost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UpdatePost(nil), s.updates...), nil
}

// CreateSupportRequest implements store.SupportRequests.
func (s *Store) CreateSupportRequest(_ context.Context, r *models.SupportRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.support = append(s.support, *r)
	return nil
}

// SupportRequests returns every recorded support request.
func (s *Store) SupportRequests() []models.SupportRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SupportRequest(nil), s.support...)
}
