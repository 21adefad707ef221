// Package store defines the record store used as the system of record for
// members, events, RSVPs and the content catalog.
package store

import (
	"context"
	"time"

	"github.com/aether-community/backend/internal/models"
)

// Members persists community members.
type Members interface {
	// FindByEmail returns the member owning email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
	// FindByCode returns the member with the given membership code, or ErrNotFound.
	FindByCode(ctx context.Context, code string) (*models.Member, error)
	// Create stores a member. A pending member with the same email is updated
	// in place, keeping its code and creation time.
	Create(ctx context.Context, m *models.Member) (*models.Member, error)
	// Update applies a partial update to the member with the given code.
	Update(ctx context.Context, code string, u models.MemberUpdate) (*models.Member, error)
	// IssueToken sets a login token on a verified member. Pending or unknown
	// members yield ErrNotFound.
	IssueToken(ctx context.Context, email, token string, expires time.Time) (*models.Member, error)
	// ConsumeToken redeems a verification or login token that expires after now.
	// Tokens are single-use; a miss yields ErrNotFound and changes nothing.
	ConsumeToken(ctx context.Context, token string, now time.Time) (*models.Member, error)
}

// Events reads the event catalog.
type Events interface {
	ListEvents(ctx context.Context) ([]models.Event, error)
	FindEvent(ctx context.Context, code string) (*models.Event, error)
}

// RSVPs records event registrations.
type RSVPs interface {
	CreateRSVP(ctx context.Context, r *models.RSVP) error
}

// Resources reads the knowledge hub.
type Resources interface {
	ListResources(ctx context.Context) ([]models.Resource, error)
}

// Updates reads the news feed.
type Updates interface {
	ListUpdates(ctx context.Context) ([]models.UpdatePost, error)
}

// SupportRequests records contact form messages.
type SupportRequests interface {
	CreateSupportRequest(ctx context.Context, r *models.SupportRequest) error
}

// Store is the full record store.
type Store interface {
	Members
	Events
	RSVPs
	Resources
	Updates
	SupportRequests
}
