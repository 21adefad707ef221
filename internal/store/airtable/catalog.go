package airtable

import (
	"context"

	"github.com/aether-community/backend/internal/models"
)

// ListEvents implements store.Events, ordered by start date.
func (c *Client) ListEvents(ctx context.Context) ([]models.Event, error) {
	recs, err := c.list(ctx, c.cfg.Tables.Events, "", fEventDate, 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.Event, 0, len(recs))
	for i := range recs {
		out = append(out, eventFromRecord(&recs[i], c.logger))
	}
	return out, nil
}

// FindEvent implements store.Events.
func (c *Client) FindEvent(ctx context.Context, code string) (*models.Event, error) {
	rec, err := c.findOne(ctx, c.cfg.Tables.Events, eq(fEventCode, code))
	if err != nil {
		return nil, err
	}
	e := eventFromRecord(rec, c.logger)
	return &e, nil
}

// CreateRSVP implements store.RSVPs.
func (c *Client) CreateRSVP(ctx context.Context, r *models.RSVP) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = c.now()
	}
	rec, err := c.create(ctx, c.cfg.Tables.RSVPs, compact(rsvpFields(r)))
	if err != nil {
		return err
	}
	r.ID = rec.ID
	return nil
}

// ListResources implements store.Resources.
func (c *Client) ListResources(ctx context.Context) ([]models.Resource, error) {
	recs, err := c.list(ctx, c.cfg.Tables.Resources, "", "", 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.Resource, 0, len(recs))
	for i := range recs {
		out = append(out, resourceFromRecord(&recs[i]))
	}
	return out, nil
}

// ListUpdates implements store.Updates.
func (c *Client) ListUpdates(ctx context.Context) ([]models.UpdatePost, error) {
	recs, err := c.list(ctx, c.cfg.Tables.Updates, "", "", 0)
	if err != nil {
		return nil, err
	}
	out := make([]models.UpdatePost, 0, len(recs))
	for i := range recs {
		out = append(out, updateFromRecord(&recs[i]))
	}
	return out, nil
}

// CreateSupportRequest implements store.SupportRequests.
func (c *Client) CreateSupportRequest(ctx context.Context, r *models.SupportRequest) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = c.now()
	}
	_, err := c.create(ctx, c.cfg.Tables.Support, supportFields(r))
	return err
}
