package airtable

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/models"
	"github.com/aether-community/backend/internal/store"
)

// FindByEmail implements store.Members.
func (c *Client) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	formula := "LOWER({" + fMemberEmail + "}) = " + quote(models.NormalizeEmail(email))
	rec, err := c.findOne(ctx, c.cfg.Tables.Members, formula)
	if err != nil {
		return nil, err
	}
	return memberFromRecord(rec), nil
}

// FindByCode implements store.Members.
func (c *Client) FindByCode(ctx context.Context, code string) (*models.Member, error) {
	rec, err := c.findOne(ctx, c.cfg.Tables.Members, eq(fMemberCode, code))
	if err != nil {
		return nil, err
	}
	return memberFromRecord(rec), nil
}

// Create implements store.Members. The existence check and the write are two
// separate calls; concurrent sign-ups for one email are not serialised.
func (c *Client) Create(ctx context.Context, m *models.Member) (*models.Member, error) {
	existing, err := c.FindByEmail(ctx, m.Email)
	switch {
	case err == nil:
		if existing.EmailVerified {
			return nil, &store.StoreError{StatusCode: 422, Kind: store.KindBadRequest, Message: "email already belongs to a verified member"}
		}
		rec := m.Clone()
		rec.Code = existing.Code
		rec.CreatedAt = existing.CreatedAt
		fields := memberFields(rec)
		updated, err := c.update(ctx, c.cfg.Tables.Members, existing.RecordID, fields)
		if err != nil {
			return nil, err
		}
		c.logger.Info("updated pending member", zap.String("member_code", rec.Code))
		return memberFromRecord(updated), nil
	case errors.Is(err, store.ErrNotFound):
	default:
		return nil, fmt.Errorf("check existing member: %w", err)
	}

	rec := m.Clone()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = c.now()
	}
	created, err := c.create(ctx, c.cfg.Tables.Members, compact(memberFields(rec)))
	if err != nil {
		return nil, err
	}
	c.logger.Info("created member", zap.String("member_code", rec.Code))
	return memberFromRecord(created), nil
}

// Update implements store.Members.
func (c *Client) Update(ctx context.Context, code string, u models.MemberUpdate) (*models.Member, error) {
	m, err := c.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	rec, err := c.update(ctx, c.cfg.Tables.Members, m.RecordID, updateFields(u))
	if err != nil {
		return nil, err
	}
	return memberFromRecord(rec), nil
}

// IssueToken implements store.Members.
func (c *Client) IssueToken(ctx context.Context, email, token string, expires time.Time) (*models.Member, error) {
	m, err := c.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !m.EmailVerified {
		return nil, store.ErrNotFound
	}
	rec, err := c.update(ctx, c.cfg.Tables.Members, m.RecordID, map[string]any{
		fMemberLoginToken:   token,
		fMemberLoginExpires: timeValue(&expires),
	})
	if err != nil {
		return nil, err
	}
	return memberFromRecord(rec), nil
}

// ConsumeToken implements store.Members. Expiry is checked against now here
// rather than in the formula so the caller's clock is authoritative.
func (c *Client) ConsumeToken(ctx context.Context, token string, now time.Time) (*models.Member, error) {
	if token == "" {
		return nil, store.ErrNotFound
	}
	formula := "OR(" + eq(fMemberVerifyToken, token) + ", " + eq(fMemberLoginToken, token) + ")"
	rec, err := c.findOne(ctx, c.cfg.Tables.Members, formula)
	if err != nil {
		return nil, err
	}
	m := memberFromRecord(rec)

	var fields map[string]any
	switch {
	case m.VerificationToken == token:
		if m.VerificationTokenExpires == nil || !m.VerificationTokenExpires.After(now) {
			return nil, store.ErrNotFound
		}
		fields = map[string]any{
			fMemberActivated:     true,
			fMemberActivatedAt:   timeValue(&now),
			fMemberVerifyToken:   nil,
			fMemberVerifyExpires: nil,
		}
	case m.LoginToken == token:
		if m.LoginTokenExpires == nil || !m.LoginTokenExpires.After(now) {
			return nil, store.ErrNotFound
		}
		fields = map[string]any{
			fMemberLoginToken:   nil,
			fMemberLoginExpires: nil,
		}
	default:
		return nil, store.ErrNotFound
	}

	updated, err := c.update(ctx, c.cfg.Tables.Members, m.RecordID, fields)
	if err != nil {
		return nil, err
	}
	return memberFromRecord(updated), nil
}

// compact drops empty values so creates do not send explicit nulls.
func compact(fields map[string]any) map[string]any {
	for k, v := range fields {
		switch t := v.(type) {
		case nil:
			delete(fields, k)
		case []string:
			if len(t) == 0 {
				delete(fields, k)
			}
		}
	}
	return fields
}
