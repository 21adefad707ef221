package models

import (
	"strings"
	"time"
)

// DefaultPlatform is the community platform assigned when a member does not pick one.
const DefaultPlatform = "Discord"

// Member is a person who requested or completed community registration.
type Member struct {
	RecordID string `json:"-"` // datastore row id, opaque to the domain

	Code               string     `json:"member_code"`
	FullName           string     `json:"full_name"`
	Email              string     `json:"email"`
	Location           string     `json:"location"`
	City               string     `json:"city,omitempty"`
	Country            string     `json:"country,omitempty"`
	Phone              string     `json:"phone,omitempty"`
	ProfessionalLevel  string     `json:"professional_level,omitempty"`
	CurrentRole        string     `json:"current_role,omitempty"`
	InterestAreas      []string   `json:"interest_areas,omitempty"`
	PreferredPlatform  string     `json:"preferred_platform,omitempty"`
	SocialHandle       string     `json:"social_handle,omitempty"`
	Goals              string     `json:"goals,omitempty"`
	EmailVerified      bool       `json:"email_verified"`
	ProfileComplete    bool       `json:"profile_complete"`
	CreatedAt          time.Time  `json:"created_at"`
	ActivatedAt        *time.Time `json:"activated_at,omitempty"`
	ProfileCompletedAt *time.Time `json:"profile_completed_at,omitempty"`

	VerificationToken        string     `json:"-"`
	VerificationTokenExpires *time.Time `json:"-"`
	LoginToken               string     `json:"-"`
	LoginTokenExpires        *time.Time `json:"-"`
}

// MemberUpdate is a partial update; nil fields are left untouched.
type MemberUpdate struct {
	FullName           *string
	Location           *string
	City               *string
	Country            *string
	Phone              *string
	InterestAreas      []string
	ProfileComplete    *bool
	ProfileCompletedAt *time.Time
	EmailVerified      *bool
	ActivatedAt        *time.Time
	ClearTokens        bool
}

// Apply copies the set fields of u onto m.
func (u MemberUpdate) Apply(m *Member) {
	if u.FullName != nil {
		m.FullName = *u.FullName
	}
	if u.Location != nil {
		m.Location = *u.Location
	}
	if u.City != nil {
		m.City = *u.City
	}
	if u.Country != nil {
		m.Country = *u.Country
	}
	if u.Phone != nil {
		m.Phone = *u.Phone
	}
	if u.InterestAreas != nil {
		m.InterestAreas = append([]string(nil), u.InterestAreas...)
	}
	if u.ProfileComplete != nil {
		m.ProfileComplete = *u.ProfileComplete
	}
	if u.ProfileCompletedAt != nil {
		t := *u.ProfileCompletedAt
		m.ProfileCompletedAt = &t
	}
	if u.EmailVerified != nil {
		m.EmailVerified = *u.EmailVerified
	}
	if u.ActivatedAt != nil {
		t := *u.ActivatedAt
		m.ActivatedAt = &t
	}
	if u.ClearTokens {
		m.VerificationToken = ""
		m.VerificationTokenExpires = nil
		m.LoginToken = ""
		m.LoginTokenExpires = nil
	}
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Clone returns a deep copy of m.
func (m *Member) Clone() *Member {
	c := *m
	c.InterestAreas = append([]string(nil), m.InterestAreas...)
	c.ActivatedAt = copyTime(m.ActivatedAt)
	c.ProfileCompletedAt = copyTime(m.ProfileCompletedAt)
	c.VerificationTokenExpires = copyTime(m.VerificationTokenExpires)
	c.LoginTokenExpires = copyTime(m.LoginTokenExpires)
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
