package airtable

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aether-community/backend/internal/models"
)

// Member columns.
const (
	fMemberCode          = "Aether ID"
	fMemberFullName      = "Full Name"
	fMemberEmail         = "Email"
	fMemberLocation      = "City + Country"
	fMemberCity          = "City"
	fMemberCountry       = "Country"
	fMemberPhone         = "Phone"
	fMemberLevel         = "Professional Level"
	fMemberRole          = "Current Role"
	fMemberInterests     = "Interest Areas"
	fMemberPlatform      = "Preferred Community Platform"
	fMemberSocial        = "Social Handle"
	fMemberGoals         = "Goals"
	fMemberActivated     = "Is Activated"
	fMemberProfile       = "Profile Complete"
	fMemberCreatedAt     = "Created At"
	fMemberActivatedAt   = "Activated At"
	fMemberProfileAt     = "Profile Completed At"
	fMemberVerifyToken   = "Verification Token"
	fMemberVerifyExpires = "Verification Token Expires"
	fMemberLoginToken    = "Login Token"
	fMemberLoginExpires  = "Login Token Expires"
)

// Event columns. Speakers, agenda and the pitch fields hold JSON text.
const (
	fEventCode         = "Event Code"
	fEventTitle        = "Title"
	fEventDate         = "Date"
	fEventType         = "Type"
	fEventFocus        = "Focus"
	fEventDescription  = "Description"
	fEventLong         = "Long Description"
	fEventImage        = "Image"
	fEventPlatform     = "Platform"
	fEventLocation     = "Location"
	fEventSpeakers     = "Speakers"
	fEventAgenda       = "Agenda"
	fEventWhatToExpect = "What To Expect"
	fEventWhyAttend    = "Why Attend"
)

// RSVP columns.
const (
	fRSVPEventCode  = "Event Code"
	fRSVPFullName   = "Full Name"
	fRSVPEmail      = "Email"
	fRSVPMemberCode = "Aether ID"
	fRSVPCity       = "City + Country"
	fRSVPPlatform   = "Platform"
	fRSVPInterest   = "Interest Notes"
	fRSVPTimestamp  = "RSVP Timestamp"
)

// Resource and update columns.
const (
	fResTitle       = "Title"
	fResCategory    = "Category"
	fResType        = "Type"
	fResAuthor      = "Author"
	fResTags        = "Tags"
	fResLink        = "Link"
	fResAccess      = "Access"
	fResDateAdded   = "Date Added"
	fResDescription = "Description"

	fUpdTitle    = "Title"
	fUpdDate     = "Date"
	fUpdExcerpt  = "Excerpt"
	fUpdCategory = "Category"
	fUpdLink     = "Link"
)

// Support request columns are addressed by field id.
const (
	fSupportName    = "fldd5M9nJbBlstpgd"
	fSupportEmail   = "fldFqQLyaPQCoAnGv"
	fSupportSubject = "fldRvJloMXtxtXqj9"
	fSupportMessage = "fldADkwRbJOn90s1G"
)

func str(f map[string]any, key string) string {
	switch v := f[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

func boolean(f map[string]any, key string) bool {
	v, _ := f[key].(bool)
	return v
}

func strs(f map[string]any, key string) []string {
	switch v := f[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, it := range v {
			if s, ok := it.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		var out []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func timestamp(f map[string]any, key string) *time.Time {
	s, _ := f[key].(string)
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func jsonText(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// decodeJSON fills dst from a JSON long-text cell. A malformed cell is
// logged with its record id so editors can fix it.
func decodeJSON(logger *zap.Logger, r *record, key string, dst any) {
	s, _ := r.Fields[key].(string)
	if s == "" {
		return
	}
	if err := json.Unmarshal([]byte(s), dst); err != nil {
		logger.Warn("malformed JSON cell",
			zap.String("record_id", r.ID),
			zap.String("field", key),
			zap.Error(err),
		)
	}
}

func memberFromRecord(r *record) *models.Member {
	f := r.Fields
	m := &models.Member{
		RecordID:                 r.ID,
		Code:                     str(f, fMemberCode),
		FullName:                 str(f, fMemberFullName),
		Email:                    models.NormalizeEmail(str(f, fMemberEmail)),
		Location:                 str(f, fMemberLocation),
		City:                     str(f, fMemberCity),
		Country:                  str(f, fMemberCountry),
		Phone:                    str(f, fMemberPhone),
		ProfessionalLevel:        str(f, fMemberLevel),
		CurrentRole:              str(f, fMemberRole),
		InterestAreas:            strs(f, fMemberInterests),
		PreferredPlatform:        str(f, fMemberPlatform),
		SocialHandle:             str(f, fMemberSocial),
		Goals:                    str(f, fMemberGoals),
		EmailVerified:            boolean(f, fMemberActivated),
		ProfileComplete:          boolean(f, fMemberProfile),
		ActivatedAt:              timestamp(f, fMemberActivatedAt),
		ProfileCompletedAt:       timestamp(f, fMemberProfileAt),
		VerificationToken:        str(f, fMemberVerifyToken),
		VerificationTokenExpires: timestamp(f, fMemberVerifyExpires),
		LoginToken:               str(f, fMemberLoginToken),
		LoginTokenExpires:        timestamp(f, fMemberLoginExpires),
	}
	if t := timestamp(f, fMemberCreatedAt); t != nil {
		m.CreatedAt = *t
	} else if t, err := time.Parse(time.RFC3339Nano, r.CreatedTime); err == nil {
		m.CreatedAt = t
	}
	return m
}

// memberFields renders every writable member column.
func memberFields(m *models.Member) map[string]any {
	return map[string]any{
		fMemberCode:          m.Code,
		fMemberFullName:      m.FullName,
		fMemberEmail:         models.NormalizeEmail(m.Email),
		fMemberLocation:      m.Location,
		fMemberCity:          optional(m.City),
		fMemberCountry:       optional(m.Country),
		fMemberPhone:         optional(m.Phone),
		fMemberLevel:         optional(m.ProfessionalLevel),
		fMemberRole:          optional(m.CurrentRole),
		fMemberInterests:     m.InterestAreas,
		fMemberPlatform:      optional(m.PreferredPlatform),
		fMemberSocial:        optional(m.SocialHandle),
		fMemberGoals:         optional(m.Goals),
		fMemberActivated:     m.EmailVerified,
		fMemberProfile:       m.ProfileComplete,
		fMemberCreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
		fMemberActivatedAt:   timeValue(m.ActivatedAt),
		fMemberProfileAt:     timeValue(m.ProfileCompletedAt),
		fMemberVerifyToken:   optional(m.VerificationToken),
		fMemberVerifyExpires: timeValue(m.VerificationTokenExpires),
		fMemberLoginToken:    optional(m.LoginToken),
		fMemberLoginExpires:  timeValue(m.LoginTokenExpires),
	}
}

// updateFields renders only the columns touched by u.
func updateFields(u models.MemberUpdate) map[string]any {
	f := map[string]any{}
	set := func(key string, v *string) {
		if v != nil {
			f[key] = *v
		}
	}
	set(fMemberFullName, u.FullName)
	set(fMemberLocation, u.Location)
	set(fMemberCity, u.City)
	set(fMemberCountry, u.Country)
	set(fMemberPhone, u.Phone)
	if u.InterestAreas != nil {
		f[fMemberInterests] = u.InterestAreas
	}
	if u.ProfileComplete != nil {
		f[fMemberProfile] = *u.ProfileComplete
	}
	if u.ProfileCompletedAt != nil {
		f[fMemberProfileAt] = timeValue(u.ProfileCompletedAt)
	}
	if u.EmailVerified != nil {
		f[fMemberActivated] = *u.EmailVerified
	}
	if u.ActivatedAt != nil {
		f[fMemberActivatedAt] = timeValue(u.ActivatedAt)
	}
	if u.ClearTokens {
		f[fMemberVerifyToken] = nil
		f[fMemberVerifyExpires] = nil
		f[fMemberLoginToken] = nil
		f[fMemberLoginExpires] = nil
	}
	return f
}

func eventFromRecord(r *record, logger *zap.Logger) models.Event {
	f := r.Fields
	e := models.Event{
		RecordID:        r.ID,
		Code:            str(f, fEventCode),
		Title:           str(f, fEventTitle),
		Type:            str(f, fEventType),
		Focus:           str(f, fEventFocus),
		Description:     str(f, fEventDescription),
		LongDescription: str(f, fEventLong),
		Image:           str(f, fEventImage),
		Platform:        str(f, fEventPlatform),
		Location:        str(f, fEventLocation),
	}
	if t := timestamp(f, fEventDate); t != nil {
		e.StartsAt = *t
	}
	decodeJSON(logger, r, fEventSpeakers, &e.Speakers)
	decodeJSON(logger, r, fEventAgenda, &e.Agenda)
	decodeJSON(logger, r, fEventWhatToExpect, &e.WhatToExpect)
	decodeJSON(logger, r, fEventWhyAttend, &e.WhyAttend)
	if e.Speakers == nil {
		e.Speakers = []models.Speaker{}
	}
	return e
}

func rsvpFields(r *models.RSVP) map[string]any {
	return map[string]any{
		fRSVPEventCode:  r.EventCode,
		fRSVPFullName:   r.FullName,
		fRSVPEmail:      r.Email,
		fRSVPMemberCode: optional(r.MemberCode),
		fRSVPCity:       optional(r.CityCountry),
		fRSVPPlatform:   optional(r.Platform),
		fRSVPInterest:   optional(r.InterestNote),
		fRSVPTimestamp:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func resourceFromRecord(r *record) models.Resource {
	f := r.Fields
	res := models.Resource{
		ID:          r.ID,
		Title:       str(f, fResTitle),
		Category:    str(f, fResCategory),
		Type:        str(f, fResType),
		Author:      str(f, fResAuthor),
		Tags:        strs(f, fResTags),
		Link:        str(f, fResLink),
		Access:      str(f, fResAccess),
		Description: str(f, fResDescription),
	}
	if res.Access == "" {
		res.Access = models.AccessPublic
	}
	if t := timestamp(f, fResDateAdded); t != nil {
		res.DateAdded = *t
	}
	return res
}

func updateFromRecord(r *record) models.UpdatePost {
	f := r.Fields
	p := models.UpdatePost{
		ID:       r.ID,
		Title:    str(f, fUpdTitle),
		Excerpt:  str(f, fUpdExcerpt),
		Category: str(f, fUpdCategory),
		Link:     str(f, fUpdLink),
	}
	if t := timestamp(f, fUpdDate); t != nil {
		p.Date = *t
	}
	return p
}

func supportFields(r *models.SupportRequest) map[string]any {
	return map[string]any{
		fSupportName:    r.Name,
		fSupportEmail:   r.Email,
		fSupportSubject: r.Subject,
		fSupportMessage: r.Message,
	}
}
