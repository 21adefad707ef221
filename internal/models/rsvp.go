package models

import "time"

// RSVP links an attendee, optionally a member, to an event.
type RSVP struct {
	ID           string    `json:"id"`
	EventCode    string    `json:"event_code"`
	MemberCode   string    `json:"member_code,omitempty"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	CityCountry  string    `json:"city_country,omitempty"`
	Platform     string    `json:"platform,omitempty"`
	InterestNote string    `json:"interest_note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
