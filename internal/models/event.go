package models

import "time"

// Event types.
const (
	EventTypeTalk      = "Talk"
	EventTypeWorkshop  = "Workshop"
	EventTypeChallenge = "Challenge"
	EventTypeMeetup    = "Meetup"
)

// Speaker is one presenter of an event.
type Speaker struct {
	Name   string `json:"name" yaml:"name"`
	Title  string `json:"title" yaml:"title"`
	Bio    string `json:"bio" yaml:"bio"`
	Avatar string `json:"avatar" yaml:"avatar"`
}

// AgendaItem is one slot of an event agenda.
type AgendaItem struct {
	Time  string `json:"time" yaml:"time"`
	Topic string `json:"topic" yaml:"topic"`
}

// WhyAttend holds audience-specific pitches for an event.
type WhyAttend struct {
	Students      string `json:"students" yaml:"students"`
	Professionals string `json:"professionals" yaml:"professionals"`
}

// Event is a scheduled community activity.
type Event struct {
	RecordID string `json:"-" yaml:"-"`

	Code            string       `json:"code" yaml:"code"`
	Title           string       `json:"title" yaml:"title"`
	StartsAt        time.Time    `json:"starts_at" yaml:"starts_at"`
	Type            string       `json:"type" yaml:"type"`
	Focus           string       `json:"focus" yaml:"focus"`
	Description     string       `json:"description" yaml:"description"`
	LongDescription string       `json:"long_description,omitempty" yaml:"long_description"`
	Image           string       `json:"image,omitempty" yaml:"image"`
	Platform        string       `json:"platform,omitempty" yaml:"platform"`
	Location        string       `json:"location,omitempty" yaml:"location"`
	Speakers        []Speaker    `json:"speakers" yaml:"speakers"`
	Agenda          []AgendaItem `json:"agenda" yaml:"agenda"`
	WhatToExpect    []string     `json:"what_to_expect,omitempty" yaml:"what_to_expect"`
	WhyAttend       *WhyAttend   `json:"why_attend,omitempty" yaml:"why_attend"`
}
