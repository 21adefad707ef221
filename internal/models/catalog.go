package models

import "time"

// Resource access levels.
const (
	AccessPublic      = "Public"
	AccessMembersOnly = "Members-only"
)

// Resource is a knowledge hub item maintained by an external editor.
type Resource struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Category    string    `json:"category" yaml:"category"`
	Type        string    `json:"type" yaml:"type"`
	Author      string    `json:"author" yaml:"author"`
	Tags        []string  `json:"tags" yaml:"tags"`
	Link        string    `json:"link" yaml:"link"`
	Access      string    `json:"access" yaml:"access"`
	DateAdded   time.Time `json:"date_added" yaml:"date_added"`
	Description string    `json:"description" yaml:"description"`
}

// UpdatePost is a news feed entry.
type UpdatePost struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Date     time.Time `json:"date" yaml:"date"`
	Excerpt  string    `json:"excerpt" yaml:"excerpt"`
	Category string    `json:"category" yaml:"category"`
	Link     string    `json:"link" yaml:"link"`
}

// SupportRequest is a message sent through the contact form.
type SupportRequest struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
