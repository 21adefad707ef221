// Package pages serves the data behind the site's page routes: static
// marketing copy plus the live catalog sections each page shows.
package pages

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var contentYAML []byte

// Block is a titled paragraph.
type Block struct {
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
}

// Home is the landing page copy.
type Home struct {
	Title        string  `yaml:"title" json:"title"`
	Intro        string  `yaml:"intro" json:"intro"`
	Features     []Block `yaml:"features" json:"features"`
	CallToAction string  `yaml:"call_to_action" json:"call_to_action"`
}

// About is the about page copy.
type About struct {
	Title   string  `yaml:"title" json:"title"`
	Intro   string  `yaml:"intro" json:"intro"`
	Story   string  `yaml:"story" json:"story"`
	Mission string  `yaml:"mission" json:"mission"`
	Vision  string  `yaml:"vision" json:"vision"`
	Values  []Block `yaml:"values" json:"values"`
}

// Question is one FAQ entry.
type Question struct {
	Question string `yaml:"question" json:"question"`
	Answer   string `yaml:"answer" json:"answer"`
}

// Program is one learning path.
type Program struct {
	Name     string   `yaml:"name" json:"name"`
	Summary  string   `yaml:"summary" json:"summary"`
	Benefits []string `yaml:"benefits" json:"benefits"`
	Action   string   `yaml:"action" json:"action"`
}

// JoinOptions are the choices offered by the join form.
type JoinOptions struct {
	ProfessionalLevels []string `yaml:"professional_levels" json:"professional_levels"`
	InterestAreas      []string `yaml:"interest_areas" json:"interest_areas"`
}

// ProfileOptions are the choices offered by the profile form.
type ProfileOptions struct {
	Interests []string `yaml:"interests" json:"interests"`
}

// Content is the full set of static page copy.
type Content struct {
	Home     Home           `yaml:"home"`
	About    About          `yaml:"about"`
	FAQ      []Question     `yaml:"faq"`
	Programs []Program      `yaml:"programs"`
	Join     JoinOptions    `yaml:"join"`
	Profile  ProfileOptions `yaml:"profile"`
}

// LoadContent parses the bundled page copy.
func LoadContent() (*Content, error) {
	return ParseContent(contentYAML)
}

// ParseContent parses page copy from YAML.
func ParseContent(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse page content: %w", err)
	}
	return &c, nil
}
