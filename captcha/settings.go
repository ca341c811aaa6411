package captcha

import (
	"strings"

	"github.com/gobwas/glob"
)

// Type selects the challenge variant.
type Type string

const (
	TypeMath  Type = "math"
	TypeImage Type = "image"
)

// Difficulty controls operand ranges and operators of math challenges.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

const (
	MinLength        = 4
	MaxLength        = 8
	DefaultLength    = 5
	MinExpirySeconds = 60
	MaxExpirySeconds = 900
	DefaultExpiry    = 300
)

// Settings is a read-only snapshot of the captcha module configuration.
// Callers fetch it once per request and pass it to Generate and Verify.
type Settings struct {
	Enabled        bool            `json:"enabled" yaml:"enabled" toml:"enabled"`
	Type           Type            `json:"type" yaml:"type" toml:"type"`
	Difficulty     Difficulty      `json:"difficulty" yaml:"difficulty" toml:"difficulty"`
	CaseSensitive  bool            `json:"case_sensitive" yaml:"case_sensitive" toml:"case_sensitive"`
	Length         int             `json:"length" yaml:"length" toml:"length"`
	ExpirySeconds  int             `json:"expiry" yaml:"expiry" toml:"expiry"`
	ProtectedForms map[string]bool `json:"protected_forms" yaml:"protected_forms" toml:"protected_forms"`
}

// DefaultSettings mirrors the module defaults shipped with a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Enabled:       false,
		Type:          TypeMath,
		Difficulty:    DifficultyEasy,
		CaseSensitive: false,
		Length:        DefaultLength,
		ExpirySeconds: DefaultExpiry,
		ProtectedForms: map[string]bool{
			"login":          true,
			"register":       true,
			"checkout_guest": true,
			"contact":        true,
			"newsletter":     false,
			"reviews":        false,
		},
	}
}

// Normalize returns a copy with unknown enums replaced by defaults and
// numeric fields clamped to their admissible ranges.
func (s Settings) Normalize() Settings {
	out := s
	switch Type(strings.ToLower(string(s.Type))) {
	case TypeImage:
		out.Type = TypeImage
	default:
		out.Type = TypeMath
	}
	switch Difficulty(strings.ToLower(string(s.Difficulty))) {
	case DifficultyMedium:
		out.Difficulty = DifficultyMedium
	case DifficultyHard:
		out.Difficulty = DifficultyHard
	default:
		out.Difficulty = DifficultyEasy
	}
	out.Length = clamp(s.Length, DefaultLength, MinLength, MaxLength)
	out.ExpirySeconds = clamp(s.ExpirySeconds, DefaultExpiry, MinExpirySeconds, MaxExpirySeconds)
	return out
}

// IsFormProtected reports whether the named form must present a solved challenge.
// An exact key wins; otherwise any glob pattern key set to true protects the form.
func (s Settings) IsFormProtected(form string) bool {
	if !s.Enabled {
		return false
	}
	if v, ok := s.ProtectedForms[form]; ok {
		return v
	}
	for pattern, protected := range s.ProtectedForms {
		if !protected || !strings.ContainsAny(pattern, "*?[{") {
			continue
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			continue
		}
		if g.Match(form) {
			return true
		}
	}
	return false
}

// FrontendConfig is the minimal view a client needs to decide whether to render a widget.
type FrontendConfig struct {
	Enabled bool `json:"enabled"`
	Type    Type `json:"type,omitempty"`
}

func (s Settings) FrontendConfig() FrontendConfig {
	if !s.Enabled {
		return FrontendConfig{Enabled: false}
	}
	return FrontendConfig{Enabled: true, Type: s.Normalize().Type}
}

func clamp(v, def, lo, hi int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
