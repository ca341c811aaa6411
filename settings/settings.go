// Package settings supplies captcha settings snapshots to request handlers.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/cppla/simplecaptcha/captcha"
	"github.com/cppla/simplecaptcha/models"
)

// ModuleSlug identifies the captcha row in the installed_modules table.
const ModuleSlug = "simple-captcha"

// Provider returns the settings snapshot for one request.
type Provider interface {
	Settings(ctx context.Context) (captcha.Settings, error)
}

// Static always returns the same snapshot.
type Static struct {
	s captcha.Settings
}

func NewStatic(s captcha.Settings) *Static {
	return &Static{s: s.Normalize()}
}

func (p *Static) Settings(context.Context) (captcha.Settings, error) {
	return p.s, nil
}

// Database reads the settings JSON of the captcha module row on every call.
// A missing row yields the fallback snapshot.
type Database struct {
	db       *gorm.DB
	slug     string
	fallback captcha.Settings
}

func NewDatabase(db *gorm.DB, fallback captcha.Settings) *Database {
	return &Database{db: db, slug: ModuleSlug, fallback: fallback.Normalize()}
}

func (p *Database) Settings(ctx context.Context) (captcha.Settings, error) {
	var row models.InstalledModule
	err := p.db.WithContext(ctx).Where("slug = ?", p.slug).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return p.fallback, nil
	}
	if err != nil {
		return captcha.Settings{}, fmt.Errorf("load %s settings: %w", p.slug, err)
	}
	if !row.IsEnabled {
		s := p.fallback
		s.Enabled = false
		return s, nil
	}
	return Decode(row.Settings, p.fallback)
}

// Decode parses a module settings document. Keys absent from raw keep the
// values of base; an empty document yields base.
func Decode(raw string, base captcha.Settings) (captcha.Settings, error) {
	if raw == "" || raw == "null" {
		return base.Normalize(), nil
	}
	s := base
	s.ProtectedForms = nil
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return captcha.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	if s.ProtectedForms == nil {
		s.ProtectedForms = base.ProtectedForms
	}
	return s.Normalize(), nil
}
