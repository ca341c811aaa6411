package models

import "time"

// InstalledModule is a row of the host application's module registry. The
// captcha module reads its settings JSON from the row with slug "simple-captcha".
type InstalledModule struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Slug      string    `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Settings  string    `gorm:"type:json" json:"settings"`
	IsEnabled bool      `gorm:"default:true" json:"is_enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the host application's table name.
func (InstalledModule) TableName() string {
	return "installed_modules"
}
