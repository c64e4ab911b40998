package models

import (
	"time"

	"gorm.io/gorm"
)

// A Monitor is a subscriber's rule set for selecting collected activities.
// Monitors are created and owned elsewhere; the collector only reads them
// to decide whether an activity matches.
type Monitor struct {
	ID        uint32 `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string         `gorm:"size:255"`
	Keywords  []KeywordRule  `gorm:"constraint:OnDelete:CASCADE;"`
	Accounts  []AccountRule  `gorm:"constraint:OnDelete:CASCADE;"`
	Regions   []RegionalRule `gorm:"constraint:OnDelete:CASCADE;"`
}

// A KeywordRule matches activity content against comma-separated keyword
// lists. Spam keywords veto the rule before the positive check runs.
type KeywordRule struct {
	ID           uint32 `gorm:"primarykey"`
	MonitorID    uint32 `gorm:"index;not null"`
	Keywords     string
	SpamKeywords string
	Active       bool `gorm:"default:true;not null"`
}

// An AccountRule matches activities from a followed account. The excluded
// accounts list, same comma-separated form, vetoes the rule.
type AccountRule struct {
	ID               uint32 `gorm:"primarykey"`
	MonitorID        uint32 `gorm:"index;not null"`
	Follow           string `gorm:"size:255"`
	ExcludedAccounts string
}

// A RegionalRule carries a bounding box (MBR). Activities have no
// geographic field, so a rule with a bounding box never matches; a rule
// without one matches everything.
type RegionalRule struct {
	ID        uint32 `gorm:"primarykey"`
	MonitorID uint32 `gorm:"index;not null"`
	MBR       string `gorm:"column:mbr"`
}

type Monitors struct {
	db *gorm.DB
}

func NewMonitors(db *gorm.DB) *Monitors {
	return &Monitors{db: db}
}

// Find returns one monitor with all its rules loaded.
func (m *Monitors) Find(id uint32) (*Monitor, error) {
	var monitor Monitor
	return &monitor, m.db.Preload("Keywords").Preload("Accounts").Preload("Regions").Take(&monitor, id).Error
}

// All returns every monitor with its rules loaded.
func (m *Monitors) All() ([]Monitor, error) {
	var monitors []Monitor
	return monitors, m.db.Preload("Keywords").Preload("Accounts").Preload("Regions").Find(&monitors).Error
}
