package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// An Actor is an identity resolved from a federated instance. Before
// resolution (username, instance_url) identifies it; afterwards actor_id,
// the canonical URI, is the durable key. Actors are refreshed in place
// when stale and never deleted by the collector.
type Actor struct {
	ID             uint32 `gorm:"primarykey"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ActorID        string `gorm:"size:512;uniqueIndex;not null"`
	Username       string `gorm:"size:64;uniqueIndex:idx_actor_username_instance;not null"`
	InstanceURL    string `gorm:"size:255;uniqueIndex:idx_actor_username_instance;not null"`
	ActorType      string `gorm:"size:32;default:'Person';not null"`
	InboxURL       string `gorm:"size:512"`
	OutboxURL      string `gorm:"size:512"`
	SharedInboxURL string `gorm:"size:512"`
	ProfileData    map[string]any `gorm:"serializer:json"`
	LastCheckedAt  *time.Time
}

// CheckedWithin reports whether the actor was resolved within the given
// freshness window.
func (a *Actor) CheckedWithin(window time.Duration) bool {
	return a.LastCheckedAt != nil && time.Since(*a.LastCheckedAt) < window
}

// Acct returns the actor's user@host handle.
func (a *Actor) Acct() string {
	host := a.InstanceURL
	if i := len("https://"); len(host) > i && host[:i] == "https://" {
		host = host[i:]
	}
	return a.Username + "@" + host
}

type Actors struct {
	db *gorm.DB
}

func NewActors(db *gorm.DB) *Actors {
	return &Actors{db: db}
}

// FindByActorID finds an actor by its canonical URI.
func (a *Actors) FindByActorID(actorID string) (*Actor, error) {
	var actor Actor
	return &actor, a.db.Where("actor_id = ?", actorID).Take(&actor).Error
}

// FindByHandle finds an actor by its pre-resolution identity.
func (a *Actors) FindByHandle(username, instanceURL string) (*Actor, error) {
	var actor Actor
	return &actor, a.db.Where("username = ? AND instance_url = ?", username, instanceURL).Take(&actor).Error
}

// All returns every stored actor, oldest check first, so a polling sweep
// visits the stalest actors before the rest.
func (a *Actors) All() ([]Actor, error) {
	var actors []Actor
	return actors, a.db.Order("last_checked_at").Find(&actors).Error
}

// Save upserts the actor keyed on its canonical URI.
func (a *Actors) Save(actor *Actor) error {
	return a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "actor_id"}},
		UpdateAll: true,
	}).Create(actor).Error
}
