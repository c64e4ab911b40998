package models

import (
	"time"

	"gorm.io/gorm"
)

// An Activity is one collected ActivityStreams activity. The unique index
// on activity_id is the collector's de-duplication contract: two pollers
// racing on the same activity both attempt the insert and the loser
// treats the duplicate-key rejection as "already present".
type Activity struct {
	ID           uint32 `gorm:"primarykey"`
	CreatedAt    time.Time
	ActivityID   string `gorm:"size:512;uniqueIndex;not null"`
	ActivityType string `gorm:"size:64"`
	ActorID      string `gorm:"size:512;index"`
	ObjectID     string `gorm:"size:512"`
	ObjectType   string `gorm:"size:64"`
	Content      string
	PublishedAt  *time.Time `gorm:"index"`
	InstanceURL  string     `gorm:"size:255;index"`
	TagID        string     `gorm:"size:64;index"`
	RawData      map[string]any `gorm:"serializer:json"`
}

type Activities struct {
	db *gorm.DB
}

func NewActivities(db *gorm.DB) *Activities {
	return &Activities{db: db}
}

// ExistsByActivityID reports whether an activity with the given global id
// has already been collected.
func (a *Activities) ExistsByActivityID(activityID string) (bool, error) {
	var count int64
	err := a.db.Model(&Activity{}).Where("activity_id = ?", activityID).Count(&count).Error
	return count > 0, err
}

// FindByActivityID finds a collected activity by its global id.
func (a *Activities) FindByActivityID(activityID string) (*Activity, error) {
	var activity Activity
	return &activity, a.db.Where("activity_id = ?", activityID).Take(&activity).Error
}

// Create inserts the activity. A duplicate activity_id surfaces as
// gorm.ErrDuplicatedKey.
func (a *Activities) Create(activity *Activity) error {
	return a.db.Create(activity).Error
}

// Recent returns the most recently collected activities.
func (a *Activities) Recent(limit int) ([]Activity, error) {
	var activities []Activity
	return activities, a.db.Order("id desc").Limit(limit).Find(&activities).Error
}

// ByActor returns the most recently collected activities for one actor.
func (a *Activities) ByActor(actorID string, limit int) ([]Activity, error) {
	var activities []Activity
	return activities, a.db.Where("actor_id = ?", actorID).Order("id desc").Limit(limit).Find(&activities).Error
}
