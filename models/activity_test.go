package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestActivitiesCreateRejectsDuplicates(t *testing.T) {
	req := require.New(t)
	activities := NewActivities(setupTestDB(t))

	req.NoError(activities.Create(&Activity{ActivityID: "https://example.com/activities/1"}))
	err := activities.Create(&Activity{ActivityID: "https://example.com/activities/1"})
	req.ErrorIs(err, gorm.ErrDuplicatedKey)
}

func TestActivitiesExistsByActivityID(t *testing.T) {
	req := require.New(t)
	activities := NewActivities(setupTestDB(t))

	exists, err := activities.ExistsByActivityID("https://example.com/activities/1")
	req.NoError(err)
	req.False(exists)

	req.NoError(activities.Create(&Activity{ActivityID: "https://example.com/activities/1"}))

	exists, err = activities.ExistsByActivityID("https://example.com/activities/1")
	req.NoError(err)
	req.True(exists)
}

func TestActivitiesRawDataRoundTrips(t *testing.T) {
	req := require.New(t)
	activities := NewActivities(setupTestDB(t))

	published := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	req.NoError(activities.Create(&Activity{
		ActivityID:  "https://example.com/activities/1",
		PublishedAt: &published,
		RawData: map[string]any{
			"id":     "https://example.com/activities/1",
			"type":   "Create",
			"object": `{"type":"Note"}`,
		},
	}))

	activity, err := activities.FindByActivityID("https://example.com/activities/1")
	req.NoError(err)
	req.Equal("Create", activity.RawData["type"])
	req.Equal(`{"type":"Note"}`, activity.RawData["object"])
	req.True(activity.PublishedAt.Equal(published))
}

func TestActivitiesRecent(t *testing.T) {
	req := require.New(t)
	activities := NewActivities(setupTestDB(t))

	for _, id := range []string{"a", "b", "c"} {
		req.NoError(activities.Create(&Activity{ActivityID: "https://example.com/activities/" + id}))
	}

	recent, err := activities.Recent(2)
	req.NoError(err)
	req.Len(recent, 2)
	req.Equal("https://example.com/activities/c", recent[0].ActivityID)
	req.Equal("https://example.com/activities/b", recent[1].ActivityID)
}

func TestActivitiesByActor(t *testing.T) {
	req := require.New(t)
	activities := NewActivities(setupTestDB(t))

	req.NoError(activities.Create(&Activity{ActivityID: "https://example.com/activities/1", ActorID: "https://example.com/users/alice"}))
	req.NoError(activities.Create(&Activity{ActivityID: "https://example.com/activities/2", ActorID: "https://example.com/users/bob"}))

	byActor, err := activities.ByActor("https://example.com/users/alice", 10)
	req.NoError(err)
	req.Len(byActor, 1)
	req.Equal("https://example.com/activities/1", byActor[0].ActivityID)
}
