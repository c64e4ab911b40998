package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonitorsFindLoadsRules(t *testing.T) {
	req := require.New(t)
	db := setupTestDB(t)
	monitors := NewMonitors(db)

	monitor := &Monitor{
		Name: "disaster watch",
		Keywords: []KeywordRule{
			{Keywords: "earthquake, flood", SpamKeywords: "casino", Active: true},
			{Keywords: "wildfire", Active: false},
		},
		Accounts: []AccountRule{
			{Follow: "alerts@example.com"},
		},
		Regions: []RegionalRule{
			{MBR: ""},
		},
	}
	req.NoError(db.Create(monitor).Error)

	found, err := monitors.Find(monitor.ID)
	req.NoError(err)
	req.Equal("disaster watch", found.Name)
	req.Len(found.Keywords, 2)
	req.Len(found.Accounts, 1)
	req.Len(found.Regions, 1)
	req.True(found.Keywords[0].Active)
	req.False(found.Keywords[1].Active)

	all, err := monitors.All()
	req.NoError(err)
	req.Len(all, 1)
	req.Len(all[0].Keywords, 2)
}
