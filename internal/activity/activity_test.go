package activity

import (
	"errors"
	"testing"

	"fleetshop/internal/model"
	"fleetshop/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRecordJoinsCallerTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	rollback := errors.New("rollback")

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, Record(tx, Entry{TenantID: 1, EntityType: "job", EntityID: 9, Action: "created"}))
		return rollback
	})
	require.ErrorIs(t, err, rollback)

	var count int64
	require.NoError(t, db.Model(&model.ActivityLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	userID := uint(4)

	entries := []Entry{
		{TenantID: 1, UserID: &userID, EntityType: "job", EntityID: 9, Action: "created", NewValues: map[string]interface{}{"title": "Brakes"}},
		{TenantID: 1, UserID: &userID, EntityType: "job", EntityID: 9, Action: "status_updated",
			OldValues: map[string]interface{}{"status_id": 1}, NewValues: map[string]interface{}{"status_id": 2}},
		{TenantID: 1, EntityType: "quote", EntityID: 3, Action: "sent"},
		{TenantID: 2, EntityType: "job", EntityID: 9, Action: "created"},
	}
	for _, e := range entries {
		require.NoError(t, Record(db, e))
	}

	all, err := List(db, 1, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, "sent", all[0].Action, "newest first")

	jobs, err := List(db, 1, Filter{EntityType: "job", EntityID: 9})
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "status_updated", jobs[0].Action)
	assert.EqualValues(t, 2, jobs[0].NewValues["status_id"])
	require.NotNil(t, jobs[0].UserID)
	assert.Equal(t, userID, *jobs[0].UserID)

	limited, err := List(db, 1, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
