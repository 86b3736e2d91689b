package activity

import (
	"fmt"

	"fleetshop/internal/model"

	"gorm.io/gorm"
)

// Entry describes one audit row
type Entry struct {
	TenantID   uint
	UserID     *uint
	EntityType string
	EntityID   uint
	Action     string
	OldValues  map[string]interface{}
	NewValues  map[string]interface{}
}

// Record appends entry to the activity log using tx, so it commits
// or rolls back with the change it describes.
func Record(tx *gorm.DB, entry Entry) error {
	log := model.ActivityLog{
		TenantID:   entry.TenantID,
		UserID:     entry.UserID,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Action:     entry.Action,
		OldValues:  entry.OldValues,
		NewValues:  entry.NewValues,
	}
	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("record %s %s activity: %w", entry.EntityType, entry.Action, err)
	}
	return nil
}

// Filter narrows an activity listing
type Filter struct {
	EntityType string
	EntityID   uint
	Limit      int
}

// List returns a tenant's activity, newest first
func List(db *gorm.DB, tenantID uint, f Filter) ([]model.ActivityLog, error) {
	query := db.Where("tenant_id = ?", tenantID)
	if f.EntityType != "" {
		query = query.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID != 0 {
		query = query.Where("entity_id = ?", f.EntityID)
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []model.ActivityLog
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	return logs, nil
}
